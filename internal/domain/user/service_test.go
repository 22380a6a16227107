package user

import (
	"context"
	"errors"
	"testing"
)

type fakeUserRepo struct {
	users map[string]*User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*User)}
}

func (r *fakeUserRepo) GetUser(ctx context.Context, userID string) (*User, error) {
	u, ok := r.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) CreateUser(ctx context.Context, user *User) error {
	if _, ok := r.users[user.ID]; ok {
		return ErrUserExists
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) UpdateProfile(ctx context.Context, userID, name string, role Role) error {
	u, ok := r.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.Name = name
	u.Role = role
	return nil
}

type fakeDeletions map[string]bool

func (f fakeDeletions) DeletionPending(ctx context.Context, userID string) (bool, error) {
	return f[userID], nil
}

func TestSetupProfileCreates(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo, nil)

	result, created, err := svc.SetupProfile(context.Background(), "user-1", "  Mom  ", "Parent")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !created {
		t.Fatalf("expected created")
	}
	if result.Name != "Mom" || result.Role != RoleParent {
		t.Fatalf("unexpected profile %+v", result)
	}
	if result.RoomID != "" {
		t.Fatalf("expected empty room id, got %q", result.RoomID)
	}
	if _, ok := repo.users["user-1"]; !ok {
		t.Fatalf("expected user stored")
	}
}

func TestSetupProfileUpdatesWithoutTouchingRoom(t *testing.T) {
	repo := newFakeUserRepo()
	repo.users["user-1"] = &User{ID: "user-1", Name: "Old", Role: RoleChild, RoomID: "room-1"}
	svc := NewService(repo, nil)

	result, created, err := svc.SetupProfile(context.Background(), "user-1", "New", RoleParent)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if created {
		t.Fatalf("expected update, not create")
	}
	if result.RoomID != "room-1" || repo.users["user-1"].RoomID != "room-1" {
		t.Fatalf("room id must be preserved, got %+v", repo.users["user-1"])
	}
	if repo.users["user-1"].Name != "New" {
		t.Fatalf("expected name updated")
	}
}

func TestSetupProfileValidation(t *testing.T) {
	svc := NewService(newFakeUserRepo(), nil)

	if _, _, err := svc.SetupProfile(context.Background(), "user-1", "   ", RoleParent); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
	if _, _, err := svc.SetupProfile(context.Background(), "user-1", "Kid", "uncle"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
	long := "abcdefghijklmnopqrstuvwxyz12345"
	if _, _, err := svc.SetupProfile(context.Background(), "user-1", long, RoleChild); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName for long name, got %v", err)
	}
}

func TestGetProfileNotFound(t *testing.T) {
	svc := NewService(newFakeUserRepo(), nil)
	if _, err := svc.GetProfile(context.Background(), "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestSetupProfileRefusedWhileDeleting(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo, fakeDeletions{"user-1": true})

	if _, _, err := svc.SetupProfile(context.Background(), "user-1", "Mom", RoleParent); !errors.Is(err, ErrDeletionPending) {
		t.Fatalf("expected ErrDeletionPending, got %v", err)
	}
	if len(repo.users) != 0 {
		t.Fatalf("expected no profile written, got %v", repo.users)
	}

	if _, _, err := svc.SetupProfile(context.Background(), "user-2", "Dad", RoleParent); err != nil {
		t.Fatalf("expected other users unaffected, got %v", err)
	}
}
