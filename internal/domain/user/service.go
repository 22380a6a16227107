package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const maxNameLength = 30

type Service struct {
	repo      Repository
	deletions DeletionChecker
	now       func() time.Time
}

// NewService builds the profile service. deletions may be nil.
func NewService(repo Repository, deletions DeletionChecker) *Service {
	return &Service{repo: repo, deletions: deletions, now: time.Now}
}

func (s *Service) GetProfile(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	return s.repo.GetUser(ctx, userID)
}

// SetupProfile creates the profile on first call and updates name and role
// afterwards. The boolean reports whether the document was created.
func (s *Service) SetupProfile(ctx context.Context, userID, name string, role Role) (*User, bool, error) {
	if userID == "" {
		return nil, false, fmt.Errorf("user id is required")
	}

	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return nil, false, ErrInvalidName
	}
	role = Role(strings.ToLower(strings.TrimSpace(string(role))))
	if !role.Valid() {
		return nil, false, ErrInvalidRole
	}
	if err := CheckNotDeleting(ctx, s.deletions, userID); err != nil {
		return nil, false, err
	}

	existing, err := s.repo.GetUser(ctx, userID)
	switch {
	case errors.Is(err, ErrUserNotFound):
		now := s.now().UTC()
		created := User{
			ID:        userID,
			Name:      name,
			Role:      role,
			CreatedAt: now,
			UpdatedAt: now,
		}
		err := s.repo.CreateUser(ctx, &created)
		if err == nil {
			return &created, true, nil
		}
		if !errors.Is(err, ErrUserExists) {
			return nil, false, err
		}
		// Lost a race with a concurrent setup; fall through to update.
	case err != nil:
		return nil, false, err
	}

	if err := s.repo.UpdateProfile(ctx, userID, name, role); err != nil {
		return nil, false, err
	}

	if existing == nil {
		existing, err = s.repo.GetUser(ctx, userID)
		if err != nil {
			return nil, false, err
		}
	}
	existing.Name = name
	existing.Role = role
	existing.UpdatedAt = s.now().UTC()
	return existing, false, nil
}
