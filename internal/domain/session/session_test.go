package session

import (
	"context"
	"errors"
	"testing"

	accountdomain "dondog-go/internal/domain/account"
	pairingdomain "dondog-go/internal/domain/pairing"
	userdomain "dondog-go/internal/domain/user"
)

type fakeTracker map[string]bool

func (t fakeTracker) Begin(userID string) bool {
	if t[userID] {
		return false
	}
	t[userID] = true
	return true
}

func (t fakeTracker) End(userID string) { delete(t, userID) }

func (t fakeTracker) InProgress(userID string) bool { return t[userID] }

type fakeSources struct {
	users     map[string]*userdomain.User
	deletions map[string]*accountdomain.AccountDeletion
	invite    *pairingdomain.InviteCode
}

func (f *fakeSources) GetProfile(ctx context.Context, userID string) (*userdomain.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, userdomain.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeSources) DeletionStatus(ctx context.Context, userID string) (*accountdomain.AccountDeletion, error) {
	d, ok := f.deletions[userID]
	if !ok {
		return nil, accountdomain.ErrDeletionNotFound
	}
	return d, nil
}

func (f *fakeSources) ActiveInviteCode(ctx context.Context, inviterUID string) (*pairingdomain.InviteCode, error) {
	if f.invite == nil {
		return nil, errors.New("unavailable")
	}
	return f.invite, nil
}

func TestResolveRoutes(t *testing.T) {
	invite := &pairingdomain.InviteCode{Code: "ABC123", InviterUID: "unpaired"}
	sources := &fakeSources{
		users: map[string]*userdomain.User{
			"unpaired": {ID: "unpaired"},
			"paired":   {ID: "paired", RoomID: "room-1"},
			"deleting": {ID: "deleting", RoomID: "room-1"},
		},
		deletions: map[string]*accountdomain.AccountDeletion{
			"resuming": {UserID: "resuming", Status: accountdomain.StatusAwaitingReauth},
			"gone":     {UserID: "gone", Status: accountdomain.StatusCompleted},
		},
		invite: invite,
	}
	tracker := fakeTracker{"deleting": true}
	resolver := NewResolver(tracker, sources, sources, sources)

	cases := []struct {
		userID string
		want   Route
	}{
		{userID: "deleting", want: RouteAccountDeletion},
		{userID: "resuming", want: RouteAccountDeletion},
		{userID: "gone", want: RouteSignedOut},
		{userID: "new", want: RouteProfileSetup},
		{userID: "unpaired", want: RoutePairing},
		{userID: "paired", want: RouteFeed},
	}
	for _, tc := range cases {
		t.Run(tc.userID, func(t *testing.T) {
			state, err := resolver.Resolve(context.Background(), tc.userID)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if state.Route != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, state.Route)
			}
		})
	}

	state, _ := resolver.Resolve(context.Background(), "unpaired")
	if state.Invite == nil || state.Invite.Code != "ABC123" {
		t.Fatalf("expected invite on pairing route, got %+v", state.Invite)
	}
	state, _ = resolver.Resolve(context.Background(), "paired")
	if state.RoomID != "room-1" {
		t.Fatalf("expected room id on feed route, got %q", state.RoomID)
	}
}

func TestResolveFollowsTracker(t *testing.T) {
	sources := &fakeSources{users: map[string]*userdomain.User{}, deletions: map[string]*accountdomain.AccountDeletion{}}
	tracker := fakeTracker{}
	resolver := NewResolver(tracker, sources, sources, sources)

	tracker.Begin("u1")
	state, err := resolver.Resolve(context.Background(), "u1")
	if err != nil || state.Route != RouteAccountDeletion {
		t.Fatalf("expected account_deletion while marked, got %v %v", state, err)
	}

	tracker.End("u1")
	state, err = resolver.Resolve(context.Background(), "u1")
	if err != nil || state.Route != RouteProfileSetup {
		t.Fatalf("expected profile_setup after unmark, got %v %v", state, err)
	}
}
