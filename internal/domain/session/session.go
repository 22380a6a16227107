package session

import (
	"context"
	"errors"
	"fmt"

	accountdomain "dondog-go/internal/domain/account"
	pairingdomain "dondog-go/internal/domain/pairing"
	userdomain "dondog-go/internal/domain/user"
)

type Route string

const (
	RouteAccountDeletion Route = "account_deletion"
	RouteSignedOut       Route = "signed_out"
	RouteProfileSetup    Route = "profile_setup"
	RoutePairing         Route = "pairing"
	RouteFeed            Route = "feed"
)

// Tracker holds the users whose account deletion is running. The account
// service marks users through it and the resolver reads it, so both must
// share one instance.
type Tracker interface {
	Begin(userID string) bool
	End(userID string)
	InProgress(userID string) bool
}

type Profiles interface {
	GetProfile(ctx context.Context, userID string) (*userdomain.User, error)
}

type Deletions interface {
	DeletionStatus(ctx context.Context, userID string) (*accountdomain.AccountDeletion, error)
}

type Invites interface {
	ActiveInviteCode(ctx context.Context, inviterUID string) (*pairingdomain.InviteCode, error)
}

type State struct {
	Route    Route
	UserID   string
	User     *userdomain.User
	RoomID   string
	Invite   *pairingdomain.InviteCode
	Deletion *accountdomain.AccountDeletion
}

type Resolver struct {
	tracker   Tracker
	profiles  Profiles
	deletions Deletions
	invites   Invites
}

func NewResolver(tracker Tracker, profiles Profiles, deletions Deletions, invites Invites) *Resolver {
	return &Resolver{
		tracker:   tracker,
		profiles:  profiles,
		deletions: deletions,
		invites:   invites,
	}
}

// Resolve computes where the client should navigate for userID. A running
// or unfinished deletion always wins over the profile state, so a user whose
// document is already gone is not sent to profile setup mid-deletion.
func (r *Resolver) Resolve(ctx context.Context, userID string) (*State, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	state := &State{UserID: userID}

	if r.tracker.InProgress(userID) {
		state.Route = RouteAccountDeletion
		return state, nil
	}

	deletion, err := r.deletions.DeletionStatus(ctx, userID)
	switch {
	case err == nil:
		state.Deletion = deletion
		if deletion.Completed() {
			state.Route = RouteSignedOut
		} else {
			state.Route = RouteAccountDeletion
		}
		return state, nil
	case !errors.Is(err, accountdomain.ErrDeletionNotFound):
		return nil, fmt.Errorf("get deletion status: %w", err)
	}

	u, err := r.profiles.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, userdomain.ErrUserNotFound) {
			state.Route = RouteProfileSetup
			return state, nil
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	state.User = u

	if !u.Paired() {
		invite, err := r.invites.ActiveInviteCode(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("get invite code: %w", err)
		}
		state.Route = RoutePairing
		state.Invite = invite
		return state, nil
	}

	state.Route = RouteFeed
	state.RoomID = u.RoomID
	return state, nil
}
