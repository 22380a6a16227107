package common

import (
	"errors"
	"net/http"
	"time"

	pairingdomain "dondog-go/internal/domain/pairing"
	userdomain "dondog-go/internal/domain/user"
	"dondog-go/internal/transport/httpserver/middleware"
	"dondog-go/pkg/logger"
)

type profileRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

type ProfileResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	RoomID    string    `json:"room_id,omitempty"`
	Paired    bool      `json:"paired"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type InviteResponse struct {
	Code       string     `json:"code"`
	ExpireDate *time.Time `json:"expire_date,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

type setupProfileResponse struct {
	Profile ProfileResponse `json:"profile"`
	Created bool            `json:"created"`
	Invite  *InviteResponse `json:"invite,omitempty"`
}

func ToProfileResponse(u *userdomain.User) ProfileResponse {
	return ProfileResponse{
		ID:        u.ID,
		Name:      u.Name,
		Role:      string(u.Role),
		RoomID:    u.RoomID,
		Paired:    u.Paired(),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func ToInviteResponse(invite *pairingdomain.InviteCode) *InviteResponse {
	if invite == nil {
		return nil
	}
	return &InviteResponse{
		Code:       invite.Code,
		ExpireDate: invite.ExpireDate,
		CreatedAt:  invite.CreatedAt,
	}
}

func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		Unauthorized(w)
		return
	}
	log := logger.FromContext(r.Context(), h.log)

	profile, err := h.Users.GetProfile(r.Context(), user.ID)
	if err != nil {
		if errors.Is(err, userdomain.ErrUserNotFound) {
			log.BusinessError("profile.get: profile not found", err)
			writeError(w, http.StatusNotFound, "profile_not_found", "profile not found")
			return
		}
		log.InternalError("profile.get: get profile failed", err)
		InternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, ToProfileResponse(profile))
}

// SetupProfile creates or updates the caller's profile. A newly created
// profile also gets its first invite code.
func (h *Handlers) SetupProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}

	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		Unauthorized(w)
		return
	}
	log := logger.FromContext(r.Context(), h.log)

	profile, created, err := h.Users.SetupProfile(r.Context(), user.ID, req.Name, userdomain.Role(req.Role))
	if err != nil {
		switch {
		case errors.Is(err, userdomain.ErrInvalidName):
			log.BusinessError("profile.setup: invalid name", err)
			writeError(w, http.StatusBadRequest, "invalid_name", "name must be 1 to 30 characters")
		case errors.Is(err, userdomain.ErrInvalidRole):
			log.BusinessError("profile.setup: invalid role", err, "role", req.Role)
			writeError(w, http.StatusBadRequest, "invalid_role", "role must be parent or child")
		case errors.Is(err, userdomain.ErrDeletionPending):
			log.BusinessError("profile.setup: account deletion pending", err)
			writeError(w, http.StatusConflict, "deletion_pending", "account deletion in progress")
		default:
			log.InternalError("profile.setup: save profile failed", err)
			InternalError(w)
		}
		return
	}

	resp := setupProfileResponse{Profile: ToProfileResponse(profile), Created: created}
	if created {
		invite, err := h.Pairing.IssueInviteCode(r.Context(), user.ID)
		if err != nil {
			log.InternalError("profile.setup: issue invite code failed", err)
		} else {
			resp.Invite = ToInviteResponse(invite)
		}
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}
