package common

import (
	"net/http"

	accountdomain "dondog-go/internal/domain/account"
	"dondog-go/internal/transport/httpserver/middleware"
	"dondog-go/pkg/logger"
)

type deletionSummary struct {
	Status         accountdomain.Status `json:"status"`
	PendingRoomIDs []string             `json:"pending_room_ids"`
	Attempts       int                  `json:"attempts"`
}

type sessionResponse struct {
	Route    string           `json:"route"`
	UserID   string           `json:"user_id"`
	Profile  *ProfileResponse `json:"profile,omitempty"`
	RoomID   string           `json:"room_id,omitempty"`
	Invite   *InviteResponse  `json:"invite,omitempty"`
	Deletion *deletionSummary `json:"deletion,omitempty"`
}

func (h *Handlers) Session(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		Unauthorized(w)
		return
	}

	state, err := h.Sessions.Resolve(r.Context(), user.ID)
	if err != nil {
		logger.FromContext(r.Context(), h.log).InternalError("session.resolve: resolve failed", err)
		InternalError(w)
		return
	}

	resp := sessionResponse{
		Route:  string(state.Route),
		UserID: state.UserID,
		RoomID: state.RoomID,
		Invite: ToInviteResponse(state.Invite),
	}
	if state.User != nil {
		profile := ToProfileResponse(state.User)
		resp.Profile = &profile
	}
	if d := state.Deletion; d != nil {
		resp.Deletion = &deletionSummary{
			Status:         d.Status,
			PendingRoomIDs: append([]string{}, d.PendingRoomIDs...),
			Attempts:       d.Attempts,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
