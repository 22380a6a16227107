package pairing

import (
	"net/http"

	commonhandler "dondog-go/internal/transport/httpserver/handler/common"
	"dondog-go/internal/transport/httpserver/middleware"
	"dondog-go/pkg/logger"
)

func (h *Handlers) GetInvite(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		commonhandler.Unauthorized(w)
		return
	}

	invite, err := h.Pairing.ActiveInviteCode(r.Context(), user.ID)
	if err != nil {
		writePairingError(w, logger.FromContext(r.Context(), h.log), "pairing.invite_active", err)
		return
	}
	commonhandler.WriteJSON(w, http.StatusOK, commonhandler.ToInviteResponse(invite))
}

func (h *Handlers) IssueInvite(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		commonhandler.Unauthorized(w)
		return
	}

	invite, err := h.Pairing.IssueInviteCode(r.Context(), user.ID)
	if err != nil {
		writePairingError(w, logger.FromContext(r.Context(), h.log), "pairing.invite_issue", err)
		return
	}
	commonhandler.WriteJSON(w, http.StatusCreated, commonhandler.ToInviteResponse(invite))
}
