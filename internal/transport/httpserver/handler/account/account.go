package account

import (
	"errors"
	"net/http"
	"time"

	accountdomain "dondog-go/internal/domain/account"
	commonhandler "dondog-go/internal/transport/httpserver/handler/common"
	"dondog-go/internal/transport/httpserver/middleware"
	"dondog-go/pkg/logger"
)

type deletionStatusResponse struct {
	UserID         string               `json:"user_id"`
	Status         accountdomain.Status `json:"status"`
	RoomIDs        []string             `json:"room_ids"`
	PendingRoomIDs []string             `json:"pending_room_ids"`
	DeletedRoomIDs []string             `json:"deleted_room_ids"`
	MediaDeleted   int                  `json:"media_deleted"`
	Attempts       int                  `json:"attempts"`
	LastError      string               `json:"last_error,omitempty"`
	StartedAt      time.Time            `json:"started_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
	CompletedAt    *time.Time           `json:"completed_at,omitempty"`
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func toReport(report *accountdomain.DeletionReport) *accountdomain.DeletionReport {
	if report == nil {
		return nil
	}
	out := *report
	out.RoomIDs = orEmpty(out.RoomIDs)
	out.PendingRoomIDs = orEmpty(out.PendingRoomIDs)
	out.DeletedRoomIDs = orEmpty(out.DeletedRoomIDs)
	return &out
}

// DeleteAccount runs or resumes the caller's account deletion. Failures that
// leave a checkpoint behind carry the report next to the error.
func (h *Handlers) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		commonhandler.Unauthorized(w)
		return
	}
	log := logger.FromContext(r.Context(), h.log)

	report, err := h.Accounts.DeleteAccount(r.Context(), user.ID, user.AuthenticatedAt)
	if err == nil {
		commonhandler.WriteJSON(w, http.StatusOK, toReport(report))
		return
	}

	extra := map[string]any{}
	if report != nil {
		extra["deletion"] = toReport(report)
	}
	switch {
	case errors.Is(err, accountdomain.ErrReauthenticationRequired):
		log.BusinessError("account.delete: reauthentication required", err)
		commonhandler.WriteErrorWith(w, http.StatusConflict, "reauthentication_required",
			"sign in again, then retry deleting your account", extra)
	case errors.Is(err, accountdomain.ErrDeletionInProgress):
		log.BusinessError("account.delete: already running", err)
		commonhandler.WriteErrorWith(w, http.StatusConflict, "deletion_in_progress", err.Error(), extra)
	case errors.Is(err, accountdomain.ErrDeletionIncomplete):
		log.InternalError("account.delete: incomplete", err)
		commonhandler.WriteErrorWith(w, http.StatusInternalServerError, "deletion_incomplete",
			accountdomain.ErrDeletionIncomplete.Error(), extra)
	default:
		log.InternalError("account.delete: failed", err)
		commonhandler.InternalError(w)
	}
}

func (h *Handlers) DeletionStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		commonhandler.Unauthorized(w)
		return
	}
	log := logger.FromContext(r.Context(), h.log)

	d, err := h.Accounts.DeletionStatus(r.Context(), user.ID)
	if err != nil {
		if errors.Is(err, accountdomain.ErrDeletionNotFound) {
			log.BusinessError("account.status: no deletion", err)
			commonhandler.WriteError(w, http.StatusNotFound, "deletion_not_found", "no account deletion recorded")
			return
		}
		log.InternalError("account.status: get deletion failed", err)
		commonhandler.InternalError(w)
		return
	}

	commonhandler.WriteJSON(w, http.StatusOK, deletionStatusResponse{
		UserID:         d.UserID,
		Status:         d.Status,
		RoomIDs:        orEmpty(d.RoomIDs),
		PendingRoomIDs: orEmpty(d.PendingRoomIDs),
		DeletedRoomIDs: orEmpty(d.DeletedRoomIDs),
		MediaDeleted:   d.MediaDeleted,
		Attempts:       d.Attempts,
		LastError:      d.LastError,
		StartedAt:      d.StartedAt,
		UpdatedAt:      d.UpdatedAt,
		CompletedAt:    d.CompletedAt,
	})
}
