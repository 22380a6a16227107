package pairing

import (
	"net/http"
	"strings"
	"time"

	pairingdomain "dondog-go/internal/domain/pairing"
	commonhandler "dondog-go/internal/transport/httpserver/handler/common"
	"dondog-go/internal/transport/httpserver/middleware"
	"dondog-go/pkg/logger"
)

type joinRoomRequest struct {
	Code string `json:"code"`
}

type joinRoomResponse struct {
	RoomID       string   `json:"room_id"`
	Participants []string `json:"participants"`
	Created      bool     `json:"created"`
}

type roomResponse struct {
	ID           string    `json:"id"`
	Participants []string  `json:"participants"`
	CreatedAt    time.Time `json:"created_at"`
}

func (h *Handlers) JoinRoom(w http.ResponseWriter, r *http.Request) {
	var req joinRoomRequest
	if err := commonhandler.DecodeJSON(r, &req); err != nil {
		commonhandler.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	req.Code = strings.TrimSpace(req.Code)
	if req.Code == "" {
		commonhandler.WriteError(w, http.StatusBadRequest, "invalid_request", "code is required")
		return
	}

	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		commonhandler.Unauthorized(w)
		return
	}

	result, err := h.Pairing.JoinRoom(r.Context(), req.Code, user.ID)
	if err != nil {
		writePairingError(w, logger.FromContext(r.Context(), h.log), "pairing.join", err, "code", req.Code)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	commonhandler.WriteJSON(w, status, joinRoomResponse{
		RoomID:       result.RoomID,
		Participants: result.Participants,
		Created:      result.Created,
	})
}

func (h *Handlers) GetRoomMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		commonhandler.Unauthorized(w)
		return
	}

	room, err := h.Pairing.GetRoom(r.Context(), user.ID)
	if err != nil {
		writePairingError(w, logger.FromContext(r.Context(), h.log), "pairing.room_me", err)
		return
	}
	commonhandler.WriteJSON(w, http.StatusOK, toRoomResponse(room))
}

func toRoomResponse(room *pairingdomain.Room) roomResponse {
	participants := room.Participants
	if participants == nil {
		participants = []string{}
	}
	return roomResponse{
		ID:           room.ID,
		Participants: participants,
		CreatedAt:    room.CreatedAt,
	}
}
