package common

import (
	"net/http"
	"time"

	"dondog-go/internal/transport/httpserver/middleware"
)

type authMeResponse struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	AvatarURL       string    `json:"avatar_url"`
	AuthenticatedAt time.Time `json:"authenticated_at"`
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) AuthMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		Unauthorized(w)
		return
	}

	writeJSON(w, http.StatusOK, authMeResponse{
		ID:              user.ID,
		Email:           user.Email,
		Name:            user.Name,
		AvatarURL:       user.AvatarURL,
		AuthenticatedAt: user.AuthenticatedAt,
	})
}
