package posts

import (
	"errors"
	"net/http"
	"time"

	postsdomain "dondog-go/internal/domain/posts"
	commonhandler "dondog-go/internal/transport/httpserver/handler/common"
	"dondog-go/pkg/logger"
)

type stickerPayload struct {
	Emoji    string  `json:"emoji,omitempty"`
	ImageURL string  `json:"image_url,omitempty"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Scale    float64 `json:"scale"`
	Rotation float64 `json:"rotation"`
}

type postResponse struct {
	ID            string           `json:"id"`
	RoomID        string           `json:"room_id"`
	AuthorID      string           `json:"author_id"`
	FrontImageURL string           `json:"front_image_url"`
	BackImageURL  string           `json:"back_image_url"`
	Caption       string           `json:"caption"`
	Stickers      []stickerPayload `json:"stickers"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

type feedResponse struct {
	Items        []postResponse `json:"items"`
	NextBefore   *time.Time     `json:"next_before"`
	NextBeforeID string         `json:"next_before_id,omitempty"`
}

type dayResponse struct {
	Date  string         `json:"date"`
	Posts []postResponse `json:"posts"`
}

type archiveResponse struct {
	Month    string        `json:"month"`
	Location string        `json:"location"`
	Days     []dayResponse `json:"days"`
}

func toPostResponse(p *postsdomain.Post) postResponse {
	stickers := make([]stickerPayload, 0, len(p.Stickers))
	for _, s := range p.Stickers {
		stickers = append(stickers, stickerPayload(s))
	}
	return postResponse{
		ID:            p.ID,
		RoomID:        p.RoomID,
		AuthorID:      p.AuthorID,
		FrontImageURL: p.FrontImageURL,
		BackImageURL:  p.BackImageURL,
		Caption:       p.Caption,
		Stickers:      stickers,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func toPostResponses(list []postsdomain.Post) []postResponse {
	items := make([]postResponse, 0, len(list))
	for i := range list {
		items = append(items, toPostResponse(&list[i]))
	}
	return items
}

func toStickers(payload []stickerPayload) []postsdomain.Sticker {
	stickers := make([]postsdomain.Sticker, 0, len(payload))
	for _, s := range payload {
		stickers = append(stickers, postsdomain.Sticker(s))
	}
	return stickers
}

func writePostsError(w http.ResponseWriter, log logger.Logger, op string, err error, args ...any) {
	status, code := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, postsdomain.ErrPostNotFound):
		status, code = http.StatusNotFound, "post_not_found"
	case errors.Is(err, postsdomain.ErrNotAuthor):
		status, code = http.StatusForbidden, "not_author"
	case errors.Is(err, postsdomain.ErrNotPaired):
		status, code = http.StatusConflict, "not_paired"
	case errors.Is(err, postsdomain.ErrInvalidCaption):
		status, code = http.StatusBadRequest, "invalid_caption"
	case errors.Is(err, postsdomain.ErrTooManyStickers):
		status, code = http.StatusBadRequest, "too_many_stickers"
	case errors.Is(err, postsdomain.ErrInvalidSticker):
		status, code = http.StatusBadRequest, "invalid_sticker"
	case errors.Is(err, postsdomain.ErrInvalidImage):
		status, code = http.StatusUnsupportedMediaType, "invalid_image"
	case errors.Is(err, postsdomain.ErrImageTooLarge):
		status, code = http.StatusRequestEntityTooLarge, "image_too_large"
	case errors.Is(err, postsdomain.ErrInvalidMonth):
		status, code = http.StatusBadRequest, "invalid_month"
	case errors.Is(err, postsdomain.ErrInvalidTimezone):
		status, code = http.StatusBadRequest, "invalid_timezone"
	}

	if status == http.StatusInternalServerError {
		log.InternalError(op+": failed", err, args...)
		commonhandler.InternalError(w)
		return
	}
	log.BusinessError(op+": rejected", err, args...)
	commonhandler.WriteError(w, status, code, err.Error())
}
