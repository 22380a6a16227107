package posts

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	postsdomain "dondog-go/internal/domain/posts"
	commonhandler "dondog-go/internal/transport/httpserver/handler/common"
	"dondog-go/internal/transport/httpserver/middleware"
	"dondog-go/pkg/logger"
	"github.com/go-chi/chi/v5"
)

const multipartMemory = 8 << 20

type updatePostRequest struct {
	Caption  *string           `json:"caption"`
	Stickers *[]stickerPayload `json:"stickers"`
}

func (h *Handlers) CreatePost(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		commonhandler.Unauthorized(w)
		return
	}
	log := logger.FromContext(r.Context(), h.log)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes())
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			commonhandler.WriteError(w, http.StatusRequestEntityTooLarge, "image_too_large", "request body too large")
			return
		}
		commonhandler.WriteError(w, http.StatusBadRequest, "invalid_form", "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	front, closeFront, err := formImage(r, "front")
	if err != nil {
		commonhandler.WriteError(w, http.StatusBadRequest, "invalid_request", "front image is required")
		return
	}
	defer closeFront()
	back, closeBack, err := formImage(r, "back")
	if err != nil {
		commonhandler.WriteError(w, http.StatusBadRequest, "invalid_request", "back image is required")
		return
	}
	defer closeBack()

	var stickers []stickerPayload
	if raw := strings.TrimSpace(r.FormValue("stickers")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &stickers); err != nil {
			commonhandler.WriteError(w, http.StatusBadRequest, "invalid_sticker", "stickers must be a json array")
			return
		}
	}

	post, err := h.Posts.CreatePost(r.Context(), postsdomain.CreateInput{
		AuthorID: user.ID,
		Front:    front,
		Back:     back,
		Caption:  r.FormValue("caption"),
		Stickers: toStickers(stickers),
	})
	if err != nil {
		writePostsError(w, log, "posts.create", err)
		return
	}

	commonhandler.WriteJSON(w, http.StatusCreated, toPostResponse(post))
}

func formImage(r *http.Request, field string) (postsdomain.Image, func(), error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return postsdomain.Image{}, func() {}, err
	}
	return postsdomain.Image{
		ContentType: contentType(header),
		Size:        header.Size,
		Body:        file,
	}, func() { _ = file.Close() }, nil
}

func contentType(header *multipart.FileHeader) string {
	value := header.Header.Get("Content-Type")
	if i := strings.IndexByte(value, ';'); i >= 0 {
		value = value[:i]
	}
	return strings.ToLower(strings.TrimSpace(value))
}

func (h *Handlers) ListFeed(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		commonhandler.Unauthorized(w)
		return
	}

	query := r.URL.Query()
	before, err := commonhandler.ParseTimeParam(query.Get("before"))
	if err != nil {
		commonhandler.WriteError(w, http.StatusBadRequest, "invalid_request", "before must be an RFC 3339 timestamp")
		return
	}
	limit, err := commonhandler.ParseIntParam(query.Get("limit"), 0)
	if err != nil {
		commonhandler.WriteError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
		return
	}

	// before_id breaks ties between posts created at the same instant.
	cursor := postsdomain.Cursor{CreatedAt: before, ID: strings.TrimSpace(query.Get("before_id"))}
	if cursor.IsZero() && cursor.ID != "" {
		commonhandler.WriteError(w, http.StatusBadRequest, "invalid_request", "before_id requires before")
		return
	}

	page, err := h.Posts.ListFeed(r.Context(), user.ID, cursor, limit)
	if err != nil {
		writePostsError(w, logger.FromContext(r.Context(), h.log), "posts.feed", err)
		return
	}

	resp := feedResponse{Items: toPostResponses(page.Posts)}
	if page.Next != nil {
		resp.NextBefore = &page.Next.CreatedAt
		resp.NextBeforeID = page.Next.ID
	}
	commonhandler.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handlers) MonthArchive(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		commonhandler.Unauthorized(w)
		return
	}

	query := r.URL.Query()
	archive, err := h.Posts.MonthArchive(r.Context(), user.ID, query.Get("month"), query.Get("tz"))
	if err != nil {
		writePostsError(w, logger.FromContext(r.Context(), h.log), "posts.archive", err, "month", query.Get("month"))
		return
	}

	days := make([]dayResponse, 0, len(archive.Days))
	for _, d := range archive.Days {
		days = append(days, dayResponse{Date: d.Date, Posts: toPostResponses(d.Posts)})
	}
	commonhandler.WriteJSON(w, http.StatusOK, archiveResponse{
		Month:    archive.Month,
		Location: archive.Location,
		Days:     days,
	})
}

func (h *Handlers) GetPost(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		commonhandler.Unauthorized(w)
		return
	}
	postID := chi.URLParam(r, "id")

	post, err := h.Posts.GetPost(r.Context(), user.ID, postID)
	if err != nil {
		writePostsError(w, logger.FromContext(r.Context(), h.log), "posts.get", err, "post_id", postID)
		return
	}
	commonhandler.WriteJSON(w, http.StatusOK, toPostResponse(post))
}

func (h *Handlers) UpdatePost(w http.ResponseWriter, r *http.Request) {
	var req updatePostRequest
	if err := commonhandler.DecodeJSON(r, &req); err != nil {
		commonhandler.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}

	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		commonhandler.Unauthorized(w)
		return
	}
	postID := chi.URLParam(r, "id")

	input := postsdomain.UpdateInput{Caption: req.Caption}
	if req.Stickers != nil {
		stickers := toStickers(*req.Stickers)
		input.Stickers = &stickers
	}

	post, err := h.Posts.UpdatePost(r.Context(), user.ID, postID, input)
	if err != nil {
		writePostsError(w, logger.FromContext(r.Context(), h.log), "posts.update", err, "post_id", postID)
		return
	}
	commonhandler.WriteJSON(w, http.StatusOK, toPostResponse(post))
}

func (h *Handlers) DeletePost(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		commonhandler.Unauthorized(w)
		return
	}
	postID := chi.URLParam(r, "id")

	if err := h.Posts.DeletePost(r.Context(), user.ID, postID); err != nil {
		writePostsError(w, logger.FromContext(r.Context(), h.log), "posts.delete", err, "post_id", postID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
