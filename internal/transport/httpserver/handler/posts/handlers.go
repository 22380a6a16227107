package posts

import (
	postsdomain "dondog-go/internal/domain/posts"
	"dondog-go/pkg/logger"
)

const (
	defaultMaxImageBytes = 10 << 20

	// Multipart bodies carry two images plus a small form.
	formOverheadBytes = 1 << 20
)

type Handlers struct {
	Posts *postsdomain.Service
	log   logger.Logger

	maxImageBytes int64
}

func New(posts *postsdomain.Service, maxImageBytes int64, log logger.Logger) *Handlers {
	if maxImageBytes <= 0 {
		maxImageBytes = defaultMaxImageBytes
	}
	return &Handlers{
		Posts:         posts,
		log:           log,
		maxImageBytes: maxImageBytes,
	}
}

func (h *Handlers) maxBodyBytes() int64 {
	return 2*h.maxImageBytes + formOverheadBytes
}
