package posts

import "errors"

var (
	ErrPostNotFound    = errors.New("post not found")
	ErrNotAuthor       = errors.New("only the author can change a post")
	ErrNotPaired       = errors.New("user is not paired")
	ErrInvalidCaption  = errors.New("invalid caption")
	ErrTooManyStickers = errors.New("too many stickers")
	ErrInvalidSticker  = errors.New("invalid sticker")
	ErrInvalidImage    = errors.New("unsupported image type")
	ErrImageTooLarge   = errors.New("image too large")
	ErrInvalidMonth    = errors.New("invalid month")
	ErrInvalidTimezone = errors.New("invalid timezone")
)
