package posts

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"math"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	userdomain "dondog-go/internal/domain/user"
	"dondog-go/internal/events"
	"dondog-go/pkg/logger"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

const defaultMaxImageBytes = 10 << 20

var imageExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/heic": "heic",
}

type Options struct {
	MaxImageBytes int64
	FeedPageSize  int
}

type Service struct {
	repo   Repository
	blobs  BlobStore
	events events.Emitter
	log    logger.Logger
	policy *bluemonday.Policy

	maxImageBytes int64
	feedPageSize  int

	now   func() time.Time
	newID func() string
}

func NewService(repo Repository, blobs BlobStore, emitter events.Emitter, log logger.Logger, opts Options) *Service {
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = defaultMaxImageBytes
	}
	if opts.FeedPageSize <= 0 || opts.FeedPageSize > MaxFeedLimit {
		opts.FeedPageSize = DefaultFeedLimit
	}
	if emitter == nil {
		emitter = events.Noop{}
	}
	if log == nil {
		log = logger.Discard()
	}

	return &Service{
		repo:          repo,
		blobs:         blobs,
		events:        emitter,
		log:           log,
		policy:        bluemonday.StrictPolicy(),
		maxImageBytes: opts.MaxImageBytes,
		feedPageSize:  opts.FeedPageSize,
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

func (s *Service) CreatePost(ctx context.Context, input CreateInput) (*Post, error) {
	roomID, err := s.roomOf(ctx, input.AuthorID)
	if err != nil {
		return nil, err
	}

	caption, err := s.sanitizeCaption(input.Caption)
	if err != nil {
		return nil, err
	}
	stickers, err := s.validateStickers(roomID, input.Stickers)
	if err != nil {
		return nil, err
	}
	frontExt, err := s.validateImage(input.Front)
	if err != nil {
		return nil, fmt.Errorf("front: %w", err)
	}
	backExt, err := s.validateImage(input.Back)
	if err != nil {
		return nil, fmt.Errorf("back: %w", err)
	}

	postID := s.newID()
	frontURL, err := s.upload(ctx, roomID, postID, "front", frontExt, input.Front)
	if err != nil {
		return nil, err
	}
	backURL, err := s.upload(ctx, roomID, postID, "back", backExt, input.Back)
	if err != nil {
		s.deleteMedia(ctx, frontURL)
		return nil, err
	}

	now := s.now().UTC()
	post := Post{
		ID:            postID,
		RoomID:        roomID,
		AuthorID:      input.AuthorID,
		FrontImageURL: frontURL,
		BackImageURL:  backURL,
		Caption:       caption,
		Stickers:      stickers,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.CreatePost(ctx, &post); err != nil {
		s.deleteMedia(ctx, frontURL, backURL)
		return nil, fmt.Errorf("create post: %w", err)
	}

	s.events.Emit(ctx, events.RKPostCreated, events.PostCreated{
		PostID:   post.ID,
		RoomID:   roomID,
		AuthorID: input.AuthorID,
		At:       now,
	})
	return &post, nil
}

// ListFeed pages through the user's room, newest first.
func (s *Service) ListFeed(ctx context.Context, userID string, before Cursor, limit int) (*Page, error) {
	roomID, err := s.roomOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.feedPageSize
	}
	if limit > MaxFeedLimit {
		limit = MaxFeedLimit
	}

	// One extra row tells whether another page exists.
	items, err := s.repo.ListPosts(ctx, roomID, before, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	page := &Page{Posts: items}
	if len(items) > limit {
		page.Posts = items[:limit]
		next := CursorOf(page.Posts[limit-1])
		page.Next = &next
	}
	return page, nil
}

// MonthArchive groups the posts of month (YYYY-MM) by calendar day in tz.
func (s *Service) MonthArchive(ctx context.Context, userID, month, tz string) (*Archive, error) {
	roomID, err := s.roomOf(ctx, userID)
	if err != nil {
		return nil, err
	}

	loc := time.UTC
	if tz = strings.TrimSpace(tz); tz != "" {
		loc, err = time.LoadLocation(tz)
		if err != nil {
			return nil, ErrInvalidTimezone
		}
	}

	var from time.Time
	if month = strings.TrimSpace(month); month == "" {
		now := s.now().In(loc)
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	} else {
		from, err = time.ParseInLocation("2006-01", month, loc)
		if err != nil {
			return nil, ErrInvalidMonth
		}
	}
	to := from.AddDate(0, 1, 0)

	items, err := s.repo.ListPostsBetween(ctx, roomID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	archive := &Archive{Month: from.Format("2006-01"), Location: loc.String(), Days: []Day{}}
	for _, p := range items {
		date := p.CreatedAt.In(loc).Format("2006-01-02")
		last := len(archive.Days) - 1
		if last < 0 || archive.Days[last].Date != date {
			archive.Days = append(archive.Days, Day{Date: date})
			last++
		}
		archive.Days[last].Posts = append(archive.Days[last].Posts, p)
	}
	return archive, nil
}

// GetPost returns a post of the user's room. Posts of other rooms are
// reported as not found.
func (s *Service) GetPost(ctx context.Context, userID, postID string) (*Post, error) {
	roomID, err := s.roomOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	post, err := s.repo.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.RoomID != roomID {
		return nil, ErrPostNotFound
	}
	return post, nil
}

func (s *Service) UpdatePost(ctx context.Context, userID, postID string, input UpdateInput) (*Post, error) {
	post, err := s.GetPost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != userID {
		return nil, ErrNotAuthor
	}

	if input.Caption != nil {
		caption, err := s.sanitizeCaption(*input.Caption)
		if err != nil {
			return nil, err
		}
		post.Caption = caption
	}
	if input.Stickers != nil {
		stickers, err := s.validateStickers(post.RoomID, *input.Stickers)
		if err != nil {
			return nil, err
		}
		post.Stickers = stickers
	}
	post.UpdatedAt = s.now().UTC()

	if err := s.repo.UpdatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	return post, nil
}

// DeletePost removes the post document after a best-effort media cleanup.
func (s *Service) DeletePost(ctx context.Context, userID, postID string) error {
	post, err := s.GetPost(ctx, userID, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != userID {
		return ErrNotAuthor
	}

	var media []string
	for _, url := range post.MediaURLs() {
		if s.inRoom(post.RoomID, url) {
			media = append(media, url)
		}
	}
	s.deleteMedia(ctx, media...)
	if err := s.repo.DeletePost(ctx, post.ID); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

func (s *Service) roomOf(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user id is required")
	}
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, userdomain.ErrUserNotFound) {
			return "", ErrNotPaired
		}
		return "", fmt.Errorf("get user: %w", err)
	}
	if !u.Paired() {
		return "", ErrNotPaired
	}
	return u.RoomID, nil
}

func (s *Service) sanitizeCaption(caption string) (string, error) {
	clean := strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(caption)))
	if utf8.RuneCountInString(clean) > MaxCaptionLength {
		return "", ErrInvalidCaption
	}
	return clean, nil
}

func (s *Service) validateImage(img Image) (string, error) {
	if img.Body == nil {
		return "", ErrInvalidImage
	}
	contentType := strings.ToLower(strings.TrimSpace(strings.SplitN(img.ContentType, ";", 2)[0]))
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", ErrInvalidImage
	}
	if img.Size > s.maxImageBytes {
		return "", ErrImageTooLarge
	}
	return ext, nil
}

func (s *Service) upload(ctx context.Context, roomID, postID, side, ext string, img Image) (string, error) {
	path := fmt.Sprintf("%sposts/%s/%s.%s", roomMediaPrefix(roomID), postID, side, ext)
	// Size from the multipart header can lie; never read past the limit.
	body := io.LimitReader(img.Body, s.maxImageBytes+1)
	url, err := s.blobs.Upload(ctx, path, strings.SplitN(img.ContentType, ";", 2)[0], body)
	if err != nil {
		return "", fmt.Errorf("upload %s image: %w", side, err)
	}
	return url, nil
}

func (s *Service) deleteMedia(ctx context.Context, urls ...string) {
	for _, url := range urls {
		if url == "" || !s.blobs.Owns(url) {
			continue
		}
		if _, err := s.blobs.Delete(ctx, url); err != nil {
			s.log.InternalError("posts: media cleanup failed", err, "url", url)
		}
	}
}

func roomMediaPrefix(roomID string) string {
	return "rooms/" + roomID + "/"
}

// inRoom reports whether url names an object of this store under the
// media folder of roomID.
func (s *Service) inRoom(roomID, url string) bool {
	if url == "" || !s.blobs.Owns(url) {
		return false
	}
	key, err := s.blobs.Key(url)
	return err == nil && strings.HasPrefix(path.Clean(key), roomMediaPrefix(roomID))
}

// validateStickers normalizes stickers. An image URL into the blob store
// must point at the media of roomID; external URLs are left alone.
func (s *Service) validateStickers(roomID string, stickers []Sticker) ([]Sticker, error) {
	if len(stickers) > MaxStickers {
		return nil, ErrTooManyStickers
	}
	result := make([]Sticker, 0, len(stickers))
	for _, st := range stickers {
		st.Emoji = strings.TrimSpace(st.Emoji)
		st.ImageURL = strings.TrimSpace(st.ImageURL)
		if st.Emoji == "" && st.ImageURL == "" {
			return nil, ErrInvalidSticker
		}
		if utf8.RuneCountInString(st.Emoji) > 16 {
			return nil, ErrInvalidSticker
		}
		if st.ImageURL != "" && s.blobs.Owns(st.ImageURL) && !s.inRoom(roomID, st.ImageURL) {
			return nil, ErrInvalidSticker
		}
		for _, v := range []float64{st.X, st.Y, st.Scale, st.Rotation} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, ErrInvalidSticker
			}
		}
		if st.Scale == 0 {
			st.Scale = 1
		}
		if st.Scale < 0 {
			return nil, ErrInvalidSticker
		}
		result = append(result, st)
	}
	return result, nil
}
