package post

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

type Platform string

const (
	PlatformX       Platform = "X"
	PlatformYouTube Platform = "YouTube"
)

// MaxContentLength is the number of characters of source text kept in Content.
const MaxContentLength = 1000

var ErrInvalidPost = errors.New("invalid post")

// Post is the platform-agnostic record persisted for every collected item.
// (Platform, PlatformPostID) is its natural key.
type Post struct {
	Platform         Platform `json:"platform" validate:"required,oneof=X YouTube"`
	PlatformPostID   string   `json:"platform_post_id" validate:"required"`
	PlatformAuthorID string   `json:"platform_author_id"`
	AuthorUsername   string   `json:"author_username"`
	Content          string   `json:"content" validate:"max=1000"`
	LikesCount       int64    `json:"likes_count" validate:"gte=0"`
	CommentsCount    int64    `json:"comments_count" validate:"gte=0"`
	SharesCount      int64    `json:"shares_count" validate:"gte=0"`
	PublishedAt      string   `json:"published_at"`
}

// Key returns the natural key in "platform:id" form, used in logs.
func (p Post) Key() string {
	return fmt.Sprintf("%s:%s", p.Platform, p.PlatformPostID)
}

// TruncateContent returns the first MaxContentLength characters of s.
func TruncateContent(s string) string {
	if len(s) <= MaxContentLength {
		return s
	}
	n := 0
	for i := range s {
		if n == MaxContentLength {
			return s[:i]
		}
		n++
	}
	return s
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the invariants every stored post must satisfy.
func Validate(p Post) error {
	if err := getValidator().Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: field %s failed %q", ErrInvalidPost, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidPost, err)
	}
	return nil
}
