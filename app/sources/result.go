package sources

import (
	"log/slog"

	"github.com/lysyi3m/social-comb/app/post"
)

// Result is the outcome of one platform fetch. Err and Posts are never both set.
type Result struct {
	Platform post.Platform
	Posts    []post.Post
	Err      error
}

func Succeeded(platform post.Platform, posts []post.Post) Result {
	return Result{Platform: platform, Posts: posts}
}

func Failed(platform post.Platform, err error) Result {
	return Result{Platform: platform, Err: err}
}

// Collapse turns the result into the sequence handed to the aggregator.
// A failed fetch becomes an empty sequence and a single log line.
func (r Result) Collapse(logger *slog.Logger) []post.Post {
	if r.Err != nil {
		logger.Error("Fetch failed, continuing without posts",
			"platform", string(r.Platform),
			"kind", string(KindOf(r.Err)),
			"error", r.Err)
		return []post.Post{}
	}
	if r.Posts == nil {
		return []post.Post{}
	}
	return r.Posts
}
