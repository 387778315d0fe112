package pipeline

import (
	"context"
	"log/slog"

	"github.com/lysyi3m/social-comb/app/database"
	"github.com/lysyi3m/social-comb/app/post"
)

// StoreResult summarizes one pass of the sink. Attempted counts every record
// handed to the sink, whatever the outcome of its write.
type StoreResult struct {
	Attempted int `json:"attempted"`
	Inserted  int `json:"inserted"`
	Failed    int `json:"failed"`
}

// Sink writes posts one at a time. A failed write is logged and skipped.
type Sink struct {
	repo   database.PostRepository
	logger *slog.Logger
}

func NewSink(repo database.PostRepository, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{repo: repo, logger: logger}
}

func (s *Sink) Store(ctx context.Context, posts []post.Post) StoreResult {
	var res StoreResult

	for _, p := range posts {
		res.Attempted++

		inserted, err := s.repo.InsertPost(ctx, p)
		if err != nil {
			res.Failed++
			s.logger.Error("Failed to insert post", "platform", string(p.Platform), "id", p.PlatformPostID, "error", err)
			continue
		}
		if inserted {
			res.Inserted++
		}
	}

	s.logger.Info("Processing complete",
		"attempted", res.Attempted,
		"inserted", res.Inserted,
		"skipped", res.Attempted-res.Inserted-res.Failed,
		"failed", res.Failed)

	return res
}
