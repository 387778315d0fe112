package database

import (
	"context"

	"github.com/lysyi3m/social-comb/app/post"
)

type PostRepository interface {
	// InsertPost writes p unless its natural key already exists. The bool
	// reports whether a row was inserted; a skipped duplicate is not an error.
	InsertPost(ctx context.Context, p post.Post) (bool, error)

	CountByPlatform(ctx context.Context) (map[post.Platform]int, error)
	ListRecent(ctx context.Context, platform post.Platform, limit int) ([]post.Post, error)
	Ping(ctx context.Context) error
}

var _ PostRepository = (*PostRepo)(nil)
