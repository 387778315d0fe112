package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/lysyi3m/social-comb/app/post"
)

// PostRepo stores posts in the social_posts table.
type PostRepo struct {
	db *DB
}

func NewPostRepository(db *DB) *PostRepo {
	return &PostRepo{db: db}
}

func (r *PostRepo) InsertPost(ctx context.Context, p post.Post) (bool, error) {
	query := r.db.Dialect.Rebind(fmt.Sprintf(`
		INSERT INTO %s (
			platform, platform_post_id, platform_author_id, author_username,
			content, likes_count, comments_count, shares_count, published_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (platform, platform_post_id) DO NOTHING
	`, r.db.Dialect.PostsTable))

	res, err := r.db.ExecContext(ctx, query,
		string(p.Platform), p.PlatformPostID, p.PlatformAuthorID, p.AuthorUsername,
		p.Content, p.LikesCount, p.CommentsCount, p.SharesCount, p.PublishedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			return false, fmt.Errorf("failed to insert post %s (%s %s): %w", p.Key(), pqErr.Code, pqErr.Code.Name(), err)
		}
		return false, fmt.Errorf("failed to insert post %s: %w", p.Key(), err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		// The write itself succeeded.
		return false, nil
	}
	return n > 0, nil
}

func (r *PostRepo) CountByPlatform(ctx context.Context) (map[post.Platform]int, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT platform, COUNT(*) FROM %s GROUP BY platform`, r.db.Dialect.PostsTable))
	if err != nil {
		return nil, fmt.Errorf("failed to count posts: %w", err)
	}
	defer rows.Close()

	counts := make(map[post.Platform]int)
	for rows.Next() {
		var platform string
		var count int
		if err := rows.Scan(&platform, &count); err != nil {
			return nil, fmt.Errorf("failed to scan post count: %w", err)
		}
		counts[post.Platform(platform)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate post counts: %w", err)
	}

	return counts, nil
}

// ListRecent returns the most recently collected posts, optionally for one platform.
func (r *PostRepo) ListRecent(ctx context.Context, platform post.Platform, limit int) ([]post.Post, error) {
	columns := `platform, platform_post_id, platform_author_id, author_username,
		content, likes_count, comments_count, shares_count, published_at`

	var (
		query string
		args  []interface{}
	)
	if platform == "" {
		query = fmt.Sprintf(`SELECT %s FROM %s
			ORDER BY collected_at DESC, published_at DESC
			LIMIT $1`, columns, r.db.Dialect.PostsTable)
		args = []interface{}{limit}
	} else {
		query = fmt.Sprintf(`SELECT %s FROM %s
			WHERE platform = $1
			ORDER BY collected_at DESC, published_at DESC
			LIMIT $2`, columns, r.db.Dialect.PostsTable)
		args = []interface{}{string(platform), limit}
	}

	rows, err := r.db.QueryContext(ctx, r.db.Dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	posts := []post.Post{}
	for rows.Next() {
		var p post.Post
		var platformName string
		if err := rows.Scan(&platformName, &p.PlatformPostID, &p.PlatformAuthorID, &p.AuthorUsername,
			&p.Content, &p.LikesCount, &p.CommentsCount, &p.SharesCount, &p.PublishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		p.Platform = post.Platform(platformName)
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}

	return posts, nil
}

func (r *PostRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
