package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/social-comb/app/database"
	"github.com/lysyi3m/social-comb/app/post"
)

const tracerName = "github.com/lysyi3m/social-comb/app/pipeline"

// Fetcher is one platform client. Fetch must not fail: errors are absorbed
// by the client and reported as an empty slice.
type Fetcher interface {
	Platform() post.Platform
	Fetch(ctx context.Context) []post.Post
}

// RunReport describes one completed run.
type RunReport struct {
	RunID      string                `json:"run_id"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`
	Fetched    map[post.Platform]int `json:"fetched"`
	StoreResult
}

func (r RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Pipeline fetches from two sources in parallel, then aggregates and stores.
type Pipeline struct {
	sourceA Fetcher
	sourceB Fetcher
	repo    database.PostRepository
	sink    *Sink
	logger  *slog.Logger
}

type Option func(*Pipeline)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New builds a pipeline. A nil source contributes no posts.
func New(sourceA, sourceB Fetcher, repo database.PostRepository, opts ...Option) *Pipeline {
	p := &Pipeline{
		sourceA: sourceA,
		sourceB: sourceB,
		repo:    repo,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.sink = NewSink(repo, p.logger)
	return p
}

// Run performs one ingestion. It returns an error only when the run could not
// reach the store or was cancelled; source failures are absorbed.
func (p *Pipeline) Run(ctx context.Context, runID string) (RunReport, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "pipeline.run")
	defer span.End()
	span.SetAttributes(attribute.String("run.id", runID))

	report := RunReport{
		RunID:     runID,
		StartedAt: time.Now().UTC(),
		Fetched:   make(map[post.Platform]int),
	}
	logger := p.logger.With("run_id", runID)

	var postsA, postsB []post.Post
	var g errgroup.Group
	g.Go(func() error {
		postsA = p.fetch(ctx, p.sourceA)
		return nil
	})
	g.Go(func() error {
		postsB = p.fetch(ctx, p.sourceB)
		return nil
	})
	_ = g.Wait()

	if p.sourceA != nil {
		report.Fetched[p.sourceA.Platform()] = len(postsA)
	}
	if p.sourceB != nil {
		report.Fetched[p.sourceB.Platform()] = len(postsB)
	}

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, "cancelled")
		report.FinishedAt = time.Now().UTC()
		return report, fmt.Errorf("run cancelled: %w", err)
	}

	posts := Aggregate(postsA, postsB)
	if len(posts) == 0 {
		logger.Info("No data to store")
		report.FinishedAt = time.Now().UTC()
		return report, nil
	}

	logger.Info("Storing posts", "count", len(posts))

	storeCtx, storeSpan := otel.Tracer(tracerName).Start(ctx, "store")
	if err := p.repo.Ping(storeCtx); err != nil {
		storeSpan.RecordError(err)
		storeSpan.SetStatus(codes.Error, "store unreachable")
		storeSpan.End()
		span.SetStatus(codes.Error, "store unreachable")
		report.FinishedAt = time.Now().UTC()
		return report, fmt.Errorf("store unreachable: %w", err)
	}
	report.StoreResult = p.sink.Store(storeCtx, posts)
	storeSpan.SetAttributes(
		attribute.Int("store.attempted", report.Attempted),
		attribute.Int("store.inserted", report.Inserted),
		attribute.Int("store.failed", report.Failed))
	storeSpan.End()

	report.FinishedAt = time.Now().UTC()
	return report, nil
}

func (p *Pipeline) fetch(ctx context.Context, f Fetcher) []post.Post {
	if f == nil {
		return []post.Post{}
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "fetch."+strings.ToLower(string(f.Platform())))
	defer span.End()

	posts := f.Fetch(ctx)
	span.SetAttributes(attribute.Int("posts.count", len(posts)))
	return posts
}
