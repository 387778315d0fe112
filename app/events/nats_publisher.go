package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/lysyi3m/social-comb/app/pipeline"
	"github.com/lysyi3m/social-comb/app/post"
)

const DefaultSubject = "social.posts.stored"

// MsgPublisher is satisfied by *nats.Conn.
type MsgPublisher interface {
	PublishMsg(msg *nats.Msg) error
}

type NatsPublisher struct {
	conn    MsgPublisher
	subject string
}

func NewNatsPublisher(conn MsgPublisher, subject string) *NatsPublisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NatsPublisher{conn: conn, subject: subject}
}

// RunCompletedEvent is the payload published after every successful run.
type RunCompletedEvent struct {
	RunID      string                `json:"run_id"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`
	Fetched    map[post.Platform]int `json:"fetched"`
	Attempted  int                   `json:"attempted"`
	Inserted   int                   `json:"inserted"`
	Failed     int                   `json:"failed"`
}

func (p *NatsPublisher) PublishRunCompleted(ctx context.Context, report pipeline.RunReport) error {
	event := RunCompletedEvent{
		RunID:      report.RunID,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Fetched:    report.Fetched,
		Attempted:  report.Attempted,
		Inserted:   report.Inserted,
		Failed:     report.Failed,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal run event %s: %w", report.RunID, err)
	}

	msg := &nats.Msg{
		Subject: p.subject,
		Data:    data,
		Header:  nats.Header{},
	}
	msg.Header.Set("Run-Id", report.RunID)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))

	slog.Debug("Publishing run event", "subject", p.subject, "run_id", report.RunID)

	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish run event %s: %w", report.RunID, err)
	}
	return nil
}

// RecordRun lets the publisher act as a run recorder.
func (p *NatsPublisher) RecordRun(ctx context.Context, report pipeline.RunReport) error {
	return p.PublishRunCompleted(ctx, report)
}
