package audit

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"ballotbox/pkg/requestcontext"
)

// Sink receives events destined for an external system (broker, SIEM).
type Sink interface {
	Send(ctx context.Context, event Event) error
	Close()
}

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence; an optional sink fans events out to a broker.
type Publisher struct {
	store  Store
	sink   Sink
	logger *slog.Logger
}

type PublisherOption func(*Publisher)

func WithSink(sink Sink) PublisherOption {
	return func(p *Publisher) { p.sink = sink }
}

func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) { p.logger = logger }
}

func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Emit records the event. Persistence failures are returned; sink failures
// are logged and swallowed so a broker outage never blocks the request path.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = requestcontext.Now(ctx)
	}
	if err := p.store.Append(ctx, event); err != nil {
		return err
	}
	if p.sink != nil {
		if err := p.sink.Send(ctx, event); err != nil {
			p.logger.Warn("audit sink send failed",
				"action", event.Action, "error", err)
		}
	}
	return nil
}

// List returns the trail for one subject, oldest first.
func (p *Publisher) List(ctx context.Context, subjectID string) ([]Event, error) {
	return p.store.ListBySubject(ctx, subjectID)
}

// Close releases the sink, flushing buffered events.
func (p *Publisher) Close() {
	if p.sink != nil {
		p.sink.Close()
	}
}
