package audit

import (
	"context"
	"log/slog"
)

// BufferedSink decouples broker delivery from the request path: Send enqueues
// without blocking and Run drains the inbox into the wrapped sink. Events are
// dropped when the inbox is full; the audit store remains the durable record.
type BufferedSink struct {
	next   Sink
	inbox  chan Event
	logger *slog.Logger
}

func NewBufferedSink(next Sink, capacity int, logger *slog.Logger) *BufferedSink {
	if capacity <= 0 {
		capacity = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BufferedSink{
		next:   next,
		inbox:  make(chan Event, capacity),
		logger: logger,
	}
}

func (s *BufferedSink) Send(_ context.Context, event Event) error {
	select {
	case s.inbox <- event:
	default:
		s.logger.Warn("audit sink inbox full, dropping event", "action", event.Action)
	}
	return nil
}

// Run forwards buffered events until the context is cancelled.
func (s *BufferedSink) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-s.inbox:
			if err := s.next.Send(ctx, event); err != nil {
				s.logger.Warn("audit sink delivery failed",
					"action", event.Action, "error", err)
			}
		}
	}
}

// Close flushes anything still queued in the inbox, then closes the wrapped
// sink. Run has already stopped when Close is called, so the drain here is
// the inbox's last reader.
func (s *BufferedSink) Close() {
	for {
		select {
		case event := <-s.inbox:
			if err := s.next.Send(context.Background(), event); err != nil {
				s.logger.Warn("audit sink delivery failed",
					"action", event.Action, "error", err)
			}
		default:
			s.next.Close()
			return
		}
	}
}
