package notify

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog"

	"github.com/dronm/sqlhelper"
)

// Multi delivers every event to each notifier in turn. One failing
// notifier does not keep the event from the others.
type Multi []sqlhelper.Notifier

func (m Multi) Notify(ctx context.Context, ev sqlhelper.Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every notifier that implements io.Closer.
func (m Multi) Close() error {
	var errs []error
	for _, n := range m {
		if c, ok := n.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Log writes events to a zerolog logger.
type Log struct {
	Logger zerolog.Logger
}

func (l Log) Notify(_ context.Context, ev sqlhelper.Event) error {
	l.Logger.Warn().
		Str("event", string(ev.Kind)).
		Str("source", ev.Source).
		Str("from", ev.From.String()).
		Str("to", ev.To.String()).
		Time("at", ev.Time).
		Msg(ev.Message())
	return nil
}
