package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dronm/sqlhelper"
)

// NATSNotifier publishes the event message to a NATS subject.
type NATSNotifier struct {
	nc      *nats.Conn
	subject string
}

// NewNATS connects to url. A non-empty token is used for authentication.
func NewNATS(url, token, subject string) (*NATSNotifier, error) {
	if subject == "" {
		return nil, fmt.Errorf("nats notifier requires a subject")
	}
	opts := []nats.Option{
		nats.Name("sqlhelper"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSNotifier{nc: nc, subject: subject}, nil
}

// Notify publishes and waits for the server to acknowledge the flush.
// The event kind and source travel as headers.
func (n *NATSNotifier) Notify(ctx context.Context, ev sqlhelper.Event) error {
	msg := &nats.Msg{
		Subject: n.subject,
		Data:    []byte(ev.Message()),
		Header:  nats.Header{},
	}
	msg.Header.Set("event", string(ev.Kind))
	msg.Header.Set("source", ev.Source)

	if err := n.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", n.subject, err)
	}
	if err := n.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush %s: %w", n.subject, err)
	}
	return nil
}

// Close drains the connection.
func (n *NATSNotifier) Close() error {
	return n.nc.Drain()
}
