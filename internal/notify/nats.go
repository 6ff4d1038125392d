package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	ferrors "github.com/appdock/appdock/internal/foundation/errors"
	"github.com/appdock/appdock/internal/logfields"
)

// NATSBridge mirrors bus events onto a NATS subject so out-of-process
// renderers can subscribe without linking the daemon. Bridge failures are
// logged and never reach the worker.
type NATSBridge struct {
	conn    *nats.Conn
	subject string
	cancel  func()
	done    chan struct{}
}

// NewNATSBridge connects to NATS and starts forwarding events from the bus.
func NewNATSBridge(url, subject string, bus *Bus) (*NATSBridge, error) {
	conn, err := nats.Connect(url,
		nats.Name("appdock-notifier"),
		nats.RetryOnFailedConnect(true),
	)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryDaemon, "connect to NATS").
			WithContext("url", url).Build()
	}

	ch, sub := bus.Subscribe(16)
	ctx, cancel := context.WithCancel(context.Background())

	b := &NATSBridge{
		conn:    conn,
		subject: subject,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go func() {
		defer close(b.done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-ch:
				if !ok {
					return
				}
				b.forward(evt)
			}
		}
	}()

	slog.Info("NATS notification bridge started", "url", url, "subject", subject)
	return b, nil
}

func (b *NATSBridge) forward(evt ChangeEvent) {
	payload, err := json.Marshal(evt)
	if err != nil {
		slog.Warn("Failed to encode change event for NATS", logfields.Error(err))
		return
	}
	if err := b.conn.Publish(b.subject, payload); err != nil {
		slog.Warn("Failed to publish change event to NATS",
			logfields.Revision(evt.Revision), logfields.Error(err))
	}
}

// Close stops forwarding and drains the connection.
func (b *NATSBridge) Close() {
	b.cancel()
	<-b.done
	if err := b.conn.Drain(); err != nil {
		slog.Warn("NATS drain failed", logfields.Error(err))
	}
}
