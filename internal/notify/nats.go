package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

type NATSSink struct {
	nc      *nats.Conn
	subject string
}

func DialNATS(url, subject string) (*NATSSink, error) {
	nc, err := nats.Connect(url,
		nats.Name("taskflow-api"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return NewNATSSink(nc, subject), nil
}

func NewNATSSink(nc *nats.Conn, subject string) *NATSSink {
	return &NATSSink{nc: nc, subject: subject}
}

func (s *NATSSink) Send(ctx context.Context, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := s.nc.Publish(s.subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", s.subject, err)
	}
	// Publish only buffers; flushing surfaces a dead connection.
	if err := s.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

func (s *NATSSink) Close() error {
	return s.nc.Drain()
}
