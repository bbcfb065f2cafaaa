// Package nats implements the decision log port as a NATS JetStream
// publisher, so downstream consumers can subscribe to decision records.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/kestrelops/sigmagate/internal/domain/gate"
	"github.com/kestrelops/sigmagate/internal/resilience"
)

const (
	streamName      = "SIGMAGATE"
	breakerFailures = 5
	breakerTimeout  = 30 * time.Second
)

// Publisher publishes decision records on decisions.<phase> subjects.
// Publishes go through a circuit breaker so a NATS outage sheds
// records instead of stalling every evaluation on publish timeouts.
type Publisher struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	breaker *resilience.Breaker
}

// Connect establishes a connection to NATS and ensures the decision
// stream exists.
func Connect(ctx context.Context, url string) (*Publisher, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{"decisions.>"},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	slog.Info("nats connected", "url", url, "stream", streamName)
	return &Publisher{
		nc:      nc,
		js:      js,
		breaker: resilience.NewBreaker(breakerFailures, breakerTimeout),
	}, nil
}

// Append publishes the record on decisions.<phase>.
func (p *Publisher) Append(ctx context.Context, rec *gate.DecisionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", rec.TaskID, err)
	}
	subject := fmt.Sprintf("decisions.%s", rec.Phase)
	return p.breaker.Execute(func() error {
		if _, err := p.js.Publish(ctx, subject, data); err != nil {
			return fmt.Errorf("nats publish %s: %w", subject, err)
		}
		return nil
	})
}

// Close shuts down the NATS connection.
func (p *Publisher) Close() error {
	p.nc.Close()
	return nil
}
