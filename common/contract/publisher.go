package contract

import (
	"context"
	"github.com/nats-io/nats.go/jetstream"
)

//go:generate mockgen -source=publisher.go -destination=mocks/publisher.go -package=mocks

// Publisher is the slice of jetstream.JetStream the queue needs to emit
// events.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}
