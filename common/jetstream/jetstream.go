package jetstream

import (
	"context"
	"github.com/nats-io/nats.go/jetstream"
	"ticketer/common/constant"
	"time"
)

// CreateQueueStream declares the work queue carrying queue events. Events
// older than a week are dropped whether or not history consumed them.
func CreateQueueStream(ctx context.Context, js jetstream.JetStream) (jetstream.Stream, error) {
	cfg := jetstream.StreamConfig{
		Name:      constant.QueueStreamName,
		Retention: jetstream.WorkQueuePolicy,
		Subjects:  []string{constant.AllWildcard},
		MaxBytes:  5 * 1024 * 1024,
		MaxAge:    7 * 24 * time.Hour,
	}

	return js.CreateOrUpdateStream(ctx, cfg)
}
