package fanout

import (
	"context"
	"github.com/nats-io/nats.go"
	"ticketer/common/constant"
)

// NATS publishes change notices on core NATS subjects so every process
// watching the same store hears about writes made by any other process.
type NATS struct {
	Conn *nats.Conn
}

func (b NATS) Notify(ctx context.Context, topic string) error {
	return b.Conn.Publish(constant.ChangeSubjectPrefix+topic, []byte(topic))
}

func (b NATS) Listen(topic string, fn func()) (func(), error) {
	sub, err := b.Conn.Subscribe(constant.ChangeSubjectPrefix+topic, func(msg *nats.Msg) {
		fn()
	})
	if err != nil {
		return nil, err
	}

	return func() {
		_ = sub.Unsubscribe()
	}, nil
}
