package cmd

import (
	"context"
	"github.com/nats-io/nats.go/jetstream"
	"log"
	"log/slog"
	"ticketer/common/constant"
	"ticketer/inbound/event"
	"ticketer/outbound/sqlgen"
	"time"
)

func runQueueHistoryCmd(ctx context.Context) {
	cfg := newCfg("env")

	db := newDb(cfg)
	defer db.Close()

	querier := sqlgen.New(db)

	natsConn := newNats(cfg)
	defer natsConn.Close()

	js := newJs(natsConn)
	st := createStreamWorkQueue(ctx, js)

	historyEvent := event.HistoryEvent{
		Db:      db,
		Querier: querier,
		Timeout: cfg.GetDuration("queue.history.timeout"),
	}

	cons, err := st.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       "consumer:history",
		FilterSubject: constant.AllWildcard,
		MaxDeliver:    cfg.GetInt("queue.history.max_deliver"),
		AckWait:       cfg.GetDuration("queue.history.ack_wait"),
	})
	if err != nil {
		log.Fatalln("failed to create consumer", err)
	}

	iter, err := cons.Messages()
	if err != nil {
		panic(err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
				msg, err := iter.Next()
				if err != nil && err != jetstream.ErrMsgIteratorClosed {
					slog.ErrorContext(ctx, "Error fetching message", slog.Any(constant.LogFieldErr, err))
					continue
				}

				if msg == nil {
					continue
				}

				var eventErr error
				switch msg.Subject() {
				case constant.SubjectTicketIssued,
					constant.SubjectTicketCalled,
					constant.SubjectQueueReset,
					constant.SubjectQueueRollover:
					eventErr = historyEvent.Handler(ctx, msg.Data())
				default:
					slog.WarnContext(ctx, "unknown queue event subject", slog.String(constant.LogFieldSubject, msg.Subject()))
				}

				if eventErr != nil {
					msg.NakWithDelay(1 * time.Second)
					continue
				}

				if err := msg.Ack(); err != nil {
					slog.ErrorContext(ctx, "Error acknowledging message",
						slog.Any(constant.LogFieldErr, err),
						slog.Any(constant.LogFieldPayload, string(msg.Data())),
						slog.String(constant.LogFieldSubject, msg.Subject()),
					)
					continue
				}
			}
		}
	}()

	slog.InfoContext(ctx, "history queue consumer started")

	<-ctx.Done()

	iter.Stop()

	slog.InfoContext(ctx, "history queue consumer stopped")
}
