package cron

import (
	"context"
	"github.com/spf13/viper"
	"log/slog"
	"ticketer/common"
	"ticketer/common/constant"
	"ticketer/queue"
	"time"
)

// RolloverCron prepares each new day ahead of the first customer. The board
// itself is left to the mirror of the serving process.
type RolloverCron struct {
	Cfg         *viper.Viper
	Coordinator *queue.Coordinator
}

func (in RolloverCron) Start(ctx context.Context) {
	ticker := time.NewTicker(in.Cfg.GetDuration("cron.rollover.interval"))
	defer ticker.Stop()

	in.run(ctx)

	slog.Info("rollover cron started")

	for {
		select {
		case <-ticker.C:
			in.run(ctx)
		case <-ctx.Done():
			slog.Info("rollover cron stopped")
			return
		}
	}
}

func (in RolloverCron) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, in.Cfg.GetDuration("cron.rollover.timeout"))
	defer cancel()

	traceIdAttr := common.ExtractTraceIDFromCtx(ctx)

	slog.DebugContext(ctx, "checking queue day", traceIdAttr)

	view, err := in.Coordinator.CurrentView(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to refresh queue day", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		return
	}

	slog.DebugContext(ctx, "queue day checked", traceIdAttr,
		slog.String(constant.LogFieldDay, view.Date),
		slog.Int(constant.LogFieldWaiting, len(view.Waiting())))
}
