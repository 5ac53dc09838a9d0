package cmd

import (
	"context"
	inboundCron "ticketer/inbound/cron"
)

func runCronCmd(ctx context.Context) {
	cfg := newCfg("env")

	natsConn := newNats(cfg)
	defer natsConn.Close()

	js := newJs(natsConn)
	createStreamWorkQueue(ctx, js)

	st, closeStore := newStore(cfg, natsConn)
	defer closeStore()

	rolloverCron := inboundCron.RolloverCron{
		Cfg:         cfg,
		Coordinator: newCoordinator(cfg, st, js),
	}

	rolloverCron.Start(ctx)
}
