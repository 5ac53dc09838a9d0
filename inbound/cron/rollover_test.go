package cron

import (
	"context"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/suite"
	"log/slog"
	"testing"
	"ticketer/common/constant"
	"ticketer/model"
	"ticketer/outbound/fanout"
	"ticketer/outbound/store"
	"ticketer/queue"
	"time"
)

type RolloverCronTestSuite struct {
	suite.Suite

	Store       *store.MemoryStore
	Coordinator *queue.Coordinator
	Cfg         *viper.Viper

	now time.Time
}

func (s *RolloverCronTestSuite) SetupTest() {
	s.Store = store.NewMemoryStore(fanout.NewLocal())

	coordinator, err := queue.NewCoordinator(s.Store, nil, queue.Options{
		Scheme:   model.SchemeSequential,
		Atomic:   true,
		Location: time.UTC,
	})
	s.Require().NoError(err)

	s.now = time.Date(2026, 10, 17, 6, 0, 0, 0, time.UTC)
	coordinator.TimeNow = func() time.Time {
		s.now = s.now.Add(time.Millisecond)
		return s.now
	}
	coordinator.Numbering.(*queue.SequentialNumbering).Intn = func(n int) int { return 0 }
	s.Coordinator = coordinator

	s.Cfg = viper.New()
	s.Cfg.Set("cron.rollover.interval", "1m")
	s.Cfg.Set("cron.rollover.timeout", "10s")
	s.Cfg.Set("queue.upcoming_size", 2)

	slog.SetLogLoggerLevel(slog.LevelDebug)
}

func TestRolloverCronTestSuite(t *testing.T) {
	suite.Run(t, new(RolloverCronTestSuite))
}

func (s *RolloverCronTestSuite) TestRun() {
	ctx := context.Background()

	yesterday := time.Date(2026, 10, 16, 18, 0, 0, 0, time.UTC).UnixMilli()
	s.Require().NoError(s.Store.Write(ctx, constant.PathMeta, map[string]any{
		"date":           "2026-10-16",
		"scheme":         "sequential",
		"currentServing": "1004",
		"nextNumber":     1006,
	}))
	s.Require().NoError(s.Store.Write(ctx, "queue/01K7OLD", model.Ticket{Number: "1005", Timestamp: yesterday}))

	cron := RolloverCron{Cfg: s.Cfg, Coordinator: s.Coordinator}
	cron.run(ctx)

	var date string
	snap, err := s.Store.Read(ctx, constant.PathDate)
	s.Require().NoError(err)
	s.Require().NoError(snap.Decode(&date))
	s.Equal("2026-10-17", date)

	snap, err = s.Store.Read(ctx, constant.PathCurrentServing)
	s.Require().NoError(err)
	s.False(snap.Exists())

	snap, err = s.Store.Read(ctx, "queue/01K7OLD")
	s.Require().NoError(err)
	s.False(snap.Exists())

	for _, number := range []string{"1000", "1001"} {
		ticket, err := s.Coordinator.IssueTicket(ctx)
		s.Require().NoError(err)
		s.Equal(number, ticket.Number)
	}

	cron.run(ctx)

	view, err := s.Coordinator.CurrentView(ctx)
	s.Require().NoError(err)
	s.Len(view.Waiting(), 2)

	ticket, err := s.Coordinator.IssueTicket(ctx)
	s.Require().NoError(err)
	s.Equal("1002", ticket.Number)
}

func (s *RolloverCronTestSuite) TestStartStopsWithContext() {
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		RolloverCron{Cfg: s.Cfg, Coordinator: s.Coordinator}.Start(ctx)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		s.Fail("cron did not stop")
	}
}
