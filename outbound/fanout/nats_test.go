package fanout

import (
	"context"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/suite"
	"sync/atomic"
	"testing"
	"ticketer/common/constant"
	"time"
)

type NATSTestSuite struct {
	suite.Suite

	Server *server.Server
	Conn   *nats.Conn
	Bus    NATS
}

func (s *NATSTestSuite) SetupTest() {
	ns, err := server.NewServer(&server.Options{Host: "127.0.0.1", Port: server.RANDOM_PORT, NoLog: true, NoSigs: true})
	s.Require().NoError(err)

	go ns.Start()
	s.Require().True(ns.ReadyForConnections(5 * time.Second))

	conn, err := nats.Connect(ns.ClientURL())
	s.Require().NoError(err)

	s.Server = ns
	s.Conn = conn
	s.Bus = NATS{Conn: conn}
}

func (s *NATSTestSuite) TearDownTest() {
	s.Conn.Close()
	s.Server.Shutdown()
}

func TestNATSTestSuite(t *testing.T) {
	suite.Run(t, new(NATSTestSuite))
}

func (s *NATSTestSuite) TestNotifyUsesChangeSubject() {
	sub, err := s.Conn.SubscribeSync(constant.ChangeSubjectPrefix + ">")
	s.Require().NoError(err)
	s.Require().NoError(s.Conn.Flush())

	s.Require().NoError(s.Bus.Notify(context.Background(), "queue"))

	msg, err := sub.NextMsg(2 * time.Second)
	s.Require().NoError(err)
	s.Equal("ticketer.changes.queue", msg.Subject)
	s.Equal("queue", string(msg.Data))
}

func (s *NATSTestSuite) TestListen() {
	ctx := context.Background()

	var queueHits, metaHits atomic.Int32

	stopQueue, err := s.Bus.Listen("queue", func() { queueHits.Add(1) })
	s.Require().NoError(err)

	_, err = s.Bus.Listen("meta", func() { metaHits.Add(1) })
	s.Require().NoError(err)
	s.Require().NoError(s.Conn.Flush())

	s.Require().NoError(s.Bus.Notify(ctx, "queue"))
	s.Require().NoError(s.Bus.Notify(ctx, "queue"))
	s.Require().NoError(s.Bus.Notify(ctx, "meta"))

	s.Eventually(func() bool {
		return queueHits.Load() == 2 && metaHits.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)

	stopQueue()
	s.Require().NoError(s.Conn.Flush())

	s.Require().NoError(s.Bus.Notify(ctx, "queue"))
	s.Require().NoError(s.Bus.Notify(ctx, "meta"))

	// notices from one connection are routed in order, so meta arriving means queue was skipped
	s.Eventually(func() bool { return metaHits.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
	s.Equal(int32(2), queueHits.Load())
}
