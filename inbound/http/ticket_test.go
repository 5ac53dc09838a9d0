package http

import (
	"context"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"ticketer/common/constant"
	publisherMock "ticketer/common/contract/mocks"
	"ticketer/model"
	"ticketer/outbound/fanout"
	"ticketer/outbound/store"
	"ticketer/queue"
	"time"
)

type TicketHttpTestSuite struct {
	suite.Suite

	Store     *store.MemoryStore
	Publisher *publisherMock.MockPublisher

	now time.Time
}

func (s *TicketHttpTestSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())

	s.Store = store.NewMemoryStore(fanout.NewLocal())
	s.Publisher = publisherMock.NewMockPublisher(ctrl)
	s.now = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

	slog.SetLogLoggerLevel(slog.LevelDebug)
}

func TestTicketHttpTestSuite(t *testing.T) {
	suite.Run(t, new(TicketHttpTestSuite))
}

func (s *TicketHttpTestSuite) newCoordinator(scheme model.Scheme, maxAttempts int) *queue.Coordinator {
	coordinator, err := queue.NewCoordinator(s.Store, s.Publisher, queue.Options{
		Scheme:           scheme,
		Atomic:           true,
		CodedMaxAttempts: maxAttempts,
		Location:         time.UTC,
	})
	s.Require().NoError(err)

	coordinator.TimeNow = func() time.Time {
		s.now = s.now.Add(time.Millisecond)
		return s.now
	}

	return coordinator
}

func (s *TicketHttpTestSuite) TestIssue() {
	tests := []struct {
		name           string
		setup          func() *queue.Coordinator
		expectedStatus int
		expectedBody   string
		checkTicket    func(ticket string)
	}{
		{
			name: "sequential number",
			setup: func() *queue.Coordinator {
				coordinator := s.newCoordinator(model.SchemeSequential, 0)
				coordinator.Numbering.(*queue.SequentialNumbering).Intn = func(n int) int { return 3821 }

				s.Publisher.EXPECT().
					Publish(gomock.Any(), constant.SubjectQueueRollover, gomock.Any()).
					Return(&jetstream.PubAck{Stream: constant.QueueStreamName}, nil)
				s.Publisher.EXPECT().
					Publish(gomock.Any(), constant.SubjectTicketIssued, gomock.Any()).
					Return(&jetstream.PubAck{Stream: constant.QueueStreamName}, nil)

				return coordinator
			},
			expectedStatus: http.StatusOK,
			checkTicket: func(body string) {
				s.Contains(body, `"number":"4821"`)
				s.Contains(body, `"date":"2026-10-16"`)
			},
		},
		{
			name: "codes exhausted",
			setup: func() *queue.Coordinator {
				coordinator := s.newCoordinator(model.SchemeCoded, 1)
				coordinator.Numbering.(*queue.CodedNumbering).Intn = func(n int) int { return 0 }

				s.Publisher.EXPECT().
					Publish(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(&jetstream.PubAck{Stream: constant.QueueStreamName}, nil).
					AnyTimes()

				_, err := coordinator.EnsureDay(context.Background())
				s.Require().NoError(err)

				_, err = s.Store.Claim(context.Background(), store.Join(constant.PathUsedNumbers, "2026-10-16", "A000"), true)
				s.Require().NoError(err)

				return coordinator
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `{"error":"Ticket numbers exhausted"}`,
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			s.SetupTest()

			ticketHttp := RegisterTicketHttp(http.NewServeMux(), tc.setup())

			req := httptest.NewRequest(http.MethodPost, "/api/tickets", nil)
			w := httptest.NewRecorder()

			ticketHttp.issue(w, req)

			s.Equal(tc.expectedStatus, w.Code)

			actual := strings.TrimSpace(w.Body.String())
			if tc.expectedBody != "" {
				s.Equal(tc.expectedBody, actual)
			}
			if tc.checkTicket != nil {
				tc.checkTicket(actual)
			}
		})
	}
}
