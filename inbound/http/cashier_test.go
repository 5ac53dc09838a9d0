package http

import (
	"context"
	"encoding/json"
	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"
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

type CashierHttpTestSuite struct {
	suite.Suite

	Store       *store.MemoryStore
	Publisher   *publisherMock.MockPublisher
	Coordinator *queue.Coordinator
	Gate        *queue.Gate
	Mux         *http.ServeMux

	now time.Time
}

func (s *CashierHttpTestSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())

	s.Store = store.NewMemoryStore(fanout.NewLocal())
	s.Publisher = publisherMock.NewMockPublisher(ctrl)
	s.Publisher.EXPECT().
		Publish(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&jetstream.PubAck{Stream: constant.QueueStreamName}, nil).
		AnyTimes()

	s.now = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		s.now = s.now.Add(time.Millisecond)
		return s.now
	}

	coordinator, err := queue.NewCoordinator(s.Store, s.Publisher, queue.Options{
		Scheme:   model.SchemeSequential,
		Atomic:   true,
		Location: time.UTC,
	})
	s.Require().NoError(err)

	coordinator.TimeNow = clock
	coordinator.Numbering.(*queue.SequentialNumbering).Intn = func(n int) int { return 3821 }
	s.Coordinator = coordinator

	s.Gate = &queue.Gate{
		Store:      s.Store,
		DefaultPin: constant.DefaultPin,
		Secret:     []byte("counter-secret"),
		SessionTTL: time.Hour,
		Cost:       bcrypt.MinCost,
		TimeNow:    clock,
	}

	s.Mux = http.NewServeMux()
	RegisterCashierHttp(s.Mux, s.Coordinator, s.Gate, validator.New())

	slog.SetLogLoggerLevel(slog.LevelDebug)
}

func TestCashierHttpTestSuite(t *testing.T) {
	suite.Run(t, new(CashierHttpTestSuite))
}

func (s *CashierHttpTestSuite) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.Mux.ServeHTTP(w, req)

	return w
}

func (s *CashierHttpTestSuite) login() string {
	w := s.do(http.MethodPost, "/api/cashier/login", "", `{"pin":"123456"}`)
	s.Require().Equal(http.StatusOK, w.Code)

	var resp model.LoginResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))

	return resp.Token
}

func (s *CashierHttpTestSuite) TestLogin() {
	tests := []struct {
		name           string
		reqBody        string
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "invalid json",
			reqBody:        `{invalid json`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"Invalid request"}`,
		},
		{
			name:           "missing pin",
			reqBody:        `{}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"Validation failed","data":{"Pin":"required"}}`,
		},
		{
			name:           "wrong pin",
			reqBody:        `{"pin":"000000"}`,
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"error":"Invalid PIN"}`,
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			w := s.do(http.MethodPost, "/api/cashier/login", "", tc.reqBody)

			s.Equal(tc.expectedStatus, w.Code)
			s.Equal(tc.expectedBody, strings.TrimSpace(w.Body.String()))
		})
	}
}

func (s *CashierHttpTestSuite) TestLoginStartsSession() {
	token := s.login()
	s.NoError(s.Gate.ParseToken(token))

	snap, err := s.Store.Read(context.Background(), constant.PathDate)
	s.Require().NoError(err)

	var date string
	s.Require().NoError(snap.Decode(&date))
	s.Equal("2026-10-16", date)
}

func (s *CashierHttpTestSuite) TestRequiresSession() {
	tests := []struct {
		method string
		path   string
	}{
		{method: http.MethodGet, path: "/api/cashier/queue"},
		{method: http.MethodPost, path: "/api/cashier/next"},
		{method: http.MethodPost, path: "/api/cashier/reset"},
		{method: http.MethodPut, path: "/api/cashier/pin"},
	}

	for _, tc := range tests {
		s.Run(tc.method+" "+tc.path, func() {
			w := s.do(tc.method, tc.path, "", "")
			s.Equal(http.StatusUnauthorized, w.Code)
			s.Equal(`{"error":"Unauthorized"}`, strings.TrimSpace(w.Body.String()))

			w = s.do(tc.method, tc.path, "forged", "")
			s.Equal(http.StatusUnauthorized, w.Code)
		})
	}
}

func (s *CashierHttpTestSuite) TestServeQueue() {
	ctx := context.Background()
	token := s.login()

	w := s.do(http.MethodPost, "/api/cashier/next", token, "")
	s.Equal(http.StatusOK, w.Code)
	s.Equal(`{"called":null}`, strings.TrimSpace(w.Body.String()))

	first, err := s.Coordinator.IssueTicket(ctx)
	s.Require().NoError(err)
	second, err := s.Coordinator.IssueTicket(ctx)
	s.Require().NoError(err)

	w = s.do(http.MethodGet, "/api/cashier/queue", token, "")
	s.Equal(http.StatusOK, w.Code)

	var dashboard model.Dashboard
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &dashboard))
	s.Equal(2, dashboard.Count)
	s.Equal(first.Number, dashboard.Queue[0].Number)
	s.True(dashboard.Queue[0].Next)

	w = s.do(http.MethodPost, "/api/cashier/reset", token, "")
	s.Equal(http.StatusConflict, w.Code)
	s.Equal(`{"error":"Queue is not empty"}`, strings.TrimSpace(w.Body.String()))

	w = s.do(http.MethodPost, "/api/cashier/next", token, "")
	s.Equal(http.StatusOK, w.Code)

	var called model.CallNextResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &called))
	s.Require().NotNil(called.Called)
	s.Equal("4821", called.Called.Number)
	s.Equal(first.Key, called.Called.Key)

	w = s.do(http.MethodPost, "/api/cashier/next", token, "")
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &called))
	s.Equal(second.Number, called.Called.Number)

	w = s.do(http.MethodPost, "/api/cashier/reset", token, "")
	s.Equal(http.StatusOK, w.Code)

	third, err := s.Coordinator.IssueTicket(ctx)
	s.Require().NoError(err)
	s.Equal("4823", third.Number)
}

func (s *CashierHttpTestSuite) TestChangePin() {
	tests := []struct {
		name           string
		reqBody        string
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "invalid json",
			reqBody:        `{invalid json`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"Invalid request"}`,
		},
		{
			name:           "not six digits",
			reqBody:        `{"pin":"12345","confirm":"12345"}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"Validation failed","data":{"Pin":"len"}}`,
		},
		{
			name:           "confirmation mismatch",
			reqBody:        `{"pin":"654321","confirm":"654320"}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"PIN confirmation does not match"}`,
		},
		{
			name:           "success",
			reqBody:        `{"pin":"654321","confirm":"654321"}`,
			expectedStatus: http.StatusOK,
			expectedBody:   ``,
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			s.SetupTest()
			token := s.login()

			w := s.do(http.MethodPut, "/api/cashier/pin", token, tc.reqBody)

			s.Equal(tc.expectedStatus, w.Code)
			s.Equal(tc.expectedBody, strings.TrimSpace(w.Body.String()))
		})
	}

	w := s.do(http.MethodPost, "/api/cashier/login", "", `{"pin":"123456"}`)
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/cashier/login", "", `{"pin":"654321"}`)
	s.Equal(http.StatusOK, w.Code)
}
