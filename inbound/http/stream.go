package http

import (
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/spf13/viper"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"ticketer/common/constant"
	"ticketer/common/errs"
	"ticketer/model"
	"ticketer/queue"
	"time"
)

const (
	streamPingInterval = 20 * time.Second
	streamReadTimeout  = 60 * time.Second
	streamWriteTimeout = 5 * time.Second
)

// StreamHttp pushes derived views over websockets. Every connection holds at
// most one pending frame; a newer view replaces an unsent one, so a slow
// viewer only ever skips to the latest state.
type StreamHttp struct {
	Mirror   *queue.Mirror
	Sessions SessionParser
	Validate *validator.Validate
	Upgrader websocket.Upgrader

	TimeNow func() time.Time

	upcomingSize  int
	expiry        time.Duration
	statusRefresh time.Duration
}

func RegisterStreamHttp(
	mux *http.ServeMux,
	cfg *viper.Viper,
	mirror *queue.Mirror,
	sessions SessionParser,
	validate *validator.Validate,
) *StreamHttp {
	in := &StreamHttp{
		Mirror:   mirror,
		Sessions: sessions,
		Validate: validate,
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		TimeNow: time.Now,

		upcomingSize:  cfg.GetInt("queue.upcoming_size"),
		expiry:        cfg.GetDuration("queue.expiry"),
		statusRefresh: cfg.GetDuration("queue.status_refresh"),
	}

	mux.HandleFunc("GET /ws/display", in.display)
	mux.HandleFunc("GET /ws/dashboard", in.dashboard)
	mux.HandleFunc("GET /ws/customer", in.customer)

	return in
}

func (in StreamHttp) display(w http.ResponseWriter, r *http.Request) {
	in.stream(w, r, 0, func(view queue.View) any {
		return queue.BoardOf(view, in.upcomingSize)
	})
}

func (in StreamHttp) dashboard(w http.ResponseWriter, r *http.Request) {
	if err := in.Sessions.ParseToken(r.URL.Query().Get("token")); err != nil {
		slog.DebugContext(r.Context(), "dashboard stream rejected", slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	in.stream(w, r, 0, func(view queue.View) any {
		return queue.DashboardOf(view)
	})
}

func (in StreamHttp) customer(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	timestamp, err := strconv.ParseInt(query.Get("timestamp"), 10, 64)
	if err != nil {
		writeErrorResponse(w, &errs.HttpError{
			Code:    http.StatusBadRequest,
			Message: "Validation failed",
			Data:    map[string]string{"Timestamp": "numeric"},
		})
		return
	}

	ticket := model.LocalTicket{
		Key:       query.Get("key"),
		Number:    query.Get("number"),
		Date:      query.Get("date"),
		Timestamp: timestamp,
	}
	if err := in.Validate.Struct(ticket); err != nil {
		writeErrorResponse(w, err)
		return
	}

	var mu sync.Mutex
	tracker := queue.NewTracker(in.expiry)
	tracker.Hold(ticket)

	in.stream(w, r, in.statusRefresh, func(view queue.View) any {
		mu.Lock()
		defer mu.Unlock()

		return tracker.Observe(view, in.TimeNow())
	})
}

// stream upgrades the request and writes render(view) for every view the
// mirror derives. A positive refresh also re-renders the latest view on a
// timer, for state that changes with time alone.
func (in StreamHttp) stream(w http.ResponseWriter, r *http.Request, refresh time.Duration, render func(queue.View) any) {
	conn, err := in.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.WarnContext(r.Context(), "websocket upgrade failed", slog.Any(constant.LogFieldErr, err))
		return
	}
	defer conn.Close()

	frames := make(chan any, 1)
	stop := in.Mirror.Listen(func(view queue.View) {
		frame := render(view)

		select {
		case <-frames:
		default:
		}
		frames <- frame
	})
	defer stop()

	closed := make(chan struct{})
	go func() {
		defer close(closed)

		conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
		})

		for {
			if _, _, err := conn.NextReader(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					slog.DebugContext(r.Context(), "websocket closed", slog.Any(constant.LogFieldErr, err))
				}
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()

	var tick <-chan time.Time
	if refresh > 0 {
		ticker := time.NewTicker(refresh)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		var frame any

		select {
		case <-closed:
			return
		case frame = <-frames:
		case <-tick:
			frame = render(in.Mirror.View())
		case <-ping.C:
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteTimeout))
			if err != nil {
				return
			}
			continue
		}

		conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		if err := conn.WriteJSON(frame); err != nil {
			slog.DebugContext(r.Context(), "websocket write failed", slog.Any(constant.LogFieldErr, err))
			return
		}
	}
}
