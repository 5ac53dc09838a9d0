package cmd

import (
	"context"
	"fmt"
	"github.com/go-playground/validator/v10"
	"log"
	"log/slog"
	"net/http"
	"os"
	"runtime/pprof"
	"ticketer/common/vars"
	inboundHttp "ticketer/inbound/http"
	"ticketer/outbound/sqlgen"
	"ticketer/queue"
	"time"
)

func runHttpServerCmd(ctx context.Context) {
	cfg := newCfg("env")

	if cfg.GetString("env") == "dev" {
		cpu, err := os.Create("http-cpu.prof")
		if err != nil {
			log.Fatalf("could not create CPU profile: %v", err)
		}
		defer cpu.Close()

		err = pprof.StartCPUProfile(cpu)
		if err != nil {
			log.Fatalf("could not start CPU profile: %v", err)
		}
		defer pprof.StopCPUProfile()

		mem, err := os.Create("http-mem.prof")
		if err != nil {
			log.Fatalf("could not create memory profile: %v", err)
		}
		defer mem.Close()

		err = pprof.WriteHeapProfile(mem)
		if err != nil {
			log.Fatalf("could not write memory profile: %v", err)
		}
	}

	validate := validator.New()

	db := newDb(cfg)
	defer db.Close()

	natsConn := newNats(cfg)
	defer natsConn.Close()

	js := newJs(natsConn)
	createStreamWorkQueue(ctx, js)

	st, closeStore := newStore(cfg, natsConn)
	defer closeStore()

	querier := sqlgen.New(db)
	coordinator := newCoordinator(cfg, st, js)
	gate := newGate(cfg, st)

	mirror := queue.NewMirror(st, coordinator.Location)
	stopBoard := mirror.Listen(func(view queue.View) {
		vars.SetBoard(queue.BoardOf(view, cfg.GetInt("queue.upcoming_size")))
	})
	defer stopBoard()

	go func() {
		if err := mirror.Run(ctx); err != nil {
			log.Fatalln("unable to start queue mirror", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		slog.DebugContext(r.Context(), "health check")
		w.WriteHeader(http.StatusOK)
	})

	timeoutMiddleware := inboundHttp.TimeoutMiddleware(20 * time.Second)

	inboundHttp.RegisterTicketHttp(mux, coordinator)
	inboundHttp.RegisterBoardHttp(mux)
	inboundHttp.RegisterStatsHttp(mux, querier, validate)
	inboundHttp.RegisterCashierHttp(mux, coordinator, gate, validate)

	// websocket routes are not wrapped by the request timeout
	root := http.NewServeMux()
	root.Handle("/", timeoutMiddleware(inboundHttp.CorsMiddleware(mux)))
	inboundHttp.RegisterStreamHttp(root, cfg, mirror, gate, validate)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.GetInt("server.port")),
		Handler:           root,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalln("unable to start server", err)
		}
	}()

	slog.Info("http server started")

	<-ctx.Done()

	ctxShutDown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutDown); err != nil {
		log.Fatalln("unable to shutdown server", err)
	}

	slog.Info("http server stopped")
}
