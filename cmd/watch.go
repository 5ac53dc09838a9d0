package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"ticketer/common/constant"
	"ticketer/model"
	"time"
)

// runWatchCmd is a headless display: it polls the board and logs every
// change.
func runWatchCmd(ctx context.Context) {
	cfg := newCfg("env")

	pollTicker := time.NewTicker(cfg.GetDuration("watch.interval"))
	defer pollTicker.Stop()

	boardUrl := cfg.GetString("watch.board_url")

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	slog.InfoContext(ctx, "watch started", slog.String("board_url", boardUrl))

	var last *model.Board
	for {
		select {
		case <-pollTicker.C:
			board, err := fetchBoard(ctx, client, boardUrl)
			if err != nil {
				slog.WarnContext(ctx, "failed to fetch board",
					slog.String("url", boardUrl),
					slog.Any(constant.LogFieldErr, err))
				continue
			}

			if last != nil && reflect.DeepEqual(*last, board) {
				continue
			}
			last = &board

			slog.InfoContext(ctx, "board changed",
				slog.String("current_serving", board.CurrentServing),
				slog.Any("upcoming", board.Upcoming),
				slog.Int("waiting", board.Waiting),
				slog.String(constant.LogFieldDay, board.Date))

		case <-ctx.Done():
			slog.InfoContext(ctx, "watch stopped")
			return
		}
	}
}

func fetchBoard(ctx context.Context, client *http.Client, url string) (model.Board, error) {
	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return model.Board{}, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return model.Board{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.Board{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var board model.Board
	if err := json.NewDecoder(resp.Body).Decode(&board); err != nil {
		return model.Board{}, err
	}

	return board, nil
}
