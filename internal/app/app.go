package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ivanoskov/fintracker/internal/auth"
	"github.com/ivanoskov/fintracker/internal/bot"
	"github.com/ivanoskov/fintracker/internal/charts"
	"github.com/ivanoskov/fintracker/internal/config"
	"github.com/ivanoskov/fintracker/internal/logger"
	"github.com/ivanoskov/fintracker/internal/repository"
	"github.com/ivanoskov/fintracker/internal/service"
	"github.com/ivanoskov/fintracker/internal/state"
	"github.com/ivanoskov/fintracker/internal/transport"
)

const maxUpdateSize = 1 << 20

// App holds the wired components of one bot process.
type App struct {
	Config *config.Config
	Bot    *bot.Bot
	Flow   *service.Orchestrator
	Store  state.Store

	closeStore func() error
}

// Bootstrap wires the backend client, the state store and the orchestrator
// behind a Telegram connection.
func Bootstrap(ctx context.Context, cfg *config.Config) (*App, error) {
	start := time.Now()

	client := transport.NewClient(cfg.API.BaseURL, transport.BuildHTTPClient(cfg.API.Timeout))
	repo := repository.NewAPIRepository(client)

	store, closeStore, err := state.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}

	flow := service.NewOrchestrator(store, repo, auth.NewBook(), service.Options{
		AuthMode:  cfg.API.AuthMode,
		MaxAmount: cfg.MaxAmount(),
		Charts:    charts.NewChartGenerator(),
	})

	b, err := bot.NewBot(cfg.Telegram.Token, flow, cfg.Telegram.Workers, cfg.Telegram.LongPollTimeoutSeconds)
	if err != nil {
		_ = closeStore()
		return nil, err
	}

	logger.Info(ctx, "app", "app.bootstrap",
		slog.String("run_mode", cfg.Telegram.RunMode),
		slog.String("auth_mode", cfg.API.AuthMode),
		slog.String("state_driver", cfg.State.Driver),
		slog.Duration("duration", logger.Took(start)),
	)
	return &App{Config: cfg, Bot: b, Flow: flow, Store: store, closeStore: closeStore}, nil
}

// Run serves updates in the configured mode until ctx is done.
func (a *App) Run(ctx context.Context) error {
	go state.RunSweeper(ctx, a.Store, a.Config.State.SweepInterval)

	if a.Config.Telegram.RunMode == config.RunModeWebhook {
		return a.serveWebhook(ctx)
	}
	return a.Bot.Start(ctx)
}

func (a *App) Close() error {
	if a.closeStore == nil {
		return nil
	}
	return a.closeStore()
}

// Router exposes the webhook endpoint and a health check.
func Router(b *bot.Bot, path string) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc(path, webhookHandler(b)).Methods(http.MethodPost)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	return r
}

func webhookHandler(b *bot.Bot) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxUpdateSize))
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}
		if err := b.HandleWebhook(r.Context(), body); err != nil {
			logger.Warn(r.Context(), "app", "webhook.decode", logger.Err(err))
			http.Error(w, "invalid update", http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func (a *App) serveWebhook(ctx context.Context) error {
	wh := a.Config.Webhook
	if err := a.Bot.SetWebhook(wh.URL + wh.Path); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              wh.Listen,
		Handler:           Router(a.Bot, wh.Path),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "app", "webhook.listen", slog.String("listen", wh.Listen), slog.String("path", wh.Path))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("webhook server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("webhook server shutdown: %w", err)
	}
	return nil
}
