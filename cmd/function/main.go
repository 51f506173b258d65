package main

import (
	"context"
	"net/http"
	"os"
	"sync"

	"github.com/ivanoskov/fintracker/internal/app"
	"github.com/ivanoskov/fintracker/internal/config"
	"github.com/ivanoskov/fintracker/internal/logger"
)

// Request структура входящего запроса от API Gateway
type Request struct {
	Body string `json:"body"`
}

// Response структура ответа для API Gateway
type Response struct {
	StatusCode int               `json:"statusCode"`
	Body       string            `json:"body"`
	Headers    map[string]string `json:"headers,omitempty"`
}

var (
	once    sync.Once
	warm    *app.App
	bootErr error
)

// instance builds the app once per warm container. The state store outlives
// single invocations, so conversations survive between updates.
func instance(ctx context.Context) (*app.App, error) {
	once.Do(func() {
		cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
		if err != nil {
			bootErr = err
			return
		}
		logger.Init(cfg.Logging)
		warm, bootErr = app.Bootstrap(ctx, cfg)
	})
	return warm, bootErr
}

// Handler обрабатывает одно webhook-обновление.
func Handler(ctx context.Context, request Request) (*Response, error) {
	a, err := instance(ctx)
	if err != nil {
		return errorResponse(http.StatusInternalServerError, err), nil
	}
	if err := a.Bot.HandleWebhook(ctx, []byte(request.Body)); err != nil {
		logger.Warn(ctx, "function", "webhook.decode", logger.Err(err))
		return errorResponse(http.StatusBadRequest, err), nil
	}
	return &Response{
		StatusCode: http.StatusOK,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}, nil
}

func errorResponse(status int, err error) *Response {
	return &Response{
		StatusCode: status,
		Body:       err.Error(),
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

func main() {
	// Точка входа для локального тестирования
}
