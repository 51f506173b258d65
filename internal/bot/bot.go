package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ivanoskov/fintracker/internal/logger"
	"github.com/ivanoskov/fintracker/internal/model"
	"github.com/ivanoskov/fintracker/internal/service"
)

// Sender is the part of the Telegram API the bot writes through.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Poller delivers updates in long polling mode.
type Poller interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// FlowHandler answers one event of one user.
type FlowHandler interface {
	Handle(ctx context.Context, id model.Identity, ev service.Event) service.Outcome
}

type Bot struct {
	api         Sender
	poller      Poller
	flow        FlowHandler
	workers     int
	pollTimeout int
}

// NewBot connects to Telegram with token.
func NewBot(token string, flow FlowHandler, workers, pollTimeout int) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot api: %w", err)
	}
	b := New(api, flow, workers)
	b.poller = api
	b.pollTimeout = pollTimeout
	logger.Info(context.Background(), "bot", "bot.connected", slog.String("username", api.Self.UserName))
	return b, nil
}

// New builds a Bot on an existing sender; used by tests and webhook mode.
func New(api Sender, flow FlowHandler, workers int) *Bot {
	if workers <= 0 {
		workers = 1
	}
	return &Bot{
		api:         api,
		flow:        flow,
		workers:     workers,
		pollTimeout: 60,
	}
}

// Start запускает бота в режиме long polling и блокируется до отмены ctx.
// Updates of one user are handled in arrival order, different users concurrently.
func (b *Bot) Start(ctx context.Context) error {
	if b.poller == nil {
		return fmt.Errorf("bot has no poller")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.pollTimeout

	updates := b.poller.GetUpdatesChan(u)
	d := newDispatcher(b.workers, func(update tgbotapi.Update) {
		b.handleUpdate(ctx, update)
	})
	defer d.close()

	logger.Info(ctx, "bot", "bot.polling", slog.Int("workers", b.workers), slog.Int("timeout", b.pollTimeout))
	for {
		select {
		case <-ctx.Done():
			b.poller.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			d.dispatch(update)
		}
	}
}

// HandleWebhook - точка входа для обработки входящих webhook-обновлений
func (b *Bot) HandleWebhook(ctx context.Context, body []byte) error {
	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		return fmt.Errorf("failed to decode update: %w", err)
	}
	b.handleUpdate(ctx, update)
	return nil
}

// SetWebhook registers url with Telegram.
func (b *Bot) SetWebhook(url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	if _, err := b.api.Request(wh); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}
	return nil
}
