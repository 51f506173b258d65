package bot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ivanoskov/fintracker/internal/logger"
	"github.com/ivanoskov/fintracker/internal/model"
	"github.com/ivanoskov/fintracker/internal/service"
)

// eventOf converts an update into the identity, event and message id it carries.
// ok is false for updates the bot does not react to.
func eventOf(update tgbotapi.Update) (id model.Identity, ev service.Event, messageID int, ok bool) {
	switch {
	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		if cb.From == nil {
			return id, ev, 0, false
		}
		id = model.Identity{UserID: cb.From.ID, ChatID: cb.From.ID, Username: cb.From.UserName}
		if cb.Message != nil && cb.Message.Chat != nil {
			id.ChatID = cb.Message.Chat.ID
		}
		return id, service.Button(cb.Data), 0, true
	case update.Message != nil:
		msg := update.Message
		if msg.From == nil || msg.Chat == nil {
			return id, ev, 0, false
		}
		id = model.Identity{UserID: msg.From.ID, ChatID: msg.Chat.ID, Username: msg.From.UserName}
		if msg.IsCommand() {
			return id, service.Command(msg.Text), msg.MessageID, true
		}
		return id, service.Text(msg.Text), msg.MessageID, true
	}
	return id, ev, 0, false
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	id, ev, messageID, ok := eventOf(update)
	if !ok {
		return
	}

	ctx = logger.WithRID(ctx, logger.NewRID())
	ctx = logger.WithUpdateMeta(ctx, id.UserID, id.ChatID)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "bot", "update.panic",
				slog.Int("update_id", update.UpdateID),
				slog.String("panic", fmt.Sprint(r)),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	if update.CallbackQuery != nil {
		// Отвечаем на callback, чтобы убрать loading indicator
		if _, err := b.api.Request(tgbotapi.NewCallback(update.CallbackQuery.ID, "")); err != nil {
			logger.Warn(ctx, "bot", "callback.answer", logger.Err(err))
		}
	}

	out := b.flow.Handle(ctx, id, ev)
	err := b.render(ctx, id.ChatID, messageID, out)

	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelWarn
	}
	logger.Event(ctx, "bot", level, "update.handled",
		slog.Int("update_id", update.UpdateID),
		slog.String("event_type", ev.Type.String()),
		slog.String("message", string(out.Message)),
		slog.String("status", logger.Status(err)),
		slog.Duration("duration", logger.Took(start)),
	)
}

// render sends the outcome to chatID: the message with its keyboard, then the
// attachments. A DeleteInput outcome also removes the user's message.
func (b *Bot) render(ctx context.Context, chatID int64, inputMessageID int, out service.Outcome) error {
	if out.DeleteInput && inputMessageID != 0 {
		if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, inputMessageID)); err != nil {
			logger.Warn(ctx, "bot", "message.delete", logger.Err(err))
		}
	}

	msg := tgbotapi.NewMessage(chatID, renderText(out))
	if markup, ok := keyboardFor(out.Keyboard); ok {
		msg.ReplyMarkup = markup
	}
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	for _, a := range out.Attachments {
		file := tgbotapi.FileBytes{Name: a.Name, Bytes: a.Data}
		var c tgbotapi.Chattable
		if a.MIMEType == "image/png" {
			c = tgbotapi.NewPhoto(chatID, file)
		} else {
			c = tgbotapi.NewDocument(chatID, file)
		}
		if _, err := b.api.Send(c); err != nil {
			return fmt.Errorf("failed to send %s: %w", a.Name, err)
		}
	}
	return nil
}
