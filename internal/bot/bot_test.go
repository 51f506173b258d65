package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanoskov/fintracker/internal/model"
	"github.com/ivanoskov/fintracker/internal/service"
)

type fakeSender struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

type fakeFlow struct {
	mu     sync.Mutex
	ids    []model.Identity
	events []service.Event
	out    service.Outcome
}

func (f *fakeFlow) Handle(_ context.Context, id model.Identity, ev service.Event) service.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, id)
	f.events = append(f.events, ev)
	return f.out
}

const startUpdate = `{"update_id":1,"message":{"message_id":5,"from":{"id":42,"username":"ann"},
"chat":{"id":42,"type":"private"},"text":"/start","entities":[{"type":"bot_command","offset":0,"length":6}]}}`

func TestHandleWebhook_Command(t *testing.T) {
	sender := &fakeSender{}
	flow := &fakeFlow{out: service.Outcome{
		Message:  service.MsgGreeting,
		Params:   map[string]string{service.ParamUsername: "ann"},
		Keyboard: service.KeyboardStart,
	}}
	b := New(sender, flow, 1)

	require.NoError(t, b.HandleWebhook(context.Background(), []byte(startUpdate)))

	require.Len(t, flow.events, 1)
	assert.Equal(t, service.Command("/start"), flow.events[0])
	assert.Equal(t, model.Identity{UserID: 42, ChatID: 42, Username: "ann"}, flow.ids[0])

	require.Len(t, sender.sent, 1)
	msg, ok := sender.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, "👋 Hello, ann! What would you like to do?", msg.Text)
	assert.IsType(t, tgbotapi.InlineKeyboardMarkup{}, msg.ReplyMarkup)
}

func TestHandleWebhook_Callback(t *testing.T) {
	sender := &fakeSender{}
	flow := &fakeFlow{out: service.Outcome{Message: service.MsgAskTransferDetails, Keyboard: service.KeyboardBackToStart}}
	b := New(sender, flow, 1)

	body := `{"update_id":2,"callback_query":{"id":"cb1","from":{"id":7,"username":"bob"},
"message":{"message_id":9,"chat":{"id":70,"type":"private"}},"data":"add_expense"}}`
	require.NoError(t, b.HandleWebhook(context.Background(), []byte(body)))

	require.Len(t, flow.events, 1)
	assert.Equal(t, service.Button("add_expense"), flow.events[0])
	assert.Equal(t, int64(7), flow.ids[0].UserID)
	assert.Equal(t, int64(70), flow.ids[0].ChatID)

	require.Len(t, sender.requests, 1)
	cb, ok := sender.requests[0].(tgbotapi.CallbackConfig)
	require.True(t, ok)
	assert.Equal(t, "cb1", cb.CallbackQueryID)
}

func TestHandleWebhook_DeletesSecretInput(t *testing.T) {
	sender := &fakeSender{}
	flow := &fakeFlow{out: service.Outcome{Message: service.MsgRegistered, DeleteInput: true}}
	b := New(sender, flow, 1)

	body := `{"update_id":3,"message":{"message_id":11,"from":{"id":42},"chat":{"id":42,"type":"private"},"text":"hunter2"}}`
	require.NoError(t, b.HandleWebhook(context.Background(), []byte(body)))

	assert.Equal(t, service.Text("hunter2"), flow.events[0])
	require.Len(t, sender.requests, 1)
	del, ok := sender.requests[0].(tgbotapi.DeleteMessageConfig)
	require.True(t, ok)
	assert.Equal(t, 11, del.MessageID)
	assert.Equal(t, int64(42), del.ChatID)
}

func TestHandleWebhook_Attachments(t *testing.T) {
	sender := &fakeSender{}
	flow := &fakeFlow{out: service.Outcome{
		Message: service.MsgReportReady,
		Attachments: []service.Attachment{
			{Name: "report.csv", MIMEType: "text/csv", Data: []byte("Date\n")},
			{Name: "balance.png", MIMEType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}},
		},
	}}
	b := New(sender, flow, 1)

	require.NoError(t, b.HandleWebhook(context.Background(), []byte(startUpdate)))

	require.Len(t, sender.sent, 3)
	assert.IsType(t, tgbotapi.MessageConfig{}, sender.sent[0])
	assert.IsType(t, tgbotapi.DocumentConfig{}, sender.sent[1])
	assert.IsType(t, tgbotapi.PhotoConfig{}, sender.sent[2])
}

func TestHandleWebhook_IgnoresOtherUpdates(t *testing.T) {
	sender := &fakeSender{}
	flow := &fakeFlow{}
	b := New(sender, flow, 1)

	require.NoError(t, b.HandleWebhook(context.Background(), []byte(`{"update_id":4,"edited_message":{"message_id":1}}`)))
	assert.Empty(t, flow.events)
	assert.Empty(t, sender.sent)
}

func TestHandleWebhook_InvalidBody(t *testing.T) {
	b := New(&fakeSender{}, &fakeFlow{}, 1)
	assert.Error(t, b.HandleWebhook(context.Background(), []byte("{")))
}

func TestRenderText(t *testing.T) {
	created := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	out := service.Outcome{
		Message: service.MsgTransferList,
		Params: map[string]string{
			service.ParamKind:   "expense",
			service.ParamPeriod: "daily",
			service.ParamCount:  "1",
			service.ParamTotal:  "12.50",
		},
		Transfers: []model.Transfer{
			{ID: 3, Amount: decimal.RequireFromString("12.5"), Description: "coffee", Created: created},
		},
	}
	assert.Equal(t,
		"📋 Your expenses (daily), 1 in total, sum 12.50:\n#3  05.03.2024 14:30  12.50  coffee",
		renderText(out))
}

func TestRenderText_EveryMessageHasTemplate(t *testing.T) {
	keys := []service.MessageKey{
		service.MsgWelcome, service.MsgGreeting, service.MsgAbout, service.MsgHelp,
		service.MsgCanceled, service.MsgUseMenu, service.MsgAskUsername, service.MsgUsernameTaken,
		service.MsgAskEmail, service.MsgInvalidEmail, service.MsgAskPassword, service.MsgRegistered,
		service.MsgRegistrationFailed, service.MsgAskLoginUsername, service.MsgAskLoginPassword,
		service.MsgLoggedIn, service.MsgLoginFailed, service.MsgAskTransferDetails,
		service.MsgAskUpdateDetails, service.MsgAskDeleteID, service.MsgTransferCreated,
		service.MsgTransferUpdated, service.MsgTransferDeleted, service.MsgHistoryMenu,
		service.MsgPeriodMenu, service.MsgTransferList, service.MsgTransferListEmpty,
		service.MsgReportMenu, service.MsgReportReady, service.MsgReportEmpty, service.MsgEmptyInput,
		service.MsgMalformedInput, service.MsgInvalidAmount, service.MsgAmountExceedsLimit,
		service.MsgNotFound, service.MsgInsufficientBalance, service.MsgUnregistered,
		service.MsgLoginRequired, service.MsgBackendFailure, service.MsgIncompleteContext,
	}
	for _, k := range keys {
		_, ok := templates[k]
		assert.True(t, ok, "missing template %s", k)
	}
}

func TestKeyboardFor(t *testing.T) {
	_, ok := keyboardFor(service.KeyboardNone)
	assert.False(t, ok)

	markup, ok := keyboardFor(service.KeyboardViewIncome)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 2)
	require.Len(t, markup.InlineKeyboard[0], 3)
	assert.Equal(t, "view_daily_incomes", *markup.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, service.BtnHistory, *markup.InlineKeyboard[1][0].CallbackData)
}

func TestDispatcher_OrdersUpdatesPerUser(t *testing.T) {
	var mu sync.Mutex
	seen := map[int64][]int{}

	d := newDispatcher(4, func(u tgbotapi.Update) {
		mu.Lock()
		defer mu.Unlock()
		id := u.Message.From.ID
		seen[id] = append(seen[id], u.UpdateID)
	})
	for i := 0; i < 50; i++ {
		for _, user := range []int64{1, 2, 3, 5, 8} {
			d.dispatch(tgbotapi.Update{
				UpdateID: i,
				Message:  &tgbotapi.Message{From: &tgbotapi.User{ID: user}},
			})
		}
	}
	d.close()

	require.Len(t, seen, 5)
	for user, ids := range seen {
		require.Len(t, ids, 50, "user %d", user)
		for i, id := range ids {
			assert.Equal(t, i, id, "user %d", user)
		}
	}
}
