package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ivanoskov/fintracker/internal/auth"
	"github.com/ivanoskov/fintracker/internal/charts"
	"github.com/ivanoskov/fintracker/internal/config"
	"github.com/ivanoskov/fintracker/internal/logger"
	"github.com/ivanoskov/fintracker/internal/model"
	"github.com/ivanoskov/fintracker/internal/repository"
	"github.com/ivanoskov/fintracker/internal/state"
	"github.com/ivanoskov/fintracker/internal/transport"
	"github.com/ivanoskov/fintracker/internal/validate"

	apperrors "github.com/ivanoskov/fintracker/internal/errors"
)

const component = "flow"

// Options tune an Orchestrator.
type Options struct {
	// AuthMode is config.AuthModeChatID or config.AuthModeToken.
	AuthMode  string
	MaxAmount decimal.Decimal
	// Charts renders report images; nil sends the CSV only.
	Charts *charts.ChartGenerator
	Now    func() time.Time
}

// Orchestrator is the conversation state machine. It reads the user's state,
// matches it against the incoming event and produces exactly one Outcome.
type Orchestrator struct {
	store    state.Store
	repo     repository.Repository
	sessions *auth.Book
	parser   *validate.Parser
	checker  *validate.Checker
	charts   *charts.ChartGenerator
	authMode string
	locks    *userLocks
	now      func() time.Time
}

func NewOrchestrator(store state.Store, repo repository.Repository, sessions *auth.Book, opts Options) *Orchestrator {
	if opts.AuthMode == "" {
		opts.AuthMode = config.AuthModeChatID
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if sessions == nil {
		sessions = auth.NewBook()
	}
	return &Orchestrator{
		store:    store,
		repo:     repo,
		sessions: sessions,
		parser:   validate.NewParser(opts.MaxAmount),
		checker:  validate.NewChecker(repo),
		charts:   opts.Charts,
		authMode: opts.AuthMode,
		locks:    newUserLocks(),
		now:      opts.Now,
	}
}

// Handle processes one event of one user. Events of the same user are
// handled one at a time, in the order Handle is called. Handle never panics.
func (o *Orchestrator) Handle(ctx context.Context, id model.Identity, ev Event) (out Outcome) {
	unlock := o.locks.lock(id.UserID)
	defer unlock()

	start := time.Now()
	from := state.Idle
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, component, "flow.panic",
				slog.String("state", string(from)),
				slog.String("panic", fmt.Sprint(r)),
				slog.String("stack", string(debug.Stack())),
			)
			o.reset(ctx, id.UserID)
			out = terminal(MsgIncompleteContext, nil)
		}
		logger.Info(ctx, component, "flow.handled",
			slog.String("event_type", ev.Type.String()),
			slog.String("event_name", ev.Name),
			slog.String("state", string(from)),
			slog.String("message", string(out.Message)),
			slog.Bool("terminal", out.Terminal),
			slog.Duration("duration", logger.Took(start)),
		)
	}()

	snap, err := o.store.Get(ctx, id.UserID)
	if err != nil {
		logger.Error(ctx, component, "state.get", logger.Err(err))
		return terminal(MsgBackendFailure, nil)
	}
	from = snap.State

	switch ev.Type {
	case EventCommand:
		return o.onCommand(ctx, id, snap, ev)
	case EventButton:
		return o.onButton(ctx, id, ev.Name)
	}
	return o.onText(ctx, id, snap, ev.Text)
}

func (o *Orchestrator) onCommand(ctx context.Context, id model.Identity, snap state.Snapshot, ev Event) Outcome {
	switch ev.Name {
	case CmdStart:
		o.reset(ctx, id.UserID)
		return o.greeting(ctx, id)
	case CmdCancel:
		o.reset(ctx, id.UserID)
		return menu(MsgCanceled, KeyboardBackToStart, nil)
	}
	if snap.State != state.Idle {
		// "/hunter2" typed at a password prompt is still the password.
		return o.onText(ctx, id, snap, ev.Text)
	}
	switch ev.Name {
	case CmdHelp:
		return Outcome{Message: MsgHelp, Keyboard: KeyboardBackToStart, Terminal: true}
	}
	return Outcome{Message: MsgUseMenu, Keyboard: KeyboardBackToStart, Terminal: true}
}

// onButton handles inline buttons. Every known button abandons the current flow.
func (o *Orchestrator) onButton(ctx context.Context, id model.Identity, data string) Outcome {
	switch data {
	case BtnStart:
		o.reset(ctx, id.UserID)
		return o.greeting(ctx, id)
	case BtnCancel:
		o.reset(ctx, id.UserID)
		return menu(MsgCanceled, KeyboardBackToStart, nil)
	case BtnRegister:
		return o.begin(ctx, id, state.RegistrationUsername, prompt(MsgAskUsername, nil))
	case BtnLogin:
		return o.begin(ctx, id, state.LoginUsername, prompt(MsgAskLoginUsername, nil))
	case BtnAbout:
		o.reset(ctx, id.UserID)
		return menu(MsgAbout, KeyboardBackToStart, nil)
	case BtnHistory:
		o.reset(ctx, id.UserID)
		return menu(MsgHistoryMenu, KeyboardHistory, nil)
	case BtnReport:
		o.reset(ctx, id.UserID)
		return menu(MsgReportMenu, KeyboardReport, nil)
	case BtnGetReport:
		o.reset(ctx, id.UserID)
		cred, blocked := o.requireUser(ctx, id)
		if blocked != nil {
			return *blocked
		}
		return o.report(ctx, id, cred)
	}

	action, kind, period := parseTransferButton(data)
	params := map[string]string{ParamKind: string(kind)}
	switch action {
	case actionViewMenu:
		o.reset(ctx, id.UserID)
		return menu(MsgPeriodMenu, periodKeyboard(kind), params)
	case actionViewPeriod:
		o.reset(ctx, id.UserID)
		cred, blocked := o.requireUser(ctx, id)
		if blocked != nil {
			return *blocked
		}
		return o.listTransfers(ctx, id, cred, kind, period)
	case actionAdd, actionUpdate, actionDelete:
		o.reset(ctx, id.UserID)
		if _, blocked := o.requireUser(ctx, id); blocked != nil {
			return *blocked
		}
		switch action {
		case actionAdd:
			return o.begin(ctx, id, state.TransferDetails(kind), prompt(MsgAskTransferDetails, params))
		case actionUpdate:
			return o.begin(ctx, id, state.TransferUpdateDetails(kind), prompt(MsgAskUpdateDetails, params))
		}
		return o.begin(ctx, id, state.TransferDeleteID(kind), prompt(MsgAskDeleteID, params))
	}

	logger.Debug(ctx, component, "button.unknown", slog.String("data", data))
	return Outcome{Message: MsgUseMenu, Keyboard: KeyboardBackToStart}
}

func (o *Orchestrator) onText(ctx context.Context, id model.Identity, snap state.Snapshot, text string) Outcome {
	st := snap.State
	if st == state.Idle {
		return Outcome{Message: MsgUseMenu, Keyboard: KeyboardBackToStart, Terminal: true}
	}

	secret := st == state.RegistrationPassword || st == state.LoginPassword
	if strings.TrimSpace(text) == "" {
		out := prompt(MsgEmptyInput, nil)
		out.DeleteInput = secret
		return out
	}

	switch st {
	case state.RegistrationUsername:
		return o.onRegistrationUsername(ctx, id, text)
	case state.RegistrationEmail:
		return o.onRegistrationEmail(ctx, id, text)
	case state.RegistrationPassword:
		return o.onRegistrationPassword(ctx, id, snap, text)
	case state.LoginUsername:
		return o.onLoginUsername(ctx, id, text)
	case state.LoginPassword:
		return o.onLoginPassword(ctx, id, snap, text)
	}

	kind, ok := st.Kind()
	switch {
	case !ok:
	case st.IsTransferDetails():
		return o.onTransferDetails(ctx, id, kind, text)
	case st.IsTransferUpdateDetails():
		return o.onTransferUpdate(ctx, id, kind, text)
	case st.IsTransferDeleteID():
		return o.onTransferDelete(ctx, id, kind, text)
	}
	return o.fail(ctx, id, "dispatch", apperrors.New(apperrors.KindIncompleteContext, "no handler for state "+string(st)))
}

// begin moves the user into st and returns the prompt for it.
func (o *Orchestrator) begin(ctx context.Context, id model.Identity, st state.State, out Outcome) Outcome {
	o.reset(ctx, id.UserID)
	if err := o.store.Set(ctx, id.UserID, st); err != nil {
		return o.fail(ctx, id, "state.set", err)
	}
	return out
}

// advance stores collected fields and moves to the next state.
func (o *Orchestrator) advance(ctx context.Context, id model.Identity, next state.State, fields map[string]string, out Outcome) Outcome {
	if err := o.store.UpdateContext(ctx, id.UserID, fields); err != nil {
		return o.fail(ctx, id, "state.update_context", err)
	}
	if err := o.store.Set(ctx, id.UserID, next); err != nil {
		return o.fail(ctx, id, "state.set", err)
	}
	return out
}

// reset returns the user to Idle and drops the collected fields.
func (o *Orchestrator) reset(ctx context.Context, userID int64) {
	if err := o.store.Clear(ctx, userID); err != nil {
		logger.Error(ctx, component, "state.clear", logger.Err(err))
	}
}

// finish ends the flow with out.
func (o *Orchestrator) finish(ctx context.Context, id model.Identity, out Outcome) Outcome {
	o.reset(ctx, id.UserID)
	out.Terminal = true
	return out
}

func (o *Orchestrator) greeting(ctx context.Context, id model.Identity) Outcome {
	if o.authMode == config.AuthModeToken {
		if s, ok := o.sessions.Get(id.UserID); ok {
			return menu(MsgGreeting, KeyboardStart, map[string]string{ParamUsername: s.Username})
		}
		return menu(MsgWelcome, KeyboardWelcome, nil)
	}
	user, ok, err := o.checker.ConfirmUserRegistered(ctx, id.ChatID)
	if err != nil {
		logger.Warn(ctx, component, "user.lookup", logger.Err(err))
		return menu(MsgWelcome, KeyboardWelcome, nil)
	}
	if !ok {
		return menu(MsgWelcome, KeyboardWelcome, nil)
	}
	return menu(MsgGreeting, KeyboardStart, map[string]string{ParamUsername: user.Username})
}

// credentials returns what backend calls of this user must carry.
func (o *Orchestrator) credentials(id model.Identity) (model.Credentials, bool) {
	cred := model.Credentials{ChatID: id.ChatID}
	if o.authMode != config.AuthModeToken {
		return cred, true
	}
	token, ok := o.sessions.Token(id.UserID)
	if !ok {
		return model.Credentials{}, false
	}
	cred.Token = token
	return cred, true
}

// requireUser checks the user may start a transfer flow. A non-nil Outcome
// means the flow must not start.
func (o *Orchestrator) requireUser(ctx context.Context, id model.Identity) (model.Credentials, *Outcome) {
	cred, ok := o.credentials(id)
	if !ok {
		out := menu(MsgLoginRequired, KeyboardWelcome, nil)
		return cred, &out
	}
	if o.authMode == config.AuthModeToken {
		return cred, nil
	}
	_, registered, err := o.checker.ConfirmUserRegistered(ctx, id.ChatID)
	if err != nil {
		out := o.fail(ctx, id, "user.lookup", err)
		return cred, &out
	}
	if !registered {
		out := menu(MsgUnregistered, KeyboardWelcome, nil)
		return cred, &out
	}
	return cred, nil
}

// reprompt answers a validation error without leaving the current state.
func (o *Orchestrator) reprompt(ctx context.Context, err error, params map[string]string) Outcome {
	logger.Debug(ctx, component, "input.invalid", logger.Err(err))
	switch apperrors.KindOf(err) {
	case apperrors.KindInvalidAmount:
		return prompt(MsgInvalidAmount, params)
	case apperrors.KindAmountExceedsLimit:
		p := copyParams(params)
		p[ParamMax] = o.parser.MaxAmount().String()
		return prompt(MsgAmountExceedsLimit, p)
	}
	return prompt(MsgMalformedInput, params)
}

// fail ends the flow after a non-validation error.
func (o *Orchestrator) fail(ctx context.Context, id model.Identity, op string, err error) Outcome {
	kind := apperrors.KindOf(err)
	level := slog.LevelWarn
	var msg MessageKey
	kb := KeyboardBackToStart
	switch kind {
	case apperrors.KindUnknownReference:
		msg = MsgNotFound
		level = slog.LevelInfo
	case apperrors.KindInsufficientBalance:
		msg = MsgInsufficientBalance
		level = slog.LevelInfo
	case apperrors.KindUnknownUser:
		msg, kb = MsgUnregistered, KeyboardWelcome
		if o.authMode == config.AuthModeToken {
			o.sessions.Drop(id.UserID)
			msg = MsgLoginRequired
		}
	case apperrors.KindIncompleteContext:
		msg = MsgIncompleteContext
		level = slog.LevelError
	default:
		msg = MsgBackendFailure
		level = slog.LevelError
	}

	attrs := []slog.Attr{
		slog.String("op", op),
		slog.String("kind", string(kind)),
		logger.Err(err),
	}
	if status := transport.StatusOf(err); status != 0 {
		attrs = append(attrs, slog.Int("http_status", status))
	}
	logger.Event(ctx, component, level, "flow.failed", attrs...)

	return o.finish(ctx, id, Outcome{Message: msg, Keyboard: kb})
}

// rejection returns a readable reason when the backend refused the request
// with a 4xx answer.
func rejection(err error) (string, bool) {
	var pe *transport.ProtocolError
	if !errors.As(err, &pe) || pe.Status < 400 || pe.Status >= 500 {
		return "", false
	}
	if len(pe.Errors) > 0 {
		return strings.Join(pe.Errors, "; "), true
	}
	return pe.Message, true
}

func copyParams(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src)+1)
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
