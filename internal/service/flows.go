package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/ivanoskov/fintracker/internal/model"
	"github.com/ivanoskov/fintracker/internal/state"
	"github.com/ivanoskov/fintracker/internal/validate"

	apperrors "github.com/ivanoskov/fintracker/internal/errors"
)

// Регистрация

func (o *Orchestrator) onRegistrationUsername(ctx context.Context, id model.Identity, text string) Outcome {
	username := strings.TrimSpace(text)
	taken, err := o.repo.UsernameTaken(ctx, username)
	if err != nil {
		return o.fail(ctx, id, "username.check", err)
	}
	if taken {
		return prompt(MsgUsernameTaken, map[string]string{ParamUsername: username})
	}
	return o.advance(ctx, id, state.RegistrationEmail,
		map[string]string{state.KeyUsername: username},
		prompt(MsgAskEmail, nil))
}

func (o *Orchestrator) onRegistrationEmail(ctx context.Context, id model.Identity, text string) Outcome {
	email := strings.TrimSpace(text)
	if err := validate.Email(email); err != nil {
		return prompt(MsgInvalidEmail, nil)
	}
	return o.advance(ctx, id, state.RegistrationPassword,
		map[string]string{state.KeyEmail: email},
		prompt(MsgAskPassword, nil))
}

func (o *Orchestrator) onRegistrationPassword(ctx context.Context, id model.Identity, snap state.Snapshot, password string) Outcome {
	username, email := snap.Context[state.KeyUsername], snap.Context[state.KeyEmail]
	if username == "" || email == "" {
		out := o.fail(ctx, id, "register", apperrors.New(apperrors.KindIncompleteContext, "username or email missing"))
		out.DeleteInput = true
		return out
	}

	user, err := o.repo.Register(ctx, model.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
		ChatID:   id.ChatID,
	})
	if err != nil {
		var out Outcome
		if reason, ok := rejection(err); ok {
			out = o.finish(ctx, id, Outcome{
				Message:  MsgRegistrationFailed,
				Params:   map[string]string{ParamReason: reason},
				Keyboard: KeyboardWelcome,
			})
		} else {
			out = o.fail(ctx, id, "register", err)
		}
		out.DeleteInput = true
		return out
	}

	return o.finish(ctx, id, Outcome{
		Message:     MsgRegistered,
		Params:      map[string]string{ParamUsername: user.Username},
		Keyboard:    KeyboardStart,
		DeleteInput: true,
	})
}

// Вход

func (o *Orchestrator) onLoginUsername(ctx context.Context, id model.Identity, text string) Outcome {
	return o.advance(ctx, id, state.LoginPassword,
		map[string]string{state.KeyUsername: strings.TrimSpace(text)},
		prompt(MsgAskLoginPassword, nil))
}

func (o *Orchestrator) onLoginPassword(ctx context.Context, id model.Identity, snap state.Snapshot, password string) Outcome {
	username := snap.Context[state.KeyUsername]
	if username == "" {
		out := o.fail(ctx, id, "login", apperrors.New(apperrors.KindIncompleteContext, "username missing"))
		out.DeleteInput = true
		return out
	}

	res, err := o.repo.Login(ctx, model.LoginRequest{Username: username, Password: password})
	if err != nil {
		var out Outcome
		if _, ok := rejection(err); ok {
			out = o.finish(ctx, id, Outcome{Message: MsgLoginFailed, Keyboard: KeyboardWelcome})
		} else {
			out = o.fail(ctx, id, "login", err)
		}
		out.DeleteInput = true
		return out
	}

	if res.Token != "" {
		o.sessions.Put(id.UserID, res.Token, res.User.Username)
	}
	return o.finish(ctx, id, Outcome{
		Message:     MsgLoggedIn,
		Params:      map[string]string{ParamUsername: res.User.Username},
		Keyboard:    KeyboardStart,
		DeleteInput: true,
	})
}

// Транзакции

func (o *Orchestrator) onTransferDetails(ctx context.Context, id model.Identity, kind model.TransferKind, text string) Outcome {
	params := map[string]string{ParamKind: string(kind)}
	amount, description, err := o.parser.ParseAmountAndDescription(text)
	if err != nil {
		return o.reprompt(ctx, err, params)
	}
	cred, ok := o.credentials(id)
	if !ok {
		return o.fail(ctx, id, "create "+string(kind), apperrors.New(apperrors.KindUnknownUser, "no session"))
	}

	draft := model.TransferDraft{Kind: kind, Operation: model.OpCreate, Amount: amount, Description: description}
	if err := o.repo.CreateTransfer(ctx, cred, kind, draft.Payload()); err != nil {
		return o.fail(ctx, id, "create "+string(kind), err)
	}

	return o.finish(ctx, id, Outcome{
		Message: MsgTransferCreated,
		Params: map[string]string{
			ParamKind:        string(kind),
			ParamAmount:      draft.Amount.String(),
			ParamDescription: draft.Description,
		},
		Keyboard: KeyboardStart,
	})
}

func (o *Orchestrator) onTransferUpdate(ctx context.Context, id model.Identity, kind model.TransferKind, text string) Outcome {
	params := map[string]string{ParamKind: string(kind)}
	parts, err := validate.ParseIdentifierAndRest(text, 3)
	if err != nil {
		return o.reprompt(ctx, err, params)
	}
	amount, err := o.parser.ParseAmount(parts[1])
	if err != nil {
		return o.reprompt(ctx, err, params)
	}
	cred, ok := o.credentials(id)
	if !ok {
		return o.fail(ctx, id, "update "+string(kind), apperrors.New(apperrors.KindUnknownUser, "no session"))
	}

	transferID, owned, err := o.checker.ConfirmTransferOwnership(ctx, cred, kind, parts[0])
	if err != nil {
		return o.fail(ctx, id, "update "+string(kind), err)
	}
	if !owned {
		return o.fail(ctx, id, "update "+string(kind),
			apperrors.New(apperrors.KindUnknownReference, "transfer "+parts[0]+" not found"))
	}

	draft := model.TransferDraft{Kind: kind, Operation: model.OpUpdate, ID: transferID, Amount: amount, Description: parts[2]}
	if err := o.repo.UpdateTransfer(ctx, cred, kind, draft.ID, draft.Payload()); err != nil {
		return o.fail(ctx, id, "update "+string(kind), err)
	}

	return o.finish(ctx, id, Outcome{
		Message: MsgTransferUpdated,
		Params: map[string]string{
			ParamKind:        string(kind),
			ParamID:          strconv.FormatInt(draft.ID, 10),
			ParamAmount:      draft.Amount.String(),
			ParamDescription: draft.Description,
		},
		Keyboard: KeyboardStart,
	})
}

func (o *Orchestrator) onTransferDelete(ctx context.Context, id model.Identity, kind model.TransferKind, text string) Outcome {
	rawID := strings.TrimSpace(text)
	cred, ok := o.credentials(id)
	if !ok {
		return o.fail(ctx, id, "delete "+string(kind), apperrors.New(apperrors.KindUnknownUser, "no session"))
	}

	transferID, owned, err := o.checker.ConfirmTransferOwnership(ctx, cred, kind, rawID)
	if err != nil {
		return o.fail(ctx, id, "delete "+string(kind), err)
	}
	if !owned {
		return o.fail(ctx, id, "delete "+string(kind),
			apperrors.New(apperrors.KindUnknownReference, "transfer "+rawID+" not found"))
	}

	draft := model.TransferDraft{Kind: kind, Operation: model.OpDelete, ID: transferID}
	if err := o.repo.DeleteTransfer(ctx, cred, kind, draft.ID); err != nil {
		return o.fail(ctx, id, "delete "+string(kind), err)
	}

	return o.finish(ctx, id, Outcome{
		Message:  MsgTransferDeleted,
		Params:   map[string]string{ParamKind: string(kind), ParamID: strconv.FormatInt(draft.ID, 10)},
		Keyboard: KeyboardStart,
	})
}
