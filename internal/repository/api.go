package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ivanoskov/fintracker/internal/model"
	"github.com/ivanoskov/fintracker/internal/transport"

	apperrors "github.com/ivanoskov/fintracker/internal/errors"
)

const codeInsufficientBalance = "insufficient_balance"

// Requester is the part of the transport client the repository needs.
type Requester interface {
	Request(ctx context.Context, method, endpoint string, payload any, opts ...transport.Option) (json.RawMessage, error)
}

// APIRepository talks to the backend over its REST API.
type APIRepository struct {
	client Requester
}

func NewAPIRepository(client Requester) *APIRepository {
	return &APIRepository{client: client}
}

type statusEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Errors  json.RawMessage `json:"errors"`
}

type userEnvelope struct {
	statusEnvelope
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

func (r *APIRepository) Register(ctx context.Context, req model.RegisterRequest) (model.User, error) {
	raw, err := r.client.Request(ctx, http.MethodPost, "/register/", req)
	if err != nil {
		return model.User{}, classify("register", err)
	}
	var env userEnvelope
	if err := decodeSuccess(raw, &env, &env.statusEnvelope); err != nil {
		return model.User{}, apperrors.Wrap(apperrors.KindTransportFailure, "register", err)
	}
	if env.User.Username == "" {
		env.User.Username = req.Username
	}
	return env.User, nil
}

func (r *APIRepository) Login(ctx context.Context, req model.LoginRequest) (model.LoginResult, error) {
	raw, err := r.client.Request(ctx, http.MethodPost, "/login/", req)
	if err != nil {
		return model.LoginResult{}, classify("login", err)
	}
	var env userEnvelope
	if err := decodeSuccess(raw, &env, &env.statusEnvelope); err != nil {
		return model.LoginResult{}, apperrors.Wrap(apperrors.KindTransportFailure, "login", err)
	}
	if env.User.Username == "" {
		env.User.Username = req.Username
	}
	return model.LoginResult{Token: env.Token, User: env.User}, nil
}

func (r *APIRepository) FindUserByChatID(ctx context.Context, chatID int64) (*model.User, error) {
	users, err := r.lookupUsers(ctx, url.Values{"chat_id": {strconv.FormatInt(chatID, 10)}})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

func (r *APIRepository) UsernameTaken(ctx context.Context, username string) (bool, error) {
	users, err := r.lookupUsers(ctx, url.Values{"username": {username}})
	if err != nil {
		return false, err
	}
	return len(users) > 0, nil
}

func (r *APIRepository) lookupUsers(ctx context.Context, query url.Values) ([]model.User, error) {
	raw, err := r.client.Request(ctx, http.MethodGet, "/user/", nil, transport.WithQuery(query))
	if err != nil {
		return nil, classify("lookup user", err)
	}
	var users []model.User
	if len(raw) == 0 {
		return users, nil
	}
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransportFailure, "decode users", err)
	}
	return users, nil
}

func (r *APIRepository) CreateTransfer(ctx context.Context, cred model.Credentials, kind model.TransferKind, payload model.TransferPayload) error {
	raw, err := r.client.Request(ctx, http.MethodPost, collectionPath(kind), payload, credentialOptions(cred)...)
	if err != nil {
		return classify("create "+string(kind), err)
	}
	return checkMutation("create "+string(kind), raw)
}

func (r *APIRepository) UpdateTransfer(ctx context.Context, cred model.Credentials, kind model.TransferKind, id int64, payload model.TransferPayload) error {
	raw, err := r.client.Request(ctx, http.MethodPut, itemPath(kind, id), payload, credentialOptions(cred)...)
	if err != nil {
		return classify("update "+string(kind), err)
	}
	return checkMutation("update "+string(kind), raw)
}

func (r *APIRepository) DeleteTransfer(ctx context.Context, cred model.Credentials, kind model.TransferKind, id int64) error {
	raw, err := r.client.Request(ctx, http.MethodDelete, itemPath(kind, id), nil, credentialOptions(cred)...)
	if err != nil {
		return classify("delete "+string(kind), err)
	}
	return checkMutation("delete "+string(kind), raw)
}

// GetTransfer is the ownership-filtered existence check: the backend answers
// 404 both for missing rows and for rows of other users.
func (r *APIRepository) GetTransfer(ctx context.Context, cred model.Credentials, kind model.TransferKind, id int64) (model.Transfer, error) {
	raw, err := r.client.Request(ctx, http.MethodGet, itemPath(kind, id), nil, credentialOptions(cred)...)
	if err != nil {
		return model.Transfer{}, classify("get "+string(kind), err)
	}
	var t model.Transfer
	if err := json.Unmarshal(raw, &t); err != nil {
		return model.Transfer{}, apperrors.Wrap(apperrors.KindTransportFailure, "decode "+string(kind), err)
	}
	t.Kind = kind
	return t, nil
}

func (r *APIRepository) ListTransfers(ctx context.Context, cred model.Credentials, kind model.TransferKind) ([]model.Transfer, error) {
	raw, err := r.client.Request(ctx, http.MethodGet, collectionPath(kind), nil, credentialOptions(cred)...)
	if err != nil {
		return nil, classify("list "+string(kind), err)
	}
	var transfers []model.Transfer
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &transfers); err != nil {
			return nil, apperrors.Wrap(apperrors.KindTransportFailure, "decode "+string(kind)+" list", err)
		}
	}
	for i := range transfers {
		transfers[i].Kind = kind
	}
	return transfers, nil
}

func collectionPath(kind model.TransferKind) string {
	return "/" + string(kind) + "/"
}

func itemPath(kind model.TransferKind, id int64) string {
	return fmt.Sprintf("/%s/%d/", kind, id)
}

func credentialOptions(cred model.Credentials) []transport.Option {
	var opts []transport.Option
	if cred.Token != "" {
		opts = append(opts, transport.WithBearer(cred.Token))
	}
	if cred.ChatID != 0 {
		opts = append(opts, transport.WithChatID(cred.ChatID))
	}
	return opts
}

// classify maps a transport failure onto the conversation error taxonomy.
func classify(op string, err error) error {
	var pe *transport.ProtocolError
	if errors.As(err, &pe) {
		switch {
		case pe.Code == codeInsufficientBalance || pe.Status == http.StatusPaymentRequired:
			return apperrors.Wrap(apperrors.KindInsufficientBalance, op, err)
		case pe.Status == http.StatusNotFound:
			return apperrors.Wrap(apperrors.KindUnknownReference, op, err)
		case pe.Status == http.StatusUnauthorized || pe.Status == http.StatusForbidden:
			return apperrors.Wrap(apperrors.KindUnknownUser, op, err)
		}
	}
	return apperrors.Wrap(apperrors.KindTransportFailure, op, err)
}

// checkMutation accepts an empty body (204) or an envelope whose status is "success".
func checkMutation(op string, raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	var env statusEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		// A plain serialized row is also a success.
		return nil
	}
	if env.Status == "" || env.Status == "success" {
		return nil
	}
	if env.Code == codeInsufficientBalance {
		return apperrors.New(apperrors.KindInsufficientBalance, op)
	}
	return apperrors.Wrap(apperrors.KindTransportFailure, op,
		fmt.Errorf("backend answered status %q: %s", env.Status, env.Message))
}

func decodeSuccess(raw json.RawMessage, dst any, env *statusEnvelope) error {
	if len(raw) == 0 {
		return errors.New("empty response")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if env.Status != "success" {
		return fmt.Errorf("backend answered status %q: %s", env.Status, env.Message)
	}
	return nil
}
