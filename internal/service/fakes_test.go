package service

import (
	"context"
	"sync"

	"github.com/ivanoskov/fintracker/internal/model"

	apperrors "github.com/ivanoskov/fintracker/internal/errors"
)

type transferCall struct {
	Cred    model.Credentials
	Kind    model.TransferKind
	ID      int64
	Payload model.TransferPayload
}

// fakeRepo is an in-memory backend. Owned transfers are keyed by kind and id.
type fakeRepo struct {
	mu sync.Mutex

	users      map[int64]*model.User // by chat id
	taken      map[string]bool
	owned      map[model.TransferKind]map[int64]bool
	lists      map[model.TransferKind][]model.Transfer
	loginToken string

	registerErr error
	loginErr    error
	createErr   error
	updateErr   error
	deleteErr   error
	listErr     error
	panicOn     string

	registered []model.RegisterRequest
	logins     []model.LoginRequest
	created    []transferCall
	updated    []transferCall
	deleted    []transferCall
	lookups    []transferCall
	listed     []transferCall
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users: map[int64]*model.User{},
		taken: map[string]bool{},
		owned: map[model.TransferKind]map[int64]bool{
			model.Expense: {},
			model.Income:  {},
		},
		lists: map[model.TransferKind][]model.Transfer{},
	}
}

func (f *fakeRepo) addUser(chatID int64, username string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[chatID] = &model.User{ID: chatID * 10, Username: username, ChatID: chatID}
	f.taken[username] = true
}

func (f *fakeRepo) own(kind model.TransferKind, id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.owned[kind][id] = true
}

func (f *fakeRepo) maybePanic(op string) {
	if f.panicOn == op {
		panic("boom in " + op)
	}
}

func (f *fakeRepo) Register(_ context.Context, req model.RegisterRequest) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.maybePanic("register")
	f.registered = append(f.registered, req)
	if f.registerErr != nil {
		return model.User{}, f.registerErr
	}
	u := model.User{ID: req.ChatID * 10, Username: req.Username, ChatID: req.ChatID}
	f.users[req.ChatID] = &u
	f.taken[req.Username] = true
	return u, nil
}

func (f *fakeRepo) Login(_ context.Context, req model.LoginRequest) (model.LoginResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins = append(f.logins, req)
	if f.loginErr != nil {
		return model.LoginResult{}, f.loginErr
	}
	return model.LoginResult{Token: f.loginToken, User: model.User{Username: req.Username}}, nil
}

func (f *fakeRepo) FindUserByChatID(_ context.Context, chatID int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[chatID], nil
}

func (f *fakeRepo) UsernameTaken(_ context.Context, username string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.taken[username], nil
}

func (f *fakeRepo) CreateTransfer(_ context.Context, cred model.Credentials, kind model.TransferKind, payload model.TransferPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.maybePanic("create")
	f.created = append(f.created, transferCall{Cred: cred, Kind: kind, Payload: payload})
	return f.createErr
}

func (f *fakeRepo) UpdateTransfer(_ context.Context, cred model.Credentials, kind model.TransferKind, id int64, payload model.TransferPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, transferCall{Cred: cred, Kind: kind, ID: id, Payload: payload})
	return f.updateErr
}

func (f *fakeRepo) DeleteTransfer(_ context.Context, cred model.Credentials, kind model.TransferKind, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, transferCall{Cred: cred, Kind: kind, ID: id})
	return f.deleteErr
}

func (f *fakeRepo) GetTransfer(_ context.Context, cred model.Credentials, kind model.TransferKind, id int64) (model.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups = append(f.lookups, transferCall{Cred: cred, Kind: kind, ID: id})
	if !f.owned[kind][id] {
		return model.Transfer{}, apperrors.New(apperrors.KindUnknownReference, "not found")
	}
	return model.Transfer{ID: id, Kind: kind}, nil
}

func (f *fakeRepo) ListTransfers(_ context.Context, cred model.Credentials, kind model.TransferKind) ([]model.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listed = append(f.listed, transferCall{Cred: cred, Kind: kind})
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]model.Transfer(nil), f.lists[kind]...), nil
}
