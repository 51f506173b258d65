package repository

import (
	"context"

	"github.com/ivanoskov/fintracker/internal/model"
)

// Repository is the backend transfer service as the bot sees it.
type Repository interface {
	// Пользователи
	Register(ctx context.Context, req model.RegisterRequest) (model.User, error)
	Login(ctx context.Context, req model.LoginRequest) (model.LoginResult, error)
	FindUserByChatID(ctx context.Context, chatID int64) (*model.User, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)

	// Транзакции
	CreateTransfer(ctx context.Context, cred model.Credentials, kind model.TransferKind, payload model.TransferPayload) error
	UpdateTransfer(ctx context.Context, cred model.Credentials, kind model.TransferKind, id int64, payload model.TransferPayload) error
	DeleteTransfer(ctx context.Context, cred model.Credentials, kind model.TransferKind, id int64) error
	GetTransfer(ctx context.Context, cred model.Credentials, kind model.TransferKind, id int64) (model.Transfer, error)
	ListTransfers(ctx context.Context, cred model.Credentials, kind model.TransferKind) ([]model.Transfer, error)
}
