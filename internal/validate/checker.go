package validate

import (
	"context"
	"strconv"
	"strings"

	"github.com/ivanoskov/fintracker/internal/model"

	apperrors "github.com/ivanoskov/fintracker/internal/errors"
)

// Lookup is the read-only part of the backend the checks depend on.
type Lookup interface {
	GetTransfer(ctx context.Context, cred model.Credentials, kind model.TransferKind, id int64) (model.Transfer, error)
	FindUserByChatID(ctx context.Context, chatID int64) (*model.User, error)
}

// Checker confirms references against the backend.
type Checker struct {
	lookup Lookup
}

func NewChecker(lookup Lookup) *Checker {
	return &Checker{lookup: lookup}
}

// ConfirmTransferOwnership reports whether rawID names a transfer of kind owned
// by the caller. A non-numeric id is never sent to the backend. The error is
// non-nil only when the backend could not answer.
func (c *Checker) ConfirmTransferOwnership(ctx context.Context, cred model.Credentials, kind model.TransferKind, rawID string) (int64, bool, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(rawID), 10, 64)
	if err != nil || id <= 0 {
		return 0, false, nil
	}
	if _, err := c.lookup.GetTransfer(ctx, cred, kind, id); err != nil {
		if apperrors.KindOf(err) == apperrors.KindUnknownReference {
			return id, false, nil
		}
		return id, false, err
	}
	return id, true, nil
}

// ConfirmUserRegistered reports whether the backend knows a user for chatID.
func (c *Checker) ConfirmUserRegistered(ctx context.Context, chatID int64) (*model.User, bool, error) {
	u, err := c.lookup.FindUserByChatID(ctx, chatID)
	if err != nil {
		return nil, false, err
	}
	return u, u != nil, nil
}
