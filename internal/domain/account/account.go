package account

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Account is owned by the account service. This service only reads the
// public summary and removes accounts during a cascade delete.
type Account struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Avatar       string    `json:"avatar"`
	PasswordHash string    `json:"-"`
}

type Summary struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Avatar string    `json:"avatar"`
}

func (a *Account) Summary() Summary {
	return Summary{ID: a.ID, Name: a.Name, Avatar: a.Avatar}
}

var ErrAccountNotFound = errors.New("account not found")

type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	// FindByIDs returns the accounts that exist, keyed by id. Missing ids are
	// simply absent from the map.
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Account, error)
	Save(ctx context.Context, a *Account) error
	Delete(ctx context.Context, id uuid.UUID) error
}
