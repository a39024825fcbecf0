package persistence

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/khoahotran/devconnect/internal/domain/account"
	"github.com/khoahotran/devconnect/pkg/apperror"
)

type memoryAccountRepo struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]account.Account
}

func NewMemoryAccountRepo() account.Repository {
	return &memoryAccountRepo{accounts: make(map[uuid.UUID]account.Account)}
}

func (r *memoryAccountRepo) FindByID(_ context.Context, id uuid.UUID) (*account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[id]
	if !ok {
		return nil, accountNotFound(id)
	}
	return &a, nil
}

func (r *memoryAccountRepo) FindByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[uuid.UUID]*account.Account, len(ids))
	for _, id := range ids {
		if a, ok := r.accounts[id]; ok {
			out[id] = &a
		}
	}
	return out, nil
}

func (r *memoryAccountRepo) Save(_ context.Context, a *account.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.accounts[a.ID] = *a
	return nil
}

func (r *memoryAccountRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[id]; !ok {
		return accountNotFound(id)
	}
	delete(r.accounts, id)
	return nil
}

func accountNotFound(id uuid.UUID) error {
	return apperror.NewNotFound("account", id.String()).WithCause(account.ErrAccountNotFound)
}
