package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/khoahotran/devconnect/internal/domain/account"
	"github.com/khoahotran/devconnect/pkg/apperror"
	"github.com/khoahotran/devconnect/pkg/logger"
)

type MockAccountRepo struct {
	mock.Mock
}

func (m *MockAccountRepo) FindByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if a := args.Get(0); a != nil {
		return a.(*account.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccountRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*account.Account, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(map[uuid.UUID]*account.Account), args.Error(1)
}

func (m *MockAccountRepo) Save(ctx context.Context, a *account.Account) error {
	return m.Called(ctx, a).Error(0)
}

func (m *MockAccountRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func newTestUseCase(repo account.Repository, maxTries uint) *ReconcileOrphanUseCase {
	uc := NewReconcileOrphanUseCase(repo, logger.NewNopLogger(), maxTries, time.Second)
	uc.newBackOff = func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) }
	return uc
}

func TestReconcileOrphan_RetriesUnavailable(t *testing.T) {
	owner := uuid.New()
	repo := new(MockAccountRepo)
	unavailable := apperror.NewUnavailable("postgres down", errors.New("dial tcp: refused"))
	repo.On("Delete", mock.Anything, owner).Return(unavailable).Twice()
	repo.On("Delete", mock.Anything, owner).Return(nil).Once()

	err := newTestUseCase(repo, 5).Execute(context.Background(), ReconcileOrphanInput{OwnerID: owner})

	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "Delete", 3)
}

func TestReconcileOrphan_AlreadyGoneIsDone(t *testing.T) {
	owner := uuid.New()
	repo := new(MockAccountRepo)
	repo.On("Delete", mock.Anything, owner).
		Return(apperror.NewNotFound("account", owner.String()).WithCause(account.ErrAccountNotFound)).Once()

	err := newTestUseCase(repo, 5).Execute(context.Background(), ReconcileOrphanInput{OwnerID: owner})

	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "Delete", 1)
}

func TestReconcileOrphan_PermanentFailureStopsImmediately(t *testing.T) {
	owner := uuid.New()
	repo := new(MockAccountRepo)
	internal := apperror.NewInternal("constraint violated", errors.New("fk"))
	repo.On("Delete", mock.Anything, owner).Return(internal)

	err := newTestUseCase(repo, 5).Execute(context.Background(), ReconcileOrphanInput{OwnerID: owner})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrInternal)
	repo.AssertNumberOfCalls(t, "Delete", 1)
}

func TestReconcileOrphan_GivesUpAfterMaxTries(t *testing.T) {
	owner := uuid.New()
	repo := new(MockAccountRepo)
	repo.On("Delete", mock.Anything, owner).Return(apperror.NewUnavailable("postgres down", nil))

	err := newTestUseCase(repo, 3).Execute(context.Background(), ReconcileOrphanInput{OwnerID: owner})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrUnavailable)
	repo.AssertNumberOfCalls(t, "Delete", 3)
}
