package account

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/devconnect/internal/domain/account"
	"github.com/khoahotran/devconnect/pkg/apperror"
	"github.com/khoahotran/devconnect/pkg/logger"
)

var tracer = otel.Tracer("account_usecase")

type ReconcileOrphanInput struct {
	OwnerID uuid.UUID
}

// ReconcileOrphanUseCase finishes cascade deletes whose account step
// failed. Only ErrUnavailable is retried; any other failure is final.
type ReconcileOrphanUseCase struct {
	accountRepo account.Repository
	logger      logger.Logger
	maxTries    uint
	newBackOff  func() backoff.BackOff
}

func NewReconcileOrphanUseCase(accountRepo account.Repository, log logger.Logger, maxTries uint, maxInterval time.Duration) *ReconcileOrphanUseCase {
	return &ReconcileOrphanUseCase{
		accountRepo: accountRepo,
		logger:      log,
		maxTries:    maxTries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = maxInterval
			return b
		},
	}
}

func (uc *ReconcileOrphanUseCase) Execute(ctx context.Context, input ReconcileOrphanInput) error {
	ctx, span := tracer.Start(ctx, "ReconcileOrphan")
	defer span.End()
	span.SetAttributes(attribute.String("owner_id", input.OwnerID.String()))

	log := uc.logger.With(zap.String("owner_id", input.OwnerID.String()))

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := uc.accountRepo.Delete(ctx, input.OwnerID)
		switch {
		case err == nil, errors.Is(err, account.ErrAccountNotFound):
			return struct{}{}, nil
		case errors.Is(err, apperror.ErrUnavailable):
			return struct{}{}, err
		default:
			return struct{}{}, backoff.Permanent(err)
		}
	},
		backoff.WithBackOff(uc.newBackOff()),
		backoff.WithMaxTries(uc.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn("Account delete failed, retrying", zap.Duration("next", next), zap.Error(err))
		}),
	)
	if err != nil {
		span.RecordError(err)
		log.Error("Orphaned account could not be removed", err)
		return err
	}

	log.Info("Orphaned account removed")
	return nil
}
