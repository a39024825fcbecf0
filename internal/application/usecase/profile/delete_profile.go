package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/devconnect/internal/domain/account"
	"github.com/khoahotran/devconnect/internal/domain/profile"
	"github.com/khoahotran/devconnect/pkg/apperror"
)

// ErrOrphanedAccount marks a cascade delete that removed the profile but
// could not remove the account.
var ErrOrphanedAccount = errors.New("profile removed but account removal failed")

type DeleteProfileInput struct {
	OwnerID uuid.UUID
}

// ExecuteDeleteProfileAndAccount removes the profile and then the account.
// The two steps are not atomic: a failure in the second step returns an
// error matching ErrOrphanedAccount and emits an account.orphaned event so
// the worker can finish the job.
func (uc *ProfileUseCase) ExecuteDeleteProfileAndAccount(ctx context.Context, input DeleteProfileInput) error {
	ctx, span := tracer.Start(ctx, "DeleteProfileAndAccount")
	defer span.End()
	span.SetAttributes(attribute.String("owner_id", input.OwnerID.String()))

	if err := uc.profileRepo.Delete(ctx, input.OwnerID); err != nil {
		span.RecordError(err)
		return err
	}
	uc.publish(ctx, profile.Event{Type: profile.EventDeleted, OwnerID: input.OwnerID})

	err := uc.accountRepo.Delete(ctx, input.OwnerID)
	if err == nil {
		return nil
	}
	if errors.Is(err, account.ErrAccountNotFound) {
		uc.logger.Warn("Account already gone during cascade delete", zap.String("owner_id", input.OwnerID.String()))
		return nil
	}

	span.RecordError(err)
	uc.logger.Error("Orphaned account after profile removal", err, zap.String("owner_id", input.OwnerID.String()))
	uc.publish(ctx, profile.Event{
		Type:    profile.EventAccountOrphaned,
		OwnerID: input.OwnerID,
		Reason:  err.Error(),
	})
	return apperror.NewAppError(apperror.ErrInternal, "account removal failed",
		fmt.Sprintf("profile of '%s' was removed but its account was not", input.OwnerID),
		fmt.Errorf("%w: %w", ErrOrphanedAccount, err))
}
