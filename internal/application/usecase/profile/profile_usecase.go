package profile

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/devconnect/internal/application/service"
	"github.com/khoahotran/devconnect/internal/domain/account"
	"github.com/khoahotran/devconnect/internal/domain/profile"
	"github.com/khoahotran/devconnect/pkg/logger"
)

var tracer = otel.Tracer("profile_usecase")

type ProfileUseCase struct {
	profileRepo profile.Repository
	accountRepo account.Repository
	validator   service.InputValidator
	publisher   service.EventPublisher
	logger      logger.Logger
	now         func() time.Time
}

func NewProfileUseCase(
	profileRepo profile.Repository,
	accountRepo account.Repository,
	validator service.InputValidator,
	publisher service.EventPublisher,
	log logger.Logger,
) *ProfileUseCase {
	return &ProfileUseCase{
		profileRepo: profileRepo,
		accountRepo: accountRepo,
		validator:   validator,
		publisher:   publisher,
		logger:      log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ProfileView is a profile joined with its owner's public account summary.
// Owner is nil when the account no longer exists.
type ProfileView struct {
	Profile *profile.Profile
	Owner   *account.Summary
}

type GetProfileInput struct {
	OwnerID uuid.UUID
}

type GetProfileOutput struct {
	View ProfileView
}

// ExecuteGetProfile serves both "get own profile" and "get by owner id".
func (uc *ProfileUseCase) ExecuteGetProfile(ctx context.Context, input GetProfileInput) (*GetProfileOutput, error) {
	ctx, span := tracer.Start(ctx, "GetProfile")
	defer span.End()
	span.SetAttributes(attribute.String("owner_id", input.OwnerID.String()))

	p, err := uc.profileRepo.FindByOwner(ctx, input.OwnerID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	views, err := uc.joinOwners(ctx, []*profile.Profile{p})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &GetProfileOutput{View: views[0]}, nil
}

type GetProfileByHandleInput struct {
	Handle string
}

func (uc *ProfileUseCase) ExecuteGetProfileByHandle(ctx context.Context, input GetProfileByHandleInput) (*GetProfileOutput, error) {
	ctx, span := tracer.Start(ctx, "GetProfileByHandle")
	defer span.End()
	span.SetAttributes(attribute.String("handle", input.Handle))

	p, err := uc.profileRepo.FindByHandle(ctx, input.Handle)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	views, err := uc.joinOwners(ctx, []*profile.Profile{p})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &GetProfileOutput{View: views[0]}, nil
}

type ListProfilesOutput struct {
	Profiles []ProfileView
}

// ExecuteListProfiles returns every profile. No profiles is an empty list.
func (uc *ProfileUseCase) ExecuteListProfiles(ctx context.Context) (*ListProfilesOutput, error) {
	ctx, span := tracer.Start(ctx, "ListProfiles")
	defer span.End()

	ps, err := uc.profileRepo.ListAll(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	views, err := uc.joinOwners(ctx, ps)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("count", len(views)))
	return &ListProfilesOutput{Profiles: views}, nil
}

// joinOwners attaches name and avatar of each owner with one account lookup.
func (uc *ProfileUseCase) joinOwners(ctx context.Context, ps []*profile.Profile) ([]ProfileView, error) {
	views := make([]ProfileView, len(ps))
	if len(ps) == 0 {
		return views, nil
	}

	ids := make([]uuid.UUID, 0, len(ps))
	seen := make(map[uuid.UUID]struct{}, len(ps))
	for _, p := range ps {
		if _, ok := seen[p.OwnerID]; ok {
			continue
		}
		seen[p.OwnerID] = struct{}{}
		ids = append(ids, p.OwnerID)
	}

	accounts, err := uc.accountRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	for i, p := range ps {
		views[i] = ProfileView{Profile: p}
		if a, ok := accounts[p.OwnerID]; ok {
			summary := a.Summary()
			views[i].Owner = &summary
		} else {
			uc.logger.Warn("Profile owner has no account", zap.String("owner_id", p.OwnerID.String()))
		}
	}
	return views, nil
}

func (uc *ProfileUseCase) publish(ctx context.Context, evt profile.Event) {
	evt.OccurredAt = uc.now()
	if err := uc.publisher.PublishProfileEvent(ctx, evt); err != nil {
		uc.logger.Error("Failed to publish profile event", err,
			zap.String("type", string(evt.Type)),
			zap.String("owner_id", evt.OwnerID.String()),
		)
	}
}
