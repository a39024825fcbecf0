package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/devconnect/internal/domain/profile"
	"github.com/khoahotran/devconnect/pkg/apperror"
)

// UpsertProfileInput is the raw field set of a create-or-update request.
// A nil or empty value means the field was not sent.
type UpsertProfileInput struct {
	OwnerID   uuid.UUID `json:"-"`
	Handle    *string   `json:"handle" validate:"required,min=2,max=40"`
	Company   *string   `json:"company"`
	Website   *string   `json:"website" validate:"omitempty,url"`
	Location  *string   `json:"location"`
	Bio       *string   `json:"bio"`
	Status    *string   `json:"status" validate:"required"`
	Skills    *string   `json:"skills" validate:"required"`
	YouTube   *string   `json:"youtube" validate:"omitempty,url"`
	Twitter   *string   `json:"twitter" validate:"omitempty,url"`
	LinkedIn  *string   `json:"linkedin" validate:"omitempty,url"`
	Facebook  *string   `json:"facebook" validate:"omitempty,url"`
	Instagram *string   `json:"instagram" validate:"omitempty,url"`
}

type UpsertProfileOutput struct {
	Profile *profile.Profile
	Created bool
}

func (in UpsertProfileInput) toFields() profile.Fields {
	f := profile.Fields{
		Handle:   provided(in.Handle),
		Company:  provided(in.Company),
		Website:  provided(in.Website),
		Location: provided(in.Location),
		Bio:      provided(in.Bio),
		Status:   provided(in.Status),
	}
	if in.Skills != nil {
		f.Skills = profile.SplitSkills(*in.Skills)
	}
	f.Social = profile.SocialFrom(map[string]string{
		profile.SocialYouTube:   deref(in.YouTube),
		profile.SocialTwitter:   deref(in.Twitter),
		profile.SocialLinkedIn:  deref(in.LinkedIn),
		profile.SocialFacebook:  deref(in.Facebook),
		profile.SocialInstagram: deref(in.Instagram),
	})
	return f
}

// normalized drops empty strings so that "" and a missing field validate
// and merge the same way.
func (in UpsertProfileInput) normalized() UpsertProfileInput {
	for _, f := range []**string{
		&in.Handle, &in.Company, &in.Website, &in.Location, &in.Bio, &in.Status, &in.Skills,
		&in.YouTube, &in.Twitter, &in.LinkedIn, &in.Facebook, &in.Instagram,
	} {
		*f = provided(*f)
	}
	return in
}

func provided(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ExecuteUpsertProfile creates the caller's profile on first use and merges
// the provided fields into it afterwards. Handle uniqueness is checked up
// front and enforced again by the store's unique index; both outcomes are
// reported as a handle conflict.
func (uc *ProfileUseCase) ExecuteUpsertProfile(ctx context.Context, input UpsertProfileInput) (*UpsertProfileOutput, error) {
	ctx, span := tracer.Start(ctx, "UpsertProfile")
	defer span.End()
	span.SetAttributes(attribute.String("owner_id", input.OwnerID.String()))

	input = input.normalized()
	if res := uc.validator.Validate(input); !res.IsValid {
		return nil, apperror.NewValidationFailed("profile input rejected", res.Errors, nil)
	}
	fields := input.toFields()

	_, err := uc.profileRepo.FindByOwner(ctx, input.OwnerID)
	var out *UpsertProfileOutput
	switch {
	case err == nil:
		out, err = uc.update(ctx, input.OwnerID, fields)
		if errors.Is(err, profile.ErrNotFound) {
			// The read was stale and the profile has since been deleted.
			out, err = uc.create(ctx, input.OwnerID, fields)
		}
	case errors.Is(err, profile.ErrNotFound):
		out, err = uc.create(ctx, input.OwnerID, fields)
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	evt := profile.Event{Type: profile.EventUpdated, OwnerID: out.Profile.OwnerID, Handle: out.Profile.Handle}
	if out.Created {
		evt.Type = profile.EventCreated
	}
	uc.publish(ctx, evt)
	span.SetAttributes(attribute.Bool("created", out.Created))
	return out, nil
}

func (uc *ProfileUseCase) create(ctx context.Context, ownerID uuid.UUID, fields profile.Fields) (*UpsertProfileOutput, error) {
	if fields.HasHandle() {
		holder, err := uc.profileRepo.FindByHandle(ctx, *fields.Handle)
		switch {
		case err == nil && holder.OwnerID == ownerID:
			// The same owner created its profile concurrently; merge instead.
			return uc.update(ctx, ownerID, fields)
		case err == nil:
			return nil, handleTaken(*fields.Handle, nil)
		case !errors.Is(err, profile.ErrNotFound):
			return nil, err
		}
	}

	p, err := uc.profileRepo.Insert(ctx, profile.New(ownerID, fields, uc.now()))
	switch {
	case err == nil:
		return &UpsertProfileOutput{Profile: p, Created: true}, nil
	case errors.Is(err, profile.ErrDuplicateHandle):
		uc.logger.Info("Handle claimed concurrently", zap.String("owner_id", ownerID.String()), zap.String("handle", *fields.Handle))
		return nil, handleTaken(*fields.Handle, err)
	case errors.Is(err, profile.ErrDuplicateOwner):
		return uc.update(ctx, ownerID, fields)
	default:
		return nil, err
	}
}

func (uc *ProfileUseCase) update(ctx context.Context, ownerID uuid.UUID, fields profile.Fields) (*UpsertProfileOutput, error) {
	p, err := uc.profileRepo.Update(ctx, ownerID, fields)
	if err != nil {
		if errors.Is(err, profile.ErrDuplicateHandle) {
			return nil, handleTaken(deref(fields.Handle), err)
		}
		return nil, err
	}
	return &UpsertProfileOutput{Profile: p}, nil
}

func handleTaken(handle string, cause error) error {
	err := cause
	if err == nil {
		err = profile.ErrHandleTaken
	} else {
		err = fmt.Errorf("%w: %w", profile.ErrHandleTaken, cause)
	}
	appErr := apperror.NewAppError(apperror.ErrConflict, "profile conflict",
		fmt.Sprintf("profile with handle '%s' already exists", handle), err)
	appErr.Fields = map[string]string{"handle": "That handle already exists"}
	return appErr
}
