package profile

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/khoahotran/devconnect/internal/domain/profile"
	"github.com/khoahotran/devconnect/pkg/apperror"
)

type AddExperienceInput struct {
	OwnerID     uuid.UUID  `json:"-"`
	Title       string     `json:"title" validate:"required"`
	Company     string     `json:"company" validate:"required"`
	Location    string     `json:"location"`
	From        time.Time  `json:"from" validate:"required"`
	To          *time.Time `json:"to"`
	Current     bool       `json:"current"`
	Description string     `json:"description"`
}

type AddEducationInput struct {
	OwnerID      uuid.UUID  `json:"-"`
	School       string     `json:"school" validate:"required"`
	Degree       string     `json:"degree" validate:"required"`
	FieldOfStudy string     `json:"field_of_study" validate:"required"`
	From         time.Time  `json:"from" validate:"required"`
	To           *time.Time `json:"to"`
	Current      bool       `json:"current"`
	Description  string     `json:"description"`
}

type RemoveEntryInput struct {
	OwnerID uuid.UUID
	EntryID string
}

type SubCollectionOutput struct {
	Profile *profile.Profile
}

// ExecuteAddExperience prepends a new entry with a fresh id. It never
// creates a profile.
func (uc *ProfileUseCase) ExecuteAddExperience(ctx context.Context, input AddExperienceInput) (*SubCollectionOutput, error) {
	ctx, span := tracer.Start(ctx, "AddExperience")
	defer span.End()
	span.SetAttributes(attribute.String("owner_id", input.OwnerID.String()))

	if res := uc.validator.Validate(input); !res.IsValid {
		return nil, apperror.NewValidationFailed("experience input rejected", res.Errors, nil)
	}

	exp := profile.Experience{
		ID:          profile.NewEntryID(),
		Title:       input.Title,
		Company:     input.Company,
		Location:    input.Location,
		From:        input.From,
		To:          input.To,
		Current:     input.Current,
		Description: input.Description,
	}
	p, err := uc.profileRepo.PushExperience(ctx, input.OwnerID, exp)
	if err != nil {
		span.RecordError(err)
		return nil, subCollectionErr(input.OwnerID, err)
	}
	return &SubCollectionOutput{Profile: p}, nil
}

// ExecuteRemoveExperience drops the entry with the given id. An unknown id
// leaves the list unchanged and still succeeds.
func (uc *ProfileUseCase) ExecuteRemoveExperience(ctx context.Context, input RemoveEntryInput) (*SubCollectionOutput, error) {
	ctx, span := tracer.Start(ctx, "RemoveExperience")
	defer span.End()
	span.SetAttributes(attribute.String("owner_id", input.OwnerID.String()), attribute.String("entry_id", input.EntryID))

	p, err := uc.profileRepo.PullExperience(ctx, input.OwnerID, input.EntryID)
	if err != nil {
		span.RecordError(err)
		return nil, subCollectionErr(input.OwnerID, err)
	}
	return &SubCollectionOutput{Profile: p}, nil
}

func (uc *ProfileUseCase) ExecuteAddEducation(ctx context.Context, input AddEducationInput) (*SubCollectionOutput, error) {
	ctx, span := tracer.Start(ctx, "AddEducation")
	defer span.End()
	span.SetAttributes(attribute.String("owner_id", input.OwnerID.String()))

	if res := uc.validator.Validate(input); !res.IsValid {
		return nil, apperror.NewValidationFailed("education input rejected", res.Errors, nil)
	}

	edu := profile.Education{
		ID:           profile.NewEntryID(),
		School:       input.School,
		Degree:       input.Degree,
		FieldOfStudy: input.FieldOfStudy,
		From:         input.From,
		To:           input.To,
		Current:      input.Current,
		Description:  input.Description,
	}
	p, err := uc.profileRepo.PushEducation(ctx, input.OwnerID, edu)
	if err != nil {
		span.RecordError(err)
		return nil, subCollectionErr(input.OwnerID, err)
	}
	return &SubCollectionOutput{Profile: p}, nil
}

func (uc *ProfileUseCase) ExecuteRemoveEducation(ctx context.Context, input RemoveEntryInput) (*SubCollectionOutput, error) {
	ctx, span := tracer.Start(ctx, "RemoveEducation")
	defer span.End()
	span.SetAttributes(attribute.String("owner_id", input.OwnerID.String()), attribute.String("entry_id", input.EntryID))

	p, err := uc.profileRepo.PullEducation(ctx, input.OwnerID, input.EntryID)
	if err != nil {
		span.RecordError(err)
		return nil, subCollectionErr(input.OwnerID, err)
	}
	return &SubCollectionOutput{Profile: p}, nil
}

// subCollectionErr reports a missing document as ProfileNotFound rather
// than a plain NotFound.
func subCollectionErr(ownerID uuid.UUID, err error) error {
	if !errors.Is(err, profile.ErrNotFound) {
		return err
	}
	return apperror.NewAppError(apperror.ErrNotFound, "profile not found",
		"owner '"+ownerID.String()+"' has no profile yet", profile.ErrProfileNotFound)
}
