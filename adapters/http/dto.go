package http

import (
	"encoding/json"
	"fmt"
	"time"

	profileUC "github.com/khoahotran/devconnect/internal/application/usecase/profile"
	"github.com/khoahotran/devconnect/internal/domain/profile"
)

// Profile DTOs

type OwnerDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type ExperienceDTO struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Company     string     `json:"company"`
	Location    string     `json:"location,omitempty"`
	From        time.Time  `json:"from"`
	To          *time.Time `json:"to,omitempty"`
	Current     bool       `json:"current"`
	Description string     `json:"description,omitempty"`
}

type EducationDTO struct {
	ID           string     `json:"id"`
	School       string     `json:"school"`
	Degree       string     `json:"degree"`
	FieldOfStudy string     `json:"field_of_study"`
	From         time.Time  `json:"from"`
	To           *time.Time `json:"to,omitempty"`
	Current      bool       `json:"current"`
	Description  string     `json:"description,omitempty"`
}

// ProfileDTO is the public profile body. User is the owner's summary and
// is a bare id when the owner has no account.
type ProfileDTO struct {
	User       any               `json:"user"`
	Handle     string            `json:"handle,omitempty"`
	Company    string            `json:"company,omitempty"`
	Website    string            `json:"website,omitempty"`
	Location   string            `json:"location,omitempty"`
	Bio        string            `json:"bio,omitempty"`
	Status     string            `json:"status,omitempty"`
	Skills     []string          `json:"skills"`
	Social     map[string]string `json:"social"`
	Experience []ExperienceDTO   `json:"experience"`
	Education  []EducationDTO    `json:"education"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

type UpsertProfileRequest struct {
	Handle    *string `json:"handle"`
	Company   *string `json:"company"`
	Website   *string `json:"website"`
	Location  *string `json:"location"`
	Bio       *string `json:"bio"`
	Status    *string `json:"status"`
	Skills    *string `json:"skills"`
	YouTube   *string `json:"youtube"`
	Twitter   *string `json:"twitter"`
	LinkedIn  *string `json:"linkedin"`
	Facebook  *string `json:"facebook"`
	Instagram *string `json:"instagram"`
}

// Date accepts an RFC 3339 timestamp or a plain calendar date (UTC).
type Date struct {
	time.Time
}

var dateLayouts = []string{time.RFC3339Nano, time.DateOnly}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("cannot parse %q as a date", raw)
}

func (d *Date) timePtr() *time.Time {
	if d == nil {
		return nil
	}
	return &d.Time
}

type AddExperienceRequest struct {
	Title       string     `json:"title"`
	Company     string     `json:"company"`
	Location    string     `json:"location"`
	From        Date   `json:"from"`
	To          *Date  `json:"to"`
	Current     bool   `json:"current"`
	Description string `json:"description"`
}

type AddEducationRequest struct {
	School       string     `json:"school"`
	Degree       string     `json:"degree"`
	FieldOfStudy string     `json:"field_of_study"`
	From         Date   `json:"from"`
	To           *Date  `json:"to"`
	Current      bool   `json:"current"`
	Description  string `json:"description"`
}

func ToProfileDTO(p *profile.Profile) ProfileDTO {
	dto := ProfileDTO{
		User:       p.OwnerID.String(),
		Handle:     p.Handle,
		Company:    p.Company,
		Website:    p.Website,
		Location:   p.Location,
		Bio:        p.Bio,
		Status:     p.Status,
		Skills:     p.Skills,
		Social:     p.Social,
		Experience: make([]ExperienceDTO, len(p.Experience)),
		Education:  make([]EducationDTO, len(p.Education)),
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
	for i, e := range p.Experience {
		dto.Experience[i] = ExperienceDTO(e)
	}
	for i, e := range p.Education {
		dto.Education[i] = EducationDTO(e)
	}
	return dto
}

func ToProfileViewDTO(v profileUC.ProfileView) ProfileDTO {
	dto := ToProfileDTO(v.Profile)
	if v.Owner != nil {
		dto.User = OwnerDTO{ID: v.Owner.ID.String(), Name: v.Owner.Name, Avatar: v.Owner.Avatar}
	}
	return dto
}
