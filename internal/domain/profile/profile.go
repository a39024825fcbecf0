package profile

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	SocialYouTube   = "youtube"
	SocialTwitter   = "twitter"
	SocialLinkedIn  = "linkedin"
	SocialFacebook  = "facebook"
	SocialInstagram = "instagram"
)

// SocialPlatforms lists the accepted keys of Profile.Social in display order.
var SocialPlatforms = []string{SocialYouTube, SocialTwitter, SocialLinkedIn, SocialFacebook, SocialInstagram}

type Experience struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Company     string     `json:"company"`
	Location    string     `json:"location"`
	From        time.Time  `json:"from"`
	To          *time.Time `json:"to,omitempty"`
	Current     bool       `json:"current"`
	Description string     `json:"description"`
}

type Education struct {
	ID           string     `json:"id"`
	School       string     `json:"school"`
	Degree       string     `json:"degree"`
	FieldOfStudy string     `json:"field_of_study"`
	From         time.Time  `json:"from"`
	To           *time.Time `json:"to,omitempty"`
	Current      bool       `json:"current"`
	Description  string     `json:"description"`
}

// Profile is the document keyed by its owner. Experience and Education are
// ordered newest first.
type Profile struct {
	OwnerID    uuid.UUID         `json:"owner_id"`
	Handle     string            `json:"handle,omitempty"`
	Company    string            `json:"company,omitempty"`
	Website    string            `json:"website,omitempty"`
	Location   string            `json:"location,omitempty"`
	Bio        string            `json:"bio,omitempty"`
	Status     string            `json:"status,omitempty"`
	Skills     []string          `json:"skills"`
	Social     map[string]string `json:"social"`
	Experience []Experience      `json:"experience"`
	Education  []Education       `json:"education"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

var (
	ErrNotFound        = errors.New("profile not found")
	ErrProfileNotFound = errors.New("there is no profile for this user")
	ErrHandleTaken     = errors.New("that handle already exists")
	ErrDuplicateHandle = errors.New("duplicate profile handle")
	ErrDuplicateOwner  = errors.New("duplicate profile owner")
)

// Repository is the profile document store. Every method touches a single
// document in a single store call; Push/Pull are atomic on that document.
type Repository interface {
	FindByOwner(ctx context.Context, ownerID uuid.UUID) (*Profile, error)
	FindByHandle(ctx context.Context, handle string) (*Profile, error)
	ListAll(ctx context.Context) ([]*Profile, error)
	Insert(ctx context.Context, p *Profile) (*Profile, error)
	Update(ctx context.Context, ownerID uuid.UUID, fields Fields) (*Profile, error)
	Delete(ctx context.Context, ownerID uuid.UUID) error

	PushExperience(ctx context.Context, ownerID uuid.UUID, exp Experience) (*Profile, error)
	PullExperience(ctx context.Context, ownerID uuid.UUID, expID string) (*Profile, error)
	PushEducation(ctx context.Context, ownerID uuid.UUID, edu Education) (*Profile, error)
	PullEducation(ctx context.Context, ownerID uuid.UUID, eduID string) (*Profile, error)
}

// New returns an empty profile for owner with both sub-collections
// initialised and fields applied.
func New(ownerID uuid.UUID, fields Fields, now time.Time) *Profile {
	p := &Profile{
		OwnerID:    ownerID,
		Skills:     []string{},
		Social:     map[string]string{},
		Experience: []Experience{},
		Education:  []Education{},
		CreatedAt:  now,
	}
	fields.ApplyTo(p, now)
	return p
}

// Clone returns a deep copy so stores can hand out documents without
// sharing slices or maps with their internal state.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Skills = append([]string{}, p.Skills...)
	cp.Social = make(map[string]string, len(p.Social))
	for k, v := range p.Social {
		cp.Social[k] = v
	}
	cp.Experience = append([]Experience{}, p.Experience...)
	cp.Education = append([]Education{}, p.Education...)
	return &cp
}
