package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/khoahotran/devconnect/internal/domain/profile"
)

// memoryProfileRepo keeps profiles in process. One mutex serialises every
// operation, which gives it the same single-document atomicity as the
// document store, including the unique owner and handle keys.
type memoryProfileRepo struct {
	mu       sync.Mutex
	byOwner  map[uuid.UUID]*profile.Profile
	byHandle map[string]uuid.UUID
	now      func() time.Time
}

func NewMemoryProfileRepo() profile.Repository {
	return &memoryProfileRepo{
		byOwner:  make(map[uuid.UUID]*profile.Profile),
		byHandle: make(map[string]uuid.UUID),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *memoryProfileRepo) FindByOwner(_ context.Context, ownerID uuid.UUID) (*profile.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byOwner[ownerID]
	if !ok {
		return nil, profileNotFound("owner", ownerID.String())
	}
	return p.Clone(), nil
}

func (r *memoryProfileRepo) FindByHandle(_ context.Context, handle string) (*profile.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ownerID, ok := r.byHandle[handle]
	if !ok {
		return nil, profileNotFound("handle", handle)
	}
	return r.byOwner[ownerID].Clone(), nil
}

func (r *memoryProfileRepo) ListAll(_ context.Context) ([]*profile.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*profile.Profile, 0, len(r.byOwner))
	for _, p := range r.byOwner {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryProfileRepo) Insert(_ context.Context, p *profile.Profile) (*profile.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byOwner[p.OwnerID]; ok {
		return nil, duplicateOwner(p.OwnerID.String())
	}
	if p.Handle != "" {
		if _, ok := r.byHandle[p.Handle]; ok {
			return nil, duplicateHandle(p.Handle)
		}
		r.byHandle[p.Handle] = p.OwnerID
	}
	stored := p.Clone()
	r.byOwner[p.OwnerID] = stored
	return stored.Clone(), nil
}

func (r *memoryProfileRepo) Update(_ context.Context, ownerID uuid.UUID, fields profile.Fields) (*profile.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byOwner[ownerID]
	if !ok {
		return nil, profileNotFound("owner", ownerID.String())
	}
	if fields.HasHandle() && *fields.Handle != p.Handle {
		if holder, taken := r.byHandle[*fields.Handle]; taken && holder != ownerID {
			return nil, duplicateHandle(*fields.Handle)
		}
		delete(r.byHandle, p.Handle)
		r.byHandle[*fields.Handle] = ownerID
	}
	fields.ApplyTo(p, r.now())
	return p.Clone(), nil
}

func (r *memoryProfileRepo) Delete(_ context.Context, ownerID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byOwner[ownerID]
	if !ok {
		return profileNotFound("owner", ownerID.String())
	}
	if p.Handle != "" {
		delete(r.byHandle, p.Handle)
	}
	delete(r.byOwner, ownerID)
	return nil
}

func (r *memoryProfileRepo) PushExperience(_ context.Context, ownerID uuid.UUID, exp profile.Experience) (*profile.Profile, error) {
	return r.edit(ownerID, func(p *profile.Profile) { p.PrependExperience(exp) })
}

func (r *memoryProfileRepo) PullExperience(_ context.Context, ownerID uuid.UUID, expID string) (*profile.Profile, error) {
	return r.edit(ownerID, func(p *profile.Profile) { p.RemoveExperience(expID) })
}

func (r *memoryProfileRepo) PushEducation(_ context.Context, ownerID uuid.UUID, edu profile.Education) (*profile.Profile, error) {
	return r.edit(ownerID, func(p *profile.Profile) { p.PrependEducation(edu) })
}

func (r *memoryProfileRepo) PullEducation(_ context.Context, ownerID uuid.UUID, eduID string) (*profile.Profile, error) {
	return r.edit(ownerID, func(p *profile.Profile) { p.RemoveEducation(eduID) })
}

func (r *memoryProfileRepo) edit(ownerID uuid.UUID, fn func(p *profile.Profile)) (*profile.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byOwner[ownerID]
	if !ok {
		return nil, profileNotFound("owner", ownerID.String())
	}
	fn(p)
	p.UpdatedAt = r.now()
	return p.Clone(), nil
}
