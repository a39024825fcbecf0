package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/khoahotran/devconnect/internal/domain/profile"
	"github.com/khoahotran/devconnect/pkg/logger"
)

const (
	ownerKeyPrefix      = "profile:owner:"
	handleKeyPrefix     = "profile:handle:"
	generationKeyPrefix = "profile:gen:"
)

// cachedProfileRepo is a read-through cache in front of another
// profile.Repository. The store stays the source of truth: every write goes
// to the store first and then drops the cached document. Cache failures are
// logged and otherwise ignored.
//
// Each owner has a generation counter that every write bumps. A reader
// notes the generation before going to the store and only fills the cache
// if it is unchanged, so a read that raced a write or delete never puts the
// old document back.
type cachedProfileRepo struct {
	next   profile.Repository
	rdb    *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedProfileRepo(next profile.Repository, rdb *redis.Client, ttl time.Duration, logger logger.Logger) profile.Repository {
	return &cachedProfileRepo{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

func ownerKey(ownerID uuid.UUID) string { return ownerKeyPrefix + ownerID.String() }
func handleKey(handle string) string    { return handleKeyPrefix + handle }
func generationKey(ownerID uuid.UUID) string {
	return generationKeyPrefix + ownerID.String()
}

var errGenerationMoved = errors.New("profile generation moved")

func (r *cachedProfileRepo) FindByOwner(ctx context.Context, ownerID uuid.UUID) (*profile.Profile, error) {
	if p, ok := r.get(ctx, ownerID); ok {
		return p, nil
	}
	gen, fill := r.generation(ctx, ownerID)
	p, err := r.next.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if fill {
		r.set(ctx, p, gen)
	}
	return p, nil
}

// FindByHandle resolves the handle to an owner through a cached pointer and
// then reads that owner's document, checking it still carries the handle.
// A stale pointer falls through to the store. The pointer is only a hint,
// so a store hit refreshes it without caching the document.
func (r *cachedProfileRepo) FindByHandle(ctx context.Context, handle string) (*profile.Profile, error) {
	raw, err := r.rdb.Get(ctx, handleKey(handle)).Result()
	if err == nil {
		if ownerID, perr := uuid.Parse(raw); perr == nil {
			p, ferr := r.FindByOwner(ctx, ownerID)
			if ferr == nil && p.Handle == handle {
				return p, nil
			}
			if ferr != nil && !errors.Is(ferr, profile.ErrNotFound) {
				return nil, ferr
			}
		}
	} else if !errors.Is(err, redis.Nil) {
		r.logger.Warn("Profile cache read failed", zap.String("handle", handle), zap.Error(err))
	}

	p, err := r.next.FindByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}
	if err := r.rdb.Set(ctx, handleKey(handle), p.OwnerID.String(), r.ttl).Err(); err != nil {
		r.logger.Warn("Profile cache write failed", zap.String("handle", handle), zap.Error(err))
	}
	return p, nil
}

func (r *cachedProfileRepo) ListAll(ctx context.Context) ([]*profile.Profile, error) {
	return r.next.ListAll(ctx)
}

func (r *cachedProfileRepo) Insert(ctx context.Context, p *profile.Profile) (*profile.Profile, error) {
	out, err := r.next.Insert(ctx, p)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx, out.OwnerID)
	return out, nil
}

func (r *cachedProfileRepo) Update(ctx context.Context, ownerID uuid.UUID, fields profile.Fields) (*profile.Profile, error) {
	return r.write(ctx, ownerID)(r.next.Update(ctx, ownerID, fields))
}

func (r *cachedProfileRepo) Delete(ctx context.Context, ownerID uuid.UUID) error {
	if err := r.next.Delete(ctx, ownerID); err != nil {
		return err
	}
	r.invalidate(ctx, ownerID)
	return nil
}

func (r *cachedProfileRepo) PushExperience(ctx context.Context, ownerID uuid.UUID, exp profile.Experience) (*profile.Profile, error) {
	return r.write(ctx, ownerID)(r.next.PushExperience(ctx, ownerID, exp))
}

func (r *cachedProfileRepo) PullExperience(ctx context.Context, ownerID uuid.UUID, expID string) (*profile.Profile, error) {
	return r.write(ctx, ownerID)(r.next.PullExperience(ctx, ownerID, expID))
}

func (r *cachedProfileRepo) PushEducation(ctx context.Context, ownerID uuid.UUID, edu profile.Education) (*profile.Profile, error) {
	return r.write(ctx, ownerID)(r.next.PushEducation(ctx, ownerID, edu))
}

func (r *cachedProfileRepo) PullEducation(ctx context.Context, ownerID uuid.UUID, eduID string) (*profile.Profile, error) {
	return r.write(ctx, ownerID)(r.next.PullEducation(ctx, ownerID, eduID))
}

// write returns a completion that drops the cached document once the store
// call has succeeded.
func (r *cachedProfileRepo) write(ctx context.Context, ownerID uuid.UUID) func(*profile.Profile, error) (*profile.Profile, error) {
	return func(p *profile.Profile, err error) (*profile.Profile, error) {
		if err != nil {
			return nil, err
		}
		r.invalidate(ctx, ownerID)
		return p, nil
	}
}

func (r *cachedProfileRepo) get(ctx context.Context, ownerID uuid.UUID) (*profile.Profile, bool) {
	raw, err := r.rdb.Get(ctx, ownerKey(ownerID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("Profile cache read failed", zap.String("owner_id", ownerID.String()), zap.Error(err))
		}
		return nil, false
	}
	var p profile.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		r.logger.Warn("Dropping undecodable cached profile", zap.String("owner_id", ownerID.String()), zap.Error(err))
		r.invalidate(ctx, ownerID)
		return nil, false
	}
	return &p, true
}

// generation returns the owner's current write generation. fill is false
// when the cache cannot be read, in which case the caller skips the fill.
func (r *cachedProfileRepo) generation(ctx context.Context, ownerID uuid.UUID) (gen int64, fill bool) {
	gen, err := r.rdb.Get(ctx, generationKey(ownerID)).Int64()
	switch {
	case err == nil:
		return gen, true
	case errors.Is(err, redis.Nil):
		return 0, true
	default:
		r.logger.Warn("Profile cache read failed", zap.String("owner_id", ownerID.String()), zap.Error(err))
		return 0, false
	}
}

// set caches p if no write has happened since the reader saw gen.
func (r *cachedProfileRepo) set(ctx context.Context, p *profile.Profile, gen int64) {
	raw, err := json.Marshal(p)
	if err != nil {
		r.logger.Warn("Failed to encode profile for cache", zap.String("owner_id", p.OwnerID.String()), zap.Error(err))
		return
	}
	genKey := generationKey(p.OwnerID)
	err = r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errGenerationMoved
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, ownerKey(p.OwnerID), raw, r.ttl)
			if p.Handle != "" {
				pipe.Set(ctx, handleKey(p.Handle), p.OwnerID.String(), r.ttl)
			}
			return nil
		})
		return err
	}, genKey)
	switch {
	case err == nil:
	case errors.Is(err, errGenerationMoved), errors.Is(err, redis.TxFailedErr):
		r.logger.Debug("Skipping cache fill after concurrent write", zap.String("owner_id", p.OwnerID.String()))
	default:
		r.logger.Warn("Profile cache write failed", zap.String("owner_id", p.OwnerID.String()), zap.Error(err))
	}
}

// invalidate drops the cached document and bumps the generation so reads
// already in flight do not refill it. The counter outlives the document.
func (r *cachedProfileRepo) invalidate(ctx context.Context, ownerID uuid.UUID) {
	genKey := generationKey(ownerID)
	pipe := r.rdb.TxPipeline()
	pipe.Del(ctx, ownerKey(ownerID))
	pipe.Incr(ctx, genKey)
	if r.ttl > 0 {
		pipe.Expire(ctx, genKey, 2*r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn("Profile cache invalidation failed", zap.String("owner_id", ownerID.String()), zap.Error(err))
	}
}
