package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	cacheport "github.com/LingwalAnkit/NavShiksha-Chat/internal/infrastructure/cache/port"
	chat "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/domain"
	userport "github.com/LingwalAnkit/NavShiksha-Chat/internal/repository/port"

	"github.com/rs/zerolog"
)

const userCachePrefix = "user:"

// UserDirectory is a read-through cache in front of the user repository.
// Every write through it drops the cached entry.
type UserDirectory struct {
	Repo  userport.UserRepository
	Cache cacheport.Cache
	TTL   time.Duration
	log   zerolog.Logger
}

func NewUserDirectory(repo userport.UserRepository, cache cacheport.Cache, ttl time.Duration, log zerolog.Logger) *UserDirectory {
	return &UserDirectory{Repo: repo, Cache: cache, TTL: ttl, log: log.With().Str("component", "users").Logger()}
}

func (d *UserDirectory) Get(ctx context.Context, id string) (*chat.User, error) {
	if d.Cache != nil {
		raw, err := d.Cache.Get(ctx, userCachePrefix+id)
		switch {
		case err == nil:
			var u chat.User
			if jerr := json.Unmarshal([]byte(raw), &u); jerr == nil {
				return &u, nil
			}
		case !errors.Is(err, cacheport.ErrMiss):
			d.log.Warn().Err(err).Msg("cache get")
		}
	}

	u, err := d.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Cache != nil {
		if raw, err := json.Marshal(u); err == nil {
			if err := d.Cache.Set(ctx, userCachePrefix+id, string(raw), d.TTL); err != nil {
				d.log.Warn().Err(err).Msg("cache set")
			}
		}
	}
	return u, nil
}

func (d *UserDirectory) ListExcept(ctx context.Context, userID string) ([]chat.User, error) {
	return d.Repo.ListExcept(ctx, userID)
}

func (d *UserDirectory) Upsert(ctx context.Context, u chat.User) error {
	if err := d.Repo.Upsert(ctx, u); err != nil {
		return err
	}
	d.invalidate(ctx, u.ID)
	return nil
}

func (d *UserDirectory) TouchLastSeen(ctx context.Context, userID string, at time.Time) error {
	if err := d.Repo.TouchLastSeen(ctx, userID, at); err != nil {
		return err
	}
	d.invalidate(ctx, userID)
	return nil
}

func (d *UserDirectory) invalidate(ctx context.Context, id string) {
	if d.Cache == nil || id == "" {
		return
	}
	if _, err := d.Cache.Del(ctx, userCachePrefix+id); err != nil {
		d.log.Warn().Err(err).Str("user_id", id).Msg("cache invalidate")
	}
}
