package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/its-ashutosh-pathak/supersquare-backend/internal/apperror"
	"github.com/its-ashutosh-pathak/supersquare-backend/internal/entity"
)

const profileKeyPrefix = "profile:"

type ProfileRepository interface {
	Ensure(ctx context.Context, identity, displayName string) (*entity.Profile, error)
	GetByIdentity(ctx context.Context, identity string) (*entity.Profile, error)
	ApplyStatsDelta(ctx context.Context, identity string, delta entity.StatsDelta) error
	UpdateLastActive(ctx context.Context, identity string, at time.Time) error
	Rank(ctx context.Context, identity string) (int, error)
}

type dbProfile struct {
	client *redis.Client
}

func NewProfileRepository(client *redis.Client) ProfileRepository {
	return &dbProfile{
		client: client,
	}
}

// Ensure - creates the profile hash with default stats on first
// sight of an identity, otherwise returns the existing record.
func (that *dbProfile) Ensure(ctx context.Context, identity, displayName string) (*entity.Profile, error) {
	key := profileKey(identity)

	created, err := that.client.HSetNX(ctx, key, "rating", entity.DefaultRating).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to ensure profile: %w", err)
	}

	if created {
		err = that.client.HSet(ctx, key,
			"identity", identity,
			"displayName", displayName,
			"wins", 0,
			"losses", 0,
			"gamesPlayed", 0,
		).Err()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize profile: %w", err)
		}
	}

	return that.GetByIdentity(ctx, identity)
}

func (that *dbProfile) GetByIdentity(ctx context.Context, identity string) (*entity.Profile, error) {
	fields, err := that.client.HGetAll(ctx, profileKey(identity)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get profile by identity: %w", err)
	}

	if len(fields) == 0 {
		return nil, apperror.ErrProfileNotFound
	}

	return profileFromFields(identity, fields), nil
}

// ApplyStatsDelta - applies one reconciliation's adjustments as hash
// increments; each field update is atomic, so a concurrently applied
// delta can never be lost, only observed late.
func (that *dbProfile) ApplyStatsDelta(ctx context.Context, identity string, delta entity.StatsDelta) error {
	key := profileKey(identity)

	pipe := that.client.Pipeline()
	if delta.Rating != 0 {
		pipe.HIncrBy(ctx, key, "rating", int64(delta.Rating))
	}
	if delta.Wins != 0 {
		pipe.HIncrBy(ctx, key, "wins", int64(delta.Wins))
	}
	if delta.Losses != 0 {
		pipe.HIncrBy(ctx, key, "losses", int64(delta.Losses))
	}
	if delta.Games != 0 {
		pipe.HIncrBy(ctx, key, "gamesPlayed", int64(delta.Games))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to apply stats delta: %w", err)
	}

	return nil
}

func (that *dbProfile) UpdateLastActive(ctx context.Context, identity string, at time.Time) error {
	err := that.client.HSet(ctx, profileKey(identity), "lastActiveAt", at.UTC().Format(time.RFC3339)).Err()
	if err != nil {
		return fmt.Errorf("failed to update last active: %w", err)
	}

	return nil
}

// Rank - one plus the number of identities with a strictly higher
// rating, plus those with an equal rating and strictly more wins.
func (that *dbProfile) Rank(ctx context.Context, identity string) (int, error) {
	self, err := that.GetByIdentity(ctx, identity)
	if err != nil {
		return 0, fmt.Errorf("failed to get own profile: %w", err)
	}

	rank := 1

	var cursor uint64
	for {
		keys, next, err := that.client.Scan(ctx, cursor, profileKeyPrefix+"*", 100).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to scan profiles: %w", err)
		}

		for _, key := range keys {
			if key == profileKey(identity) {
				continue
			}

			fields, err := that.client.HMGet(ctx, key, "rating", "wins").Result()
			if err != nil {
				return 0, fmt.Errorf("failed to read profile stats: %w", err)
			}

			rating := fieldInt(fields[0])
			wins := fieldInt(fields[1])

			if rating > self.Rating || (rating == self.Rating && wins > self.Wins) {
				rank++
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return rank, nil
}

func profileKey(identity string) string {
	return profileKeyPrefix + identity
}

func profileFromFields(identity string, fields map[string]string) *entity.Profile {
	profile := &entity.Profile{
		Identity:    identity,
		DisplayName: fields["displayName"],
	}

	profile.Rating, _ = strconv.Atoi(fields["rating"])
	profile.Wins, _ = strconv.Atoi(fields["wins"])
	profile.Losses, _ = strconv.Atoi(fields["losses"])
	profile.GamesPlayed, _ = strconv.Atoi(fields["gamesPlayed"])

	if raw, ok := fields["lastActiveAt"]; ok {
		profile.LastActiveAt, _ = time.Parse(time.RFC3339, raw)
	}

	return profile
}

func fieldInt(raw interface{}) int {
	s, ok := raw.(string)
	if !ok {
		return 0
	}

	value, _ := strconv.Atoi(s)
	return value
}
