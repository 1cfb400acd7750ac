package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"sahayak/internal/workflow/models"
	"sahayak/pkg/domain"
	"sahayak/pkg/platform/sentinel"
)

var casConflicts = promauto.NewCounter(prometheus.CounterOpts{
	Name: "sahayak_session_cas_conflicts_total",
	Help: "Session writes rejected because another writer got there first",
})

const (
	sessionKeyPrefix = "sahayak:session:"
	ownerKeyPrefix   = "sahayak:owner-sessions:"
	// activityKey is a sorted set of session ids scored by last activity in
	// unix seconds.
	activityKey = "sahayak:session-activity"
)

// Redis keeps each session as a JSON value that expires after the
// retention window. An owner index and an activity index support owner
// deletion and purging.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

type RedisOption func(*Redis)

// WithTTL sets how long an untouched session survives in Redis.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{client: client, ttl: 90 * 24 * time.Hour}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func sessionKey(id domain.SessionID) string { return sessionKeyPrefix + id.String() }
func ownerKey(owner domain.OwnerID) string  { return ownerKeyPrefix + owner.String() }

// Create writes the session and its index entries in one MULTI under
// WATCH, so a session never exists without being indexed.
func (r *Redis) Create(ctx context.Context, session *models.Session) error {
	stored := session.Clone()
	stored.Version = 1
	payload, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	key := sessionKey(session.ID)
	txf := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("session %s: %w", session.ID, sentinel.ErrConflict)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, r.ttl)
			pipe.SAdd(ctx, ownerKey(session.OwnerID), session.ID.String())
			pipe.ZAdd(ctx, activityKey, activity(stored))
			return nil
		})
		return err
	}
	err = r.client.Watch(ctx, txf, key)
	switch {
	case errors.Is(err, redis.TxFailedErr):
		return fmt.Errorf("session %s: %w", session.ID, sentinel.ErrConflict)
	case errors.Is(err, sentinel.ErrConflict):
		return err
	case err != nil:
		return fmt.Errorf("create session: %w", err)
	}
	session.Version = 1
	return nil
}

func (r *Redis) Get(ctx context.Context, id domain.SessionID) (*models.Session, error) {
	raw, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return decode(raw)
}

// CompareAndSwap stores next under WATCH if the stored version still
// equals next.Version. A write that lost the race surfaces as ErrConflict.
func (r *Redis) CompareAndSwap(ctx context.Context, next *models.Session) (*models.Session, error) {
	key := sessionKey(next.ID)
	var stored *models.Session
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return err
		}
		current, err := decode(raw)
		if err != nil {
			return err
		}
		if current.Version != next.Version {
			return fmt.Errorf("session %s at version %d, have %d: %w", next.ID, current.Version, next.Version, sentinel.ErrConflict)
		}
		updated := next.Clone()
		updated.Version = current.Version + 1
		payload, err := json.Marshal(updated)
		if err != nil {
			return fmt.Errorf("encode session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, r.ttl)
			pipe.ZAdd(ctx, activityKey, activity(updated))
			return nil
		})
		if err != nil {
			return err
		}
		stored = updated
		return nil
	}

	err := r.client.Watch(ctx, txf, key)
	switch {
	case err == nil:
		return stored.Clone(), nil
	case errors.Is(err, redis.TxFailedErr):
		casConflicts.Inc()
		return nil, fmt.Errorf("session %s changed concurrently: %w", next.ID, sentinel.ErrConflict)
	case errors.Is(err, sentinel.ErrConflict):
		casConflicts.Inc()
		return nil, err
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, err
	}
	return nil, fmt.Errorf("update session: %w", err)
}

func (r *Redis) ListByOwner(ctx context.Context, owner domain.OwnerID) ([]*models.Session, error) {
	ids, err := r.client.SMembers(ctx, ownerKey(owner)).Result()
	if err != nil {
		return nil, fmt.Errorf("list owner sessions: %w", err)
	}
	out := make([]*models.Session, 0, len(ids))
	payloads, err := r.loadAll(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, raw := range payloads {
		session, err := decode(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, session)
	}
	sortByCreation(out)
	return out, nil
}

// ListActiveSince reads the activity index from since onwards. Sessions
// that expired in Redis may still be listed until the next purge.
func (r *Redis) ListActiveSince(ctx context.Context, since time.Time) ([]domain.SessionID, error) {
	members, err := r.client.ZRangeByScore(ctx, activityKey, &redis.ZRangeBy{
		Min: strconv.FormatInt(since.Unix(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	ids := make([]domain.SessionID, 0, len(members))
	for _, m := range members {
		id, err := domain.ParseSessionID(m)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *Redis) DeleteByOwner(ctx context.Context, owner domain.OwnerID) (int, error) {
	ids, err := r.client.SMembers(ctx, ownerKey(owner)).Result()
	if err != nil {
		return 0, fmt.Errorf("list owner sessions: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	dels := make([]*redis.IntCmd, 0, len(ids))
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		members := make([]any, 0, len(ids))
		for _, id := range ids {
			dels = append(dels, pipe.Del(ctx, sessionKeyPrefix+id))
			members = append(members, id)
		}
		pipe.ZRem(ctx, activityKey, members...)
		pipe.Del(ctx, ownerKey(owner))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete owner sessions: %w", err)
	}
	deleted := 0
	for _, cmd := range dels {
		deleted += int(cmd.Val())
	}
	return deleted, nil
}

// PurgeInactiveBefore removes sessions whose last activity is before cutoff.
// Sessions Redis already expired are dropped from the indexes and not
// returned.
func (r *Redis) PurgeInactiveBefore(ctx context.Context, cutoff time.Time) ([]*models.Session, error) {
	upper := "(" + strconv.FormatInt(cutoff.Unix(), 10)
	ids, err := r.client.ZRangeByScore(ctx, activityKey, &redis.ZRangeBy{Min: "-inf", Max: upper}).Result()
	if err != nil {
		return nil, fmt.Errorf("find inactive sessions: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	payloads, err := r.loadAll(ctx, ids)
	if err != nil {
		return nil, err
	}

	var purged []*models.Session
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.ZRem(ctx, activityKey, id)
			raw, ok := payloads[id]
			if !ok {
				continue
			}
			session, err := decode(raw)
			if err != nil {
				pipe.Del(ctx, sessionKeyPrefix+id)
				continue
			}
			pipe.Del(ctx, sessionKeyPrefix+id)
			pipe.SRem(ctx, ownerKey(session.OwnerID), id)
			purged = append(purged, session)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("purge sessions: %w", err)
	}
	sortByCreation(purged)
	return purged, nil
}

// loadAll fetches the payloads of ids that still exist, keyed by id.
func (r *Redis) loadAll(ctx context.Context, ids []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = sessionKeyPrefix + id
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	for i, v := range values {
		if s, ok := v.(string); ok {
			out[ids[i]] = []byte(s)
		}
	}
	return out, nil
}

func decode(raw []byte) (*models.Session, error) {
	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

func activity(s *models.Session) redis.Z {
	return redis.Z{Score: float64(s.LastActivityAt.Unix()), Member: s.ID.String()}
}
