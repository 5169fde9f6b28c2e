// internal/session/store.go
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"finsight/internal/common/database"
	commonerrors "finsight/internal/common/errors"
	"finsight/internal/common/logger"
	"finsight/internal/models"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:hints:"

// Store keeps per-user session hints in Redis so follow-up queries can
// reuse the entities, currency and weights of the previous one.
type Store struct {
	redis  *database.RedisClient
	ttl    time.Duration
	logger logger.Logger
}

func NewStore(redisClient *database.RedisClient, ttl time.Duration, log logger.Logger) *Store {
	return &Store{
		redis:  redisClient,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "session"}),
	}
}

// Load returns the stored hints for a user, or nil when the user has no
// session yet. A corrupt record is dropped and treated as absent.
func (s *Store) Load(ctx context.Context, userID string) (*models.SessionHints, error) {
	raw, err := s.redis.Get(ctx, keyPrefix+userID)
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, commonerrors.NewSessionLoadFailedError(err)
	}

	var hints models.SessionHints
	if err := json.Unmarshal([]byte(raw), &hints); err != nil {
		s.logger.Warn("corrupt session record dropped", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		_ = s.redis.Del(ctx, keyPrefix+userID)
		return nil, nil
	}

	return &hints, nil
}

// Save stores the hints derived from a completed query. A save failure
// is logged, not propagated; losing a hint only costs the next query
// some resolution work.
func (s *Store) Save(ctx context.Context, userID string, hints *models.SessionHints) {
	if hints == nil {
		return
	}

	payload, err := json.Marshal(hints)
	if err != nil {
		s.logger.Error("session hints marshal failed", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return
	}

	if err := s.redis.Set(ctx, keyPrefix+userID, string(payload), s.ttl); err != nil {
		s.logger.Warn("session hints save failed", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
}

// HintsFromIntent derives the next session's hints from a successfully
// classified intent, merging confirmed resolutions into the existing map.
func HintsFromIntent(prev *models.SessionHints, intent *models.Intent) *models.SessionHints {
	next := &models.SessionHints{
		LastCurrency: intent.Currency,
		Resolved:     map[string]string{},
	}
	if prev != nil {
		for mention, id := range prev.Resolved {
			next.Resolved[mention] = id
		}
	}

	record := func(e models.ResolvedEntity) {
		next.LastEntities = append(next.LastEntities, e)
		// Keys are lowercased to match resolver lookup.
		if e.Mention != "" && e.ID() != "" {
			next.Resolved[strings.ToLower(strings.TrimSpace(e.Mention))] = e.ID()
		}
	}

	switch intent.Kind {
	case models.IntentPortfolio:
		for _, a := range intent.Allocations {
			record(a.Entity)
			next.LastWeights = append(next.LastWeights, a.Weight)
		}
	default:
		for _, e := range intent.Entities {
			record(e)
		}
	}

	return next
}

// Clear removes a user's session, e.g. on an explicit reset.
func (s *Store) Clear(ctx context.Context, userID string) error {
	if err := s.redis.Del(ctx, keyPrefix+userID); err != nil {
		return fmt.Errorf("session clear failed: %w", err)
	}
	return nil
}
