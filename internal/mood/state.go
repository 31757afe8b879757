// Package mood caches per-(character,user) emotional state (C5): an
// in-memory go-cache copy backed by a Redis write-through so state survives
// restarts, degrading to memory-only if Redis is unreachable. Grounded on
// _examples/rubicon-ClaraVerse/backend/internal/services/file_cache.go's
// go-cache-with-mutex shape.
package mood

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"charactermemory/internal/models"
)

// Store caches character emotional state, writing through to Redis on every
// mutation and degrading to memory-only when Redis is unavailable.
type Store struct {
	local *cache.Cache
	redis *redis.Client
	mu    sync.RWMutex

	redisHealthy bool
}

// New constructs a mood store. redisClient may be nil, in which case the
// store runs memory-only.
func New(redisClient *redis.Client) *Store {
	return &Store{
		local:        cache.New(cache.NoExpiration, 10*time.Minute),
		redis:        redisClient,
		redisHealthy: redisClient != nil,
	}
}

func redisKey(characterID, userID string) string {
	return fmt.Sprintf("mood:%s:%s", characterID, userID)
}

// Get returns the cached state for a pair, checking memory first, then
// Redis, then finally constructing a neutral default.
func (s *Store) Get(ctx context.Context, characterID, userID string) (*models.CharacterState, error) {
	key := redisKey(characterID, userID)

	s.mu.RLock()
	if v, ok := s.local.Get(key); ok {
		s.mu.RUnlock()
		state := v.(*models.CharacterState)
		clone := *state
		return &clone, nil
	}
	s.mu.RUnlock()

	if s.redis != nil {
		raw, err := s.redis.Get(ctx, key).Result()
		if err == nil {
			var state models.CharacterState
			if jerr := json.Unmarshal([]byte(raw), &state); jerr == nil {
				s.mu.Lock()
				s.local.Set(key, &state, cache.NoExpiration)
				s.mu.Unlock()
				clone := state
				return &clone, nil
			}
		} else if err != redis.Nil {
			s.markDegraded(err)
		}
	}

	return &models.CharacterState{
		CharacterID:         characterID,
		UserID:              userID,
		CurrentMood:         "neutral",
		MoodIntensity:       0.5,
		PersonalityEvolution: map[string]string{},
		LastInteraction:     time.Now(),
	}, nil
}

// Save writes the state to the in-memory cache and, best-effort, to Redis.
// A Redis failure is logged and does not fail the call: the caller always
// gets durable-enough-for-the-turn in-memory state.
func (s *Store) Save(ctx context.Context, state *models.CharacterState) error {
	key := redisKey(state.CharacterID, state.UserID)

	s.mu.Lock()
	clone := *state
	s.local.Set(key, &clone, cache.NoExpiration)
	s.mu.Unlock()

	if s.redis == nil {
		return nil
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal mood state: %w", err)
	}
	if err := s.redis.Set(ctx, key, raw, 0).Err(); err != nil {
		s.markDegraded(err)
	} else {
		s.mu.Lock()
		s.redisHealthy = true
		s.mu.Unlock()
	}
	return nil
}

func (s *Store) markDegraded(err error) {
	s.mu.Lock()
	wasHealthy := s.redisHealthy
	s.redisHealthy = false
	s.mu.Unlock()
	if wasHealthy {
		log.Printf("⚠️  [MOOD] redis unavailable, degrading to memory-only: %v", err)
	}
}

// Healthy reports whether Redis is considered reachable: any failed Redis
// call clears the flag, and only a successful Save sets it again.
func (s *Store) Healthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.redisHealthy
}
