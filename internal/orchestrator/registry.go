// Package orchestrator implements the chat orchestrator (C6): the single
// per-turn state machine that sequences mood update, memory ingest,
// retrieval, prompt assembly, LLM invocation, and post-turn persistence
// under a hard latency budget. Grounded on
// _examples/rubicon-ClaraVerse/backend/internal/services/connection_manager.go's
// map-with-RWMutex per-key registry pattern, adapted from connections to
// per-(character,user) pair turn serialization.
package orchestrator

import (
	"errors"
	"sync"

	"golang.org/x/time/rate"
)

// ErrBusy is returned when a pair already has a turn in flight and its
// bounded pending queue is full.
var ErrBusy = errors.New("orchestrator: pair busy")

// pairSlot holds the per-pair serialization primitives: a mutex so only one
// turn mutates a pair's state at a time, a bounded semaphore standing in
// for the "pending queue" (queueSize slots, the in-flight turn included, so
// with the default of 1 a second concurrent turn is rejected), and a
// token-bucket limiter enforcing the minimum inter-turn interval.
type pairSlot struct {
	mu      sync.Mutex
	pending chan struct{}
	limiter *rate.Limiter
}

// Registry tracks one pairSlot per (character,user), created lazily.
type Registry struct {
	mu            sync.RWMutex
	slots         map[string]*pairSlot
	queueSize     int
	minInterval   rate.Limit
}

// NewRegistry constructs a Registry. queueSize bounds pending turns per
// pair (default 1 per spec.md section 4.6). minInterval is the minimum
// seconds between turns for a pair, expressed as events/sec for
// golang.org/x/time/rate (0 disables rate limiting).
func NewRegistry(queueSize int, minIntervalPerSec rate.Limit) *Registry {
	if queueSize <= 0 {
		queueSize = 1
	}
	if minIntervalPerSec == 0 {
		minIntervalPerSec = rate.Inf
	}
	return &Registry{
		slots:       make(map[string]*pairSlot),
		queueSize:   queueSize,
		minInterval: minIntervalPerSec,
	}
}

func (r *Registry) slot(key string) *pairSlot {
	r.mu.RLock()
	s, ok := r.slots[key]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.slots[key]; ok {
		return s
	}
	s = &pairSlot{
		pending: make(chan struct{}, r.queueSize),
		limiter: rate.NewLimiter(r.minInterval, 1),
	}
	r.slots[key] = s
	return s
}

// Acquire reserves a turn slot for key, returning ErrBusy if the pending
// queue is already full, or ErrRateLimited if the pair's minimum inter-turn
// interval hasn't elapsed. The returned release func must be called exactly
// once when the turn completes.
func (r *Registry) Acquire(key string) (release func(), err error) {
	s := r.slot(key)

	select {
	case s.pending <- struct{}{}:
	default:
		return nil, ErrBusy
	}

	if s.limiter != nil && !s.limiter.Allow() {
		<-s.pending
		return nil, ErrRateLimited
	}

	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		<-s.pending
	}, nil
}

// ErrRateLimited is returned when a turn arrives before the pair's minimum
// inter-turn interval has elapsed.
var ErrRateLimited = errors.New("orchestrator: rate limited")

func pairKey(characterID, userID string) string {
	return characterID + "\x00" + userID
}
