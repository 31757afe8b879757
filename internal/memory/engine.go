package memory

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"charactermemory/internal/entity"
	"charactermemory/internal/models"
	"charactermemory/internal/storage"
)

// Config holds the engine's tunable thresholds, sourced from
// internal/config.Config at wiring time.
type Config struct {
	BufferWindowSize       int
	SummaryThreshold       int
	ArchiveAfterDays       int
	ArchiveImportanceBelow float64
	CompressAfterDays      int
	CompressContentMinLen  int
	IngestMilestone        int
	CacheSize              int
	CacheTTL               time.Duration
}

// bufferTierTypes are the memory_type values that make up the hot buffer
// tier: live chat turns are ingested as user_message/response, not buffer,
// so every buffer-tier query must span all three.
var bufferTierTypes = []models.MemoryType{
	models.MemoryTypeBuffer,
	models.MemoryTypeUserMessage,
	models.MemoryTypeResponse,
}

// DefaultConfig returns the defaults named in spec.md.
func DefaultConfig() Config {
	return Config{
		BufferWindowSize:       50,
		SummaryThreshold:       100,
		ArchiveAfterDays:       90,
		ArchiveImportanceBelow: 0.6,
		CompressAfterDays:      60,
		CompressContentMinLen:  200,
		IngestMilestone:        100,
		CacheSize:              50,
		CacheTTL:               5 * time.Minute,
	}
}

// Engine is the memory engine (C3): ingest, tiering, and retrieval for all
// pairs, backed by the storage registry.
type Engine struct {
	registry *storage.Registry
	cfg      Config

	contextCache *cache.Cache
	cacheMu      sync.Mutex
	cacheKeys    map[string][]string // pair -> cache keys, for invalidation

	ingestCounters   map[string]int
	ingestCountersMu sync.Mutex

	onMilestone func(characterID, userID string)
}

// New constructs a memory Engine over the given storage registry.
func New(registry *storage.Registry, cfg Config) *Engine {
	return &Engine{
		registry:       registry,
		cfg:            cfg,
		contextCache:   cache.New(cfg.CacheTTL, cfg.CacheTTL),
		cacheKeys:      make(map[string][]string),
		ingestCounters: make(map[string]int),
	}
}

// OnMilestone registers a callback fired every IngestMilestone ingests for
// a pair, used by internal/jobs to trigger maintenance opportunistically.
func (e *Engine) OnMilestone(fn func(characterID, userID string)) {
	e.onMilestone = fn
}

// IngestResult reports what the ingest pipeline decided about a message.
type IngestResult struct {
	Memory       *models.MemoryEntry
	EntityIDs    []string
	Topic        string
	Ambiguous    []string
	Promoted     bool
	Summarized   bool
}

// Ingest runs the per-message pipeline from SPEC_FULL.md section 4.3: id
// derivation, entity extraction/association, importance scoring, topic
// detection, buffer insertion, and buffer-window/summary enforcement.
func (e *Engine) Ingest(ctx context.Context, characterID, userID, conversationID, content string, memType models.MemoryType) (*IngestResult, error) {
	store, err := e.registry.Open(characterID, userID)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	window, err := store.GetContextWindow(ctx, conversationID)
	if err != nil {
		window = &models.ContextWindow{ConversationID: conversationID, UpdatedAt: time.Now()}
	}

	primed := make(map[string]bool)
	topEntities, _ := store.TopEntities(ctx, 50)
	byID := make(map[string]*models.Entity, len(topEntities))
	for _, ent := range topEntities {
		primed[ent.Name] = true
		byID[ent.ID] = ent
	}

	candidates := entity.Extract(content, primed)

	now := time.Now()
	var entityIDs []string
	for _, c := range candidates {
		ent := &models.Entity{
			ID:           entityID(userID, c.Type, c.Name),
			UserID:       userID,
			Type:         models.EntityType(c.Type),
			Name:         c.Name,
			Aliases:      []string{},
			Attributes:   c.Attributes,
			FirstSeen:    now,
			LastSeen:     now,
			MentionCount: 1,
			Confidence:   0.8,
		}
		if ent.Attributes == nil {
			ent.Attributes = map[string]string{}
		}
		if err := store.UpsertEntity(ctx, ent); err != nil {
			log.Printf("⚠️ [MEMORY] entity upsert failed for %s: %v", c.Name, err)
			continue
		}
		entityIDs = append(entityIDs, ent.ID)
	}
	window.PushBatch(entityIDs)

	_, ambiguous := entity.Resolve(content, window, byID)

	window.CurrentTopic = entity.ExtractTopic(content)
	if err := store.SaveContextWindow(ctx, window); err != nil {
		log.Printf("⚠️ [MEMORY] context window save failed: %v", err)
	}

	importance := ImportanceScore(content, len(entityIDs))
	valence := 0.0
	if HasEmotionalContext(content) {
		valence = 0.5
	}

	mem := &models.MemoryEntry{
		ID:                 StableMemoryID(characterID, userID, conversationID, content),
		CharacterID:        characterID,
		UserID:             userID,
		ConversationID:     conversationID,
		Content:            content,
		MemoryType:         memType,
		Importance:         importance,
		EmotionalValence:   valence,
		RelatedEntityIDs:   entityIDs,
		ArchiveStatus:      models.ArchiveStatusActive,
		CreatedAt:          now,
		LastAccessed:       now,
		AccessCount:        0,
	}

	if err := store.InsertMemory(ctx, mem); err != nil {
		return nil, fmt.Errorf("insert memory: %w", err)
	}

	e.invalidateCache(characterID, userID)

	result := &IngestResult{Memory: mem, EntityIDs: entityIDs, Topic: window.CurrentTopic, Ambiguous: ambiguous}

	if memType == models.MemoryTypeBuffer || memType == models.MemoryTypeUserMessage || memType == models.MemoryTypeResponse {
		if err := e.enforceBufferWindow(ctx, store, characterID, userID); err != nil {
			log.Printf("⚠️ [MEMORY] buffer window enforcement failed: %v", err)
		} else {
			result.Promoted = true
		}
	}

	e.bumpIngestCounter(characterID, userID)

	return result, nil
}

func entityID(userID, entityType, name string) string {
	return StableMemoryID("entity", userID, entityType, strings.ToLower(strings.TrimSpace(name)))
}

func (e *Engine) bumpIngestCounter(characterID, userID string) {
	key := characterID + "\x00" + userID
	e.ingestCountersMu.Lock()
	e.ingestCounters[key]++
	count := e.ingestCounters[key]
	milestone := e.cfg.IngestMilestone
	if milestone <= 0 {
		milestone = 100
	}
	hit := count%milestone == 0
	e.ingestCountersMu.Unlock()

	if hit && e.onMilestone != nil {
		e.onMilestone(characterID, userID)
	}
}

func (e *Engine) invalidateCache(characterID, userID string) {
	pair := characterID + "\x00" + userID
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	for _, key := range e.cacheKeys[pair] {
		e.contextCache.Delete(key)
	}
	delete(e.cacheKeys, pair)
}

// enforceBufferWindow trims the buffer to BufferWindowSize by moving the
// oldest overflow out of the buffer tier: entries with importance below 0.5
// are archived, the rest are relabelled as summary rows (their content is
// kept as is; no summary text is generated here). It triggers summarization
// instead if the summary threshold is crossed.
func (e *Engine) enforceBufferWindow(ctx context.Context, store *storage.PairStore, characterID, userID string) error {
	count, err := store.CountByTypes(ctx, bufferTierTypes)
	if err != nil {
		return err
	}

	if count > e.cfg.SummaryThreshold {
		return e.summarize(ctx, store, characterID, userID)
	}

	if count > e.cfg.BufferWindowSize {
		overflow := count - e.cfg.BufferWindowSize
		oldest, err := store.OldestOfTypes(ctx, bufferTierTypes, overflow)
		if err != nil {
			return err
		}
		for _, m := range oldest {
			if m.Importance < 0.5 {
				m.ArchiveStatus = models.ArchiveStatusArchived
				m.MemoryType = models.MemoryTypeArchived
			} else {
				m.MemoryType = models.MemoryTypeSummary
			}
			if err := store.UpdateMemory(ctx, m); err != nil {
				return err
			}
		}
	}

	return nil
}
