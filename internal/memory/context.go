package memory

import (
	"context"
	"fmt"
	"strings"

	"charactermemory/internal/models"
)

// GetContextRequest parameterizes context reconstruction.
type GetContextRequest struct {
	CharacterID      string
	UserID           string
	ConversationID   string
	SemanticQuery    string
	MaxMemories      int
	MinImportance    float64
	IncludeEmotional bool
}

// GetContext reconstructs the ranked context bundle for a turn, per
// SPEC_FULL.md section 4.3. Results are cached per (pair, conversation_id)
// for CacheTTL and invalidated on any write to that pair.
func (e *Engine) GetContext(ctx context.Context, req GetContextRequest) (*models.ContextBundle, error) {
	cacheKey := req.CharacterID + "\x00" + req.UserID + "\x00" + req.ConversationID
	if v, ok := e.contextCache.Get(cacheKey); ok {
		bundle := v.(*models.ContextBundle)
		cloned := *bundle
		cloned.FromCache = true
		return &cloned, nil
	}

	store, err := e.registry.Open(req.CharacterID, req.UserID)
	if err != nil {
		return e.degradedBundle(req, err), nil
	}

	maxMemories := req.MaxMemories
	if maxMemories <= 0 {
		maxMemories = 10
	}

	recent, err := store.QueryByTypes(ctx, bufferTierTypes, maxMemories)
	if err != nil {
		return e.degradedBundle(req, err), nil
	}

	minImportance := req.MinImportance
	if minImportance <= 0 {
		minImportance = 0.5
	}
	important, err := store.QueryByImportance(ctx, minImportance, maxMemories)
	if err != nil {
		important = nil
	}

	if req.SemanticQuery != "" {
		important = rankBySemanticOverlap(important, req.SemanticQuery)
	}

	topEntities, err := store.TopEntities(ctx, 20)
	if err != nil {
		topEntities = nil
	}

	summaries, err := store.QueryByType(ctx, models.MemoryTypeSummary, 5)
	if err != nil {
		summaries = nil
	}

	bundle := &models.ContextBundle{
		Recent:    recent,
		Important: important,
		Entities:  topEntities,
		Topic:     inferPrimaryTopic(recent),
	}

	if len(summaries) > 0 {
		bundle.SummaryContext = summaries[0].Content
		for _, s := range summaries[1:] {
			bundle.SummaryPreviews = append(bundle.SummaryPreviews, preview(s.Content, 60))
		}
	}

	if req.IncludeEmotional {
		bundle.EmotionalContext, bundle.EmotionalHistory = emotionalSummary(recent)
	}

	bundle.Stats = buildStats(ctx, store)
	bundle.ProfileInsights = buildProfileInsights(recent, topEntities)
	bundle.PersonalDetails = e.ExtractPersonalDetails(ctx, req.CharacterID, req.UserID)

	if e.cfg.CacheSize <= 0 || e.contextCache.ItemCount() < e.cfg.CacheSize {
		e.cacheMu.Lock()
		pair := req.CharacterID + "\x00" + req.UserID
		e.cacheKeys[pair] = append(e.cacheKeys[pair], cacheKey)
		e.cacheMu.Unlock()
		e.contextCache.Set(cacheKey, bundle, 0)
	}

	return bundle, nil
}

func (e *Engine) degradedBundle(req GetContextRequest, err error) *models.ContextBundle {
	return &models.ContextBundle{DegradedReason: fmt.Sprintf("storage unavailable: %v", err)}
}

func rankBySemanticOverlap(memories []*models.MemoryEntry, query string) []*models.MemoryEntry {
	queryTokens := tokenSet(query)
	type scored struct {
		mem   *models.MemoryEntry
		score int
	}
	scoredList := make([]scored, 0, len(memories))
	for _, m := range memories {
		overlap := 0
		for tok := range tokenSet(m.Content) {
			if queryTokens[tok] {
				overlap++
			}
		}
		scoredList = append(scoredList, scored{mem: m, score: overlap})
	}
	// stable insertion sort by score desc, deterministic given same inputs
	for i := 1; i < len(scoredList); i++ {
		for j := i; j > 0 && scoredList[j].score > scoredList[j-1].score; j-- {
			scoredList[j], scoredList[j-1] = scoredList[j-1], scoredList[j]
		}
	}
	out := make([]*models.MemoryEntry, len(scoredList))
	for i, s := range scoredList {
		out[i] = s.mem
	}
	return out
}

func tokenSet(s string) map[string]bool {
	out := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		out[tok] = true
	}
	return out
}

// inferPrimaryTopic falls back to the most recent memory's content when a
// caller needs a topic outside the ingest path, where the context window
// already tracks current_topic directly.
func inferPrimaryTopic(memories []*models.MemoryEntry) string {
	if len(memories) == 0 {
		return "general"
	}
	return topicFromContent(memories[0].Content)
}

func buildStats(ctx context.Context, store interface {
	CountByType(ctx context.Context, t models.MemoryType) (int, error)
	CountByTypes(ctx context.Context, types []models.MemoryType) (int, error)
}) models.ContextStats {
	var stats models.ContextStats
	if n, err := store.CountByTypes(ctx, bufferTierTypes); err == nil {
		stats.BufferCount = n
	}
	if n, err := store.CountByType(ctx, models.MemoryTypeSummary); err == nil {
		stats.SummaryCount = n
	}
	stats.TotalMemories = stats.BufferCount + stats.SummaryCount
	return stats
}

func buildProfileInsights(recent []*models.MemoryEntry, entities []*models.Entity) models.ProfileInsights {
	questions, emotional, analytical := 0, 0, 0
	for _, m := range recent {
		if strings.Contains(m.Content, "?") {
			questions++
		}
		if m.EmotionalValence != 0 {
			emotional++
		}
		if len(strings.Fields(m.Content)) > 20 {
			analytical++
		}
	}

	style := "conversational"
	switch {
	case questions > len(recent)/2 && len(recent) > 0:
		style = "inquisitive"
	case emotional > len(recent)/2 && len(recent) > 0:
		style = "emotional"
	case analytical > len(recent)/2 && len(recent) > 0:
		style = "analytical"
	}

	top := make([]string, 0, 5)
	for i, e := range entities {
		if i >= 5 {
			break
		}
		top = append(top, e.Name)
	}

	return models.ProfileInsights{CommunicationStyle: style, TopInterests: top}
}

func emotionalSummary(recent []*models.MemoryEntry) (latest string, history []string) {
	for _, m := range recent {
		if m.EmotionalValence > 0 {
			history = append(history, "positive")
		} else if m.EmotionalValence < 0 {
			history = append(history, "negative")
		}
	}
	if len(history) > 0 {
		latest = history[0]
	}
	return latest, history
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

func topicFromContent(content string) string {
	lower := strings.ToLower(content)
	switch {
	case strings.Contains(lower, "work") || strings.Contains(lower, "job"):
		return "work"
	case strings.Contains(lower, "family") || strings.Contains(lower, "mother") || strings.Contains(lower, "father"):
		return "family"
	case strings.Contains(lower, "dog") || strings.Contains(lower, "cat") || strings.Contains(lower, "pet"):
		return "pets"
	case strings.Contains(lower, "sick") || strings.Contains(lower, "health") || strings.Contains(lower, "doctor"):
		return "health"
	case strings.Contains(lower, "project") || strings.Contains(lower, "working on"):
		return "projects"
	default:
		return "general"
	}
}
