package memory

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"charactermemory/internal/entity"
	"charactermemory/internal/models"
	"charactermemory/internal/storage"
)

// summarize generates a textual summary of the current buffer (top
// entities, topic distribution, emotional-interaction count), inserts it
// as a memory_type=summary row, and shrinks the buffer to the 10 most
// recent entries, per SPEC_FULL.md section 4.3.
func (e *Engine) summarize(ctx context.Context, store *storage.PairStore, characterID, userID string) error {
	buffer, err := store.QueryByTypes(ctx, bufferTierTypes, e.cfg.SummaryThreshold+50)
	if err != nil {
		return err
	}
	if len(buffer) == 0 {
		return nil
	}

	topEntities, err := store.TopEntities(ctx, 5)
	if err != nil {
		topEntities = nil
	}

	topics := make(map[string]int)
	emotional := 0
	for _, m := range buffer {
		if m.EmotionalValence != 0 {
			emotional++
		}
		topics[entity.ExtractTopic(m.Content)]++
	}

	text := "Summary covering " + fmt.Sprint(len(buffer)) + " exchanges."
	if len(topEntities) > 0 {
		text += " Frequently mentioned: "
		for i, ent := range topEntities {
			if i > 0 {
				text += ", "
			}
			text += ent.Name
		}
		text += "."
	}
	if len(topics) > 0 {
		text += " Topics: " + topicDistribution(topics) + "."
	}
	if emotional > 0 {
		text += fmt.Sprintf(" %d emotionally significant exchanges.", emotional)
	}

	summary := &models.MemoryEntry{
		ID:             StableMemoryID(characterID, userID, "summary", text+time.Now().String()),
		CharacterID:    characterID,
		UserID:         userID,
		ConversationID: "summary",
		Content:        text,
		MemoryType:     models.MemoryTypeSummary,
		Importance:     0.8,
		ArchiveStatus:  models.ArchiveStatusActive,
		CreatedAt:      time.Now(),
		LastAccessed:   time.Now(),
	}
	if err := store.InsertMemory(ctx, summary); err != nil {
		return fmt.Errorf("insert summary: %w", err)
	}

	// Shrink buffer to the most recent 10; everything else older becomes
	// summary-tier (append-only — we never re-summarize a summary).
	recentBuffer, err := store.QueryByTypes(ctx, bufferTierTypes, 10)
	if err != nil {
		return err
	}
	keep := make(map[string]bool, len(recentBuffer))
	for _, m := range recentBuffer {
		keep[m.ID] = true
	}
	for _, m := range buffer {
		if keep[m.ID] {
			continue
		}
		m.MemoryType = models.MemoryTypeSummary
		if err := store.UpdateMemory(ctx, m); err != nil {
			log.Printf("⚠️ [MEMORY] failed to demote buffer entry %s: %v", m.ID, err)
		}
	}

	return nil
}

// topicDistribution renders a deterministic "topic (n), topic (n)" string,
// ordered by descending count then topic name.
func topicDistribution(topics map[string]int) string {
	names := make([]string, 0, len(topics))
	for name := range topics {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if topics[names[i]] != topics[names[j]] {
			return topics[names[i]] > topics[names[j]]
		}
		return names[i] < names[j]
	})
	out := ""
	for i, name := range names {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s (%d)", name, topics[name])
	}
	return out
}

// RunMaintenance performs the archive/compress pass for a single pair,
// invoked opportunistically every ~100 ingests or on a cron schedule by
// internal/jobs, per SPEC_FULL.md section 4.3/4.7.
func (e *Engine) RunMaintenance(ctx context.Context, characterID, userID string) error {
	store, err := e.registry.Open(characterID, userID)
	if err != nil {
		return err
	}

	now := time.Now()
	archiveCutoff := now.AddDate(0, 0, -e.cfg.ArchiveAfterDays)
	compressCutoff := now.AddDate(0, 0, -e.cfg.CompressAfterDays)

	archivable, err := store.MemoriesOlderThan(ctx, archiveCutoff, models.ArchiveStatusActive)
	if err != nil {
		return fmt.Errorf("query archivable: %w", err)
	}
	for _, m := range archivable {
		if m.Importance >= e.cfg.ArchiveImportanceBelow {
			continue
		}
		m.ArchiveStatus = models.ArchiveStatusArchived
		if err := store.UpdateMemory(ctx, m); err != nil {
			log.Printf("⚠️ [MEMORY] archive failed for %s: %v", m.ID, err)
		}
	}

	compressible, err := store.MemoriesOlderThan(ctx, compressCutoff, models.ArchiveStatusActive)
	if err != nil {
		return fmt.Errorf("query compressible: %w", err)
	}
	for _, m := range compressible {
		if len(m.Content) <= e.cfg.CompressContentMinLen {
			continue
		}
		m.CompressedContent = compress(m.Content)
		m.CompressionRatio = float64(len(m.CompressedContent)) / float64(len(m.Content))
		m.ArchiveStatus = models.ArchiveStatusCompressed
		if err := store.UpdateMemory(ctx, m); err != nil {
			log.Printf("⚠️ [MEMORY] compress failed for %s: %v", m.ID, err)
		}
	}

	if err := store.Vacuum(ctx); err != nil {
		log.Printf("⚠️ [MEMORY] vacuum failed for %s/%s: %v", characterID, userID, err)
	}
	if err := store.Analyze(ctx); err != nil {
		log.Printf("⚠️ [MEMORY] analyze failed for %s/%s: %v", characterID, userID, err)
	}

	e.invalidateCache(characterID, userID)
	return nil
}

// compress produces a head(100) + marker + tail(50) representation,
// targeting a compression ratio of roughly 0.3 as specified.
func compress(content string) string {
	const head, tail = 100, 50
	if len(content) <= head+tail {
		return content
	}
	return content[:head] + " … [COMPRESSED] … " + content[len(content)-tail:]
}
