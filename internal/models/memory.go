// Package models defines the tagged-variant data model shared by every
// engine: memories, entities, context windows, relationship state,
// character mood state, and rewards.
package models

import "time"

// MemoryType tags the lifecycle stage of a memory entry.
type MemoryType string

const (
	MemoryTypeBuffer      MemoryType = "buffer"
	MemoryTypeSummary     MemoryType = "summary"
	MemoryTypeResponse    MemoryType = "response"
	MemoryTypeUserMessage MemoryType = "user_message"
	MemoryTypeArchived    MemoryType = "archived"
	MemoryTypeCompressed  MemoryType = "compressed"
)

// ArchiveStatus tags where in the archive/compress lifecycle a memory sits.
type ArchiveStatus string

const (
	ArchiveStatusActive     ArchiveStatus = "active"
	ArchiveStatusArchived   ArchiveStatus = "archived"
	ArchiveStatusCompressed ArchiveStatus = "compressed"
)

// MemoryArchiveImportanceThreshold is the default importance ceiling below
// which an aged memory is eligible for archival.
const MemoryArchiveImportanceThreshold = 0.6

// MemoryEntry is a single stored recollection for a (character, user) pair.
type MemoryEntry struct {
	ID                 string
	CharacterID        string
	UserID             string
	ConversationID      string
	Content            string
	MemoryType         MemoryType
	Importance         float64
	EmotionalValence   float64
	RelationshipImpact float64
	RelatedEntityIDs   []string
	ArchiveStatus      ArchiveStatus
	CompressedContent  string
	CompressionRatio   float64
	CreatedAt          time.Time
	LastAccessed       time.Time
	AccessCount        int64
}

// DisplayContent returns the compressed form when present, otherwise the
// full content, alongside a flag indicating which was returned.
func (m *MemoryEntry) DisplayContent() (content string, wasCompressed bool) {
	if m.ArchiveStatus == ArchiveStatusCompressed && m.CompressedContent != "" {
		return m.CompressedContent, true
	}
	return m.Content, false
}
