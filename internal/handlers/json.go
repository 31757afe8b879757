package handlers

import (
	"github.com/gofiber/fiber/v2"

	"charactermemory/internal/models"
)

func relationshipStateJSON(s *models.RelationshipState) fiber.Map {
	return fiber.Map{
		"level":       s.Level,
		"description": models.LevelLabel(s.Level),
		"trust_level": s.TrustScore,
		"metrics": fiber.Map{
			"conversations":      s.Conversations,
			"time_minutes":       s.TimeMinutes,
			"emotional_moments":  s.EmotionalMoments,
			"memories_shared":    s.MemoriesShared,
			"conflicts_resolved": s.ConflictsResolved,
			"growth_events":      s.GrowthEvents,
			"consistency_score":  s.ConsistencyScore,
			"authenticity_score": s.AuthenticityScore,
		},
		"last_interaction": s.LastInteraction,
	}
}

func rewardJSON(r *models.Reward) fiber.Map {
	return fiber.Map{
		"rank":           r.Rank,
		"user_id":        r.UserID,
		"character_id":   r.CharacterID,
		"awarded_at":     r.AwardedAt,
		"wallet_address": r.WalletAddress,
		"minted":         r.Minted,
	}
}

func memoryEntryJSON(m *models.MemoryEntry) fiber.Map {
	content, compressed := m.DisplayContent()
	return fiber.Map{
		"id":                  m.ID,
		"character_id":        m.CharacterID,
		"user_id":             m.UserID,
		"conversation_id":     m.ConversationID,
		"content":             content,
		"compressed":          compressed,
		"memory_type":         m.MemoryType,
		"importance":          m.Importance,
		"emotional_valence":   m.EmotionalValence,
		"relationship_impact": m.RelationshipImpact,
		"archive_status":      m.ArchiveStatus,
		"created_at":          m.CreatedAt,
		"last_accessed":       m.LastAccessed,
		"access_count":        m.AccessCount,
	}
}
