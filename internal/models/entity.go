package models

import "time"

// EntityType classifies what kind of thing an Entity represents.
type EntityType string

const (
	EntityTypePerson  EntityType = "person"
	EntityTypePet     EntityType = "pet"
	EntityTypePlace   EntityType = "place"
	EntityTypeObject  EntityType = "object"
	EntityTypeConcept EntityType = "concept"
	EntityTypeProject EntityType = "project"
	EntityTypeEvent   EntityType = "event"
)

// Entity is a node in the per-user entity graph: a person, pet, place,
// object, concept, project, or event the user has mentioned.
type Entity struct {
	ID            string
	UserID        string
	Type          EntityType
	Name          string
	Aliases       []string
	Attributes    map[string]string
	Edges         map[string][]string // relationship_type -> entity ids
	FirstSeen     time.Time
	LastSeen      time.Time
	MentionCount  int
	Confidence    float64
}

// ContextWindow tracks the recently mentioned entities and inferred topic
// for one conversation, bounded to a fixed number of entities.
//
// EntityIDs is grouped into recency batches, most-recent batch first: every
// entity extracted from the same message shares a batch, so pronoun
// resolution can treat them as equally recent instead of arbitrarily
// ordering same-turn mentions.
type ContextWindow struct {
	ConversationID   string
	EntityIDs        [][]string
	CurrentTopic     string
	EmotionalContext string
	UpdatedAt        time.Time
}

// MaxContextWindowEntities bounds how many entities a ContextWindow retains.
const MaxContextWindowEntities = 10

// PushBatch adds the entity ids mentioned in one message as a single
// recency batch at the front of the window, removing them from any older
// batch and trimming the total id count to MaxContextWindowEntities.
func (c *ContextWindow) PushBatch(entityIDs []string) {
	if len(entityIDs) == 0 {
		return
	}

	seen := make(map[string]bool, len(entityIDs))
	batch := make([]string, 0, len(entityIDs))
	for _, id := range entityIDs {
		if !seen[id] {
			seen[id] = true
			batch = append(batch, id)
		}
	}

	filtered := make([][]string, 0, len(c.EntityIDs)+1)
	filtered = append(filtered, batch)
	for _, older := range c.EntityIDs {
		kept := make([]string, 0, len(older))
		for _, id := range older {
			if !seen[id] {
				kept = append(kept, id)
			}
		}
		if len(kept) > 0 {
			filtered = append(filtered, kept)
		}
	}

	total := 0
	trimmed := make([][]string, 0, len(filtered))
	for _, b := range filtered {
		if total >= MaxContextWindowEntities {
			break
		}
		if total+len(b) > MaxContextWindowEntities {
			b = b[:MaxContextWindowEntities-total]
		}
		trimmed = append(trimmed, b)
		total += len(b)
	}
	c.EntityIDs = trimmed
}
