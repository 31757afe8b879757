package models

// CharacterDescriptor is the minimal shape the core needs from the
// (external) character loader: identity, persona fields, and where its
// memory database lives.
type CharacterDescriptor struct {
	ID              string
	Name            string
	PersonaFields   map[string]string // e.g. "tone", "background", "voice"
	MemoryDBPath    string
	LearningEnabled bool
}
