package models

import "time"

// EmotionalEvent is one entry in a CharacterState's bounded trajectory ring.
type EmotionalEvent struct {
	Emotion    string
	Intensity  float64
	OccurredAt time.Time
	Source     string // "user" or "character"
}

// MaxTrajectoryEvents bounds the emotional trajectory ring buffer.
const MaxTrajectoryEvents = 20

// CharacterState is the mood/emotional-state snapshot for one
// (character, user) pair.
type CharacterState struct {
	CharacterID         string
	UserID              string
	CurrentMood         string
	MoodIntensity       float64
	EmotionalTrajectory []EmotionalEvent
	PersonalityEvolution map[string]string
	LastInteraction     time.Time
}

// PushEvent appends an emotional event, trimming the trajectory to
// MaxTrajectoryEvents from the most recent end.
func (c *CharacterState) PushEvent(evt EmotionalEvent) {
	c.EmotionalTrajectory = append(c.EmotionalTrajectory, evt)
	if len(c.EmotionalTrajectory) > MaxTrajectoryEvents {
		c.EmotionalTrajectory = c.EmotionalTrajectory[len(c.EmotionalTrajectory)-MaxTrajectoryEvents:]
	}
}
