package mood

import (
	"context"
	"strings"
	"time"

	"charactermemory/internal/models"
)

// moodKeywords maps a mood label to the words that signal it in a message.
// Subset of the relationship engine's emotional families, tuned for
// single-label mood inference rather than multi-family scoring.
var moodKeywords = map[string][]string{
	"joyful":  {"happy", "excited", "great", "wonderful", "amazing"},
	"sad":     {"sad", "down", "upset", "depressed", "unhappy"},
	"anxious": {"worried", "nervous", "anxious", "scared", "afraid"},
	"angry":   {"angry", "mad", "furious", "frustrated"},
	"warm":    {"love", "thank", "grateful", "appreciate", "care"},
}

// UpdateFromMessage derives a new current_mood/intensity from a message and
// records it into the trajectory ring, per original_source's
// character_state_persistence.py update_mood/add_emotional_event idiom.
func (s *Store) UpdateFromMessage(ctx context.Context, characterID, userID, message string, source string) (*models.CharacterState, error) {
	state, err := s.Get(ctx, characterID, userID)
	if err != nil {
		return nil, err
	}

	mood, intensity := inferMood(message)
	if mood != "" {
		state.CurrentMood = mood
		state.MoodIntensity = intensity
		state.PushEvent(models.EmotionalEvent{
			Emotion:    mood,
			Intensity:  intensity,
			OccurredAt: time.Now(),
			Source:     source,
		})
	}
	state.LastInteraction = time.Now()

	if err := s.Save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// inferMood picks the mood family with the most keyword hits; ties favor
// the first family checked. Returns "" if no family matched.
func inferMood(message string) (string, float64) {
	lower := strings.ToLower(message)
	bestMood := ""
	bestHits := 0

	for _, mood := range []string{"joyful", "sad", "anxious", "angry", "warm"} {
		hits := 0
		for _, w := range moodKeywords[mood] {
			if strings.Contains(lower, w) {
				hits++
			}
		}
		if hits > bestHits {
			bestHits = hits
			bestMood = mood
		}
	}

	if bestMood == "" {
		return "", 0
	}
	intensity := 0.4 + 0.15*float64(bestHits)
	if intensity > 1.0 {
		intensity = 1.0
	}
	return bestMood, intensity
}
