// Package relationship implements the relationship depth engine (C4):
// per-exchange scoring, anti-gaming checks, level progression, and
// rank-limited reward issuance. Grounded almost 1:1 on
// original_source/systems/relationship_system.py.
package relationship

import "strings"

// emotionalKeywords groups the 10 labeled emotion families used to score
// an exchange's emotional content.
var emotionalKeywords = map[string][]string{
	"joy":       {"happy", "joy", "excited", "wonderful", "great", "amazing", "delighted", "thrilled"},
	"sadness":   {"sad", "down", "upset", "depressed", "unhappy", "miserable", "heartbroken", "grief"},
	"anger":     {"angry", "mad", "furious", "annoyed", "frustrated", "irritated", "rage"},
	"fear":      {"scared", "afraid", "worried", "anxious", "nervous", "terrified", "frightened"},
	"surprise":  {"surprised", "shocked", "amazed", "astonished", "unexpected", "wow"},
	"love":      {"love", "adore", "cherish", "care about", "affection", "fond"},
	"trust":     {"trust", "rely on", "depend on", "confide", "believe in you"},
	"gratitude": {"thank", "grateful", "appreciate", "thankful"},
	"hope":      {"hope", "hopeful", "optimistic", "looking forward", "wish"},
	"empathy":   {"understand", "empathize", "relate", "feel for you", "i know how"},
}

var personalInfoKeywords = []string{
	"my name is", "i live in", "i work as", "my family", "my job", "i was born",
	"my favorite", "i grew up", "my background",
}

var aiConsciousnessKeywords = []string{
	"are you conscious", "do you have feelings", "are you alive", "ai consciousness",
	"do you think", "are you self aware", "artificial intelligence", "your own thoughts",
	"do you dream", "are you sentient", "what are you", "do you experience",
}

var projectCollaborationKeywords = []string{
	"let's work on", "help me build", "collaborate", "project", "let's create",
	"brainstorm", "work together", "team up",
}

var reflectiveVerbs = []string{"think", "believe", "feel", "wonder", "realize", "suppose", "imagine"}
var hypotheticalWords = []string{"if", "would", "could", "imagine", "suppose", "what if"}
var affectiveWords = []string{"love", "hate", "miss", "care", "worry", "hope", "fear", "happy", "sad"}

// countKeywordHits returns how many distinct keyword families in the set
// have at least one match in text.
func countKeywordHits(text string, families map[string][]string) int {
	lower := strings.ToLower(text)
	hits := 0
	for _, words := range families {
		for _, w := range words {
			if strings.Contains(lower, w) {
				hits++
				break
			}
		}
	}
	return hits
}

func countPhraseHits(text string, phrases []string) int {
	lower := strings.ToLower(text)
	hits := 0
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			hits++
		}
	}
	return hits
}

func anyPhraseHit(text string, phrases []string) bool {
	return countPhraseHits(text, phrases) > 0
}
