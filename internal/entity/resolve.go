package entity

import (
	"regexp"
	"strings"

	"charactermemory/internal/models"
)

// Resolution is the outcome of resolving a single pronoun against a set of
// candidate entities.
type Resolution struct {
	Pronoun  string
	EntityID string
}

var pronounPattern = regexp.MustCompile(`(?i)\b(she|he|they|it|her|his|their|its)\b`)

// subjectPronounCutoff bounds how many leading tokens count as "start of
// sentence", per the ambiguity policy's exception for clear subjects.
const subjectPronounCutoff = 2

var genderedFemale = map[string]bool{"she": true, "her": true}
var genderedMale = map[string]bool{"he": true, "his": true}
var groupOrThing = map[string]bool{"they": true, "their": true}
var neuter = map[string]bool{"it": true, "its": true}

// Gender/name heuristics, grounded on the original system's
// _matches_reference indicator and name lists.
var femaleIndicators = []string{"mother", "mom", "sister", "wife", "daughter", "girlfriend", "aunt", "grandmother", "grandma"}
var femaleNames = []string{"sarah", "emily", "jessica", "amanda", "jennifer", "michelle", "lisa", "karen", "nancy", "betty", "helen", "donna", "carol", "ruth", "sharon", "maria", "mary", "patricia", "linda", "barbara", "elizabeth", "susan", "anna", "evelyn"}
var maleIndicators = []string{"father", "dad", "brother", "husband", "son", "boyfriend", "uncle", "grandfather", "grandpa"}
var maleNames = []string{"john", "michael", "david", "william", "richard", "charles", "joseph", "thomas", "christopher", "daniel", "paul", "mark", "donald", "george", "kenneth", "steven", "edward", "brian", "ronald", "anthony", "kevin", "jason", "matthew", "gary", "timothy", "jose", "alex", "max", "james", "robert"}

// Resolve scans message for pronouns and attempts to resolve each against
// the entities referenced by window, using recency and type/gender
// heuristics. Any pronoun with zero or multiple equally-ranked candidates
// is returned as ambiguous, unless it's a clear subject-of-sentence
// occurrence within the first couple of tokens.
func Resolve(message string, window *models.ContextWindow, candidates map[string]*models.Entity) (resolutions []Resolution, ambiguous []string) {
	tokens := strings.Fields(message)

	matches := pronounPattern.FindAllStringIndex(message, -1)
	for _, loc := range matches {
		pronounText := strings.ToLower(message[loc[0]:loc[1]])
		tokenIndex := tokenIndexForByteOffset(tokens, message, loc[0])

		ranked := rankCandidates(pronounText, window, candidates)

		if len(ranked) == 1 {
			resolutions = append(resolutions, Resolution{Pronoun: pronounText, EntityID: ranked[0]})
			continue
		}

		if len(ranked) == 0 {
			if tokenIndex < subjectPronounCutoff {
				// Clear subject-of-sentence pronoun with nothing to resolve
				// against yet; not flagged ambiguous per the policy's
				// exception, simply left unresolved.
				continue
			}
			ambiguous = append(ambiguous, pronounText)
			continue
		}

		// More than one equally-ranked candidate.
		ambiguous = append(ambiguous, pronounText)
	}

	return resolutions, ambiguous
}

// rankCandidates returns the entity ids most plausible for pronounText,
// most-recent-mention first; ties (more than one entity at the top rank)
// are returned together so the caller can detect ambiguity.
func rankCandidates(pronounText string, window *models.ContextWindow, candidates map[string]*models.Entity) []string {
	type scored struct {
		id       string
		recency  int
		matches  bool
	}

	var pool []scored
	for recency, batch := range window.EntityIDs {
		for _, id := range batch {
			e, ok := candidates[id]
			if !ok {
				continue
			}
			if !typeMatches(pronounText, e) {
				continue
			}
			pool = append(pool, scored{id: id, recency: recency, matches: true})
		}
	}

	if len(pool) == 0 {
		return nil
	}

	best := pool[0].recency
	for _, p := range pool {
		if p.recency < best {
			best = p.recency
		}
	}

	var winners []string
	for _, p := range pool {
		if p.recency == best {
			winners = append(winners, p.id)
		}
	}
	return winners
}

func typeMatches(pronounText string, e *models.Entity) bool {
	switch {
	case neuter[pronounText]:
		return e.Type == models.EntityTypePet || e.Type == models.EntityTypeObject
	case groupOrThing[pronounText]:
		return e.Type == models.EntityTypePerson // "they" matches people; there is no group entity type
	case genderedFemale[pronounText]:
		return e.Type == models.EntityTypePerson && !hasGenderSignal(e, maleIndicators, maleNames)
	case genderedMale[pronounText]:
		return e.Type == models.EntityTypePerson && !hasGenderSignal(e, femaleIndicators, femaleNames)
	default:
		return false
	}
}

// hasGenderSignal reports whether e carries a relationship label or name
// that indicates the opposite gender to the pronoun being resolved, so it
// can be excluded rather than resolved to the wrong person. An entity with
// no signal either way is left in the candidate pool: it may still tie
// with a signaled entity and produce an ambiguous result.
func hasGenderSignal(e *models.Entity, indicators, names []string) bool {
	relationship := strings.ToLower(e.Attributes["relationship"])
	for _, ind := range indicators {
		if strings.Contains(relationship, ind) {
			return true
		}
	}
	name := strings.ToLower(e.Name)
	for _, n := range names {
		if strings.Contains(name, n) {
			return true
		}
	}
	return false
}

func tokenIndexForByteOffset(tokens []string, message string, byteOffset int) int {
	count := 0
	pos := 0
	for _, tok := range tokens {
		idx := strings.Index(message[pos:], tok)
		if idx < 0 {
			break
		}
		tokStart := pos + idx
		if tokStart >= byteOffset {
			return count
		}
		pos = tokStart + len(tok)
		count++
	}
	return count
}

// ClarificationPrompt renders a natural clarifying question for an
// ambiguous reference, naming the plausible candidates, matching the
// original Python system's get_clarification_prompt behavior.
func ClarificationPrompt(ambiguousRef string, candidates []*models.Entity) string {
	if len(candidates) == 0 {
		return "I'm not sure who you mean — could you say their name?"
	}
	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		names = append(names, c.Name)
	}
	if len(names) == 1 {
		return "Do you mean " + names[0] + "?"
	}
	return "Do you mean " + strings.Join(names[:len(names)-1], ", ") + " or " + names[len(names)-1] + "?"
}

// EntitySummary renders a short human-readable recap of an entity.
func EntitySummary(e *models.Entity) string {
	var parts []string
	for _, key := range []string{"relationship", "species", "age", "occupation"} {
		if v, ok := e.Attributes[key]; ok && v != "" {
			parts = append(parts, key+": "+v)
		}
	}
	summary := e.Name + " (" + string(e.Type) + ")"
	if len(parts) > 0 {
		summary += ": " + strings.Join(parts, ", ")
	}
	return summary
}
