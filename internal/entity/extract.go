// Package entity implements rule-based entity extraction, attribute
// parsing, and pronoun resolution (C2), grounded on the regex pattern
// families in original_source/src/entity_memory_system.py.
package entity

import (
	"regexp"
	"strconv"
	"strings"
)

// Candidate is a single entity mention extracted from free text, before it
// has been reconciled against the entity store.
type Candidate struct {
	Name       string
	Type       string // mirrors models.EntityType values, kept as string to avoid an import cycle
	Attributes map[string]string
}

var personIntroPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bmy name is ([A-Z][a-zA-Z'-]+)`),
	regexp.MustCompile(`(?i)\bi'?m ([A-Z][a-zA-Z'-]+)\b`),
	regexp.MustCompile(`(?i)\bcall me ([A-Z][a-zA-Z'-]+)`),
}

var relationshipMarkerPattern = regexp.MustCompile(
	`(?i)\bmy (sister|brother|mother|mom|father|dad|colleague|friend|partner|wife|husband|daughter|son|cousin|aunt|uncle|grandmother|grandfather) ([A-Z][a-zA-Z'-]+)`)

var petPattern = regexp.MustCompile(`(?i)\bmy (dog|cat|pet|bird|hamster|rabbit) (?:named|called) ([A-Z][a-zA-Z'-]+)`)

var placePattern = regexp.MustCompile(`(?i)\bi live in ([A-Z][a-zA-Z'-]+(?:\s[A-Z][a-zA-Z'-]+)?)`)

var projectPattern = regexp.MustCompile(`(?i)\bworking on ([a-zA-Z0-9 '-]{2,40}?)(?:[.!?]|$)`)

var properNounPattern = regexp.MustCompile(`\b([A-Z][a-z]+)\b`)

var stopwords = map[string]bool{
	"the": true, "and": true, "but": true, "for": true, "with": true,
	"this": true, "that": true, "hello": true, "hi": true, "hey": true,
	"i": true, "you": true, "it": true, "we": true, "they": true,
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

// Extract scans a message and returns every entity candidate found via
// pattern matching, plus a fallback proper-noun scan for names already
// primed by context (primedNames).
func Extract(message string, primedNames map[string]bool) []Candidate {
	var out []Candidate

	for _, pat := range personIntroPatterns {
		if m := pat.FindStringSubmatch(message); m != nil {
			out = append(out, Candidate{Name: m[1], Type: "person"})
		}
	}

	for _, m := range relationshipMarkerPattern.FindAllStringSubmatch(message, -1) {
		out = append(out, Candidate{
			Name: m[2],
			Type: "person",
			Attributes: map[string]string{
				"relationship": strings.ToLower(m[1]),
			},
		})
	}

	for _, m := range petPattern.FindAllStringSubmatch(message, -1) {
		out = append(out, Candidate{
			Name: m[2],
			Type: "pet",
			Attributes: map[string]string{
				"species": strings.ToLower(m[1]),
			},
		})
	}

	if m := placePattern.FindStringSubmatch(message); m != nil {
		out = append(out, Candidate{Name: m[1], Type: "place"})
	}

	if m := projectPattern.FindStringSubmatch(message); m != nil {
		name := strings.TrimSpace(m[1])
		if len(name) > 1 {
			out = append(out, Candidate{Name: name, Type: "project"})
		}
	}

	for _, m := range properNounPattern.FindAllStringSubmatch(message, -1) {
		name := m[1]
		if stopwords[strings.ToLower(name)] {
			continue
		}
		if !primedNames[name] {
			continue
		}
		if !alreadyCaptured(out, name) {
			out = append(out, Candidate{Name: name, Type: "person"})
		}
	}

	for i := range out {
		attrs := ExtractAttributes(message, out[i].Name)
		if out[i].Attributes == nil {
			out[i].Attributes = attrs
		} else {
			for k, v := range attrs {
				if _, exists := out[i].Attributes[k]; !exists {
					out[i].Attributes[k] = v
				}
			}
		}
	}

	return out
}

func alreadyCaptured(candidates []Candidate, name string) bool {
	for _, c := range candidates {
		if strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

var (
	agePattern        = regexp.MustCompile(`(?i)\b(\d{1,3})\s*(?:years? old|yo)\b`)
	ageBarePattern    = regexp.MustCompile(`(?i)\bi'?m (\d{1,3})\b`)
	occupationPattern = regexp.MustCompile(`(?i)\bworks? as an? ([a-zA-Z ]{2,30}?)(?:[.!,]|$)`)
	speciesPattern    = regexp.MustCompile(`(?i)\b(cat|dog|bird|hamster|rabbit|fish|snake)\b`)
)

// ExtractAttributes pulls age/occupation/species attributes from the
// message text. The name argument is not consulted, so every candidate in
// one message receives the same attributes; relationship labels are set by
// Extract, not here.
func ExtractAttributes(message, name string) map[string]string {
	attrs := map[string]string{}

	if m := agePattern.FindStringSubmatch(message); m != nil {
		attrs["age"] = m[1]
	} else if m := ageBarePattern.FindStringSubmatch(message); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 && n < 130 {
			attrs["age"] = m[1]
		}
	}

	if m := occupationPattern.FindStringSubmatch(message); m != nil {
		attrs["occupation"] = strings.TrimSpace(m[1])
	}

	if m := speciesPattern.FindStringSubmatch(message); m != nil {
		attrs["species"] = strings.ToLower(m[1])
	}

	return attrs
}

// ExtractTopic infers a single topic tag for a message from keyword sets,
// matching the coarse topic-tagging behavior of the memory ingest pipeline.
func ExtractTopic(message string) string {
	lower := strings.ToLower(message)
	switch {
	case containsAny(lower, "work", "job", "boss", "office", "career", "meeting"):
		return "work"
	case containsAny(lower, "family", "mother", "father", "sister", "brother", "mom", "dad"):
		return "family"
	case containsAny(lower, "dog", "cat", "pet", "puppy", "kitten"):
		return "pets"
	case containsAny(lower, "sick", "doctor", "hospital", "pain", "health", "tired"):
		return "health"
	case containsAny(lower, "project", "building", "working on", "code", "design"):
		return "projects"
	default:
		return "general"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
