package memory

import (
	"context"
	"regexp"
	"strings"

	"charactermemory/internal/models"
)

var (
	nameRE     = regexp.MustCompile(`(?i)\bmy name is ([A-Z][a-zA-Z'-]+)|\bi'?m ([A-Z][a-zA-Z'-]+)\b`)
	ageRE      = regexp.MustCompile(`(?i)\b(?:i'?m|i am) (\d{1,3})\b`)
	locationRE = regexp.MustCompile(`(?i)\bi live in ([A-Z][a-zA-Z'-]+(?:\s[A-Z][a-zA-Z'-]+)?)`)
	workRE     = regexp.MustCompile(`(?i)\bi work as an? ([a-zA-Z ]{2,30}?)(?:[.!,]|$)`)
	familyRE   = regexp.MustCompile(`(?i)\bmy (sister|brother|mother|mom|father|dad|daughter|son|cousin|aunt|uncle) ([A-Z][a-zA-Z'-]+)`)
	petRE      = regexp.MustCompile(`(?i)\bmy (dog|cat|pet|bird|hamster|rabbit) (?:named|called) ([A-Z][a-zA-Z'-]+)`)
)

// ExtractPersonalDetails re-scans the pair's active memories and produces
// a structured personal-details map, per SPEC_FULL.md section 4.3. This
// implementation re-scans on every call, resolving the spec's Open Question
// about re-scan cadence by always reflecting the latest ingested facts. The
// scan covers up to 200 of the newest user_message rows, or buffer rows
// when there are no user_message rows; summary rows are not scanned.
func (e *Engine) ExtractPersonalDetails(ctx context.Context, characterID, userID string) models.PersonalDetails {
	details := models.NewPersonalDetails()

	store, err := e.registry.Open(characterID, userID)
	if err != nil {
		return details
	}

	memories, err := store.QueryByType(ctx, models.MemoryTypeUserMessage, 200)
	if err != nil || len(memories) == 0 {
		memories, _ = store.QueryByType(ctx, models.MemoryTypeBuffer, 200)
	}

	for _, m := range memories {
		applyPersonalDetailPatterns(&details, m.Content)
	}

	return details
}

func applyPersonalDetailPatterns(d *models.PersonalDetails, content string) {
	if m := nameRE.FindStringSubmatch(content); m != nil {
		name := firstNonEmpty(m[1], m[2])
		if name != "" && d.Name == "" {
			d.Name = name
		}
	}
	if m := ageRE.FindStringSubmatch(content); m != nil && d.Age == "" {
		d.Age = m[1]
	}
	if m := locationRE.FindStringSubmatch(content); m != nil && d.Location == "" {
		d.Location = m[1]
	}
	if m := workRE.FindStringSubmatch(content); m != nil && d.Work == "" {
		d.Work = strings.TrimSpace(m[1])
	}
	if m := familyRE.FindStringSubmatch(content); m != nil {
		role, name := strings.ToLower(m[1]), m[2]
		if !containsStr(d.FamilyMembers[role], name) {
			d.FamilyMembers[role] = append(d.FamilyMembers[role], name)
		}
	}
	if m := petRE.FindStringSubmatch(content); m != nil {
		name := m[2]
		if !containsStr(d.Pets, name) {
			d.Pets = append(d.Pets, name)
		}
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func containsStr(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
