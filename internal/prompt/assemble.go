// Package prompt assembles the LLM-facing prompt (C7): persona block,
// historical/biographical context, personal-details preface, memory
// context, mood line, location, a separator, and finally the raw user
// message — bounded in total characters by dropping leading lines (see
// trimToFit).
// Grounded on
// _examples/rubicon-ClaraVerse/backend/internal/services/persona_service.go's
// BuildSystemPrompt category-grouping/confidence-filtering pattern.
package prompt

import (
	"fmt"
	"strings"

	"charactermemory/internal/models"
)

// DefaultMaxChars bounds total assembled prompt length.
const DefaultMaxChars = 8000

// Request carries everything needed to assemble one turn's prompt.
type Request struct {
	PersonaFields    map[string]string
	HistoricalContext string
	PersonalDetails  models.PersonalDetails
	Context          *models.ContextBundle
	Mood             *models.CharacterState
	Location         string
	UserMessage      string
	MaxChars         int
}

// Assemble composes the full prompt string for a turn.
func Assemble(req Request) string {
	maxChars := req.MaxChars
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	var sections []string

	if persona := buildPersonaBlock(req.PersonaFields); persona != "" {
		sections = append(sections, persona)
	}

	if req.HistoricalContext != "" {
		sections = append(sections, "## Background\n"+req.HistoricalContext)
	}

	if preface := req.PersonalDetails.Preface(); preface != "" {
		sections = append(sections, preface)
	}

	if req.Context != nil {
		if mem := buildMemorySection(req.Context); mem != "" {
			sections = append(sections, mem)
		}
	}

	if req.Mood != nil && req.Mood.CurrentMood != "" {
		sections = append(sections, fmt.Sprintf("Current mood: %s (intensity %.1f)", req.Mood.CurrentMood, req.Mood.MoodIntensity))
	}

	if req.Location != "" {
		sections = append(sections, "Location: "+req.Location)
	}

	body := strings.Join(sections, "\n\n")
	body = trimToFit(body, maxChars-len(req.UserMessage)-len(separator))

	var sb strings.Builder
	sb.WriteString(body)
	sb.WriteString(separator)
	sb.WriteString(req.UserMessage)
	return sb.String()
}

const separator = "\n\n---\n\n"

func buildPersonaBlock(fields map[string]string) string {
	if len(fields) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("## Persona\n\n")
	for category, content := range fields {
		if content == "" {
			continue
		}
		sb.WriteString(fmt.Sprintf("### %s\n- %s\n\n", strings.Title(category), content))
	}
	return strings.TrimSpace(sb.String())
}

func buildMemorySection(ctx *models.ContextBundle) string {
	var sb strings.Builder
	sb.WriteString("## What I remember\n\n")

	if ctx.SummaryContext != "" {
		sb.WriteString(ctx.SummaryContext + "\n\n")
	}

	if len(ctx.Recent) > 0 {
		sb.WriteString("Recent exchanges:\n")
		for _, m := range ctx.Recent {
			content, _ := m.DisplayContent()
			sb.WriteString("- " + content + "\n")
		}
		sb.WriteString("\n")
	}

	if len(ctx.Important) > 0 {
		sb.WriteString("Important things:\n")
		for _, m := range ctx.Important {
			content, _ := m.DisplayContent()
			sb.WriteString("- " + content + "\n")
		}
		sb.WriteString("\n")
	}

	if ctx.Topic != "" {
		sb.WriteString("Current topic: " + ctx.Topic + "\n")
	}

	return strings.TrimSpace(sb.String())
}

// trimToFit drops leading lines until body fits within max. Sections are
// ordered persona-first, so the persona block goes first, then background,
// preface and memory lines in the order they appear; the mood and location
// lines at the end are kept longest. Memory age is not considered: Recent
// is listed newest-first, so its newest entries are dropped before older ones.
func trimToFit(body string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(body) <= max {
		return body
	}
	lines := strings.Split(body, "\n")
	for len(lines) > 0 && len(strings.Join(lines, "\n")) > max {
		lines = lines[1:]
	}
	return strings.Join(lines, "\n")
}
