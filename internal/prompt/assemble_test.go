package prompt

import (
	"strings"
	"testing"

	"charactermemory/internal/models"
)

func TestAssembleIncludesUserMessageAndSeparator(t *testing.T) {
	out := Assemble(Request{
		PersonaFields: map[string]string{"tone": "warm and curious"},
		UserMessage:   "Hello, how are you?",
	})
	if !strings.Contains(out, "Hello, how are you?") {
		t.Fatalf("expected user message present in prompt, got: %s", out)
	}
	if !strings.HasSuffix(out, "Hello, how are you?") {
		t.Fatalf("expected user message to be the final segment, got: %s", out)
	}
}

func TestAssembleTrimsToMaxChars(t *testing.T) {
	longBundle := &models.ContextBundle{}
	for i := 0; i < 200; i++ {
		longBundle.Recent = append(longBundle.Recent, &models.MemoryEntry{Content: strings.Repeat("x", 50)})
	}

	out := Assemble(Request{
		Context:     longBundle,
		UserMessage: "short message",
		MaxChars:    500,
	})
	if len(out) > 600 {
		t.Fatalf("expected prompt bounded near MaxChars, got length %d", len(out))
	}
	if !strings.Contains(out, "short message") {
		t.Fatalf("expected user message preserved even after trimming")
	}
}

func TestAssembleOmitsEmptySections(t *testing.T) {
	out := Assemble(Request{UserMessage: "hi"})
	if strings.Contains(out, "## Persona") {
		t.Fatalf("expected no persona section when fields empty")
	}
}
