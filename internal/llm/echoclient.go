package llm

import (
	"context"
	"fmt"
	"strings"
)

// EchoClient is a canned, dependency-free Client for local running and
// tests: it never calls a real model. The real provider is an external
// collaborator reached only through the Client interface (SPEC_FULL.md
// section 1's non-goals); this exists so cmd/server has something concrete
// to wire, the same role YAMLLoader plays for character.Loader.
type EchoClient struct{}

// Generate returns a short acknowledgement built from the prompt's last
// line, so callers exercising the full turn pipeline see varying, non-empty
// text without depending on any outside service.
func (EchoClient) Generate(ctx context.Context, prompt, userID string) (string, error) {
	line := prompt
	if idx := strings.LastIndexByte(prompt, '\n'); idx >= 0 {
		line = prompt[idx+1:]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "I'm listening.", nil
	}
	return fmt.Sprintf("I hear you: %q", line), nil
}
