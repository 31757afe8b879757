package memory

import (
	"context"
	"strings"
	"testing"

	"charactermemory/internal/models"
	"charactermemory/internal/storage"
)

func TestSummaryIncludesIngestedPersonalDetails(t *testing.T) {
	ctx := context.Background()
	registry, err := storage.NewRegistry(t.TempDir())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	e := New(registry, DefaultConfig())

	if _, err := e.Ingest(ctx, "nova", "user1", "conv1", "My name is Alex and I work as a teacher.", models.MemoryTypeBuffer); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	text, err := e.Summary(ctx, "nova", "user1")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !strings.Contains(text, "Alex") {
		t.Fatalf("expected summary to mention the disclosed name, got: %s", text)
	}
}

func TestSummaryForUnknownPairIsNotAnError(t *testing.T) {
	ctx := context.Background()
	registry, err := storage.NewRegistry(t.TempDir())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	e := New(registry, DefaultConfig())

	text, err := e.Summary(ctx, "nova", "stranger")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if text == "" {
		t.Fatalf("expected a non-empty fallback summary")
	}
}
