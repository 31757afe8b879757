package memory

import (
	"context"
	"fmt"
	"testing"

	"charactermemory/internal/models"
	"charactermemory/internal/storage"
)

func TestGetContextSurfacesLiveChatTurnsAsRecent(t *testing.T) {
	ctx := context.Background()
	registry, err := storage.NewRegistry(t.TempDir())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	e := New(registry, DefaultConfig())

	if _, err := e.Ingest(ctx, "nova", "user1", "conv1", "I had a long day at work.", models.MemoryTypeUserMessage); err != nil {
		t.Fatalf("ingest user message: %v", err)
	}
	if _, err := e.Ingest(ctx, "nova", "user1", "conv1", "I'm sorry to hear that.", models.MemoryTypeResponse); err != nil {
		t.Fatalf("ingest response: %v", err)
	}

	bundle, err := e.GetContext(ctx, GetContextRequest{CharacterID: "nova", UserID: "user1", ConversationID: "conv1"})
	if err != nil {
		t.Fatalf("get context: %v", err)
	}
	if len(bundle.Recent) != 2 {
		t.Fatalf("expected both live turns in recent, got %d", len(bundle.Recent))
	}
	if bundle.Stats.BufferCount != 2 {
		t.Fatalf("expected buffer count of 2 across user_message/response, got %d", bundle.Stats.BufferCount)
	}
}

func TestEnforceBufferWindowCountsAcrossHotTypes(t *testing.T) {
	ctx := context.Background()
	registry, err := storage.NewRegistry(t.TempDir())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	cfg := DefaultConfig()
	cfg.BufferWindowSize = 3
	cfg.SummaryThreshold = 1000
	e := New(registry, cfg)

	for i := 0; i < 5; i++ {
		memType := models.MemoryTypeUserMessage
		if i%2 == 1 {
			memType = models.MemoryTypeResponse
		}
		if _, err := e.Ingest(ctx, "nova", "user2", "conv1", fmt.Sprintf("just chatting about the weather today %d", i), memType); err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
	}

	store, err := registry.Open("nova", "user2")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	count, err := store.CountByTypes(ctx, bufferTierTypes)
	if err != nil {
		t.Fatalf("count by types: %v", err)
	}
	if count > cfg.BufferWindowSize {
		t.Fatalf("expected buffer tier trimmed to at most %d, got %d", cfg.BufferWindowSize, count)
	}
}
