package jobs

import (
	"context"
	"fmt"
	"testing"

	"charactermemory/internal/memory"
	"charactermemory/internal/models"
	"charactermemory/internal/storage"
)

func TestNightlySweepRunsMaintenanceForKnownPairs(t *testing.T) {
	dir := t.TempDir()
	registry, err := storage.NewRegistry(dir)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	memEngine := memory.New(registry, memory.DefaultConfig())

	ctx := context.Background()
	if _, err := memEngine.Ingest(ctx, "nova", "user1", "default", "hello there", models.MemoryTypeUserMessage); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	sched, err := New(registry, memEngine, "0 3 * * *", "UTC", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	pairs, err := registry.Pairs()
	if err != nil {
		t.Fatalf("Pairs: %v", err)
	}
	if len(pairs) != 1 || pairs[0].CharacterID != "nova" || pairs[0].UserID != "user1" {
		t.Fatalf("expected one recorded pair nova/user1, got %+v", pairs)
	}

	sched.runNightlySweep()
}

func TestIngestMilestoneTriggersMaintenance(t *testing.T) {
	dir := t.TempDir()
	registry, err := storage.NewRegistry(dir)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	cfg := memory.DefaultConfig()
	cfg.IngestMilestone = 3
	memEngine := memory.New(registry, cfg)

	if _, err := New(registry, memEngine, "", "", nil); err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := memEngine.Ingest(ctx, "nova", "user2", "default", fmt.Sprintf("another message %d", i), models.MemoryTypeUserMessage); err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
	}
	// onIngestMilestone runs synchronously inside bumpIngestCounter; if it
	// panicked or deadlocked this test would hang/fail rather than reach here.
}
