package orchestrator

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"charactermemory/internal/llm"
	"charactermemory/internal/memory"
	"charactermemory/internal/models"
	"charactermemory/internal/mood"
	"charactermemory/internal/relationship"
	"charactermemory/internal/storage"
)

type stubLoader struct {
	descs map[string]*models.CharacterDescriptor
}

func (s *stubLoader) Get(characterID string) (*models.CharacterDescriptor, error) {
	d, ok := s.descs[characterID]
	if !ok {
		return nil, errStubNotFound
	}
	return d, nil
}

var errStubNotFound = errors.New("character not found")

type stubLLMClient struct{}

func (stubLLMClient) Generate(ctx context.Context, prompt, userID string) (string, error) {
	return "That's wonderful to hear!", nil
}

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	dir := t.TempDir()

	registry, err := storage.NewRegistry(dir)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	memEngine := memory.New(registry, memory.DefaultConfig())

	relDB, err := storage.OpenRelationshipDB(filepath.Join(dir, "relationships.db"))
	if err != nil {
		t.Fatalf("open relationship db: %v", err)
	}
	t.Cleanup(func() { relDB.Close() })
	relEngine := relationship.New(relDB, relationship.DefaultConfig())

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	moodStore := mood.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	loader := &stubLoader{descs: map[string]*models.CharacterDescriptor{
		"nova": {ID: "nova", Name: "Nova", PersonaFields: map[string]string{"tone": "warm"}},
	}}

	invoker := llm.NewInvoker(stubLLMClient{}, 1*time.Second)

	cfg := DefaultConfig()
	cfg.MinTurnInterval = 0

	return New(cfg, memEngine, relEngine, moodStore, loader, invoker, nil)
}

func TestHandleProducesResponse(t *testing.T) {
	o := newTestOrchestrator(t)
	res, err := o.Handle(context.Background(), ChatRequest{
		CharacterID: "nova",
		UserID:      "user1",
		Message:     "Hi there, I'm feeling great today!",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.Response == "" {
		t.Fatalf("expected non-empty response")
	}
	if res.CharacterName != "Nova" {
		t.Fatalf("expected character name Nova, got %q", res.CharacterName)
	}
}

func TestHandleRejectsUnknownCharacter(t *testing.T) {
	o := newTestOrchestrator(t)
	_, err := o.Handle(context.Background(), ChatRequest{
		CharacterID: "ghost",
		UserID:      "user1",
		Message:     "hello",
	})
	if err == nil {
		t.Fatalf("expected error for unknown character")
	}
}

func TestHandleSecondConcurrentTurnBusy(t *testing.T) {
	o := newTestOrchestrator(t)
	key := pairKey("nova", "user2")
	release, err := o.registry.Acquire(key)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer release()

	_, err = o.Handle(context.Background(), ChatRequest{
		CharacterID: "nova",
		UserID:      "user2",
		Message:     "hello again",
	})
	if err != ErrBusy {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
}
