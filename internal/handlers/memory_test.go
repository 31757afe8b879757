package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"charactermemory/internal/memory"
	"charactermemory/internal/storage"
)

func newTestMemoryHandler(t *testing.T) *MemoryHandler {
	t.Helper()
	registry, err := storage.NewRegistry(t.TempDir())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	memEngine := memory.New(registry, memory.DefaultConfig())
	return NewMemoryHandler(memEngine, registry)
}

func TestMemoryCreateListUpdateDelete(t *testing.T) {
	h := newTestMemoryHandler(t)
	app := fiber.New()
	app.Post("/characters/:id/memories/:userId", h.Create)
	app.Get("/characters/:id/memories/:userId", h.List)
	app.Put("/characters/:id/memories/:userId/:memId", h.Update)
	app.Delete("/characters/:id/memories/:userId/:memId", h.Delete)

	body, _ := json.Marshal(createMemoryBody{Content: "likes hiking on weekends", Importance: 0.9})
	req := httptest.NewRequest("POST", "/characters/nova/memories/user1", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var created map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatalf("expected a non-empty memory id in response: %+v", created)
	}

	listReq := httptest.NewRequest("GET", "/characters/nova/memories/user1", nil)
	listResp, err := app.Test(listReq)
	if err != nil {
		t.Fatalf("list request: %v", err)
	}
	var listed map[string]any
	if err := json.NewDecoder(listResp.Body).Decode(&listed); err != nil {
		t.Fatalf("decode list response: %v", err)
	}
	memories, _ := listed["memories"].([]any)
	if len(memories) != 1 {
		t.Fatalf("expected 1 memory, got %d", len(memories))
	}

	updateBody, _ := json.Marshal(updateMemoryBody{Content: "likes hiking and trail running"})
	updateReq := httptest.NewRequest("PUT", "/characters/nova/memories/user1/"+id, bytes.NewReader(updateBody))
	updateReq.Header.Set("Content-Type", "application/json")
	updateResp, err := app.Test(updateReq)
	if err != nil {
		t.Fatalf("update request: %v", err)
	}
	if updateResp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", updateResp.StatusCode)
	}

	delReq := httptest.NewRequest("DELETE", "/characters/nova/memories/user1/"+id, nil)
	delResp, err := app.Test(delReq)
	if err != nil {
		t.Fatalf("delete request: %v", err)
	}
	if delResp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected 204, got %d", delResp.StatusCode)
	}
}

func TestMemoryUpdateMissingReturns404(t *testing.T) {
	h := newTestMemoryHandler(t)
	app := fiber.New()
	app.Put("/characters/:id/memories/:userId/:memId", h.Update)

	body, _ := json.Marshal(updateMemoryBody{Content: "anything"})
	req := httptest.NewRequest("PUT", "/characters/nova/memories/user1/does-not-exist", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
