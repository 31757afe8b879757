package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"

	"charactermemory/internal/relationship"
	"charactermemory/internal/storage"
)

func newTestRelationshipHandler(t *testing.T) *RelationshipHandler {
	t.Helper()
	db, err := storage.OpenRelationshipDB(filepath.Join(t.TempDir(), "relationships.db"))
	if err != nil {
		t.Fatalf("open relationship db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	engine := relationship.New(db, relationship.DefaultConfig())
	return NewRelationshipHandler(engine)
}

func TestRelationshipGetState(t *testing.T) {
	h := newTestRelationshipHandler(t)
	app := fiber.New()
	app.Get("/relationship/:userId/:characterId", h.GetState)

	ctx := context.Background()
	if _, err := h.engine.UpdateExchange(ctx, "user1", "nova", "Hi there, how has your day been?", "Pretty good!", 2); err != nil {
		t.Fatalf("seed exchange: %v", err)
	}

	req := httptest.NewRequest("GET", "/relationship/user1/nova", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := out["trust_level"]; !ok {
		t.Fatalf("expected trust_level in response: %+v", out)
	}
}

func TestSetWalletRequiresAllFields(t *testing.T) {
	h := newTestRelationshipHandler(t)
	app := fiber.New()
	app.Post("/set-wallet", h.SetWallet)

	body, _ := json.Marshal(setWalletBody{UserID: "user1"})
	req := httptest.NewRequest("POST", "/set-wallet", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestLeaderboardClampsLimit(t *testing.T) {
	h := newTestRelationshipHandler(t)
	app := fiber.New()
	app.Get("/leaderboard", h.Leaderboard)

	req := httptest.NewRequest("GET", "/leaderboard?limit=9999", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
