package relationship

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"charactermemory/internal/storage"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.OpenRelationshipDB(filepath.Join(dir, "relationships.db"))
	if err != nil {
		t.Fatalf("open relationship db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	cfg := DefaultConfig()
	return New(db, cfg)
}

func TestUpdateExchangeIncrementsConversations(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	res, err := e.UpdateExchange(ctx, "user1", "char1", "Hello there, how are you today?", "I'm doing well, thanks for asking!", 2)
	if err != nil {
		t.Fatalf("UpdateExchange: %v", err)
	}
	if res.State.Conversations != 1 {
		t.Fatalf("expected 1 conversation, got %d", res.State.Conversations)
	}
}

func TestLevelNeverDecreases(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	var lastLevel int
	for i := 0; i < 25; i++ {
		res, err := e.UpdateExchange(ctx, "user2", "char2",
			"I feel so happy and grateful, my name is Alex and I love talking with you", "I'm happy for you too!", 5)
		if err != nil {
			t.Fatalf("UpdateExchange iteration %d: %v", i, err)
		}
		if res.State.Level < lastLevel {
			t.Fatalf("level decreased from %d to %d", lastLevel, res.State.Level)
		}
		lastLevel = res.State.Level
	}
}

func TestEmotionalMomentDailyCap(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	moments := 0
	for i := 0; i < 20; i++ {
		res, err := e.UpdateExchange(ctx, "user3", "char3",
			"I love you so much, I trust you and I'm so grateful and hopeful", "That means a lot to me", 1)
		if err != nil {
			t.Fatalf("UpdateExchange: %v", err)
		}
		if res.EmotionalMoment {
			moments++
		}
	}
	if moments > e.cfg.MaxEmotionalPerDay {
		t.Fatalf("expected at most %d emotional moments/day, got %d", e.cfg.MaxEmotionalPerDay, moments)
	}
}

func TestTrustScoreRisesWithPersonalDisclosure(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	plain, err := e.UpdateExchange(ctx, "user4", "char4",
		"That's an interesting thought about the weather today.", "I agree!", 2)
	if err != nil {
		t.Fatalf("UpdateExchange: %v", err)
	}

	disclosure, err := e.UpdateExchange(ctx, "user4", "char4",
		"My name is Alex and I live in Portland, I grew up near the coast.", "Nice to meet you, Alex!", 2)
	if err != nil {
		t.Fatalf("UpdateExchange: %v", err)
	}

	if disclosure.State.TrustScore <= plain.State.TrustScore {
		t.Fatalf("expected trust score to rise after personal disclosure: plain=%f disclosure=%f",
			plain.State.TrustScore, disclosure.State.TrustScore)
	}
}

func TestAuthenticityRejectsSpam(t *testing.T) {
	score := AuthenticityScore("aaaaaaaaaaaaaaaaaa")
	if score > 0.5 {
		t.Fatalf("expected low authenticity for spam, got %f", score)
	}

	score = AuthenticityScore("I have been thinking about our conversation yesterday and it meant a lot to me.")
	if score < 0.5 {
		t.Fatalf("expected higher authenticity for genuine message, got %f", score)
	}
}

func TestRewardRankUniqueAndMonotonic(t *testing.T) {
	dir := os.TempDir()
	db, err := storage.OpenRelationshipDB(filepath.Join(dir, "reward_rank_test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	defer os.Remove(filepath.Join(dir, "reward_rank_test.db"))

	ctx := context.Background()
	r1, err := db.AwardReward(ctx, "u1", "c1", 100)
	if err != nil {
		t.Fatalf("award 1: %v", err)
	}
	r2, err := db.AwardReward(ctx, "u2", "c2", 100)
	if err != nil {
		t.Fatalf("award 2: %v", err)
	}
	if r2.Rank <= r1.Rank {
		t.Fatalf("expected monotonically increasing ranks, got %d then %d", r1.Rank, r2.Rank)
	}

	if _, err := db.AwardReward(ctx, "u1", "c1", 100); err == nil {
		t.Fatalf("expected ErrAlreadyAwarded for repeat pair")
	}
}

func TestDetectBoostersAppliesPersonalInfoBonus(t *testing.T) {
	b := DetectBoosters("my name is Alex and I live in Seattle")
	if !b.PersonalInfo {
		t.Fatalf("expected personal info booster to trigger")
	}
	if b.MemoriesBonus != 3 {
		t.Fatalf("expected memories bonus of 3, got %d", b.MemoriesBonus)
	}
}
