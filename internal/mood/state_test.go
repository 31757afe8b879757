package mood

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(client), mr
}

func TestGetReturnsDefaultWhenEmpty(t *testing.T) {
	store, _ := newTestStore(t)
	state, err := store.Get(context.Background(), "char1", "user1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if state.CurrentMood != "neutral" {
		t.Fatalf("expected neutral default mood, got %q", state.CurrentMood)
	}
}

func TestSaveRoundTripsThroughRedis(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	updated, err := store.UpdateFromMessage(ctx, "char1", "user1", "I'm so happy and excited today!", "user")
	if err != nil {
		t.Fatalf("UpdateFromMessage: %v", err)
	}
	if updated.CurrentMood != "joyful" {
		t.Fatalf("expected joyful mood, got %q", updated.CurrentMood)
	}

	// New store instance sharing the same redis backend should see the
	// persisted mood even without the in-memory cache warm.
	store2 := New(store.redis)
	fetched, err := store2.Get(ctx, "char1", "user1")
	if err != nil {
		t.Fatalf("Get from fresh store: %v", err)
	}
	if fetched.CurrentMood != "joyful" {
		t.Fatalf("expected persisted joyful mood, got %q", fetched.CurrentMood)
	}
}

func TestDegradesToMemoryOnlyWhenRedisDown(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Close()

	ctx := context.Background()
	_, err := store.UpdateFromMessage(ctx, "char2", "user2", "I am very angry about this", "user")
	if err != nil {
		t.Fatalf("UpdateFromMessage should degrade gracefully, got error: %v", err)
	}

	state, err := store.Get(ctx, "char2", "user2")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if state.CurrentMood != "angry" {
		t.Fatalf("expected in-memory mood to persist despite redis outage, got %q", state.CurrentMood)
	}
}

func TestTrajectoryRingBounded(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		if _, err := store.UpdateFromMessage(ctx, "char3", "user3", "I'm happy", "user"); err != nil {
			t.Fatalf("UpdateFromMessage: %v", err)
		}
	}

	state, err := store.Get(ctx, "char3", "user3")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(state.EmotionalTrajectory) > 20 {
		t.Fatalf("expected trajectory bounded to 20, got %d", len(state.EmotionalTrajectory))
	}
}
