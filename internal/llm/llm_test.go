package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubClient struct {
	failPrompts map[string]bool
}

func (s *stubClient) Generate(ctx context.Context, prompt, userID string) (string, error) {
	if s.failPrompts[prompt] {
		return "", errors.New("provider exploded")
	}
	return "response to: " + prompt, nil
}

func TestInvokeSucceedsOnPrimary(t *testing.T) {
	inv := NewInvoker(&stubClient{}, 100*time.Millisecond)
	res := inv.Invoke(context.Background(), "full prompt", "hi", "user1")
	if res.Canned || res.Fallback {
		t.Fatalf("expected primary success, got %+v", res)
	}
}

func TestInvokeFallsBackToBareMessage(t *testing.T) {
	client := &stubClient{failPrompts: map[string]bool{"full prompt": true}}
	inv := NewInvoker(client, 100*time.Millisecond)
	res := inv.Invoke(context.Background(), "full prompt", "hi", "user1")
	if !res.Fallback || res.Canned {
		t.Fatalf("expected fallback attempt to succeed, got %+v", res)
	}
}

func TestInvokeReturnsCannedWhenBothFail(t *testing.T) {
	client := &stubClient{failPrompts: map[string]bool{"full prompt": true, "hi": true}}
	inv := NewInvoker(client, 100*time.Millisecond)
	res := inv.Invoke(context.Background(), "full prompt", "hi", "user1")
	if !res.Canned || res.Text != CannedFallback {
		t.Fatalf("expected canned fallback, got %+v", res)
	}
}
