package automod

import (
	"testing"
	"time"

	"garagedesk/internal/config"
)

func testConfig() *config.Config {
	cfg := config.Default("garage-1")
	cfg.Moderation.BannedWords = []string{"Scam", "ripoff"}
	cfg.Moderation.MaxMessages = 3
	cfg.Moderation.WindowSeconds = 10
	return cfg
}

func TestBannedWords(t *testing.T) {
	m := New(testConfig(), nil)
	v := m.Check("actor-1", "this shop is a SCAM")
	if v.Allowed || v.Reason != "banned_word" || v.Word != "scam" {
		t.Fatalf("verdict = %+v", v)
	}
	if v := m.Check("actor-1", "great service"); !v.Allowed {
		t.Fatalf("clean message blocked: %+v", v)
	}
}

func TestRateLimitSlidingWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := New(testConfig(), func() time.Time { return now })
	for i := 0; i < 3; i++ {
		if v := m.Check("chatty", "hello"); !v.Allowed {
			t.Fatalf("message %d blocked: %+v", i, v)
		}
	}
	if v := m.Check("chatty", "hello"); v.Allowed || v.Reason != "rate_limit" {
		t.Fatalf("expected rate limit, got %+v", v)
	}
	// Another actor is unaffected.
	if v := m.Check("quiet", "hello"); !v.Allowed {
		t.Fatalf("other actor blocked: %+v", v)
	}
	// After the window slides past the burst, the actor may speak again.
	now = now.Add(11 * time.Second)
	if v := m.Check("chatty", "hello"); !v.Allowed {
		t.Fatalf("window did not slide: %+v", v)
	}
}

func TestPruneDropsIdleActors(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := New(testConfig(), func() time.Time { return now })
	m.Check("idle", "hello")
	now = now.Add(time.Minute)
	m.Prune()
	m.mu.Lock()
	_, present := m.history["idle"]
	m.mu.Unlock()
	if present {
		t.Fatalf("idle actor not pruned")
	}
}

func TestDisabledLimits(t *testing.T) {
	cfg := config.Default("garage-1")
	cfg.Moderation.BannedWords = nil
	cfg.Moderation.MaxMessages = 0
	m := New(cfg, nil)
	for i := 0; i < 50; i++ {
		if v := m.Check("actor", "anything goes"); !v.Allowed {
			t.Fatalf("disabled moderation blocked message: %+v", v)
		}
	}
}
