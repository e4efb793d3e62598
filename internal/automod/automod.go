package automod

import (
	"strings"
	"sync"
	"time"

	"garagedesk/internal/config"
)

// Verdict is the outcome of checking one message.
type Verdict struct {
	Allowed bool
	Reason  string // "banned_word" or "rate_limit" when not allowed
	Word    string // the matched word for banned_word verdicts
}

var allowed = Verdict{Allowed: true}

// Moderator screens chat traffic against the configured word list and a
// per-actor sliding message-rate window. State is scoped per actor and
// pruned as the window slides, so idle actors cost nothing.
type Moderator struct {
	words   []string
	max     int
	window  time.Duration
	now     func() time.Time
	mu      sync.Mutex
	history map[string][]time.Time
}

// New builds a Moderator from the moderation section of cfg. A zero
// max_messages or window disables rate limiting; an empty word list
// disables the filter.
func New(cfg *config.Config, now func() time.Time) *Moderator {
	m := &Moderator{
		now:     now,
		history: make(map[string][]time.Time),
	}
	if m.now == nil {
		m.now = time.Now
	}
	if cfg != nil {
		for _, w := range cfg.Moderation.BannedWords {
			if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
				m.words = append(m.words, w)
			}
		}
		m.max = cfg.Moderation.MaxMessages
		m.window = time.Duration(cfg.Moderation.WindowSeconds) * time.Second
	}
	return m
}

// Check screens one message from actorID. A rejected message still counts
// toward the actor's rate window.
func (m *Moderator) Check(actorID, text string) Verdict {
	if v := m.checkRate(actorID); !v.Allowed {
		return v
	}
	return m.checkWords(text)
}

func (m *Moderator) checkWords(text string) Verdict {
	lowered := strings.ToLower(text)
	for _, w := range m.words {
		if strings.Contains(lowered, w) {
			return Verdict{Reason: "banned_word", Word: w}
		}
	}
	return allowed
}

func (m *Moderator) checkRate(actorID string) Verdict {
	if m.max <= 0 || m.window <= 0 {
		return allowed
	}
	now := m.now()
	cutoff := now.Add(-m.window)
	m.mu.Lock()
	defer m.mu.Unlock()
	recent := m.history[actorID]
	kept := recent[:0]
	for _, t := range recent {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	m.history[actorID] = kept
	if len(kept) > m.max {
		return Verdict{Reason: "rate_limit"}
	}
	return allowed
}

// Prune drops actors whose entire history has aged out of the window.
// Callers may run it periodically; Check already prunes per actor.
func (m *Moderator) Prune() {
	if m.window <= 0 {
		return
	}
	cutoff := m.now().Add(-m.window)
	m.mu.Lock()
	defer m.mu.Unlock()
	for actor, times := range m.history {
		live := false
		for _, t := range times {
			if t.After(cutoff) {
				live = true
				break
			}
		}
		if !live {
			delete(m.history, actor)
		}
	}
}
