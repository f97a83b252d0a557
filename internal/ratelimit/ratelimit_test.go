package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeWindowStore simulates the fixed-window counter logic in memory.
type fakeWindowStore struct {
	counts  map[string]int
	starts  map[string]time.Time
	err     error
	now     func() time.Time
	queries int
}

func newFakeWindowStore(now func() time.Time) *fakeWindowStore {
	return &fakeWindowStore{
		counts: make(map[string]int),
		starts: make(map[string]time.Time),
		now:    now,
	}
}

func (s *fakeWindowStore) IncrementWindow(_ context.Context, clientIP string, window time.Duration) (int, time.Time, error) {
	s.queries++
	if s.err != nil {
		return 0, time.Time{}, s.err
	}

	now := s.now()
	start, ok := s.starts[clientIP]
	if !ok || now.Sub(start) >= window {
		s.starts[clientIP] = now
		s.counts[clientIP] = 1
		return 1, now, nil
	}
	s.counts[clientIP]++
	return s.counts[clientIP], start, nil
}

func TestAdmitWithinBudget(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	store := newFakeWindowStore(func() time.Time { return now })
	l := New(store, time.Minute, 20, nil)

	for i := 1; i <= 20; i++ {
		d := l.Admit(context.Background(), "203.0.113.7")
		if !d.Allowed {
			t.Fatalf("request %d rejected, want admitted", i)
		}
	}
}

func TestAdmitRejectsOverBudget(t *testing.T) {
	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	now := base
	store := newFakeWindowStore(func() time.Time { return now })
	l := New(store, time.Minute, 20, nil)
	l.now = func() time.Time { return now }

	for i := 0; i < 20; i++ {
		l.Admit(context.Background(), "203.0.113.7")
	}

	now = base.Add(30 * time.Second)
	d := l.Admit(context.Background(), "203.0.113.7")
	if d.Allowed {
		t.Fatal("21st request in window admitted, want rejected")
	}
	if d.RetryAfter != 30*time.Second {
		t.Errorf("RetryAfter = %v, want 30s", d.RetryAfter)
	}
}

func TestAdmitFreshWindowAfterExpiry(t *testing.T) {
	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	now := base
	store := newFakeWindowStore(func() time.Time { return now })
	l := New(store, time.Minute, 20, nil)
	l.now = func() time.Time { return now }

	for i := 0; i < 21; i++ {
		l.Admit(context.Background(), "203.0.113.7")
	}

	now = base.Add(61 * time.Second)
	d := l.Admit(context.Background(), "203.0.113.7")
	if !d.Allowed {
		t.Fatal("request after window expiry rejected, want fresh window")
	}
	if store.counts["203.0.113.7"] != 1 {
		t.Errorf("count = %d, want reset to 1", store.counts["203.0.113.7"])
	}
}

func TestAdmitSeparateClients(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	store := newFakeWindowStore(func() time.Time { return now })
	l := New(store, time.Minute, 2, nil)
	l.now = func() time.Time { return now }

	l.Admit(context.Background(), "203.0.113.7")
	l.Admit(context.Background(), "203.0.113.7")
	if d := l.Admit(context.Background(), "203.0.113.7"); d.Allowed {
		t.Fatal("over-budget client admitted")
	}
	if d := l.Admit(context.Background(), "198.51.100.2"); !d.Allowed {
		t.Fatal("separate client rejected, windows must be per IP")
	}
}

func TestAdmitFailsOpenOnStoreError(t *testing.T) {
	store := newFakeWindowStore(time.Now)
	store.err = errors.New("connection refused")
	l := New(store, time.Minute, 20, nil)

	d := l.Admit(context.Background(), "203.0.113.7")
	if !d.Allowed {
		t.Fatal("store error must fail open")
	}
}

func TestRetryAfterFloorsAtOneSecond(t *testing.T) {
	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	now := base
	store := newFakeWindowStore(func() time.Time { return now })
	l := New(store, time.Minute, 1, nil)
	l.now = func() time.Time { return now }

	l.Admit(context.Background(), "203.0.113.7")

	// Just before expiry the remaining time rounds up, never to zero.
	now = base.Add(59*time.Second + 900*time.Millisecond)
	d := l.Admit(context.Background(), "203.0.113.7")
	if d.Allowed {
		t.Fatal("request within window admitted, want rejected")
	}
	if d.RetryAfter < time.Second {
		t.Errorf("RetryAfter = %v, want at least 1s", d.RetryAfter)
	}
}

func TestNewDefaults(t *testing.T) {
	l := New(newFakeWindowStore(time.Now), 0, 0, nil)
	if l.window != DefaultWindow {
		t.Errorf("window = %v, want %v", l.window, DefaultWindow)
	}
	if l.max != DefaultMaxRequests {
		t.Errorf("max = %d, want %d", l.max, DefaultMaxRequests)
	}
}
