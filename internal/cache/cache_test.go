package cache

import (
	"testing"
	"time"
)

func TestGetSet(t *testing.T) {
	c := New()

	c.Set("k", "v", time.Minute)

	got, ok := c.Get("k")
	if !ok {
		t.Fatal("expected a hit")
	}
	if got != "v" {
		t.Errorf("value = %v, want %q", got, "v")
	}
}

func TestGet_Missing(t *testing.T) {
	c := New()

	if _, ok := c.Get("absent"); ok {
		t.Error("expected a miss")
	}
}

func TestGet_Expired(t *testing.T) {
	c := New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	c.Set("k", "v", 5*time.Minute)

	c.now = func() time.Time { return base.Add(6 * time.Minute) }
	if _, ok := c.Get("k"); ok {
		t.Error("expected expiry")
	}

	// The expired entry is removed on read.
	if len(c.store) != 0 {
		t.Errorf("store has %d entries, want 0", len(c.store))
	}
}

func TestSet_Overwrites(t *testing.T) {
	c := New()

	c.Set("k", 1, time.Minute)
	c.Set("k", 2, time.Minute)

	got, ok := c.Get("k")
	if !ok {
		t.Fatal("expected a hit")
	}
	if got != 2 {
		t.Errorf("value = %v, want 2", got)
	}
}
