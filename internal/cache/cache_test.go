package cache

import (
	"testing"
	"time"
)

// fakeClock is a controllable clock for expiry tests.
type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time            { return f.t }
func (f *fakeClock) advance(d time.Duration)   { f.t = f.t.Add(d) }
func newFakeClock() *fakeClock                 { return &fakeClock{t: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)} }

func TestGetPut(t *testing.T) {
	clk := newFakeClock()
	c := New(clk.now)
	c.SetTTL("rate", time.Minute)

	c.Put("rate", "USD:VES:2025-06-01", 139.0)

	v, ok := c.Get("rate", "USD:VES:2025-06-01")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if v.(float64) != 139.0 {
		t.Errorf("got %v, want 139.0", v)
	}

	if _, ok := c.Get("rate", "missing"); ok {
		t.Error("expected miss for unknown key")
	}
	if _, ok := c.Get("budget", "USD:VES:2025-06-01"); ok {
		t.Error("expected miss for unknown entity type")
	}
}

func TestTTLExpiry(t *testing.T) {
	clk := newFakeClock()
	c := New(clk.now)
	c.SetTTL("rate", time.Minute)

	c.Put("rate", "k", 1)

	clk.advance(59 * time.Second)
	if _, ok := c.Get("rate", "k"); !ok {
		t.Error("entry should still be fresh at 59s")
	}

	clk.advance(time.Second)
	if _, ok := c.Get("rate", "k"); ok {
		t.Error("entry should be expired at exactly the TTL")
	}
}

func TestPerEntityTTL(t *testing.T) {
	clk := newFakeClock()
	c := New(clk.now)
	c.SetTTL("rate", time.Minute)
	c.SetTTL("summary", time.Hour)

	c.Put("rate", "k", 1)
	c.Put("summary", "k", 2)

	clk.advance(30 * time.Minute)
	if _, ok := c.Get("rate", "k"); ok {
		t.Error("rate entry should be expired")
	}
	if _, ok := c.Get("summary", "k"); !ok {
		t.Error("summary entry should still be fresh")
	}
}

func TestDefaultTTL(t *testing.T) {
	clk := newFakeClock()
	c := New(clk.now)

	c.Put("unconfigured", "k", 1)
	if _, ok := c.Get("unconfigured", "k"); !ok {
		t.Error("expected hit inside default TTL")
	}
	clk.advance(DefaultTTL)
	if _, ok := c.Get("unconfigured", "k"); ok {
		t.Error("expected expiry after default TTL")
	}
}

func TestInvalidate(t *testing.T) {
	c := New(nil)
	c.SetTTL("rate", time.Hour)
	c.Put("rate", "a", 1)
	c.Put("rate", "b", 2)
	c.Put("other", "a", 3)

	c.Invalidate("rate")

	if _, ok := c.Get("rate", "a"); ok {
		t.Error("invalidated entry still present")
	}
	if _, ok := c.Get("rate", "b"); ok {
		t.Error("invalidated entry still present")
	}
	if _, ok := c.Get("other", "a"); !ok {
		t.Error("other entity type should be untouched")
	}
}
