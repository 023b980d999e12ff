package inbox

import (
	"testing"

	"remoasset/internal/model"
)

func TestSessionCache_SingleSlot(t *testing.T) {
	c := NewSessionCache()

	if got := c.Get("u1"); got != nil {
		t.Fatalf("cold cache should miss, got %+v", got)
	}

	u1 := []model.ThreadSummary{{ThreadID: "T1"}}
	c.Set("u1", u1)
	if got := c.Get("u1"); len(got) != 1 || got[0].ThreadID != "T1" {
		t.Fatalf("want u1 hit, got %+v", got)
	}
	if got := c.Get("u2"); got != nil {
		t.Fatalf("other user must miss, got %+v", got)
	}

	// A Set for a different user evicts the only slot.
	c.Set("u2", []model.ThreadSummary{{ThreadID: "T2"}})
	if got := c.Get("u1"); got != nil {
		t.Fatalf("u1 should be evicted after u2's Set, got %+v", got)
	}
	if got := c.Get("u2"); len(got) != 1 || got[0].ThreadID != "T2" {
		t.Fatalf("want u2 hit, got %+v", got)
	}
}

func TestSessionCache_CopiesOnBothSides(t *testing.T) {
	c := NewSessionCache()
	in := []model.ThreadSummary{{ThreadID: "T1"}}
	c.Set("u1", in)

	in[0].ThreadID = "mutated"
	out := c.Get("u1")
	if out[0].ThreadID != "T1" {
		t.Fatal("cache must not alias the caller's slice")
	}

	out[0].ThreadID = "mutated"
	if again := c.Get("u1"); again[0].ThreadID != "T1" {
		t.Fatal("cache must not alias returned slices")
	}
}
