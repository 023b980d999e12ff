package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	c := Load()
	if c.MaxLeads != 12 || c.ThreadsPerLead != 6 || c.MaxMerged != 30 || c.MetadataBatch != 15 {
		t.Fatalf("unexpected default bounds: %+v", c)
	}
	if c.RefreshInterval != 2*time.Minute {
		t.Fatalf("unexpected default refresh interval: %v", c.RefreshInterval)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("REMOASSET_USER", "u1")
	t.Setenv("REMOASSET_ADMIN", "true")
	t.Setenv("REMOASSET_MAX_LEADS", "3")
	t.Setenv("REMOASSET_THREADS_PER_LEAD", "2")
	t.Setenv("REMOASSET_MAX_MERGED", "5")
	t.Setenv("REMOASSET_METADATA_BATCH", "4")
	t.Setenv("REMOASSET_REFRESH_INTERVAL", "30s")

	c := Load()
	if c.UserID != "u1" || !c.Admin {
		t.Fatalf("identity not loaded: %+v", c)
	}
	l := c.Limits()
	if l.MaxLeads != 3 || l.ThreadsPerLead != 2 || l.MaxMerged != 5 || l.MetadataBatch != 4 {
		t.Fatalf("bounds not loaded: %+v", l)
	}
	if c.RefreshInterval != 30*time.Second {
		t.Fatalf("interval not loaded: %v", c.RefreshInterval)
	}
}

func TestLoadIgnoresGarbage(t *testing.T) {
	t.Setenv("REMOASSET_MAX_LEADS", "not-a-number")
	t.Setenv("REMOASSET_REFRESH_INTERVAL", "-5s")

	c := Load()
	if c.MaxLeads != 12 {
		t.Fatalf("garbage int should fall back, got %d", c.MaxLeads)
	}
	if c.RefreshInterval != 2*time.Minute {
		t.Fatalf("non-positive interval should fall back, got %v", c.RefreshInterval)
	}
}
