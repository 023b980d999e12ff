package inbox

import (
	"fmt"
	"testing"

	"remoasset/internal/model"
)

func TestMergeListings_DedupAndAttribution(t *testing.T) {
	leads := []model.Lead{
		{ID: "LA", Email: "a@x.com"},
		{ID: "LB", Email: "b@x.com"},
	}
	listings := []listing{
		{stubs: []model.ThreadStub{{ID: "T1"}, {ID: "T2"}}},
		{stubs: []model.ThreadStub{{ID: "T2"}, {ID: "T3"}}},
	}

	merged := mergeListings(leads, listings, 30)
	if len(merged) != 3 {
		t.Fatalf("want 3 distinct threads, got %d", len(merged))
	}
	want := []struct{ thread, lead string }{
		{"T1", "LA"}, {"T2", "LA"}, {"T3", "LB"},
	}
	for i, w := range want {
		if merged[i].threadID != w.thread || merged[i].lead.ID != w.lead {
			t.Fatalf("idx %d: want %s/%s, got %s/%s", i, w.thread, w.lead, merged[i].threadID, merged[i].lead.ID)
		}
	}
}

func TestMergeListings_SkipsFailedSlots(t *testing.T) {
	leads := []model.Lead{
		{ID: "LA", Email: "a@x.com"},
		{ID: "LB", Email: "b@x.com"},
	}
	listings := []listing{
		{err: fmt.Errorf("boom")},
		{stubs: []model.ThreadStub{{ID: "T1"}}},
	}

	merged := mergeListings(leads, listings, 30)
	if len(merged) != 1 || merged[0].lead.ID != "LB" {
		t.Fatalf("failed slot must be skipped, got %+v", merged)
	}
}

func TestMergeListings_Truncates(t *testing.T) {
	leads := []model.Lead{{ID: "LA", Email: "a@x.com"}}
	var stubs []model.ThreadStub
	for i := 0; i < 10; i++ {
		stubs = append(stubs, model.ThreadStub{ID: fmt.Sprintf("T%d", i)})
	}
	merged := mergeListings(leads, []listing{{stubs: stubs}}, 4)
	if len(merged) != 4 {
		t.Fatalf("want 4 after truncation, got %d", len(merged))
	}
	// Truncation keeps discovery order, not recency.
	if merged[0].threadID != "T0" || merged[3].threadID != "T3" {
		t.Fatalf("unexpected truncation window: %+v", merged)
	}
}

func TestSummarize_Fallbacks(t *testing.T) {
	at := attributedThread{threadID: "T1", lead: model.Lead{ID: "LA", DisplayName: "Lead A", Email: "a@x.com"}}

	if _, ok := summarize(at, nil); ok {
		t.Fatal("nil detail must be dropped")
	}
	if _, ok := summarize(at, &model.ThreadDetail{ID: "T1"}); ok {
		t.Fatal("message-less thread must be dropped")
	}

	detail := &model.ThreadDetail{
		ID:      "T1",
		Snippet: "thread-level preview",
		Messages: []model.ThreadMessage{
			{From: "a@x.com", DateRFC3339: "2024-01-01T00:00:00Z"},
		},
	}
	s, ok := summarize(at, detail)
	if !ok {
		t.Fatal("single-message thread should summarize")
	}
	if s.Subject != noSubject {
		t.Fatalf("want subject fallback, got %q", s.Subject)
	}
	if s.Snippet != "thread-level preview" {
		t.Fatalf("want thread snippet fallback, got %q", s.Snippet)
	}
	if s.MessageCount != 1 {
		t.Fatalf("want count 1, got %d", s.MessageCount)
	}
}

func TestSortSummaries_NewestFirst(t *testing.T) {
	s := []model.ThreadSummary{
		{ThreadID: "T1", DateRFC3339: "2024-01-02T00:00:00Z"},
		{ThreadID: "T2", DateRFC3339: "2024-01-03T00:00:00Z"},
		{ThreadID: "T3", DateRFC3339: "2024-01-01T00:00:00Z"},
	}
	sortSummaries(s)
	for i := 0; i < len(s)-1; i++ {
		if s[i].DateRFC3339 < s[i+1].DateRFC3339 {
			t.Fatalf("not sorted at %d: %s < %s", i, s[i].DateRFC3339, s[i+1].DateRFC3339)
		}
	}
	if s[0].ThreadID != "T2" || s[2].ThreadID != "T3" {
		t.Fatalf("unexpected order: %+v", s)
	}
}
