package inbox

import (
	"sort"

	"remoasset/internal/model"
)

const noSubject = "(no subject)"

// attributedThread pairs a discovered thread id with the lead whose listing
// first produced it.
type attributedThread struct {
	threadID string
	lead     model.Lead
}

// mergeListings flattens per-lead listings into a deduplicated sequence in
// discovery order. When two leads' listings return the same thread, the lead
// earlier in fan-out order keeps the attribution. The sequence is truncated
// to max entries; recency ordering happens later, after metadata arrives.
func mergeListings(leads []model.Lead, listings []listing, max int) []attributedThread {
	seen := make(map[string]struct{})
	var merged []attributedThread
	for i, l := range listings {
		if l.err != nil {
			continue
		}
		for _, stub := range l.stubs {
			if stub.ID == "" {
				continue
			}
			if _, ok := seen[stub.ID]; ok {
				continue
			}
			seen[stub.ID] = struct{}{}
			merged = append(merged, attributedThread{threadID: stub.ID, lead: leads[i]})
			if len(merged) == max {
				return merged
			}
		}
	}
	return merged
}

// summarize projects a fetched thread into its display summary: subject from
// the first message, snippet/date/sender from the last, flags by an
// any-message rule. Threads with no messages are dropped.
func summarize(at attributedThread, detail *model.ThreadDetail) (model.ThreadSummary, bool) {
	if detail == nil || len(detail.Messages) == 0 {
		return model.ThreadSummary{}, false
	}
	first := detail.Messages[0]
	last := detail.Messages[len(detail.Messages)-1]

	subject := first.Subject
	if subject == "" {
		subject = noSubject
	}
	snippet := last.Snippet
	if snippet == "" {
		snippet = detail.Snippet
	}

	s := model.ThreadSummary{
		ThreadID:     at.threadID,
		LeadID:       at.lead.ID,
		LeadName:     at.lead.DisplayName,
		LeadEmail:    at.lead.Email,
		Subject:      subject,
		Snippet:      snippet,
		DateRFC3339:  last.DateRFC3339,
		From:         last.From,
		MessageCount: len(detail.Messages),
	}
	for _, m := range detail.Messages {
		if m.Unread {
			s.Unread = true
		}
		if m.Starred {
			s.Starred = true
		}
	}
	return s, true
}

// sortSummaries orders newest-first. RFC3339 UTC timestamps compare correctly
// as strings.
func sortSummaries(s []model.ThreadSummary) {
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].DateRFC3339 > s[j].DateRFC3339
	})
}
