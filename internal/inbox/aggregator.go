package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"remoasset/internal/model"
)

// MailProvider is the mail-side collaborator the aggregator consumes. A
// listing returns up to limit thread stubs for conversations involving the
// given address, most recent first. Each call may fail independently.
type MailProvider interface {
	Connected() bool
	ListThreads(ctx context.Context, email string, limit int) ([]model.ThreadStub, error)
	GetThread(ctx context.Context, threadID string) (*model.ThreadDetail, error)
}

// LeadDirectory answers "which leads does this user see". Implementations
// apply their own visibility rules (admins see everything) and should only
// return leads with a usable email address.
type LeadDirectory interface {
	VisibleLeads(ctx context.Context, user model.Identity, limit int) ([]model.Lead, error)
}

// Limits bounds request volume against the rate-limited mail provider. These
// are latency/volume policy, not correctness constraints.
type Limits struct {
	MaxLeads       int // leads considered per cycle
	ThreadsPerLead int // listing size per lead
	MaxMerged      int // threads carried into the metadata phase
	MetadataBatch  int // concurrent metadata fetches per batch
}

func DefaultLimits() Limits {
	return Limits{MaxLeads: 12, ThreadsPerLead: 6, MaxMerged: 30, MetadataBatch: 15}
}

func (l Limits) normalized() Limits {
	d := DefaultLimits()
	if l.MaxLeads <= 0 {
		l.MaxLeads = d.MaxLeads
	}
	if l.ThreadsPerLead <= 0 {
		l.ThreadsPerLead = d.ThreadsPerLead
	}
	if l.MaxMerged <= 0 {
		l.MaxMerged = d.MaxMerged
	}
	if l.MetadataBatch <= 0 {
		l.MetadataBatch = d.MetadataBatch
	}
	return l
}

// Aggregator produces a deduplicated, recency-sorted list of thread summaries
// across the current user's leads. The displayed list and the session cache
// are only ever replaced wholesale at the end of a completed cycle, so
// readers see either the previous complete state or the next one.
type Aggregator struct {
	mail   MailProvider
	leads  LeadDirectory
	cache  *SessionCache
	limits Limits
	logger *slog.Logger

	mu         sync.Mutex
	refreshing bool
	user       model.Identity
	threads    []model.ThreadSummary
	errMsg     string
	loaded     bool
}

func New(mail MailProvider, leads LeadDirectory, cache *SessionCache, limits Limits, logger *slog.Logger) *Aggregator {
	if cache == nil {
		cache = NewSessionCache()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		mail:   mail,
		leads:  leads,
		cache:  cache,
		limits: limits.normalized(),
		logger: logger,
	}
}

// SetUser switches the active user. Switching seeds the display from the
// session cache (a different user always misses) and resets the error state.
func (a *Aggregator) SetUser(user model.Identity) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if user.ID == a.user.ID {
		a.user = user
		return
	}
	a.user = user
	a.threads = a.cache.Get(user.ID)
	a.errMsg = ""
	a.loaded = false
}

// Threads returns a copy of the current summary list.
func (a *Aggregator) Threads() []model.ThreadSummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]model.ThreadSummary, len(a.threads))
	copy(out, a.threads)
	return out
}

// Err returns the message from the last failed cycle, or "" after a success.
func (a *Aggregator) Err() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.errMsg
}

// Ready reports whether at least one refresh cycle has completed for the
// current user.
func (a *Aggregator) Ready() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loaded
}

// Refresh runs one aggregation cycle. It is a silent no-op when a refresh is
// already in flight, when no user is set, or when the mail provider is not
// connected. A transient failure never blanks the displayed list: the
// previous result set survives until a cycle produces a replacement.
func (a *Aggregator) Refresh(ctx context.Context) {
	a.mu.Lock()
	if a.refreshing || a.user.ID == "" || a.mail == nil || !a.mail.Connected() {
		a.mu.Unlock()
		return
	}
	a.refreshing = true
	user := a.user
	a.mu.Unlock()

	summaries, hadLeads, err := a.cycle(ctx, user)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.refreshing = false
	a.loaded = true
	if user.ID != a.user.ID {
		// User switched mid-cycle; this result belongs to the old identity.
		return
	}
	switch {
	case err != nil:
		a.errMsg = err.Error()
		a.logger.Warn("inbox refresh failed", "user", user.ID, "error", err)
	case len(summaries) > 0:
		a.threads = summaries
		a.errMsg = ""
		a.cache.Set(user.ID, summaries)
		a.logger.Info("inbox refreshed", "user", user.ID, "threads", len(summaries))
	case !hadLeads:
		// Zero qualifying leads is a legitimate empty state, not an error.
		a.errMsg = ""
		if len(a.threads) == 0 {
			a.threads = nil
		}
	default:
		// Leads existed but nothing survived the metadata phase. That reads
		// as a partial failure, not an empty inbox; keep what is on screen.
		a.errMsg = ""
		a.logger.Warn("inbox refresh produced no summaries, keeping previous", "user", user.ID)
	}
}

func (a *Aggregator) cycle(ctx context.Context, user model.Identity) (summaries []model.ThreadSummary, hadLeads bool, err error) {
	leads, err := a.leads.VisibleLeads(ctx, user, a.limits.MaxLeads)
	if err != nil {
		return nil, false, fmt.Errorf("load leads: %w", err)
	}

	qualified := make([]model.Lead, 0, len(leads))
	for _, ld := range leads {
		if ld.Email == "" {
			continue
		}
		qualified = append(qualified, ld)
	}
	if len(qualified) == 0 {
		return nil, false, nil
	}

	listings := a.listAll(ctx, qualified)
	failed := 0
	var firstErr error
	for _, l := range listings {
		if l.err != nil {
			failed++
			if firstErr == nil {
				firstErr = l.err
			}
		}
	}
	if failed == len(listings) {
		return nil, true, fmt.Errorf("mail provider unreachable: %w", firstErr)
	}

	merged := mergeListings(qualified, listings, a.limits.MaxMerged)
	summaries = a.fetchSummaries(ctx, merged)
	sortSummaries(summaries)
	return summaries, true, nil
}

// listing holds one lead's settled listing outcome at its fan-out index.
type listing struct {
	stubs []model.ThreadStub
	err   error
}

// listAll fans out one listing request per lead and settles them all: a
// failure lands in its slot without disturbing siblings.
func (a *Aggregator) listAll(ctx context.Context, leads []model.Lead) []listing {
	out := make([]listing, len(leads))
	var wg sync.WaitGroup
	wg.Add(len(leads))
	for i, ld := range leads {
		go func(i int, ld model.Lead) {
			defer wg.Done()
			stubs, err := a.mail.ListThreads(ctx, ld.Email, a.limits.ThreadsPerLead)
			out[i] = listing{stubs: stubs, err: err}
		}(i, ld)
	}
	wg.Wait()
	return out
}

// fetchSummaries resolves metadata for the merged thread sequence in
// sequential batches of MetadataBatch, issuing each batch's requests
// concurrently and settling all of them before the next batch starts. Failed
// or empty threads are silently dropped.
func (a *Aggregator) fetchSummaries(ctx context.Context, merged []attributedThread) []model.ThreadSummary {
	summaries := make([]model.ThreadSummary, 0, len(merged))
	for start := 0; start < len(merged); start += a.limits.MetadataBatch {
		chunk := merged[start:min(start+a.limits.MetadataBatch, len(merged))]
		details := make([]*model.ThreadDetail, len(chunk))
		errs := make([]error, len(chunk))

		var wg sync.WaitGroup
		wg.Add(len(chunk))
		for i, at := range chunk {
			go func(i int, threadID string) {
				defer wg.Done()
				details[i], errs[i] = a.mail.GetThread(ctx, threadID)
			}(i, at.threadID)
		}
		wg.Wait()

		for i, at := range chunk {
			if errs[i] != nil {
				a.logger.Debug("thread metadata fetch failed", "thread", at.threadID, "error", errs[i])
				continue
			}
			if s, ok := summarize(at, details[i]); ok {
				summaries = append(summaries, s)
			}
		}
	}
	return summaries
}
