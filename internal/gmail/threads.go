package gmail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	gmailv1 "google.golang.org/api/gmail/v1"

	"remoasset/internal/model"
)

const user = "me"

// Provider adapts the Gmail API to the inbox aggregator's mail contract.
// Individual calls carry a small bounded retry for transient API errors; the
// aggregator's settle-all fan-out handles anything that still fails.
type Provider struct {
	svc    *gmailv1.Service
	logger *slog.Logger
}

func NewProvider(svc *gmailv1.Service, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{svc: svc, logger: logger}
}

// Connected reports whether an authenticated service is attached.
func (p *Provider) Connected() bool {
	return p != nil && p.svc != nil
}

func retryOpts(ctx context.Context) []retry.Option {
	return []retry.Option{
		retry.Attempts(3),
		retry.Delay(500 * time.Millisecond),
		retry.MaxDelay(5 * time.Second),
		retry.MaxJitter(time.Second),
		retry.Context(ctx),
	}
}

// ListThreads returns up to limit conversation stubs involving the given
// address, most recent first (Gmail's listing order).
func (p *Provider) ListThreads(ctx context.Context, email string, limit int) ([]model.ThreadStub, error) {
	q := fmt.Sprintf("from:%s OR to:%s", email, email)

	var resp *gmailv1.ListThreadsResponse
	err := retry.Do(
		func() error {
			r, err := p.svc.Users.Threads.List(user).
				Q(q).
				MaxResults(int64(limit)).
				Context(ctx).Do()
			if err != nil {
				p.logger.Warn("thread listing failed, will retry", "email", email, "error", err)
				return err
			}
			resp = r
			return nil
		},
		retryOpts(ctx)...,
	)
	if err != nil {
		return nil, fmt.Errorf("list threads for %s: %w", email, err)
	}

	stubs := make([]model.ThreadStub, 0, len(resp.Threads))
	for _, t := range resp.Threads {
		stubs = append(stubs, model.ThreadStub{ID: t.Id})
	}
	return stubs, nil
}

// GetThread fetches a conversation's metadata: per-message From/Subject/Date
// headers, snippet, and label flags. Messages arrive in chronological order.
func (p *Provider) GetThread(ctx context.Context, threadID string) (*model.ThreadDetail, error) {
	var t *gmailv1.Thread
	err := retry.Do(
		func() error {
			r, err := p.svc.Users.Threads.Get(user, threadID).
				Format("metadata").
				MetadataHeaders("From", "Subject", "Date").
				Context(ctx).Do()
			if err != nil {
				return err
			}
			t = r
			return nil
		},
		retryOpts(ctx)...,
	)
	if err != nil {
		return nil, fmt.Errorf("get thread %s: %w", threadID, err)
	}

	detail := &model.ThreadDetail{ID: t.Id, Snippet: t.Snippet}
	for _, msg := range t.Messages {
		detail.Messages = append(detail.Messages, convertMessage(msg))
	}
	return detail, nil
}

// ThreadBody fetches the full conversation and extracts the most recent
// message's body as plain text. It prefers text/plain, falls back to
// stripped HTML, then the snippet.
func (p *Provider) ThreadBody(ctx context.Context, threadID string) (string, error) {
	var t *gmailv1.Thread
	err := retry.Do(
		func() error {
			r, err := p.svc.Users.Threads.Get(user, threadID).Format("full").Context(ctx).Do()
			if err != nil {
				return err
			}
			t = r
			return nil
		},
		retryOpts(ctx)...,
	)
	if err != nil {
		return "", fmt.Errorf("get thread %s: %w", threadID, err)
	}
	if len(t.Messages) == 0 {
		return "", fmt.Errorf("thread %s has no messages", threadID)
	}
	msg := t.Messages[len(t.Messages)-1]
	if msg.Payload != nil {
		if body := extractPlainText(msg.Payload); body != "" {
			return body, nil
		}
		if html := extractHTML(msg.Payload); html != "" {
			if text := stripHTMLTags(html); text != "" {
				return text, nil
			}
		}
	}
	if msg.Snippet != "" {
		return msg.Snippet, nil
	}
	return "(no content)", nil
}

// convertMessage flattens a Gmail message into the model projection. Gmail's
// InternalDate is authoritative; the Date header is the fallback for the odd
// message without one.
func convertMessage(msg *gmailv1.Message) model.ThreadMessage {
	out := model.ThreadMessage{ID: msg.Id, Snippet: msg.Snippet}
	var dateHeader string
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			switch strings.ToLower(h.Name) {
			case "from":
				out.From = h.Value
			case "subject":
				out.Subject = h.Value
			case "date":
				dateHeader = h.Value
			}
		}
	}
	out.DateRFC3339 = internalDateRFC3339(msg.InternalDate)
	if out.DateRFC3339 == "" {
		out.DateRFC3339 = parseDateRFC3339(dateHeader)
	}
	for _, l := range msg.LabelIds {
		switch l {
		case "UNREAD":
			out.Unread = true
		case "STARRED":
			out.Starred = true
		}
	}
	return out
}

func internalDateRFC3339(ms int64) string {
	if ms <= 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

func parseDateRFC3339(h string) string {
	if h == "" {
		return ""
	}
	// Common formats seen in Date headers.
	layouts := []string{
		time.RFC1123Z,
		time.RFC1123,
		time.RFC822Z,
		time.RFC822,
		time.RFC850,
		time.RFC3339,
		"Mon, 2 Jan 2006 15:04:05 -0700",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, h); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return ""
}
