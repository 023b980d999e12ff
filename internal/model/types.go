package model

// Identity is the authenticated CRM user driving the inbox. Admins see every
// lead; everyone else sees only leads they own.
type Identity struct {
	ID    string
	Admin bool
}

// Lead is the minimal projection of a CRM contact needed to drive mail
// queries. Leads without an email address never reach the aggregator.
type Lead struct {
	ID          string
	DisplayName string
	Email       string
	OwnerID     string
}

// ThreadStub is what a thread listing returns: just enough to identify the
// conversation for the metadata phase.
type ThreadStub struct {
	ID string
}

// ThreadMessage is one message of a conversation in display-ready form.
type ThreadMessage struct {
	ID          string
	Subject     string
	From        string
	DateRFC3339 string
	Snippet     string
	Unread      bool
	Starred     bool
}

// ThreadDetail is the metadata fetch result for a single thread. Messages are
// in chronological order (oldest first).
type ThreadDetail struct {
	ID       string
	Snippet  string
	Messages []ThreadMessage
}

// ThreadSummary is the aggregator's output unit: one conversation, attributed
// to the lead whose listing first surfaced it.
type ThreadSummary struct {
	ThreadID     string
	LeadID       string
	LeadName     string
	LeadEmail    string
	Subject      string // first message's subject, with a fallback if absent
	Snippet      string // most recent message's preview
	DateRFC3339  string // timestamp of the most recent message
	From         string // sender of the most recent message
	Unread       bool   // true if any message in the thread is unread
	Starred      bool   // true if any message in the thread is starred
	MessageCount int
}
