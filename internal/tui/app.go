package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"remoasset/internal/gmail"
	"remoasset/internal/inbox"
	"remoasset/internal/model"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	gmailv1 "google.golang.org/api/gmail/v1"
)

type viewState int

const (
	viewLoading viewState = iota
	viewAuth              // waiting for auth code input
	viewInbox             // aggregated thread list
	viewBody              // latest message of a thread
)

// Deps carries everything the app needs besides the Gmail service, which
// only exists once the OAuth flow completes.
type Deps struct {
	Directory    inbox.LeadDirectory
	Cache        *inbox.SessionCache
	Limits       inbox.Limits
	Logger       *slog.Logger
	User         model.Identity
	ConfigDir    string
	RefreshEvery time.Duration
}

type AppModel struct {
	deps     Deps
	provider *gmail.Provider
	agg      *inbox.Aggregator
	Err      error
	status   string

	// Auth flow
	uiEvents      chan interface{}
	userResponses chan string
	textInput     textinput.Model
	authURL       string

	// View state machine
	view     viewState
	selected *model.ThreadSummary

	// Sub-models
	inboxList    list.Model
	bodyViewport viewport.Model

	// Layout
	width, height int
}

type authResultMsg struct {
	service *gmailv1.Service
	err     error
}

type authURLMsg string

func NewAppModel(deps Deps) AppModel {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.RefreshEvery <= 0 {
		deps.RefreshEvery = 2 * time.Minute
	}

	ti := textinput.New()
	ti.Placeholder = "Paste auth code here"
	ti.Focus()

	il := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	// Remove esc from the list's built-in Quit binding so it doesn't exit on home
	il.KeyMap.Quit.SetKeys("q")

	return AppModel{
		deps:          deps,
		status:        "Authenticating...",
		view:          viewLoading,
		uiEvents:      make(chan interface{}),
		userResponses: make(chan string),
		textInput:     ti,
		inboxList:     il,
		bodyViewport:  viewport.New(0, 0),
	}
}

func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(m.authenticateCmd(), textinput.Blink)
}

func (m *AppModel) authenticateCmd() tea.Cmd {
	return func() tea.Msg {
		go func() {
			svc, err := gmail.NewServiceInteractive(context.Background(), m.deps.ConfigDir, m.uiEvents, m.userResponses)
			m.uiEvents <- authResultMsg{service: svc, err: err}
		}()

		// The auth flow sends a raw string (the auth URL) first, then the
		// goroutine above sends authResultMsg when done. Convert the string
		// to our named type so Update can match it.
		event := <-m.uiEvents
		switch v := event.(type) {
		case string:
			return authURLMsg(v)
		default:
			return event
		}
	}
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		listH := msg.Height - 4 // room for footer
		m.inboxList.SetSize(msg.Width, listH)
		m.bodyViewport.Width = msg.Width
		m.bodyViewport.Height = msg.Height - 6 // room for header + footer
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case authResultMsg:
		if msg.err != nil {
			m.Err = msg.err
			m.status = "Authentication failed!"
			return m, tea.Quit
		}
		m.provider = gmail.NewProvider(msg.service, m.deps.Logger)
		m.agg = inbox.New(m.provider, m.deps.Directory, m.deps.Cache, m.deps.Limits, m.deps.Logger)
		m.agg.SetUser(m.deps.User)
		m.status = "Loading inbox..."
		return m, tea.Batch(m.refreshCmd(), m.tickCmd())

	case authURLMsg:
		m.authURL = string(msg)
		m.view = viewAuth
		return m, nil

	case refreshDoneMsg:
		m.syncFromAggregator()
		if m.view == viewLoading && m.agg.Ready() {
			m.view = viewInbox
		}
		return m, nil

	case tickMsg:
		// Background auto-refresh; the aggregator's guard makes overlapping
		// ticks harmless.
		return m, tea.Batch(m.refreshCmd(), m.tickCmd())

	case bodyFetchedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Failed to load thread: %v", msg.err)
			return m, clearStatusAfter(2 * time.Second)
		}
		header := ""
		if m.selected != nil {
			header = bodyHeader(m.selected.LeadName, m.selected.Subject, m.selected.DateRFC3339) + "\n\n"
		}
		m.bodyViewport.SetContent(header + msg.body)
		m.bodyViewport.GotoTop()
		m.view = viewBody
		m.status = ""
		return m, nil

	case statusMsg:
		if string(msg) == "" {
			m.status = ""
		}
		return m, nil
	}

	// Delegate to active sub-model
	var cmd tea.Cmd
	switch m.view {
	case viewAuth:
		m.textInput, cmd = m.textInput.Update(msg)
	case viewInbox:
		m.inboxList, cmd = m.inboxList.Update(msg)
	case viewBody:
		m.bodyViewport, cmd = m.bodyViewport.Update(msg)
	}
	return m, cmd
}

// syncFromAggregator copies the aggregator's state into the visible list. A
// failed cycle keeps the old items and only updates the status line.
func (m *AppModel) syncFromAggregator() {
	threads := m.agg.Threads()
	m.inboxList.SetItems(threadsToItems(threads))
	m.inboxList.Title = fmt.Sprintf("RemoAsset Inbox (%d threads)", len(threads))
	if errMsg := m.agg.Err(); errMsg != "" {
		m.status = "Refresh failed: " + errMsg
	} else {
		m.status = ""
	}
}

func (m *AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// Global keys
	switch key {
	case "ctrl+c":
		return m, tea.Quit
	}

	switch m.view {
	case viewAuth:
		switch key {
		case "enter":
			val := m.textInput.Value()
			m.textInput.Reset()
			return m, func() tea.Msg {
				m.userResponses <- val
				return <-m.uiEvents
			}
		case "q":
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd

	case viewInbox:
		// When the list is filtering, let it handle all keys except ctrl+c
		if m.inboxList.FilterState() == list.Filtering {
			var cmd tea.Cmd
			m.inboxList, cmd = m.inboxList.Update(msg)
			return m, cmd
		}
		switch key {
		case "q":
			return m, tea.Quit
		case "enter":
			return m.enterThread()
		case "r":
			m.status = "Refreshing..."
			return m, m.refreshCmd()
		case "o":
			return m.openSelectedInGmail()
		}
		var cmd tea.Cmd
		m.inboxList, cmd = m.inboxList.Update(msg)
		return m, cmd

	case viewBody:
		switch key {
		case "q":
			return m, tea.Quit
		case "esc":
			m.view = viewInbox
			m.selected = nil
			return m, nil
		case "o":
			if m.selected != nil {
				if err := gmail.OpenBrowser(gmail.ThreadURL(m.selected.ThreadID)); err != nil {
					m.status = fmt.Sprintf("Open failed: %v", err)
					return m, clearStatusAfter(2 * time.Second)
				}
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.bodyViewport, cmd = m.bodyViewport.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *AppModel) enterThread() (tea.Model, tea.Cmd) {
	selected := m.inboxList.SelectedItem()
	if selected == nil {
		return m, nil
	}
	ti := selected.(threadItem)
	s := ti.ThreadSummary
	m.selected = &s
	m.status = "Loading thread..."
	return m, m.fetchBodyCmd(s.ThreadID)
}

func (m *AppModel) openSelectedInGmail() (tea.Model, tea.Cmd) {
	selected := m.inboxList.SelectedItem()
	if selected == nil {
		return m, nil
	}
	ti := selected.(threadItem)
	if err := gmail.OpenBrowser(gmail.ThreadURL(ti.ThreadID)); err != nil {
		m.status = fmt.Sprintf("Open failed: %v", err)
		return m, clearStatusAfter(2 * time.Second)
	}
	return m, nil
}

// Commands

func (m *AppModel) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		m.agg.Refresh(context.Background())
		return refreshDoneMsg{}
	}
}

func (m *AppModel) tickCmd() tea.Cmd {
	return tea.Tick(m.deps.RefreshEvery, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *AppModel) fetchBodyCmd(threadID string) tea.Cmd {
	return func() tea.Msg {
		body, err := m.provider.ThreadBody(context.Background(), threadID)
		return bodyFetchedMsg{body: body, err: err}
	}
}

func clearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return statusMsg("")
	})
}

// View renders the appropriate view based on current state.
func (m *AppModel) View() string {
	// Auth code input
	if m.view == viewAuth {
		return "Please open this URL in your browser to authenticate:\n\n" +
			m.authURL + "\n\n" +
			m.textInput.View()
	}

	// Error state
	if m.Err != nil {
		return "Error: " + m.Err.Error() + "\n"
	}

	// Loading
	if m.view == viewLoading {
		if m.status != "" {
			return m.status + "\n"
		}
		return "Loading...\n"
	}

	var b strings.Builder

	switch m.view {
	case viewInbox:
		b.WriteString(m.inboxList.View())
		b.WriteString("\n")
		b.WriteString(inboxFooter())
	case viewBody:
		b.WriteString(m.bodyViewport.View())
		b.WriteString("\n")
		b.WriteString(bodyFooter())
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(m.status)
	}

	return b.String()
}

// trimDate converts an RFC3339 timestamp to a short date string.
func trimDate(rfc3339 string) string {
	if rfc3339 == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339, rfc3339); err == nil {
		return t.Format("Jan 2, 2006")
	}
	return rfc3339
}
