package tui

import "time"

// Async message types for Bubble Tea commands.

type refreshDoneMsg struct{}

type tickMsg time.Time

type bodyFetchedMsg struct {
	body string
	err  error
}

type statusMsg string
