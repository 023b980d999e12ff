package tui

import (
	"fmt"

	"remoasset/internal/model"
	"remoasset/internal/util"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"
)

// threadItem wraps ThreadSummary to customize list display.
type threadItem struct {
	model.ThreadSummary
}

func (t threadItem) FilterValue() string { return t.LeadName + " " + t.Subject }
func (t threadItem) Title() string {
	indicator := "  "
	if t.Unread {
		indicator = "● "
	}
	star := ""
	if t.Starred {
		star = " ★"
	}
	return fmt.Sprintf("%s%s%s", indicator, t.Subject, star)
}
func (t threadItem) Description() string {
	from := util.DisplayName(t.From)
	line := fmt.Sprintf("%s · %s", t.LeadName, from)
	if t.MessageCount > 1 {
		line = fmt.Sprintf("%s (%d)", line, t.MessageCount)
	}
	if t.DateRFC3339 != "" {
		line = fmt.Sprintf("%s  %s", line, trimDate(t.DateRFC3339))
	}
	return line
}

var footerStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("241")).
	PaddingTop(1)

func inboxFooter() string {
	return footerStyle.Render("enter: view thread  o: open in gmail  r: refresh  q: quit  ●=unread ★=starred")
}

func threadsToItems(threads []model.ThreadSummary) []list.Item {
	items := make([]list.Item, len(threads))
	for i, t := range threads {
		items[i] = threadItem{t}
	}
	return items
}
