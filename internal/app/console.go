package app

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"

	"toggl-sync/internal/domain"
)

var (
	runningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2ECC71"))
	stoppedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	summaryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7AA2F7"))
)

// ConsoleNotifier renders coordinator events as single lines on the
// terminal. It is the default listener wired by cmd/toggl-sync; plugin
// hosts register their own ports.Notifier instead.
type ConsoleNotifier struct {
	Out io.Writer
}

func (n *ConsoleNotifier) OnStatusText(text string) {
	if text == "" {
		return
	}
	fmt.Fprintln(n.Out, stoppedStyle.Render(text))
}

func (n *ConsoleNotifier) OnTimerChanged(entry *domain.TimeEntry) {
	if entry == nil {
		fmt.Fprintln(n.Out, stoppedStyle.Render("■ timer stopped"))
		return
	}
	desc := entry.Description
	if desc == "" {
		desc = "(no description)"
	}
	fmt.Fprintln(n.Out, runningStyle.Render("● "+desc))
}

func (n *ConsoleNotifier) OnSummaryUpdated(report *domain.SummaryReport) {
	total := time.Duration(report.TotalGrand) * time.Millisecond
	fmt.Fprintln(n.Out, summaryStyle.Render(fmt.Sprintf("today: %s across %d projects", total.Round(time.Second), len(report.Data))))
}
