// Package report renders suite results and keyword listings for the
// terminal.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/insajin/appeyes/internal/keywords"
	"github.com/insajin/appeyes/internal/metrics"
	"github.com/insajin/appeyes/internal/suite"
)

const defaultWidth = 80

// Column widths of the test table.
const (
	colName     = 40
	colStatus   = 6
	colSteps    = 6
	colDuration = 10
)

// Summary renders one panel per suite, a visual-check panel when snap is
// given, and a totals line.
func Summary(results []*suite.Result, snap *metrics.MetricsSnapshot, width int) string {
	if width <= 0 {
		width = defaultWidth
	}

	var blocks []string
	passed, failed := 0, 0
	for _, res := range results {
		blocks = append(blocks, renderSuite(res, width))
		passed += res.Passed()
		failed += res.Failed()
	}
	if snap != nil {
		blocks = append(blocks, renderChecks(snap, width))
	}
	blocks = append(blocks, renderTotals(passed, failed))

	return lipgloss.JoinVertical(lipgloss.Left, blocks...) + "\n"
}

func renderSuite(res *suite.Result, width int) string {
	header := headerStyle.Render(
		fmt.Sprintf("%-*s %-*s %*s %*s",
			colName, "Test",
			colStatus, "Status",
			colSteps, "Steps",
			colDuration, "Duration",
		),
	)

	rows := []string{header}
	for _, t := range res.Tests {
		row := fmt.Sprintf("%-*s %s %*d %*s",
			colName, truncate(t.Name, colName),
			formatStatus(t.Status),
			colSteps, t.Steps,
			colDuration, formatDuration(t.Duration),
		)
		rows = append(rows, rowStyle.Render(row))
		if t.Message != "" {
			rows = append(rows, messageStyle.Render(indent(t.Message)))
		}
	}
	if res.SetupErr != nil {
		rows = append(rows, statusFail.Render("Suite setup failed: ")+res.SetupErr.Error())
	}
	if res.TeardownErr != nil {
		rows = append(rows, statusFail.Render("Suite teardown failed: ")+res.TeardownErr.Error())
	}
	rows = append(rows, docStyle.Render(fmt.Sprintf("%d passed, %d failed in %s",
		res.Passed(), res.Failed(), formatDuration(res.Duration))))

	style := panelStyle
	if !res.OK() {
		style = failedPanelStyle
	}
	title := titleStyle.Render(" " + res.Suite + " ")
	return title + "\n" + style.Width(width-2).Render(strings.Join(rows, "\n"))
}

func renderChecks(snap *metrics.MetricsSnapshot, width int) string {
	avg := "--"
	if snap.AvgMatchMs > 0 {
		avg = fmt.Sprintf("%.0fms", snap.AvgMatchMs)
	}

	lines := []string{
		pair("Sessions:", fmt.Sprintf("%d opened, %d closed, %d aborted",
			snap.SessionsOpened, snap.SessionsClosed, snap.SessionsAborted)),
		pair("Checkpoints:", fmt.Sprintf("%d", snap.ChecksSubmitted)),
		pair("Mismatches:", countStyle(snap.Mismatches, statusFail).Render(fmt.Sprintf("%d", snap.Mismatches))),
		pair("New baselines:", countStyle(snap.NewBaselines, statusNew).Render(fmt.Sprintf("%d", snap.NewBaselines))),
		pair("Images compared:", fmt.Sprintf("%d", snap.ImagesCompared)),
		pair("Avg match time:", avg),
	}
	title := titleStyle.Render(" Visual checks ")
	return title + "\n" + panelStyle.Width(width-2).Render(strings.Join(lines, "\n"))
}

func renderTotals(passed, failed int) string {
	total := passed + failed
	text := fmt.Sprintf("%d tests, %d passed, %d failed", total, passed, failed)
	if failed > 0 {
		return statusFail.Render(text)
	}
	return statusPass.Render(text)
}

// Keywords renders the keyword documentation listing.
func Keywords(kws []*keywords.Keyword, width int) string {
	if width <= 0 {
		width = defaultWidth
	}

	var entries []string
	for _, kw := range kws {
		entry := statusPass.Render(kw.Name)
		if sig := kw.Signature(); sig != "" {
			entry += "  " + valueStyle.Render(sig)
		}
		if kw.Doc != "" {
			entry += "\n" + docStyle.Width(width-4).PaddingLeft(2).Render(kw.Doc)
		}
		entries = append(entries, entry)
	}

	title := titleStyle.Render(fmt.Sprintf(" Keywords (%d) ", len(kws)))
	return title + "\n" + panelStyle.Width(width-2).Render(strings.Join(entries, "\n\n")) + "\n"
}

func pair(label, value string) string {
	return labelStyle.Render(label) + " " + valueStyle.Render(value)
}

func countStyle(n int64, nonZero lipgloss.Style) lipgloss.Style {
	if n > 0 {
		return nonZero
	}
	return valueStyle
}

func formatStatus(status suite.Status) string {
	text := fmt.Sprintf("%-*s", colStatus, string(status))
	if status == suite.StatusPass {
		return statusPass.Render(text)
	}
	return statusFail.Render(text)
}

// formatDuration formats a duration. Zero duration shows "--".
func formatDuration(d time.Duration) string {
	if d == 0 {
		return "--"
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
}

// truncate shortens a string to maxLen, adding an ellipsis if needed.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

func indent(msg string) string {
	return strings.ReplaceAll(msg, "\n", "\n  ")
}
