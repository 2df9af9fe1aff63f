package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/stevedore/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/stevedore/internal/core/domain"
)

// DefaultReportErrors is how many failed documents RenderReport lists.
const DefaultReportErrors = 20

const timeLayout = "2006-01-02 15:04:05"

// RenderReport renders a run report as a bordered summary followed by up to
// maxErrors failed documents. maxErrors <= 0 lists them all.
func RenderReport(r *domain.RunReport, s *styles.Styles, maxErrors int) string {
	if s == nil {
		s = styles.DefaultStyles()
	}

	row := func(label, value string) string {
		return s.Label.Render(label) + s.Normal.Render(value)
	}

	failed := r.ErrorCount
	if failed < len(r.Errors) {
		failed = len(r.Errors)
	}
	outcome := s.Success.Render("clean")
	if failed > 0 {
		outcome = s.Warning.Render(fmt.Sprintf("%d failed", failed))
	}

	lines := []string{
		s.Title.Render("Run " + r.ID),
		"",
		row("Target", r.Target),
		row("Index", r.Index),
		row("Started", formatTime(r.StartedAt)),
		row("Duration", formatDuration(r.StartedAt, r.FinishedAt)),
		row("Processed", fmt.Sprintf("%d", r.Progress)),
		row("Built", fmt.Sprintf("%d", r.RecordsBuilt)),
		row("Committed", fmt.Sprintf("%d", r.RecordsCommitted)),
		s.Label.Render("Outcome") + outcome,
	}

	out := s.Border.Render(strings.Join(lines, "\n"))
	if len(r.Errors) == 0 {
		return out + "\n"
	}

	var b strings.Builder
	b.WriteString(out + "\n\n")
	b.WriteString(s.Subtitle.Render("Failed documents") + "\n")
	shown := r.Errors
	if maxErrors > 0 && len(shown) > maxErrors {
		shown = shown[:maxErrors]
	}
	for _, e := range shown {
		b.WriteString("  " + s.Error.Render(e.Ref) + s.Muted.Render(": "+e.Reason) + "\n")
	}
	if rest := len(r.Errors) - len(shown); rest > 0 {
		b.WriteString(s.Muted.Render(fmt.Sprintf("  ... and %d more (stevedore runs show %s)", rest, r.ID)) + "\n")
	}
	return b.String()
}

// RenderRuns renders run summaries one per line, newest first as given.
func RenderRuns(runs []domain.RunReport, s *styles.Styles) string {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if len(runs) == 0 {
		return s.Muted.Render("No runs recorded.") + "\n"
	}

	id := lipgloss.NewStyle().Width(38)
	started := lipgloss.NewStyle().Width(21)
	counts := lipgloss.NewStyle().Width(12)

	var b strings.Builder
	b.WriteString(s.Subtitle.Render(
		id.Render("ID")+started.Render("STARTED")+counts.Render("COMMITTED")+counts.Render("FAILED")+"TARGET → INDEX",
	) + "\n")
	for _, r := range runs {
		failed := s.Success.Render("0")
		if r.Failed() {
			failed = s.Warning.Render(fmt.Sprintf("%d", max(r.ErrorCount, len(r.Errors))))
		}
		b.WriteString(id.Render(r.ID) +
			started.Render(formatTime(r.StartedAt)) +
			counts.Render(fmt.Sprintf("%d/%d", r.RecordsCommitted, r.RecordsBuilt)) +
			counts.Render(failed) +
			fmt.Sprintf("%s → %s", r.Target, r.Index) + "\n")
	}
	return b.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}

func formatDuration(start, end time.Time) string {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return "-"
	}
	return end.Sub(start).Round(time.Millisecond).String()
}
