package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/fluxprobe/fluxprobe/internal/report"
)

// MaxListedFindings caps the findings printed in a summary.
const MaxListedFindings = 10

// SummaryView renders the end-of-run panel
type SummaryView struct {
	width int
}

// NewSummaryView creates a summary view
func NewSummaryView(width int) *SummaryView {
	if width < 40 {
		width = 40
	}
	return &SummaryView{width: width}
}

// Render renders statistics, progress and the top findings of r.
func (v *SummaryView) Render(r *report.Report) string {
	var b strings.Builder
	st := r.Statistics

	b.WriteString(HeaderStyle.Render("Run summary"))
	b.WriteString("\n\n")

	bar := NewProgressBar(v.width - 20)
	if total := r.Settings.Iterations; total > 0 {
		bar.SetProgress(float64(st.Sent+st.SendErrors) / float64(total))
		bar.SetLabel(fmt.Sprintf("%d / %d", st.Sent+st.SendErrors, total))
	}
	b.WriteString(bar.Render())
	b.WriteString("\n\n")

	b.WriteString(RenderLabelValue("Frames sent", formatNumber(st.Sent)))
	b.WriteString("\n")
	b.WriteString(RenderLabelValue("Valid/Mutated", fmt.Sprintf("%s / %s", formatNumber(st.Valid), formatNumber(st.Mutated))))
	b.WriteString("\n")
	b.WriteString(RenderLabelValue("Responses", formatNumber(st.Responses)))
	b.WriteString("\n")
	b.WriteString(RenderLabel("Errors"))
	b.WriteString(" ")
	errText := fmt.Sprintf("send %d | recv %d", st.SendErrors, st.RecvErrors)
	if st.SendErrors+st.RecvErrors > 0 {
		b.WriteString(ErrorStyle.Render(errText))
	} else {
		b.WriteString(SuccessStyle.Render(errText))
	}
	b.WriteString("\n")
	b.WriteString(RenderLabelValue("Throughput", fmt.Sprintf("%.1f frames/s", st.FramesPerSec)))
	b.WriteString("\n")
	b.WriteString(RenderLabelValue("Elapsed", formatDuration(st.Duration)))
	b.WriteString("\n\n")

	b.WriteString(HeaderStyle.Render("Findings"))
	b.WriteString("\n\n")
	if len(r.Findings) == 0 {
		b.WriteString(SuccessStyle.Render("none"))
		return PanelStyle.Width(v.width).Render(b.String())
	}

	for _, sev := range []report.Severity{report.SeverityHigh, report.SeverityMedium, report.SeverityLow, report.SeverityInfo} {
		if n := r.SeverityCounts[sev]; n > 0 {
			b.WriteString(severityStyle(sev).Render(fmt.Sprintf("%s: %d", sev, n)))
			b.WriteString("  ")
		}
	}
	b.WriteString("\n")

	for i, f := range r.Findings {
		if i == MaxListedFindings {
			b.WriteString(fmt.Sprintf("... %d more\n", len(r.Findings)-MaxListedFindings))
			break
		}
		b.WriteString(fmt.Sprintf("#%-6d %s %s\n",
			f.Iteration,
			severityStyle(f.Severity).Render(fmt.Sprintf("%-17s", f.Reason)),
			f.ID,
		))
	}
	return PanelStyle.Width(v.width).Render(strings.TrimRight(b.String(), "\n"))
}

func severityStyle(sev report.Severity) lipgloss.Style {
	switch sev {
	case report.SeverityHigh:
		return SeverityHighStyle
	case report.SeverityMedium:
		return SeverityMediumStyle
	case report.SeverityLow:
		return SeverityLowStyle
	default:
		return SeverityInfoStyle
	}
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}

func formatNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%.1fM", float64(n)/1000000)
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
