package report

import (
	"io"
	"strings"
	"text/template"
	"time"
)

// MarkdownGenerator generates Markdown reports
type MarkdownGenerator struct {
	IncludeDetails bool
}

var markdownTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"severity": severityLabel,
	"formatTime": func(t time.Time) string {
		return t.Format("2006-01-02 15:04:05")
	},
	"truncate": truncate,
	"join":     strings.Join,
}).Parse(`# {{.Report.Title}}

Generated {{formatTime .Report.GeneratedAt}} by fluxprobe {{.Report.Version}}

- **Protocol:** {{.Report.Protocol}}
- **Target:** {{.Report.Target}} ({{.Report.Transport}})
- **Seed:** {{.Report.Settings.Seed}}{{if .Report.Settings.DryRun}} (dry run){{end}}

## Summary

| Metric | Value |
|---|---|
| Frames sent | {{.Report.Statistics.Sent}} |
| Valid / mutated | {{.Report.Statistics.Valid}} / {{.Report.Statistics.Mutated}} |
| Responses | {{.Report.Statistics.Responses}} |
| Send errors | {{.Report.Statistics.SendErrors}} |
| Receive errors | {{.Report.Statistics.RecvErrors}} |
| Anomalies | {{.Report.Statistics.Anomalies}} |
| Duration | {{.Report.Statistics.Duration}} |

## Findings
{{if not .Report.Findings}}
No anomalies detected.
{{else}}
| ID | Severity | Reason | Iteration | Operators | Hits |
|---|---|---|---|---|---|
{{range .Report.Findings}}| {{.ID}} | {{severity .Severity}} | {{.Reason}} | {{.Iteration}} | {{join .Operators ", "}} | {{.Count}} |
{{end}}{{if .IncludeDetails}}
{{range .Report.Findings}}
### {{.ID}}

{{if .Detail}}{{.Detail}}

{{end}}- Frame: ` + "`{{truncate .Frame 128}}`" + `
{{if .Response}}- Response: ` + "`{{truncate .Response 128}}`" + `
{{end}}{{end}}{{end}}{{end}}`))

// Generate generates a Markdown report
func (g *MarkdownGenerator) Generate(report *Report, w io.Writer) error {
	return markdownTemplate.Execute(w, struct {
		Report         *Report
		IncludeDetails bool
	}{report, g.IncludeDetails})
}

// Extension returns the file extension
func (g *MarkdownGenerator) Extension() string {
	return "md"
}

func severityLabel(s Severity) string {
	switch s {
	case SeverityHigh:
		return "High"
	case SeverityMedium:
		return "Medium"
	case SeverityLow:
		return "Low"
	default:
		return "Info"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
