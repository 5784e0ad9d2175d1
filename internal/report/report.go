// Package report renders the outcome of a fuzz run as JSON or Markdown.
package report

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fluxprobe/fluxprobe/internal/corpus"
)

// Severity represents finding severity level
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
	SeverityInfo   Severity = "info"
)

// SeverityFor maps a finding reason to its severity.
func SeverityFor(reason string) Severity {
	switch reason {
	case "send-error", "receive-error", "silent":
		return SeverityHigh
	case "divergent":
		return SeverityMedium
	case "unexpected-length":
		return SeverityLow
	default:
		return SeverityInfo
	}
}

// Finding is the report form of a corpus finding
type Finding struct {
	ID        string    `json:"id"`
	Severity  Severity  `json:"severity"`
	Reason    string    `json:"reason"`
	Detail    string    `json:"detail,omitempty"`
	Iteration int       `json:"iteration"`
	Worker    int       `json:"worker"`
	Mutated   bool      `json:"mutated"`
	Operators []string  `json:"operators,omitempty"`
	Frame     string    `json:"frame"`
	Response  string    `json:"response,omitempty"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// Statistics holds run counters
type Statistics struct {
	Sent          int64         `json:"sent"`
	Valid         int64         `json:"valid"`
	Mutated       int64         `json:"mutated"`
	Responses     int64         `json:"responses"`
	SendErrors    int64         `json:"send_errors"`
	RecvErrors    int64         `json:"recv_errors"`
	Anomalies     int64         `json:"anomalies"`
	BytesSent     int64         `json:"bytes_sent"`
	BytesReceived int64         `json:"bytes_received"`
	Duration      time.Duration `json:"duration"`
	FramesPerSec  float64       `json:"frames_per_sec"`
}

// MarshalJSON implements custom JSON marshaling for Statistics
func (s Statistics) MarshalJSON() ([]byte, error) {
	type Alias Statistics
	return json.Marshal(&struct {
		Alias
		Duration string `json:"duration"`
	}{
		Alias:    Alias(s),
		Duration: s.Duration.String(),
	})
}

// Settings echoes the run parameters
type Settings struct {
	Iterations        int     `json:"iterations"`
	MutationRate      float64 `json:"mutation_rate"`
	MutationsPerFrame int     `json:"mutations_per_frame"`
	Workers           int     `json:"workers"`
	Rate              float64 `json:"rate,omitempty"`
	Seed              int64   `json:"seed"`
	DryRun            bool    `json:"dry_run"`
}

// Report represents a fuzz run report
type Report struct {
	Title       string    `json:"title"`
	Version     string    `json:"version"`
	GeneratedAt time.Time `json:"generated_at"`

	Protocol  string `json:"protocol"`
	Target    string `json:"target"`
	Transport string `json:"transport"`

	Settings   Settings   `json:"settings"`
	Statistics Statistics `json:"statistics"`
	Findings   []Finding  `json:"findings"`

	SeverityCounts map[Severity]int `json:"severity_counts"`
	ReasonCounts   map[string]int   `json:"reason_counts"`
}

// NewReport creates a new report
func NewReport(title, version string) *Report {
	return &Report{
		Title:          title,
		Version:        version,
		GeneratedAt:    time.Now(),
		Findings:       make([]Finding, 0),
		SeverityCounts: make(map[Severity]int),
		ReasonCounts:   make(map[string]int),
	}
}

// AddFinding adds a corpus finding to the report
func (r *Report) AddFinding(f *corpus.Finding) {
	sev := SeverityFor(f.Reason)
	id := f.Hash
	if len(id) > 12 {
		id = id[:12]
	}
	r.Findings = append(r.Findings, Finding{
		ID:        id,
		Severity:  sev,
		Reason:    f.Reason,
		Detail:    f.Detail,
		Iteration: f.Iteration,
		Worker:    f.Worker,
		Mutated:   f.Mutated,
		Operators: f.Operators,
		Frame:     hex.EncodeToString(f.Frame),
		Response:  hex.EncodeToString(f.Response),
		Count:     f.Count,
		Timestamp: f.DiscoveredAt,
	})
	r.SeverityCounts[sev]++
	r.ReasonCounts[f.Reason]++
}

// SetStatistics sets the statistics
func (r *Report) SetStatistics(stats Statistics) {
	if stats.Duration > 0 {
		stats.FramesPerSec = float64(stats.Sent) / stats.Duration.Seconds()
	}
	r.Statistics = stats
}

// FilterBySeverity returns findings with the given severity
func (r *Report) FilterBySeverity(severity Severity) []Finding {
	var filtered []Finding
	for _, f := range r.Findings {
		if f.Severity == severity {
			filtered = append(filtered, f)
		}
	}
	return filtered
}

// Generator is the interface for report generators
type Generator interface {
	Generate(report *Report, w io.Writer) error
	Extension() string
}

// GeneratorFor picks a generator from a file extension; anything that is
// not Markdown gets JSON.
func GeneratorFor(path string) Generator {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return &MarkdownGenerator{IncludeDetails: true}
	default:
		return &JSONGenerator{Indent: true}
	}
}

// WriteFile renders the report to path, creating parent directories.
func WriteFile(r *Report, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	if err := GeneratorFor(path).Generate(r, f); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}
	return nil
}
