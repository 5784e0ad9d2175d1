package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/fluxprobe/fluxprobe/internal/profiles"
	"github.com/fluxprobe/fluxprobe/internal/schema"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in       string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{"127.0.0.1:502", "127.0.0.1", 502, false},
		{"[::1]:22", "::1", 22, false},
		{"example.com:0", "example.com", 0, false},
		{"localhost", "", 0, true},
		{"host:99999", "", 0, true},
		{"host:abc", "", 0, true},
	}
	for _, tt := range tests {
		host, port, err := parseTarget(tt.in)
		if tt.wantErr {
			if !errors.Is(err, errInvalidTarget) {
				t.Errorf("parseTarget(%q) expected errInvalidTarget, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || host != tt.wantHost || port != tt.wantPort {
			t.Errorf("parseTarget(%q) = %q, %d, %v", tt.in, host, port, err)
		}
	}
}

func TestResolve_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	data := `
target:
  protocol: modbus
  host: 10.0.0.1
run:
  iterations: 50
  mutation_rate: 0.8
  recv_timeout: 2s
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cmd := &cobra.Command{Use: "fluxprobe"}
	opts := &runOptions{}
	opts.bind(cmd)
	args := []string{"--config", path, "--iterations", "7", "--target", "[::1]:1502", "--recv-timeout", "0.5"}
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatal(err)
	}

	cfg, err := opts.resolve(cmd)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Run.Iterations != 7 {
		t.Errorf("flag should override file: iterations = %d", cfg.Run.Iterations)
	}
	if cfg.Run.MutationRate != 0.8 {
		t.Errorf("file should override default: mutation_rate = %v", cfg.Run.MutationRate)
	}
	if cfg.Run.RecvTimeout != 500*time.Millisecond {
		t.Errorf("recv timeout = %v", cfg.Run.RecvTimeout)
	}
	if cfg.Target.Protocol != "modbus" || cfg.Target.Host != "::1" || cfg.Target.Port != 1502 {
		t.Errorf("unexpected target %+v", cfg.Target)
	}
}

func TestRoot_RequiresSchema(t *testing.T) {
	_, _, err := execute(t, "--dry-run", "-q")
	if !errors.Is(err, errNoSchema) {
		t.Errorf("expected errNoSchema, got %v", err)
	}
}

func TestRoot_UnknownProfile(t *testing.T) {
	_, _, err := execute(t, "--protocol", "gopher", "--dry-run", "-q")
	if !errors.Is(err, profiles.ErrUnknownProfile) {
		t.Errorf("expected ErrUnknownProfile, got %v", err)
	}
}

func TestRoot_InvalidSchemaFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	data := "message:\n  fields:\n    - {name: a, type: u8, length_of: a}\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	_, _, err := execute(t, "--schema", path, "--dry-run", "-q")
	if !errors.Is(err, schema.ErrLengthCycle) {
		t.Errorf("expected ErrLengthCycle, got %v", err)
	}
}

func TestRoot_DryRunWritesReport(t *testing.T) {
	dir := t.TempDir()
	reportPath := filepath.Join(dir, "out", "report.json")
	logPath := filepath.Join(dir, "run.log")

	stdout, stderr, err := execute(t,
		"--protocol", "echo",
		"--dry-run",
		"--iterations", "3",
		"--seed", "42",
		"--report", reportPath,
		"--log-file", logPath,
	)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stdout, "Echo Demo") || !strings.Contains(stdout, "Run summary") {
		t.Errorf("expected banner and summary, got:\n%s", stdout)
	}
	if got := strings.Count(stderr, "msg=frame"); got != 3 {
		t.Errorf("expected 3 frame log lines, got %d", got)
	}

	data, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	var rep struct {
		Protocol   string `json:"protocol"`
		Settings   struct{ Seed int64 } `json:"settings"`
		Statistics struct {
			Sent int64 `json:"sent"`
		} `json:"statistics"`
	}
	if err := json.Unmarshal(data, &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if rep.Protocol != "Echo Demo" || rep.Statistics.Sent != 3 || rep.Settings.Seed != 42 {
		t.Errorf("unexpected report %+v", rep)
	}

	logData, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(logData), "Fuzz run finished") {
		t.Error("log file missing run summary line")
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a, _, err := execute(t, "generate", "--protocol", "modbus", "--count", "4", "--seed", "9", "--mutate")
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := execute(t, "generate", "--protocol", "modbus", "--count", "4", "--seed", "9", "--mutate")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("same seed produced different frames:\n%s\n%s", a, b)
	}
	lines := strings.Split(strings.TrimSpace(a), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 frames, got %d", len(lines))
	}
	for _, l := range lines {
		if parts := strings.Split(l, "\t"); len(parts) != 3 {
			t.Errorf("mutated frame line should carry operators: %q", l)
		}
	}
}

func TestProfilesAndValidate(t *testing.T) {
	out, _, err := execute(t, "profiles")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"KEY", "modbus", "dns", "udp"} {
		if !strings.Contains(out, want) {
			t.Errorf("profiles output missing %q", want)
		}
	}

	path := filepath.Join(t.TempDir(), "ping.json")
	data := `{"name":"Ping","transport":{"type":"udp","port":7},"message":{"fields":[{"name":"seq","type":"u16"}]}}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	out, _, err = execute(t, "validate", path)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "Ping: ok (1 fields") {
		t.Errorf("unexpected validate output %q", out)
	}
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	if err != nil || !strings.Contains(out, version) {
		t.Errorf("version output %q, err %v", out, err)
	}
}

func TestMutatorsListsDescriptions(t *testing.T) {
	out, _, err := execute(t, "mutators")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"bitflip", "corrupt-length", "invalid-enum", "Offsets a length field"} {
		if !strings.Contains(out, want) {
			t.Errorf("mutators output missing %q:\n%s", want, out)
		}
	}

	help, _, err := execute(t, "--help")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(help, "bitflip, randbyte") {
		t.Errorf("--mutators help should list operator names:\n%s", help)
	}
}
