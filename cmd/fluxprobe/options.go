package main

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fluxprobe/fluxprobe/internal/config"
	"github.com/fluxprobe/fluxprobe/internal/mutator"
	"github.com/fluxprobe/fluxprobe/internal/profiles"
	"github.com/fluxprobe/fluxprobe/internal/schema"
)

var (
	errNoSchema      = errors.New("either --protocol or --schema is required")
	errInvalidTarget = errors.New("invalid --target, expected host:port")
)

// runOptions holds the root command flags before they are merged over the
// config file.
type runOptions struct {
	configFile string

	protocol   string
	schemaPath string
	target     string
	host       string
	port       int

	iterations        int
	mutationRate      float64
	mutationsPerFrame int
	recvTimeout       float64
	seed              int64
	delayMS           int
	rate              float64
	workers           int
	mutators          []string
	dryRun            bool

	logFile   string
	logLevel  string
	report    string
	corpusDir string
	quiet     bool
}

func (o *runOptions) bind(cmd *cobra.Command) {
	d := config.DefaultConfig()
	f := cmd.Flags()

	f.StringVarP(&o.configFile, "config", "c", "", "Path to run config file (YAML)")

	f.StringVarP(&o.protocol, "protocol", "p", "", "Built-in protocol profile")
	f.StringVarP(&o.schemaPath, "schema", "s", "", "Path to a schema file (JSON or YAML)")
	f.StringVarP(&o.target, "target", "t", "", "Target as host:port, e.g. 127.0.0.1:502 or [::1]:22")
	f.StringVar(&o.host, "host", "", "Override target host")
	f.IntVar(&o.port, "port", 0, "Override target port")
	cmd.MarkFlagsMutuallyExclusive("protocol", "schema")

	f.IntVarP(&o.iterations, "iterations", "n", d.Run.Iterations, "Number of frames to send")
	f.Float64Var(&o.mutationRate, "mutation-rate", d.Run.MutationRate, "Probability of mutating a frame (0.0-1.0)")
	f.IntVar(&o.mutationsPerFrame, "mutations-per-frame", d.Run.MutationsPerFrame, "Operators applied to each mutated frame")
	f.Float64Var(&o.recvTimeout, "recv-timeout", d.Run.RecvTimeout.Seconds(), "Seconds to wait for a response, 0 to skip receiving")
	f.Int64Var(&o.seed, "seed", 0, "Random seed (default: derived from the clock)")
	f.IntVar(&o.delayMS, "delay-ms", 0, "Delay between frames in milliseconds")
	f.Float64Var(&o.rate, "rate", d.Run.Rate, "Frames per second across all workers, 0 for unlimited")
	f.IntVarP(&o.workers, "workers", "w", d.Run.Workers, "Parallel workers, each with its own connection")
	f.StringSliceVar(&o.mutators, "mutators", nil,
		"Restrict mutation operators (comma separated): "+strings.Join(mutator.OperatorNames(), ", "))
	f.BoolVar(&o.dryRun, "dry-run", false, "Generate and log frames without sending")

	f.StringVar(&o.logFile, "log-file", "", "Append log lines to this file")
	f.StringVar(&o.logLevel, "log-level", d.Output.LogLevel, "Log level (debug, info, warn, error)")
	f.StringVarP(&o.report, "report", "o", "", "Write a run report (.json or .md)")
	f.StringVar(&o.corpusDir, "corpus", "", "Directory to save findings to")
	f.BoolVarP(&o.quiet, "quiet", "q", false, "Suppress banner and summary")
}

// resolve merges defaults, the config file and explicitly set flags, in
// that order.
func (o *runOptions) resolve(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if o.configFile != "" {
		loaded, err := config.Load(o.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	if changed("protocol") {
		cfg.Target.Protocol, cfg.Target.Schema = o.protocol, ""
	}
	if changed("schema") {
		cfg.Target.Schema, cfg.Target.Protocol = o.schemaPath, ""
	}
	if changed("target") {
		host, port, err := parseTarget(o.target)
		if err != nil {
			return nil, err
		}
		cfg.Target.Host, cfg.Target.Port = host, port
	}
	if changed("host") {
		cfg.Target.Host = o.host
	}
	if changed("port") {
		cfg.Target.Port = o.port
	}

	if changed("iterations") {
		cfg.Run.Iterations = o.iterations
	}
	if changed("mutation-rate") {
		cfg.Run.MutationRate = o.mutationRate
	}
	if changed("mutations-per-frame") {
		cfg.Run.MutationsPerFrame = o.mutationsPerFrame
	}
	if changed("recv-timeout") {
		cfg.Run.RecvTimeout = secondsToDuration(o.recvTimeout)
	}
	if changed("seed") {
		seed := o.seed
		cfg.Run.Seed = &seed
	}
	if changed("delay-ms") {
		cfg.Run.Delay = time.Duration(o.delayMS) * time.Millisecond
	}
	if changed("rate") {
		cfg.Run.Rate = o.rate
	}
	if changed("workers") {
		cfg.Run.Workers = o.workers
	}
	if changed("mutators") {
		cfg.Run.Mutators = o.mutators
	}
	if changed("dry-run") {
		cfg.Run.DryRun = o.dryRun
	}

	if changed("log-file") {
		cfg.Output.LogFile = o.logFile
	}
	if changed("log-level") {
		cfg.Output.LogLevel = o.logLevel
	}
	if changed("report") {
		cfg.Output.ReportFile = o.report
	}
	if changed("corpus") {
		cfg.Output.CorpusDir = o.corpusDir
	}
	if changed("quiet") {
		cfg.Output.Quiet = o.quiet
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseTarget splits host:port, accepting bracketed IPv6 literals.
func parseTarget(target string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(strings.TrimSpace(target))
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", errInvalidTarget, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return "", 0, fmt.Errorf("%w: bad port %q", errInvalidTarget, portStr)
	}
	return host, port, nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// loadSchema resolves a profile name or schema file and applies target
// overrides.
func loadSchema(t config.TargetConfig) (*schema.ProtocolSchema, error) {
	var (
		s   *schema.ProtocolSchema
		err error
	)
	switch {
	case t.Schema != "":
		s, err = schema.Load(t.Schema)
	case t.Protocol != "":
		s, err = profiles.Load(t.Protocol)
	default:
		return nil, errNoSchema
	}
	if err != nil {
		return nil, err
	}
	if t.Host == "" && t.Port == 0 {
		return s, nil
	}
	return s.WithTarget(t.Host, t.Port)
}
