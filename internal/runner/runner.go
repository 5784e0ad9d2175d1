// Package runner drives a fuzz run: it generates frames from a schema,
// mutates a share of them, sends them to the target and records what
// comes back.
//
// Iterations are split into contiguous blocks, one per worker. Each worker
// owns its random source (seeded seed+index) and its transport, so a run
// with a fixed seed and worker count is reproducible frame for frame.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/fluxprobe/fluxprobe/internal/analyzer"
	"github.com/fluxprobe/fluxprobe/internal/corpus"
	"github.com/fluxprobe/fluxprobe/internal/generator"
	"github.com/fluxprobe/fluxprobe/internal/mutator"
	"github.com/fluxprobe/fluxprobe/internal/schema"
	"github.com/fluxprobe/fluxprobe/internal/transport"
)

// Finding reasons recorded by the runner in addition to analyzer reasons.
const (
	ReasonSendError = "send-error"
)

// Config configures a fuzz run
type Config struct {
	Iterations        int
	MutationRate      float64
	MutationsPerFrame int
	RecvTimeout       time.Duration
	Seed              *int64 // nil derives a seed from the clock
	Delay             time.Duration
	Workers           int
	Rate              float64 // frames per second across all workers, 0 = unlimited
	Operators         []string
	DryRun            bool
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Iterations:        100,
		MutationRate:      0.3,
		MutationsPerFrame: 1,
		Workers:           1,
	}
}

// ErrInvalidConfig is wrapped by configuration errors from New.
var ErrInvalidConfig = errors.New("invalid run configuration")

func (c Config) validate() error {
	switch {
	case c.Iterations < 0:
		return fmt.Errorf("%w: iterations must be >= 0", ErrInvalidConfig)
	case c.MutationRate < 0 || c.MutationRate > 1:
		return fmt.Errorf("%w: mutation rate must be within 0..1", ErrInvalidConfig)
	case c.Workers < 0:
		return fmt.Errorf("%w: workers must be >= 1", ErrInvalidConfig)
	case c.Rate < 0:
		return fmt.Errorf("%w: rate must be >= 0", ErrInvalidConfig)
	}
	return nil
}

// Dialer opens a transport for one worker.
type Dialer func(ctx context.Context, spec schema.TransportSpec) (transport.Transport, error)

// Stats summarizes a run
type Stats struct {
	Seed          int64
	Sent          int64
	Valid         int64
	Mutated       int64
	Responses     int64
	SendErrors    int64
	RecvErrors    int64
	Anomalies     int64
	BytesSent     int64
	BytesReceived int64
	Duration      time.Duration
}

type counters struct {
	sent          atomic.Int64
	valid         atomic.Int64
	mutated       atomic.Int64
	responses     atomic.Int64
	sendErrors    atomic.Int64
	recvErrors    atomic.Int64
	anomaly       atomic.Int64
	bytesSent     atomic.Int64
	bytesReceived atomic.Int64
}

// Runner executes fuzz runs against one schema
type Runner struct {
	schema   *schema.ProtocolSchema
	config   Config
	seed     int64
	mutator  *mutator.Mutator
	analyzer *analyzer.Analyzer
	corpus   *corpus.Corpus
	logger   *slog.Logger
	dial     Dialer
	limiter  *rate.Limiter

	stats counters
}

// Option configures a Runner
type Option func(*Runner)

// WithLogger sets the logger; slog.Default is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithCorpus stores findings in c instead of an in-memory corpus.
func WithCorpus(c *corpus.Corpus) Option {
	return func(r *Runner) { r.corpus = c }
}

// WithAnalyzer replaces the default response analyzer.
func WithAnalyzer(a *analyzer.Analyzer) Option {
	return func(r *Runner) { r.analyzer = a }
}

// WithDialer replaces transport.New.
func WithDialer(d Dialer) Option {
	return func(r *Runner) { r.dial = d }
}

// New creates a Runner. The schema is shared read-only by all workers.
func New(s *schema.ProtocolSchema, cfg Config, opts ...Option) (*Runner, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Workers == 0 {
		cfg.Workers = 1
	}
	if cfg.MutationsPerFrame < 1 {
		cfg.MutationsPerFrame = 1
	}

	m, err := mutator.New(s, mutator.WithOperators(cfg.Operators...))
	if err != nil {
		return nil, err
	}

	r := &Runner{
		schema:  s,
		config:  cfg,
		mutator: m,
		logger:  slog.Default(),
		dial:    transport.New,
	}
	if cfg.Seed != nil {
		r.seed = *cfg.Seed
	} else {
		r.seed = time.Now().UnixNano()
	}
	if cfg.Rate > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.Rate), 1)
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.analyzer == nil {
		r.analyzer = analyzer.New(nil)
	}
	if r.corpus == nil {
		c, err := corpus.New("")
		if err != nil {
			return nil, err
		}
		r.corpus = c
	}
	return r, nil
}

// Seed returns the seed the run uses
func (r *Runner) Seed() int64 {
	return r.seed
}

// Corpus returns the findings collected so far
func (r *Runner) Corpus() *corpus.Corpus {
	return r.corpus
}

// Run executes all iterations. Generation failures and transport setup
// failures abort the run; per-frame send and receive failures are counted
// and the run goes on. Cancelling ctx stops workers before their next frame.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	spec := r.schema.Transport
	if !r.config.DryRun && spec.Port == 0 {
		return r.snapshot(0), transport.ErrPortUnset
	}

	r.logger.Info("Starting fuzz run",
		slog.String("target", spec.Address()),
		slog.String("transport", spec.Type),
		slog.Int("iterations", r.config.Iterations),
		slog.Float64("mutation_rate", r.config.MutationRate),
		slog.Int64("seed", r.seed),
		slog.Bool("dry_run", r.config.DryRun),
		slog.Int("workers", r.config.Workers),
	)

	start := time.Now()
	err := r.runWorkers(ctx)
	stats := r.snapshot(time.Since(start))

	r.logger.Info("Fuzz run finished",
		slog.Int64("sent", stats.Sent),
		slog.Int64("mutated", stats.Mutated),
		slog.Int64("responses", stats.Responses),
		slog.Int64("send_errors", stats.SendErrors),
		slog.Int64("recv_errors", stats.RecvErrors),
		slog.Int64("anomalies", stats.Anomalies),
		slog.Duration("duration", stats.Duration),
	)
	return stats, err
}

// block is the contiguous range of iterations [first, last] for one worker.
type block struct {
	worker      int
	first, last int
}

func partition(iterations, workers int) []block {
	if workers > iterations {
		workers = iterations
	}
	if workers < 1 {
		return nil
	}
	blocks := make([]block, 0, workers)
	base, rem := iterations/workers, iterations%workers
	next := 1
	for w := 0; w < workers; w++ {
		n := base
		if w < rem {
			n++
		}
		blocks = append(blocks, block{worker: w, first: next, last: next + n - 1})
		next += n
	}
	return blocks
}

func (r *Runner) runWorkers(ctx context.Context) error {
	blocks := partition(r.config.Iterations, r.config.Workers)
	if len(blocks) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool, err := newWorkerPool(len(blocks))
	if err != nil {
		return err
	}
	defer pool.Shutdown()

	var (
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for _, b := range blocks {
		b := b
		if err := pool.Submit(func() error {
			err := r.work(ctx, b)
			if err != nil && !errors.Is(err, context.Canceled) {
				fail(err)
			}
			return err
		}); err != nil {
			fail(err)
			break
		}
	}
	pool.Wait()

	ps := pool.Stats()
	r.logger.Debug("Workers finished",
		slog.Int("capacity", ps.Capacity),
		slog.Int64("submitted", ps.Submitted),
		slog.Int64("completed", ps.Completed),
		slog.Int64("errors", ps.Errors),
	)

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

func (r *Runner) work(ctx context.Context, b block) error {
	rng := rand.New(rand.NewSource(r.seed + int64(b.worker)))

	var t transport.Transport
	if !r.config.DryRun {
		var err error
		t, err = r.dial(ctx, r.schema.Transport)
		if err != nil {
			return fmt.Errorf("worker %d: %w", b.worker, err)
		}
		defer t.Close()
	}

	for i := b.first; i <= b.last; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		if err := r.iterate(ctx, t, rng, b.worker, i); err != nil {
			return err
		}
		if r.config.Delay > 0 && i < b.last {
			if err := sleep(ctx, r.config.Delay); err != nil {
				return err
			}
		}
	}
	return nil
}

// frame is one prepared send.
type frame struct {
	iteration int
	worker    int
	payload   []byte
	mutated   bool
	ops       []string
}

func (f frame) kind() string {
	if f.mutated {
		return "mutated"
	}
	return "valid"
}

func (r *Runner) iterate(ctx context.Context, t transport.Transport, rng *rand.Rand, worker, i int) error {
	msg, err := generator.Generate(r.schema, rng)
	if err != nil {
		return fmt.Errorf("iteration %d: %w", i, err)
	}

	f := frame{iteration: i, worker: worker, payload: msg.Data}
	if mutator.ShouldMutate(rng, r.config.MutationRate) {
		f.payload, f.ops = r.mutator.MutateTrace(msg, rng, r.config.MutationsPerFrame)
		f.mutated = true
		r.stats.mutated.Add(1)
	} else {
		r.stats.valid.Add(1)
	}

	if t == nil {
		r.stats.sent.Add(1)
		r.stats.bytesSent.Add(int64(len(f.payload)))
		r.logFrame(f, nil, true)
		return nil
	}

	if err := t.Send(ctx, f.payload); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.stats.sendErrors.Add(1)
		r.logger.Warn("Send failed",
			slog.Int("iteration", i),
			slog.String("kind", f.kind()),
			slog.String("error", err.Error()),
		)
		r.record(f, nil, ReasonSendError, err.Error())
		r.reconnect(ctx, t, i)
		return nil
	}
	r.stats.sent.Add(1)
	r.stats.bytesSent.Add(int64(len(f.payload)))

	var resp []byte
	if r.config.RecvTimeout > 0 {
		var recvErr error
		resp, recvErr = t.Receive(ctx, r.config.RecvTimeout)
		if recvErr != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		if len(resp) > 0 {
			r.stats.responses.Add(1)
			r.stats.bytesReceived.Add(int64(len(resp)))
		}
		if recvErr != nil {
			r.stats.recvErrors.Add(1)
			r.logger.Warn("Receive failed",
				slog.Int("iteration", i),
				slog.String("kind", f.kind()),
				slog.String("error", recvErr.Error()),
			)
		}
		r.analyze(f, resp, recvErr)
		if recvErr != nil {
			r.reconnect(ctx, t, i)
		}
	}

	r.logFrame(f, resp, false)
	return nil
}

func (r *Runner) analyze(f frame, resp []byte, recvErr error) {
	if !f.mutated {
		r.analyzer.ObserveValid(resp, recvErr)
		return
	}
	v := r.analyzer.ObserveMutated(resp, recvErr)
	if !v.Anomaly {
		return
	}
	r.stats.anomaly.Add(1)
	r.logger.Warn("Anomalous response",
		slog.Int("iteration", f.iteration),
		slog.String("reason", string(v.Reason)),
		slog.String("detail", v.Detail),
	)
	r.record(f, resp, string(v.Reason), v.Detail)
}

func (r *Runner) record(f frame, resp []byte, reason, detail string) {
	_, err := r.corpus.Add(&corpus.Finding{
		Frame:     f.payload,
		Response:  resp,
		Iteration: f.iteration,
		Worker:    f.worker,
		Mutated:   f.mutated,
		Operators: f.ops,
		Reason:    reason,
		Detail:    detail,
	})
	if err != nil {
		r.logger.Error("Failed to save finding", slog.String("error", err.Error()))
	}
}

func (r *Runner) reconnect(ctx context.Context, t transport.Transport, i int) {
	rc, ok := t.(transport.Reconnector)
	if !ok {
		return
	}
	if err := rc.Reconnect(ctx); err != nil {
		r.logger.Warn("Reconnect failed",
			slog.Int("iteration", i),
			slog.String("error", err.Error()),
		)
	}
}

func (r *Runner) logFrame(f frame, resp []byte, dryRun bool) {
	attrs := []slog.Attr{
		slog.Int("iteration", f.iteration),
		slog.String("kind", f.kind()),
	}
	if len(f.ops) > 0 {
		attrs = append(attrs, slog.Any("ops", f.ops))
	}
	attrs = append(attrs,
		slog.Int("sent", len(f.payload)),
		slog.String("hex", Hexdump(f.payload)),
	)
	if dryRun {
		attrs = append(attrs, slog.Bool("dry_run", true))
	} else {
		attrs = append(attrs,
			slog.Int("resp", len(resp)),
			slog.String("resp_hex", Hexdump(resp)),
		)
	}
	r.logger.LogAttrs(context.Background(), slog.LevelInfo, "frame", attrs...)
}

func (r *Runner) snapshot(d time.Duration) Stats {
	return Stats{
		Seed:          r.seed,
		Sent:          r.stats.sent.Load(),
		Valid:         r.stats.valid.Load(),
		Mutated:       r.stats.mutated.Load(),
		Responses:     r.stats.responses.Load(),
		SendErrors:    r.stats.sendErrors.Load(),
		RecvErrors:    r.stats.recvErrors.Load(),
		Anomalies:     r.stats.anomaly.Load(),
		BytesSent:     r.stats.bytesSent.Load(),
		BytesReceived: r.stats.bytesReceived.Load(),
		Duration:      d,
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
