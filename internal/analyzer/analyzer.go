// Package analyzer compares replies to mutated frames against what the
// target returns for valid frames and flags the ones that diverge.
//
// Replies to valid frames form the baseline. A reply to a mutated frame
// is anomalous when the receive failed, when the target went silent
// although it always answered valid frames, or when the reply matches
// nothing in the baseline: TLSH distance for replies large enough to
// hash, length range otherwise.
package analyzer

import (
	"fmt"
	"sync"
)

// Config holds configuration for response analysis
type Config struct {
	// MinBaseline is the number of valid-frame samples needed before
	// mutated replies are judged
	MinBaseline int

	// MaxSamples caps the stored digests and hashes
	MaxSamples int

	// DistanceThreshold is the TLSH distance above which a reply counts
	// as divergent
	DistanceThreshold int
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		MinBaseline:       3,
		MaxSamples:        64,
		DistanceThreshold: 100,
	}
}

// Reason names why a reply was flagged.
type Reason string

const (
	ReasonReceiveError Reason = "receive-error"
	ReasonSilent       Reason = "silent"
	ReasonDivergent    Reason = "divergent"
	ReasonLength       Reason = "unexpected-length"
)

// Verdict is the outcome of one observation.
type Verdict struct {
	Anomaly  bool
	Reason   Reason
	Distance int
	Level    SimilarityLevel
	Detail   string
}

// Analyzer is safe for concurrent use by multiple workers.
type Analyzer struct {
	config *Config

	mu       sync.RWMutex
	baseline *baseline

	observed  int64
	anomalies int64
}

// New creates an Analyzer
func New(config *Config) *Analyzer {
	if config == nil {
		config = DefaultConfig()
	}
	return &Analyzer{
		config:   config,
		baseline: newBaseline(config.MaxSamples),
	}
}

// ObserveValid records the reply to a valid frame.
func (a *Analyzer) ObserveValid(resp []byte, recvErr error) {
	if recvErr != nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.observed++
	a.baseline.add(resp)
}

// ObserveMutated judges the reply to a mutated frame.
func (a *Analyzer) ObserveMutated(resp []byte, recvErr error) Verdict {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.observed++

	v := a.judge(resp, recvErr)
	if v.Anomaly {
		a.anomalies++
	}
	return v
}

func (a *Analyzer) judge(resp []byte, recvErr error) Verdict {
	if recvErr != nil {
		return Verdict{Anomaly: true, Reason: ReasonReceiveError, Distance: -1, Detail: recvErr.Error()}
	}

	b := a.baseline
	if b.samples() < a.config.MinBaseline {
		return Verdict{Distance: -1}
	}

	if len(resp) == 0 {
		if b.silent == 0 {
			return Verdict{Anomaly: true, Reason: ReasonSilent, Distance: -1,
				Detail: fmt.Sprintf("no reply; all %d baseline frames were answered", b.replies)}
		}
		return Verdict{Distance: -1}
	}
	if b.replies == 0 {
		return Verdict{Distance: -1}
	}

	if b.digests[digest(resp)] {
		return Verdict{Distance: 0, Level: LevelIdentical}
	}

	if h, err := ComputeTLSH(resp); err == nil {
		if d := b.nearest(h); d >= 0 {
			v := Verdict{Distance: d, Level: ClassifyDistance(d)}
			if d > a.config.DistanceThreshold {
				v.Anomaly = true
				v.Reason = ReasonDivergent
				v.Detail = fmt.Sprintf("TLSH distance %d (%s)", d, v.Level)
			}
			return v
		}
	}

	if len(resp) < b.minLen || len(resp) > b.maxLen {
		return Verdict{Anomaly: true, Reason: ReasonLength, Distance: -1,
			Detail: fmt.Sprintf("%d bytes outside baseline %d-%d", len(resp), b.minLen, b.maxLen)}
	}
	return Verdict{Distance: -1}
}

// Stats holds analyzer counters
type Stats struct {
	Observed       int64
	Anomalies      int64
	BaselineSize   int
	BaselineHashes int
}

// Stats returns current analyzer counters
func (a *Analyzer) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Stats{
		Observed:       a.observed,
		Anomalies:      a.anomalies,
		BaselineSize:   a.baseline.samples(),
		BaselineHashes: len(a.baseline.hashes),
	}
}
