package analyzer

import (
	"crypto/sha256"
	"encoding/hex"
)

// baseline accumulates what replies to valid frames look like. It is not
// safe for concurrent use; Analyzer guards it.
type baseline struct {
	maxSamples int

	digests map[string]bool
	hashes  []*TLSHHash
	minLen  int
	maxLen  int

	replies int
	silent  int
}

func newBaseline(maxSamples int) *baseline {
	return &baseline{
		maxSamples: maxSamples,
		digests:    make(map[string]bool),
	}
}

func (b *baseline) add(resp []byte) {
	if len(resp) == 0 {
		b.silent++
		return
	}
	if b.replies == 0 || len(resp) < b.minLen {
		b.minLen = len(resp)
	}
	if len(resp) > b.maxLen {
		b.maxLen = len(resp)
	}
	b.replies++

	if len(b.digests) < b.maxSamples {
		b.digests[digest(resp)] = true
	}
	if len(b.hashes) < b.maxSamples {
		if h, err := ComputeTLSH(resp); err == nil {
			b.hashes = append(b.hashes, h)
		}
	}
}

func (b *baseline) samples() int {
	return b.replies + b.silent
}

// nearest returns the smallest distance from h to any baseline hash, -1
// when there is nothing to compare against.
func (b *baseline) nearest(h *TLSHHash) int {
	best := -1
	for _, bh := range b.hashes {
		d := h.Distance(bh)
		if d >= 0 && (best < 0 || d < best) {
			best = d
		}
	}
	return best
}

func digest(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
