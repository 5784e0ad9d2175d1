package analyzer

import (
	"errors"

	"github.com/glaslos/tlsh"
)

// MinTLSHSize is the smallest input TLSH can hash meaningfully.
const MinTLSHSize = 50

// ErrTooSmall is returned when content is below MinTLSHSize.
var ErrTooSmall = errors.New("content too small for TLSH computation")

// TLSHHash represents a TLSH hash value
type TLSHHash struct {
	hash *tlsh.TLSH
	raw  string
}

// ComputeTLSH computes the TLSH hash for the given content
func ComputeTLSH(content []byte) (*TLSHHash, error) {
	if len(content) < MinTLSHSize {
		return nil, ErrTooSmall
	}
	hash, err := tlsh.HashBytes(content)
	if err != nil {
		return nil, err
	}
	return &TLSHHash{hash: hash, raw: hash.String()}, nil
}

// String returns the hash string representation
func (h *TLSHHash) String() string {
	if h == nil || h.hash == nil {
		return ""
	}
	return h.raw
}

// Distance calculates distance between two hashes, -1 if either is missing
func (h *TLSHHash) Distance(other *TLSHHash) int {
	if h == nil || other == nil || h.hash == nil || other.hash == nil {
		return -1
	}
	return h.hash.Diff(other.hash)
}

// SimilarityLevel represents categorized TLSH distances
type SimilarityLevel int

const (
	LevelIdentical       SimilarityLevel = iota // Distance 0
	LevelNearlySame                             // Distance 1-10
	LevelVerySimilar                            // Distance 11-30
	LevelSimilar                                // Distance 31-100
	LevelSomewhatSimilar                        // Distance 101-200
	LevelDifferent                              // Distance 201+
)

func (l SimilarityLevel) String() string {
	switch l {
	case LevelIdentical:
		return "identical"
	case LevelNearlySame:
		return "nearly_same"
	case LevelVerySimilar:
		return "very_similar"
	case LevelSimilar:
		return "similar"
	case LevelSomewhatSimilar:
		return "somewhat_similar"
	case LevelDifferent:
		return "different"
	default:
		return "unknown"
	}
}

// ClassifyDistance categorizes a TLSH distance into similarity levels
func ClassifyDistance(distance int) SimilarityLevel {
	switch {
	case distance == 0:
		return LevelIdentical
	case distance <= 10:
		return LevelNearlySame
	case distance <= 30:
		return LevelVerySimilar
	case distance <= 100:
		return LevelSimilar
	case distance <= 200:
		return LevelSomewhatSimilar
	default:
		return LevelDifferent
	}
}
