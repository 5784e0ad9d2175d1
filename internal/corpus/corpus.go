// Package corpus keeps the frames that provoked a transport failure or an
// anomalous reply, optionally mirrored to disk for replay.
package corpus

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const findingsDir = "findings"

// Finding is one frame worth keeping.
type Finding struct {
	Frame    []byte `json:"-"`
	Response []byte `json:"-"`

	Hash         string    `json:"hash"`
	Size         int       `json:"size"`
	Iteration    int       `json:"iteration"`
	Worker       int       `json:"worker"`
	Mutated      bool      `json:"mutated"`
	Operators    []string  `json:"operators,omitempty"`
	Reason       string    `json:"reason"`
	Detail       string    `json:"detail,omitempty"`
	ResponseSize int       `json:"response_size"`
	Count        int       `json:"count"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// Corpus deduplicates findings by frame hash. A Corpus with an empty
// directory stays in memory.
type Corpus struct {
	dir      string
	findings []*Finding
	index    map[string]*Finding
	mu       sync.RWMutex
}

// New creates a corpus rooted at dir, creating the directory layout.
func New(dir string) (*Corpus, error) {
	if dir != "" {
		if err := os.MkdirAll(filepath.Join(dir, findingsDir), 0755); err != nil {
			return nil, fmt.Errorf("failed to create corpus directory: %w", err)
		}
	}
	return &Corpus{
		dir:   dir,
		index: make(map[string]*Finding),
	}, nil
}

// Dir returns the corpus directory, empty for in-memory corpora.
func (c *Corpus) Dir() string {
	return c.dir
}

// Add records a finding. It returns false when the same frame was already
// recorded, in which case only the hit count grows.
func (c *Corpus) Add(f *Finding) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f.Hash = hashBytes(f.Frame)
	if existing, ok := c.index[f.Hash]; ok {
		existing.Count++
		return false, nil
	}

	f.Size = len(f.Frame)
	f.ResponseSize = len(f.Response)
	f.Count = 1
	if f.DiscoveredAt.IsZero() {
		f.DiscoveredAt = time.Now()
	}
	c.findings = append(c.findings, f)
	c.index[f.Hash] = f

	if c.dir == "" {
		return true, nil
	}
	return true, c.save(f)
}

// Findings returns all findings in discovery order
func (c *Corpus) Findings() []*Finding {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Finding, len(c.findings))
	copy(out, c.findings)
	return out
}

// Get returns a finding by hash
func (c *Corpus) Get(hash string) *Finding {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index[hash]
}

// Size returns the number of distinct findings
func (c *Corpus) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.findings)
}

// save writes the frame, the reply and the metadata side by side
func (c *Corpus) save(f *Finding) error {
	base := filepath.Join(c.dir, findingsDir, f.Hash)
	if err := os.WriteFile(base+".bin", f.Frame, 0644); err != nil {
		return err
	}
	if len(f.Response) > 0 {
		if err := os.WriteFile(base+".response", f.Response, 0644); err != nil {
			return err
		}
	}
	meta, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(base+".json", meta, 0644)
}

// Load reads findings previously saved under the corpus directory.
func (c *Corpus) Load() error {
	if c.dir == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	dir := filepath.Join(c.dir, findingsDir)
	files, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	var (
		loaded []*Finding
		errs   []error
	)
	for _, file := range files {
		name := file.Name()
		if filepath.Ext(name) != ".bin" {
			continue
		}
		hash := strings.TrimSuffix(name, ".bin")
		if _, exists := c.index[hash]; exists {
			continue
		}

		frame, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		f := &Finding{Frame: frame, Hash: hash, Size: len(frame), Count: 1}
		if meta, err := os.ReadFile(filepath.Join(dir, hash+".json")); err == nil {
			if err := json.Unmarshal(meta, f); err != nil {
				errs = append(errs, fmt.Errorf("finding %s: corrupt metadata: %w", hash, err))
				continue
			}
		}
		if resp, err := os.ReadFile(filepath.Join(dir, hash+".response")); err == nil {
			f.Response = resp
		}
		loaded = append(loaded, f)
	}

	sort.Slice(loaded, func(i, j int) bool {
		return loaded[i].DiscoveredAt.Before(loaded[j].DiscoveredAt)
	})
	for _, f := range loaded {
		c.findings = append(c.findings, f)
		c.index[f.Hash] = f
	}
	return errors.Join(errs...)
}

// Stats holds corpus statistics
type Stats struct {
	Findings  int            `json:"findings"`
	TotalHits int            `json:"total_hits"`
	ByReason  map[string]int `json:"by_reason"`
	MaxSize   int            `json:"max_size"`
	MinSize   int            `json:"min_size"`
}

// Stats returns corpus statistics
func (c *Corpus) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	st := Stats{Findings: len(c.findings), ByReason: make(map[string]int)}
	for i, f := range c.findings {
		st.TotalHits += f.Count
		st.ByReason[f.Reason]++
		if f.Size > st.MaxSize {
			st.MaxSize = f.Size
		}
		if i == 0 || f.Size < st.MinSize {
			st.MinSize = f.Size
		}
	}
	return st
}

// hashBytes generates a hash for bytes
func hashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
