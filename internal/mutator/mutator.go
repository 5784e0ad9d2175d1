// Package mutator corrupts generated messages with structural operators.
// Operators see the serialized frame together with the field spans the
// generator recorded, so they can target length and enum fields directly
// instead of only flipping random bits.
package mutator

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/fluxprobe/fluxprobe/internal/generator"
	"github.com/fluxprobe/fluxprobe/internal/schema"
)

// ErrUnknownOperator is returned when an allow-list names an operator that
// is not registered.
var ErrUnknownOperator = errors.New("unknown mutation operator")

// Operator is a single structural corruption transform.
type Operator interface {
	// Name returns the operator name used in logs and allow-lists
	Name() string

	// Description returns a brief description of the corruption
	Description() string

	// Apply corrupts buf and returns the result, which may share buf's
	// backing array or have a different length. Degenerate input is
	// returned unchanged.
	Apply(buf []byte, msg *generator.Message, rng *rand.Rand) []byte
}

// --- Registry: Manages available operators ---

// Registry stores operators in insertion order
type Registry struct {
	mu        sync.RWMutex
	operators map[string]Operator
	order     []string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		operators: make(map[string]Operator),
	}
}

// Register adds an operator, replacing any operator with the same name
func (r *Registry) Register(op Operator) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := op.Name()
	if _, exists := r.operators[name]; !exists {
		r.order = append(r.order, name)
	}
	r.operators[name] = op
}

// Get retrieves an operator by name
func (r *Registry) Get(name string) (Operator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	op, exists := r.operators[name]
	return op, exists
}

// All returns all registered operators in insertion order
func (r *Registry) All() []Operator {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Operator, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.operators[name])
	}
	return result
}

// Names returns the registered operator names in insertion order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]string, len(r.order))
	copy(result, r.order)
	return result
}

// DefaultRegistry returns a registry holding the six built-in operators
// bound to s.
func DefaultRegistry(s *schema.ProtocolSchema) *Registry {
	r := NewRegistry()
	r.Register(bitFlip{})
	r.Register(randomByte{})
	r.Register(truncate{})
	r.Register(extend{})
	r.Register(newCorruptLength(s))
	r.Register(newInvalidEnum(s))
	return r
}

// OperatorNames lists the built-in operator names in registration order.
func OperatorNames() []string {
	return []string{OpBitFlip, OpRandomByte, OpTruncate, OpExtend, OpCorruptLength, OpInvalidEnum}
}

// --- Mutator: Applies operators to generated messages ---

// Mutator applies randomly chosen operators to copies of generated frames.
// It holds no mutable state, so one Mutator can serve many workers as long
// as each brings its own rng.
type Mutator struct {
	registry *Registry
	active   []Operator
}

// Option configures a Mutator.
type Option func(*Mutator) error

// WithOperators restricts selection to the named operators. An empty list
// keeps all of them.
func WithOperators(names ...string) Option {
	return func(m *Mutator) error {
		if len(names) == 0 {
			return nil
		}
		active := make([]Operator, 0, len(names))
		for _, name := range names {
			op, ok := m.registry.Get(name)
			if !ok {
				return fmt.Errorf("%w: %q", ErrUnknownOperator, name)
			}
			active = append(active, op)
		}
		m.active = active
		return nil
	}
}

// New creates a Mutator for messages generated from s.
func New(s *schema.ProtocolSchema, opts ...Option) (*Mutator, error) {
	m := &Mutator{registry: DefaultRegistry(s)}
	m.active = m.registry.All()
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Registry returns the underlying registry
func (m *Mutator) Registry() *Registry {
	return m.registry
}

// Mutate applies n operators to a copy of msg.Data and returns the result.
// n below 1 counts as 1. msg is never modified.
func (m *Mutator) Mutate(msg *generator.Message, rng *rand.Rand, n int) []byte {
	out, _ := m.MutateTrace(msg, rng, n)
	return out
}

// MutateTrace is Mutate that also reports the applied operator names in order.
func (m *Mutator) MutateTrace(msg *generator.Message, rng *rand.Rand, n int) ([]byte, []string) {
	if n < 1 {
		n = 1
	}
	var buf []byte
	if msg != nil {
		buf = make([]byte, len(msg.Data))
		copy(buf, msg.Data)
	}
	if len(m.active) == 0 {
		return buf, nil
	}

	applied := make([]string, 0, n)
	for i := 0; i < n; i++ {
		op := m.active[rng.Intn(len(m.active))]
		buf = op.Apply(buf, msg, rng)
		applied = append(applied, op.Name())
	}
	return buf, applied
}

// ShouldMutate decides whether to apply mutation based on probability
func ShouldMutate(rng *rand.Rand, probability float64) bool {
	if probability <= 0 {
		return false
	}
	if probability >= 1.0 {
		return true
	}
	return rng.Float64() < probability
}
