package mutator

import (
	"math/rand"

	"github.com/fluxprobe/fluxprobe/internal/generator"
	"github.com/fluxprobe/fluxprobe/internal/schema"
)

// Built-in operator names.
const (
	OpBitFlip       = "bitflip"
	OpRandomByte    = "randbyte"
	OpTruncate      = "truncate"
	OpExtend        = "extend"
	OpCorruptLength = "corrupt-length"
	OpInvalidEnum   = "invalid-enum"
)

const (
	maxExtend       = 8
	maxEnumOverflow = 10
)

// lengthOffsets are the small deltas tried against a length field.
var lengthOffsets = []int64{-2, -1, 1, 2}

// --- bitFlip ---

type bitFlip struct{}

func (bitFlip) Name() string        { return OpBitFlip }
func (bitFlip) Description() string { return "Flips one random bit" }

func (bitFlip) Apply(buf []byte, _ *generator.Message, rng *rand.Rand) []byte {
	if len(buf) == 0 {
		return buf
	}
	idx := rng.Intn(len(buf))
	buf[idx] ^= 1 << uint(rng.Intn(8))
	return buf
}

// --- randomByte ---

type randomByte struct{}

func (randomByte) Name() string        { return OpRandomByte }
func (randomByte) Description() string { return "Overwrites one byte with a random value" }

func (randomByte) Apply(buf []byte, _ *generator.Message, rng *rand.Rand) []byte {
	if len(buf) == 0 {
		return buf
	}
	buf[rng.Intn(len(buf))] = byte(rng.Intn(256))
	return buf
}

// --- truncate ---

type truncate struct{}

func (truncate) Name() string        { return OpTruncate }
func (truncate) Description() string { return "Cuts the frame short, keeping at least one byte" }

func (truncate) Apply(buf []byte, _ *generator.Message, rng *rand.Rand) []byte {
	if len(buf) <= 1 {
		return buf
	}
	return buf[:1+rng.Intn(len(buf)-1)]
}

// --- extend ---

type extend struct{}

func (extend) Name() string        { return OpExtend }
func (extend) Description() string { return "Appends 1-8 random trailing bytes" }

func (extend) Apply(buf []byte, _ *generator.Message, rng *rand.Rand) []byte {
	extra := make([]byte, 1+rng.Intn(maxExtend))
	rng.Read(extra)
	return append(buf, extra...)
}

// --- corruptLength ---

// corruptLength nudges a derived length field off its true value.
type corruptLength struct {
	fields []schema.FieldSpec
}

func newCorruptLength(s *schema.ProtocolSchema) corruptLength {
	var fields []schema.FieldSpec
	if s != nil {
		for _, f := range s.Message.Fields {
			if f.IsDerived() {
				fields = append(fields, f)
			}
		}
	}
	return corruptLength{fields: fields}
}

func (corruptLength) Name() string { return OpCorruptLength }
func (corruptLength) Description() string {
	return "Offsets a length field by a small delta or doubles it"
}

func (o corruptLength) Apply(buf []byte, msg *generator.Message, rng *rand.Rand) []byte {
	if len(o.fields) == 0 || msg == nil || len(msg.Spans) == 0 {
		return buf
	}
	f := o.fields[rng.Intn(len(o.fields))]
	span, ok := fieldSpan(buf, msg, f.Name)
	if !ok {
		return buf
	}
	width := f.Width()
	if width == 0 {
		width = span.Len()
	}
	max := schema.MaxForWidth(width)
	current := int64(generator.Uint(buf[span.Start:span.End]) & uint64(max))

	// The small offsets, plus doubling (2c+1) while that still fits the width.
	choices := len(lengthOffsets)
	if current < max/2 {
		choices++
	}
	var v int64
	if pick := rng.Intn(choices); pick < len(lengthOffsets) {
		v = current + lengthOffsets[pick]
	} else {
		v = current*2 + 1
	}
	if v < 0 {
		v = 0
	}
	if v > max {
		v = max
	}
	return splice(buf, span, generator.PutUint(width, uint64(v)))
}

// --- invalidEnum ---

// invalidEnum writes a value outside an enum field's declared choices.
type invalidEnum struct {
	fields []schema.FieldSpec
}

func newInvalidEnum(s *schema.ProtocolSchema) invalidEnum {
	var fields []schema.FieldSpec
	if s != nil {
		fields = s.FieldsOfType(schema.TypeEnum)
	}
	return invalidEnum{fields: fields}
}

func (invalidEnum) Name() string        { return OpInvalidEnum }
func (invalidEnum) Description() string { return "Writes a value outside an enum's choices" }

func (o invalidEnum) Apply(buf []byte, msg *generator.Message, rng *rand.Rand) []byte {
	if len(o.fields) == 0 || msg == nil || len(msg.Spans) == 0 {
		return buf
	}
	f := o.fields[rng.Intn(len(o.fields))]
	span, ok := fieldSpan(buf, msg, f.Name)
	if !ok {
		return buf
	}
	width := f.Width()

	choices := f.IntChoices()
	if len(choices) == 0 {
		// No numeric ceiling for text choices; swap in raw bytes.
		junk := make([]byte, width)
		rng.Read(junk)
		return splice(buf, span, junk)
	}

	top := choices[0]
	for _, c := range choices[1:] {
		if c > top {
			top = c
		}
	}
	max := schema.MaxForWidth(width)
	v := top + 1 + int64(rng.Intn(maxEnumOverflow))
	if v > max || v < 0 {
		v = max
	}
	return splice(buf, span, generator.PutUint(width, uint64(v)))
}

// fieldSpan returns the named span if it still lies inside buf.
func fieldSpan(buf []byte, msg *generator.Message, name string) (generator.Span, bool) {
	span, ok := msg.Spans[name]
	if !ok || span.Start < 0 || span.End > len(buf) || span.Start > span.End {
		return generator.Span{}, false
	}
	return span, true
}

// splice replaces buf[span] with repl. Equal widths are written in place.
func splice(buf []byte, span generator.Span, repl []byte) []byte {
	if len(repl) == span.Len() {
		copy(buf[span.Start:span.End], repl)
		return buf
	}
	out := make([]byte, 0, len(buf)-span.Len()+len(repl))
	out = append(out, buf[:span.Start]...)
	out = append(out, repl...)
	return append(out, buf[span.End:]...)
}
