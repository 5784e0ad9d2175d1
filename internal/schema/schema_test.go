package schema

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func intPtr(v int) *int { return &v }

func i64Ptr(v int64) *int64 { return &v }

func fieldsDoc(fields ...FieldDocument) Document {
	return Document{
		Transport: TransportDocument{Type: "tcp", Host: "x", Port: intPtr(1)},
		Message:   MessageDocument{Fields: fields},
	}
}

func TestFromDocument_RejectsEmptyFields(t *testing.T) {
	_, err := FromDocument(fieldsDoc(), "empty")
	if !errors.Is(err, ErrNoFields) {
		t.Fatalf("expected ErrNoFields, got %v", err)
	}
}

func TestFromDocument_UnknownLengthTarget(t *testing.T) {
	_, err := FromDocument(fieldsDoc(
		FieldDocument{Name: "len", Type: "u16", LengthOf: "nonexistent"},
	), "")
	if !errors.Is(err, ErrUnknownLengthTarget) {
		t.Fatalf("expected ErrUnknownLengthTarget, got %v", err)
	}
	var se *SchemaError
	if !errors.As(err, &se) || se.Field != "len" {
		t.Errorf("expected SchemaError for field len, got %#v", err)
	}
}

func TestFromDocument_CycleDetection(t *testing.T) {
	tests := []struct {
		name   string
		fields []FieldDocument
	}{
		{
			name: "self reference",
			fields: []FieldDocument{
				{Name: "a", Type: "u8", LengthOf: "a"},
			},
		},
		{
			name: "two cycle",
			fields: []FieldDocument{
				{Name: "a", Type: "u8", LengthOf: "b"},
				{Name: "b", Type: "u8", LengthOf: "a"},
			},
		},
		{
			name: "three cycle",
			fields: []FieldDocument{
				{Name: "a", Type: "u8", LengthOf: "b"},
				{Name: "b", Type: "u8", LengthOf: "c"},
				{Name: "c", Type: "u8", LengthOf: "a"},
			},
		},
		{
			name: "cycle behind a tail",
			fields: []FieldDocument{
				{Name: "tail", Type: "u8", LengthOf: "a"},
				{Name: "a", Type: "u8", LengthOf: "b"},
				{Name: "b", Type: "u8", LengthOf: "a"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromDocument(fieldsDoc(tt.fields...), "")
			if !errors.Is(err, ErrLengthCycle) {
				t.Fatalf("expected ErrLengthCycle, got %v", err)
			}
			var se *SchemaError
			if !errors.As(err, &se) || se.Field == "" {
				t.Errorf("cycle error should name a field: %v", err)
			}
		})
	}
}

func TestFromDocument_AcyclicChainAccepted(t *testing.T) {
	s, err := FromDocument(fieldsDoc(
		FieldDocument{Name: "a", Type: "u8", LengthOf: "b"},
		FieldDocument{Name: "b", Type: "bytes", MinLength: intPtr(1), MaxLength: intPtr(3)},
	), "chain")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Name != "chain" {
		t.Errorf("expected fallback name, got %q", s.Name)
	}
}

func TestDerivedFields_MultiHopOrder(t *testing.T) {
	// outer measures inner, inner measures payload; outer is declared first.
	s, err := FromDocument(fieldsDoc(
		FieldDocument{Name: "outer", Type: "u8", LengthOf: "inner"},
		FieldDocument{Name: "inner", Type: "u16", LengthOf: "payload"},
		FieldDocument{Name: "payload", Type: "bytes"},
	), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	derived := s.DerivedFields()
	if len(derived) != 2 {
		t.Fatalf("expected 2 derived fields, got %d", len(derived))
	}
	if derived[0].Name != "inner" || derived[1].Name != "outer" {
		t.Errorf("expected inner before outer, got %s, %s", derived[0].Name, derived[1].Name)
	}
}

func TestFromDocument_PortValidation(t *testing.T) {
	tests := []struct {
		port    *int
		wantErr bool
	}{
		{nil, false},
		{intPtr(0), false},
		{intPtr(1), false},
		{intPtr(65535), false},
		{intPtr(-1), true},
		{intPtr(70000), true},
	}

	for _, tt := range tests {
		doc := fieldsDoc(FieldDocument{Name: "x", Type: "u8"})
		doc.Transport.Port = tt.port
		_, err := FromDocument(doc, "")
		if tt.wantErr && !errors.Is(err, ErrInvalidPort) {
			t.Errorf("port %v: expected ErrInvalidPort, got %v", tt.port, err)
		}
		if !tt.wantErr && err != nil {
			t.Errorf("port %v: unexpected error %v", tt.port, err)
		}
	}
}

func TestFromDocument_FieldValidation(t *testing.T) {
	tests := []struct {
		name  string
		field FieldDocument
		want  error
	}{
		{"min above max value", FieldDocument{Name: "x", Type: "u8", MinValue: i64Ptr(5), MaxValue: i64Ptr(2)}, ErrInvalidField},
		{"min above max length", FieldDocument{Name: "x", Type: "bytes", MinLength: intPtr(5), MaxLength: intPtr(2)}, ErrInvalidField},
		{"negative length", FieldDocument{Name: "x", Type: "bytes", Length: intPtr(-1)}, ErrInvalidField},
		{"wide enum", FieldDocument{Name: "x", Type: "enum", Length: intPtr(8)}, ErrInvalidField},
		{"unknown encoding", FieldDocument{Name: "x", Type: "string", Encoding: "klingon"}, ErrUnknownEncoding},
		{"unnamed", FieldDocument{Type: "u8"}, ErrInvalidField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromDocument(fieldsDoc(tt.field), "")
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestFromDocument_DuplicateNames(t *testing.T) {
	_, err := FromDocument(fieldsDoc(
		FieldDocument{Name: "x", Type: "u8"},
		FieldDocument{Name: "x", Type: "u16"},
	), "")
	if !errors.Is(err, ErrDuplicateField) {
		t.Fatalf("expected ErrDuplicateField, got %v", err)
	}
}

func TestFromDocument_UnknownTypeIsDeferred(t *testing.T) {
	s, err := FromDocument(fieldsDoc(FieldDocument{Name: "x", Type: "weird"}), "")
	if err != nil {
		t.Fatalf("unknown types are rejected at generation, got %v", err)
	}
	f, _ := s.Field("x")
	if f.Type != TypeUnknown || f.RawType != "weird" {
		t.Errorf("unexpected field %+v", f)
	}
}

func TestFromDocument_TransportDefaults(t *testing.T) {
	doc := Document{Message: MessageDocument{Fields: []FieldDocument{{Name: "x", Type: "u8"}}}}
	s, err := FromDocument(doc, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Name != "unnamed" {
		t.Errorf("expected unnamed, got %q", s.Name)
	}
	tr := s.Transport
	if tr.Type != "tcp" || tr.Host != "127.0.0.1" || tr.Port != 0 || tr.Timeout != time.Second {
		t.Errorf("unexpected transport defaults %+v", tr)
	}
}

func TestWidth_EnumInference(t *testing.T) {
	tests := []struct {
		name    string
		choices []any
		length  *int
		want    int
	}{
		{"u8 range", []any{1, 2, 255}, nil, 1},
		{"u16 range", []any{1, 256, 1000}, nil, 2},
		{"u32 range", []any{1, 70000}, nil, 4},
		{"explicit length wins", []any{1, 70000}, intPtr(2), 2},
		{"string choices", []any{"GET", "POST"}, nil, 1},
		{"mixed choices", []any{"GET", 300}, nil, 2},
		{"no choices", nil, nil, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := FieldDocument{Name: "x", Type: "enum", Choices: tt.choices, Length: tt.length}.spec()
			if got := f.Width(); got != tt.want {
				t.Errorf("expected width %d, got %d", tt.want, got)
			}
		})
	}
}

func TestWidth_FixedTypes(t *testing.T) {
	tests := []struct {
		typ  string
		want int
	}{
		{"u8", 1}, {"U16", 2}, {"u32", 4}, {"bytes", 0}, {"string", 0},
	}
	for _, tt := range tests {
		f := FieldDocument{Name: "x", Type: tt.typ}.spec()
		if got := f.Width(); got != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.typ, tt.want, got)
		}
	}
}

func TestBoundsDefaults(t *testing.T) {
	u16 := FieldDocument{Name: "x", Type: "u16"}.spec()
	if min, max := u16.IntBounds(); min != 0 || max != 0xFFFF {
		t.Errorf("u16 bounds: got %d..%d", min, max)
	}
	u32 := FieldDocument{Name: "x", Type: "u32", MinValue: i64Ptr(10), MaxValue: i64Ptr(10)}.spec()
	if min, max := u32.IntBounds(); min != 10 || max != 10 {
		t.Errorf("u32 bounds: got %d..%d", min, max)
	}
	b := FieldDocument{Name: "x", Type: "bytes"}.spec()
	if min, max := b.LengthBounds(); min != 0 || max != 32 {
		t.Errorf("bytes bounds: got %d..%d", min, max)
	}
	fixed := FieldDocument{Name: "x", Type: "bytes", Length: intPtr(2), MaxLength: intPtr(9)}.spec()
	if min, max := fixed.LengthBounds(); min != 2 || max != 2 {
		t.Errorf("fixed bounds: got %d..%d", min, max)
	}
}

func TestLoad_YAMLAndJSON(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "demo.yaml")
	yamlDoc := `
transport: {type: udp, host: 10.0.0.1, port: 5683, timeout: 0.5}
message:
  fields:
    - {name: code, type: enum, choices: [1, 2, 3], default: 1}
    - {name: len, type: u16, length_of: payload}
    - {name: payload, type: bytes, fuzz_values: ["\xff\x00", ""]}
`
	if err := os.WriteFile(yamlPath, []byte(yamlDoc), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := Load(yamlPath)
	if err != nil {
		t.Fatalf("load yaml: %v", err)
	}
	if s.Name != "demo" {
		t.Errorf("expected name from file stem, got %q", s.Name)
	}
	if s.Transport.Type != "udp" || s.Transport.Timeout != 500*time.Millisecond {
		t.Errorf("unexpected transport %+v", s.Transport)
	}
	code, _ := s.Field("code")
	if !code.Default.Equal(IntValue(1)) || len(code.Choices) != 3 {
		t.Errorf("unexpected code field %+v", code)
	}

	jsonPath := filepath.Join(dir, "demo.json")
	jsonDoc := `{"name": "JSON Demo", "transport": {"port": 9000},
		"message": {"fields": [{"name": "v", "type": "u16", "default": 1234}]}}`
	if err := os.WriteFile(jsonPath, []byte(jsonDoc), 0644); err != nil {
		t.Fatal(err)
	}
	s, err = Load(jsonPath)
	if err != nil {
		t.Fatalf("load json: %v", err)
	}
	v, _ := s.Field("v")
	if s.Name != "JSON Demo" || !v.Default.Equal(IntValue(1234)) {
		t.Errorf("unexpected json schema %q %+v", s.Name, v)
	}
}

func TestWithTarget_ReturnsCopy(t *testing.T) {
	s, err := FromDocument(fieldsDoc(FieldDocument{Name: "x", Type: "u8"}), "")
	if err != nil {
		t.Fatal(err)
	}
	moved, err := s.WithTarget("::1", 2222)
	if err != nil {
		t.Fatal(err)
	}
	if s.Transport.Host != "x" || s.Transport.Port != 1 {
		t.Errorf("original schema modified: %+v", s.Transport)
	}
	if moved.Transport.Address() != "[::1]:2222" {
		t.Errorf("unexpected address %s", moved.Transport.Address())
	}
	if _, err := s.WithTarget("", 99999); !errors.Is(err, ErrInvalidPort) {
		t.Errorf("expected ErrInvalidPort, got %v", err)
	}
}

func TestLookupEncoding(t *testing.T) {
	ascii, err := LookupEncoding("ASCII")
	if err != nil {
		t.Fatal(err)
	}
	if got := ascii.Encode("héllo"); string(got) != "hllo" {
		t.Errorf("ascii should drop non-ascii runes, got %q", got)
	}

	latin, err := LookupEncoding("latin-1")
	if err != nil {
		t.Fatal(err)
	}
	if got := latin.Encode("\u00ffé世"); len(got) != 2 || got[1] != 0xE9 {
		t.Errorf("latin-1 encode: got %x", got)
	}

	utf, err := LookupEncoding("utf-8")
	if err != nil {
		t.Fatal(err)
	}
	if got := utf.Encode("é"); len(got) != 2 {
		t.Errorf("utf-8 encode: got %x", got)
	}

	if _, err := LookupEncoding("no-such-charset"); !errors.Is(err, ErrUnknownEncoding) {
		t.Errorf("expected ErrUnknownEncoding, got %v", err)
	}
}

func TestValueOf(t *testing.T) {
	tests := []struct {
		raw  any
		kind ValueKind
	}{
		{nil, KindNone},
		{7, KindInt},
		{float64(3), KindInt},
		{3.5, KindOther},
		{"abc", KindString},
		{[]byte{1}, KindBytes},
		{true, KindOther},
		{uint64(1 << 63), KindOther},
	}
	for _, tt := range tests {
		if got := ValueOf(tt.raw).Kind; got != tt.kind {
			t.Errorf("ValueOf(%v): expected kind %d, got %d", tt.raw, tt.kind, got)
		}
	}
}
