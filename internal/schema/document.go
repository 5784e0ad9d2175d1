package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Document is the on-disk shape of a schema, shared by the YAML and JSON
// readers and by the built-in profile catalog.
type Document struct {
	Name      string            `yaml:"name" json:"name"`
	Transport TransportDocument `yaml:"transport" json:"transport"`
	Message   MessageDocument   `yaml:"message" json:"message"`
}

// TransportDocument is the raw transport section.
type TransportDocument struct {
	Type    string   `yaml:"type" json:"type"`
	Host    string   `yaml:"host" json:"host"`
	Port    *int     `yaml:"port" json:"port"`
	Timeout *float64 `yaml:"timeout" json:"timeout"` // seconds
}

// MessageDocument is the raw message section.
type MessageDocument struct {
	Fields []FieldDocument `yaml:"fields" json:"fields"`
}

// FieldDocument is one raw field entry.
type FieldDocument struct {
	Name       string `yaml:"name" json:"name"`
	Type       string `yaml:"type" json:"type"`
	Length     *int   `yaml:"length" json:"length"`
	LengthOf   string `yaml:"length_of" json:"length_of"`
	MinValue   *int64 `yaml:"min_value" json:"min_value"`
	MaxValue   *int64 `yaml:"max_value" json:"max_value"`
	MinLength  *int   `yaml:"min_length" json:"min_length"`
	MaxLength  *int   `yaml:"max_length" json:"max_length"`
	Choices    []any  `yaml:"choices" json:"choices"`
	Default    any    `yaml:"default" json:"default"`
	Encoding   string `yaml:"encoding" json:"encoding"`
	FuzzValues []any  `yaml:"fuzz_values" json:"fuzz_values"`
}

// Format selects the decoder used by Parse.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatForPath picks YAML for .yaml/.yml files and JSON otherwise.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads, decodes and validates a schema file. The file stem is the
// display name when the document has none.
func Load(path string) (*ProtocolSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Parse(data, FormatForPath(path), stem)
}

// Parse decodes and validates a schema document.
func Parse(data []byte, format Format, fallbackName string) (*ProtocolSchema, error) {
	var doc Document
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	}
	return FromDocument(doc, fallbackName)
}

// FromDocument converts a decoded document into a validated schema.
func FromDocument(doc Document, fallbackName string) (*ProtocolSchema, error) {
	name := doc.Name
	if name == "" {
		name = fallbackName
	}
	if name == "" {
		name = "unnamed"
	}

	transport := TransportSpec{
		Type: doc.Transport.Type,
		Host: doc.Transport.Host,
	}
	if transport.Host == "" {
		transport.Host = DefaultHost
	}
	if doc.Transport.Port != nil {
		transport.Port = *doc.Transport.Port
	}
	if doc.Transport.Timeout != nil {
		transport.Timeout = time.Duration(*doc.Transport.Timeout * float64(time.Second))
	}

	fields := make([]FieldSpec, len(doc.Message.Fields))
	for i, raw := range doc.Message.Fields {
		fields[i] = raw.spec()
	}
	return New(name, transport, fields)
}

func (d FieldDocument) spec() FieldSpec {
	return FieldSpec{
		Name:       d.Name,
		Type:       ParseFieldType(d.Type),
		RawType:    d.Type,
		Length:     d.Length,
		LengthOf:   d.LengthOf,
		MinValue:   d.MinValue,
		MaxValue:   d.MaxValue,
		MinLength:  d.MinLength,
		MaxLength:  d.MaxLength,
		Choices:    valuesOf(d.Choices),
		Default:    ValueOf(d.Default),
		Encoding:   d.Encoding,
		FuzzValues: valuesOf(d.FuzzValues),
	}
}
