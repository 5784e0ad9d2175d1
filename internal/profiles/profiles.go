// Package profiles holds the built-in protocol schemas shipped with the
// binary. Each profile is an embedded YAML document in the same format
// accepted by --schema.
package profiles

import (
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/fluxprobe/fluxprobe/internal/schema"
)

//go:embed catalog/*.yaml
var catalog embed.FS

// ErrUnknownProfile is returned by Load for names not in the catalog.
var ErrUnknownProfile = errors.New("unknown protocol profile")

// Profile summarizes a catalog entry.
type Profile struct {
	Key       string
	Name      string
	Transport schema.TransportSpec
	Fields    int
}

// Names returns the catalog keys in sorted order.
func Names() []string {
	entries, err := catalog.ReadDir("catalog")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
	}
	sort.Strings(names)
	return names
}

// Load returns the schema for a catalog key, matched case-insensitively.
func Load(name string) (*schema.ProtocolSchema, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	data, err := catalog.ReadFile(path.Join("catalog", key+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("%w %q; available: %s", ErrUnknownProfile, name, strings.Join(Names(), ", "))
	}
	s, err := schema.Parse(data, schema.FormatYAML, key)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", key, err)
	}
	return s, nil
}

// List loads every profile and summarizes it.
func List() ([]Profile, error) {
	names := Names()
	out := make([]Profile, 0, len(names))
	for _, key := range names {
		s, err := Load(key)
		if err != nil {
			return nil, err
		}
		out = append(out, Profile{
			Key:       key,
			Name:      s.Name,
			Transport: s.Transport,
			Fields:    len(s.Message.Fields),
		})
	}
	return out, nil
}
