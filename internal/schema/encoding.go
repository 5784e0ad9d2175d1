package schema

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
)

// TextEncoding turns text into bytes, silently dropping characters the
// target character set cannot represent.
type TextEncoding struct {
	name  string
	ascii bool
	utf8  bool
	enc   encoding.Encoding
}

// Name returns the canonical name the encoding was resolved to.
func (e TextEncoding) Name() string {
	return e.name
}

// Encode converts s. It never fails: unencodable runes are skipped.
func (e TextEncoding) Encode(s string) []byte {
	switch {
	case e.utf8:
		return []byte(s)
	case e.ascii:
		out := make([]byte, 0, len(s))
		for _, r := range s {
			if r < utf8.RuneSelf {
				out = append(out, byte(r))
			}
		}
		return out
	}

	if cm, ok := e.enc.(*charmap.Charmap); ok {
		out := make([]byte, 0, len(s))
		for _, r := range s {
			if b, ok := cm.EncodeRune(r); ok {
				out = append(out, b)
			}
		}
		return out
	}

	if out, err := e.enc.NewEncoder().String(s); err == nil {
		return []byte(out)
	}
	var out []byte
	enc := e.enc.NewEncoder()
	for _, r := range s {
		b, err := enc.String(string(r))
		if err != nil {
			continue
		}
		out = append(out, b...)
	}
	return out
}

// LookupEncoding resolves an encoding name. The common short
// spellings (ascii, utf-8, latin-1) are handled directly; anything else
// goes through the IANA registry.
func LookupEncoding(name string) (TextEncoding, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	switch strings.NewReplacer("-", "", "_", "", " ", "").Replace(key) {
	case "", "ascii", "usascii", "646":
		return TextEncoding{name: "ascii", ascii: true}, nil
	case "utf8":
		return TextEncoding{name: "utf-8", utf8: true}, nil
	case "latin1", "latin", "iso88591", "l1":
		return TextEncoding{name: "latin-1", enc: charmap.ISO8859_1}, nil
	}

	enc, err := ianaindex.IANA.Encoding(key)
	if err != nil || enc == nil {
		return TextEncoding{}, ErrUnknownEncoding
	}
	canonical, err := ianaindex.IANA.Name(enc)
	if err != nil {
		canonical = key
	}
	return TextEncoding{name: strings.ToLower(canonical), enc: enc}, nil
}
