package runner

import (
	"fmt"
	"strings"
)

// HexdumpLimit is the number of bytes Hexdump prints before eliding.
const HexdumpLimit = 64

// Hexdump renders data as space-separated uppercase hex pairs, eliding
// everything past HexdumpLimit bytes.
func Hexdump(data []byte) string {
	shown := data
	if len(shown) > HexdumpLimit {
		shown = shown[:HexdumpLimit]
	}
	var b strings.Builder
	b.Grow(len(shown)*3 + 24)
	for i, c := range shown {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%02X", c)
	}
	if len(data) > HexdumpLimit {
		fmt.Fprintf(&b, " ... (%d bytes total)", len(data))
	}
	return b.String()
}
