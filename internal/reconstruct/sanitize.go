package reconstruct

import (
	"fmt"
	"strings"
)

// SanitizeXMLText strips every code point that XML 1.0 forbids and trims
// surrounding whitespace. Invalid UTF-8 byte sequences are dropped. The
// function is idempotent.
func SanitizeXMLText(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToValidUTF8(s, "")
	s = strings.Map(func(r rune) rune {
		if isXMLForbidden(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// SanitizeValue coerces an arbitrary cell value to sanitized text. nil
// becomes the empty string.
func SanitizeValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return SanitizeXMLText(t)
	case []byte:
		return SanitizeXMLText(string(t))
	case fmt.Stringer:
		return SanitizeXMLText(t.String())
	default:
		return SanitizeXMLText(fmt.Sprint(t))
	}
}

// SanitizeGrid sanitizes every cell of g in place and returns it.
func SanitizeGrid(g Grid) Grid {
	for _, row := range g {
		for i, cell := range row {
			row[i] = SanitizeXMLText(cell)
		}
	}
	return g
}

func isXMLForbidden(r rune) bool {
	switch {
	case r <= 0x08:
		return true
	case r == 0x0B || r == 0x0C:
		return true
	case r >= 0x0E && r <= 0x1F:
		return true
	case r >= 0xD800 && r <= 0xDFFF:
		return true
	case r == 0xFFFE || r == 0xFFFF:
		return true
	}
	return false
}
