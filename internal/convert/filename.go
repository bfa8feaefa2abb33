package convert

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxFilenameLength = 100

var (
	disallowed = regexp.MustCompile(`[^\w\s-]`)
	separators = regexp.MustCompile(`[-\s]+`)
	extChars   = regexp.MustCompile(`[^\w]`)
)

// SanitizeFilename reduces a filename to safe ASCII. Accents are
// decomposed and dropped, punctuation removed and runs of spaces or dashes
// become a single underscore. The stem is capped at 100 characters and the
// extension is kept.
func SanitizeFilename(filename string) string {
	name, ext := filename, ""
	if i := strings.LastIndex(filename, "."); i >= 0 {
		name, ext = filename[:i], extChars.ReplaceAllString(filename[i+1:], "")
	}

	name = asciiFold(name)
	name = disallowed.ReplaceAllString(name, "")
	name = separators.ReplaceAllString(name, "_")
	if len(name) > maxFilenameLength {
		name = name[:maxFilenameLength]
	}

	if ext != "" {
		return name + "." + ext
	}
	return name
}

// PDFFilename returns the sanitized name of the PDF converted from filename.
func PDFFilename(filename string) string {
	name := SanitizeFilename(filename)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		name = "document"
	}
	return name + ".pdf"
}

func asciiFold(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
