package reconstruct

import (
	"errors"
	"testing"
)

func TestSanitizeXMLText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"A\x00B\x1FC", "ABC"},
		{"  padded\t\n", "padded"},
		{"tab\tand\nnewline", "tab\tand\nnewline"},
		{"\x0Bvertical\x0C", "vertical"},
		{"bad" + string([]byte{0xED, 0xA0, 0x80}) + "surrogate", "badsurrogate"},
		{"nonchar\uFFFE\uFFFF", "nonchar"},
		{"acentuação €", "acentuação €"},
		{"", ""},
	}

	for _, tc := range tests {
		if got := SanitizeXMLText(tc.in); got != tc.want {
			t.Errorf("SanitizeXMLText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeXMLTextIdempotent(t *testing.T) {
	inputs := []string{
		"A\x00B\x1FC",
		" \x01 lead",
		"\x1F \x02 x \x03",
		"mixed\r\n\x7F\U0010FFFF",
		string([]byte{0xff, 0x20, 0x41, 0xfe}),
	}
	for _, in := range inputs {
		once := SanitizeXMLText(in)
		if twice := SanitizeXMLText(once); twice != once {
			t.Errorf("not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestSanitizeValue(t *testing.T) {
	if got := SanitizeValue(nil); got != "" {
		t.Errorf("SanitizeValue(nil) = %q", got)
	}
	if got := SanitizeValue(12.5); got != "12.5" {
		t.Errorf("SanitizeValue(12.5) = %q", got)
	}
	if got := SanitizeValue([]byte("x\x00y")); got != "xy" {
		t.Errorf("SanitizeValue([]byte) = %q", got)
	}
	if got := SanitizeValue(errors.New(" boom\x00 ")); got != "boom" {
		t.Errorf("SanitizeValue(error) = %q", got)
	}
}

func TestSanitizeGrid(t *testing.T) {
	g := SanitizeGrid(Grid{{" a\x00", "b"}, {"\x1Fc"}})
	if g[0][0] != "a" || g[0][1] != "b" || g[1][0] != "c" {
		t.Errorf("SanitizeGrid() = %v", g)
	}
}
