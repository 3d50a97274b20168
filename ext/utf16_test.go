package ext

import (
	"reflect"
	"testing"
)

func TestUTF16RoundTrip(t *testing.T) {
	cases := []string{"hello.txt", "naïve", "日本語", ""}
	for _, s := range cases {
		units := utf16FromString(s)
		got := utf8FromUTF16(units)
		if got != s {
			t.Errorf("round trip of %q produced %q", s, got)
		}
	}
}

func TestUTF16FromStringSurrogatePairs(t *testing.T) {
	// U+1F600 (an emoji) requires a surrogate pair in UTF-16.
	units := utf16FromString("\U0001F600")
	if len(units) != 2 {
		t.Fatalf("got %d units, want 2 surrogate units", len(units))
	}
	if !reflect.DeepEqual(utf8FromUTF16(units), "\U0001F600") {
		t.Errorf("round trip failed for a surrogate pair")
	}
}
