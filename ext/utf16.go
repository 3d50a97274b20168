package ext

import "unicode/utf16"

// utf16FromString transcodes a UTF-8 Go string to UTF-16 code units, for
// the dual UTF-8/UTF-16 exposure spec.md §6 requires of names and
// symbolic-link targets.
func utf16FromString(s string) []uint16 {
	return utf16.Encode([]rune(s))
}

// utf8FromUTF16 transcodes UTF-16 code units back to a UTF-8 Go string, used
// when a caller performs a lookup by UTF-16 name per spec.md §4.6.
func utf8FromUTF16(units []uint16) string {
	return string(utf16.Decode(units))
}
