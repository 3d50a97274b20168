package ext

import "testing"

func buildXattrBlock(names []struct {
	index uint8
	name  string
}) []byte {
	b := make([]byte, 4)
	putU32(b, 0, xattrInlineSignature)
	for _, n := range names {
		entry := make([]byte, xattrEntryHeaderLen+len(n.name))
		entry[0] = byte(len(n.name))
		entry[1] = n.index
		copy(entry[xattrEntryHeaderLen:], n.name)
		pad := (len(entry) + 3) &^ 3
		padded := make([]byte, pad)
		copy(padded, entry)
		b = append(b, padded...)
	}
	return b
}

func TestParseXattrNames(t *testing.T) {
	raw := buildXattrBlock([]struct {
		index uint8
		name  string
	}{
		{1, "mime_type"},
		{4, "capability"},
	})
	names := parseXattrNames(raw)
	if len(names) != 2 {
		t.Fatalf("got %d names, want 2: %v", len(names), names)
	}
	if names[0] != "user.mime_type" {
		t.Errorf("names[0] = %q, want %q", names[0], "user.mime_type")
	}
	if names[1] != "trusted.capability" {
		t.Errorf("names[1] = %q, want %q", names[1], "trusted.capability")
	}
}

func TestParseXattrNamesStopsAtZeroLength(t *testing.T) {
	raw := make([]byte, 4+xattrEntryHeaderLen)
	putU32(raw, 0, xattrInlineSignature)
	names := parseXattrNames(raw)
	if len(names) != 0 {
		t.Errorf("expected no names, got %v", names)
	}
}
