package ext

import "encoding/binary"

// xattrNamePrefixes maps the on-disk name_index byte to the conventional
// attribute namespace prefix, per the well-known ext2/3/4 attribute index
// values also used by libfsext's libfsext_attribute_values.
var xattrNamePrefixes = map[uint8]string{
	1: "user.",
	2: "system.posix_acl_access",
	3: "system.posix_acl_default",
	4: "trusted.",
	6: "security.",
	7: "system.",
	8: "system.richacl",
}

// xattrEntryHeaderLen is the fixed portion of one attribute entry
// preceding its name bytes: name_len, name_index, value_offs, value_block,
// value_size, hash.
const xattrEntryHeaderLen = 16

// parseXattrNames walks the entries following the 4-byte 0xEA020000
// signature and returns their recognised names. Per spec.md §4.4, only
// names and locations are recognised here; values are never decoded. A
// malformed entry stops enumeration rather than failing the caller, since
// this is a best-effort diagnostic view, not part of the core contract.
func parseXattrNames(raw []byte) []string {
	offset := 4 // past the signature
	var names []string
	for offset+xattrEntryHeaderLen <= len(raw) {
		nameLen := raw[offset]
		if nameLen == 0 {
			break
		}
		nameIndex := raw[offset+1]
		valueOffset := binary.LittleEndian.Uint16(raw[offset+2 : offset+4])
		_ = valueOffset

		nameStart := offset + xattrEntryHeaderLen
		nameEnd := nameStart + int(nameLen)
		if nameEnd > len(raw) {
			break
		}
		prefix := xattrNamePrefixes[nameIndex]
		names = append(names, prefix+string(raw[nameStart:nameEnd]))

		// entries are padded to a 4-byte boundary
		advance := xattrEntryHeaderLen + int(nameLen)
		advance = (advance + 3) &^ 3
		offset += advance
	}
	return names
}
