package cmd

import "github.com/extfsro/ext/ext"

func fileTypeLabel(ft ext.FileType) string {
	switch ft {
	case ext.FileTypeRegular:
		return "-"
	case ext.FileTypeDirectory:
		return "d"
	case ext.FileTypeSymlink:
		return "l"
	case ext.FileTypeCharacterDevice:
		return "c"
	case ext.FileTypeBlockDevice:
		return "b"
	case ext.FileTypeFIFO:
		return "p"
	case ext.FileTypeSocket:
		return "s"
	default:
		return "?"
	}
}
