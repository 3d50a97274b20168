package ext

import "encoding/binary"

// Extent is the resolved, logical entity produced by data-block
// resolution, per spec.md §3.
type Extent struct {
	LogicalBlock  uint32
	PhysicalBlock uint64
	Length        uint64
	Sparse        bool
}

const (
	extentHeaderLen   = 12
	extentEntryLen    = 12
	extentSignature   uint16 = 0xf30a
	extentMaxDepth    = 5
	extentSparseBias  uint16 = 32768
)

// extentHeader is the 12-byte header preceding either leaf or index
// entries, per spec.md §4.5.
type extentHeader struct {
	entries uint16
	max     uint16
	depth   uint16
}

// resolveExtentTree implements spec.md §4.5's ext4 extent-tree branch: walk
// the tree rooted in the inode's data reference, producing an ordered,
// gap-filled extent list covering [0, numBlocks).
func resolveExtentTree(dataRef []byte, ctx *Context, numBlocks uint32) ([]Extent, error) {
	leaves, err := walkExtentNode(dataRef, ctx, 0, -1)
	if err != nil {
		return nil, err
	}
	return fillSparseGaps(leaves, numBlocks), nil
}

// walkExtentNode decodes one extent-tree node (inode-embedded or a full
// block) and, for index nodes, recurses into each child. parentDepth
// enforces spec.md §9's "strictly decreasing depth" acyclicity rule; pass
// -1 for the root.
func walkExtentNode(b []byte, ctx *Context, depth int, parentDepth int) ([]Extent, error) {
	if err := ctx.checkAbort(); err != nil {
		return nil, err
	}
	if depth > extentMaxDepth {
		return nil, errValueOutOfBounds("extent tree depth")
	}
	if len(b) < extentHeaderLen+extentEntryLen {
		return nil, newErr(KindInput, "extent node too short: %d bytes", len(b))
	}
	if sig := binary.LittleEndian.Uint16(b[0:2]); sig != extentSignature {
		return nil, newErr(KindInput, "invalid extent tree signature: %#04x", sig)
	}
	h := extentHeader{
		entries: binary.LittleEndian.Uint16(b[2:4]),
		max:     binary.LittleEndian.Uint16(b[4:6]),
		depth:   binary.LittleEndian.Uint16(b[6:8]),
	}
	if parentDepth >= 0 && int(h.depth) >= parentDepth {
		return nil, errValueOutOfBounds("extent tree depth is not strictly decreasing")
	}

	var out []Extent
	if h.depth == 0 {
		for idx := 0; idx < int(h.entries); idx++ {
			off := extentHeaderLen + idx*extentEntryLen
			if off+extentEntryLen > len(b) {
				return nil, newErr(KindInput, "extent entry out of bounds")
			}
			logical := binary.LittleEndian.Uint32(b[off : off+4])
			lengthRaw := binary.LittleEndian.Uint16(b[off+4 : off+6])
			physHi := uint64(binary.LittleEndian.Uint16(b[off+6 : off+8]))
			physLo := uint64(binary.LittleEndian.Uint32(b[off+8 : off+12]))
			physical := physHi<<32 | physLo

			sparse := lengthRaw > extentSparseBias
			length := uint64(lengthRaw)
			if sparse {
				length = uint64(lengthRaw - extentSparseBias)
			}
			out = append(out, Extent{
				LogicalBlock:  logical,
				PhysicalBlock: physical,
				Length:        length,
				Sparse:        sparse,
			})
		}
		return out, nil
	}

	for idx := 0; idx < int(h.entries); idx++ {
		off := extentHeaderLen + idx*extentEntryLen
		if off+extentEntryLen > len(b) {
			return nil, newErr(KindInput, "extent index entry out of bounds")
		}
		physHi := uint64(binary.LittleEndian.Uint16(b[off+8 : off+10]))
		physLo := uint64(binary.LittleEndian.Uint32(b[off+4 : off+8]))
		childBlock := physHi<<32 | physLo

		childBytes, err := ctx.readBlock(childBlock)
		if err != nil {
			return nil, err
		}
		childExtents, err := walkExtentNode(childBytes, ctx, depth+1, int(h.depth))
		if err != nil {
			return nil, err
		}
		out = append(out, childExtents...)
	}
	return out, nil
}

// fillSparseGaps implements spec.md §4.5's sparseness-filling rule: wherever
// the next leaf's logical block is greater than prev.logical+prev.length, a
// SPARSE extent is synthesised for the gap; a trailing SPARSE extent
// reaches numBlocks.
func fillSparseGaps(leaves []Extent, numBlocks uint32) []Extent {
	out := make([]Extent, 0, len(leaves)+2)
	var next uint64
	for _, e := range leaves {
		if uint64(e.LogicalBlock) > next {
			out = append(out, Extent{LogicalBlock: uint32(next), Length: uint64(e.LogicalBlock) - next, Sparse: true})
		}
		out = append(out, e)
		next = uint64(e.LogicalBlock) + e.Length
	}
	if uint64(numBlocks) > next {
		out = append(out, Extent{LogicalBlock: uint32(next), Length: uint64(numBlocks) - next, Sparse: true})
	}
	return out
}
