package ext

import "encoding/binary"

const indirectTreeDirectCount = 12

// resolveIndirectTree implements spec.md §4.5's classical ext2/3
// direct/indirect/double-indirect/triple-indirect block-pointer tree.
// dataRef holds 12 direct block numbers, then one single-, double- and
// triple-indirect pointer, each a 32-bit block number.
func resolveIndirectTree(dataRef []byte, ctx *Context, numBlocks uint32) ([]Extent, error) {
	if len(dataRef) < 60 {
		return nil, newErr(KindInput, "indirect data reference too short: %d bytes", len(dataRef))
	}
	if ctx.blockSize < 4 {
		return nil, errValueOutOfBounds("block size too small for indirect blocks")
	}

	w := &indirectWalker{
		ctx:       ctx,
		remaining: uint64(numBlocks),
		pointersPerBlock: uint64(ctx.blockSize / 4),
	}

	for i := 0; i < indirectTreeDirectCount && w.remaining > 0; i++ {
		block := binary.LittleEndian.Uint32(dataRef[i*4 : i*4+4])
		if err := w.appendUnit(block); err != nil {
			return nil, err
		}
	}

	singleIndirect := binary.LittleEndian.Uint32(dataRef[48:52])
	doubleIndirect := binary.LittleEndian.Uint32(dataRef[52:56])
	tripleIndirect := binary.LittleEndian.Uint32(dataRef[56:60])

	if w.remaining > 0 {
		if err := w.walkPointerBlock(singleIndirect, 1, 0); err != nil {
			return nil, err
		}
	}
	if w.remaining > 0 {
		if err := w.walkPointerBlock(doubleIndirect, w.pointersPerBlock, 0); err != nil {
			return nil, err
		}
	}
	if w.remaining > 0 {
		if err := w.walkPointerBlock(tripleIndirect, w.pointersPerBlock*w.pointersPerBlock, 0); err != nil {
			return nil, err
		}
	}

	return w.out, nil
}

// indirectWalker accumulates extents while walking the indirect-block tree,
// merging contiguous physical runs and sparse runs in place as spec.md
// §4.5 requires.
type indirectWalker struct {
	ctx              *Context
	out              []Extent
	logical          uint64
	remaining        uint64
	pointersPerBlock uint64
}

// appendUnit processes exactly one logical block's worth of data: block==0
// is a sparse hole, otherwise block is the physical block number holding
// that logical block's data.
func (w *indirectWalker) appendUnit(block uint32) error {
	if w.remaining == 0 {
		return nil
	}
	if block == 0 {
		w.appendSparse(1)
	} else {
		w.appendRun(uint64(block), 1)
	}
	w.logical++
	w.remaining--
	return nil
}

// walkPointerBlock reads a block of pointers, where each pointer covers
// childSpan logical blocks (1 for a single-indirect block's entries, N for
// a double-indirect block's entries, N² for a triple-indirect block's
// entries). blockNum == 0 synthesises a single sparse run for the entire
// span this pointer block would have covered, per spec.md §4.5's "extend
// the current extent's length by the appropriate span" rule, without
// needing to read a block that does not exist.
func (w *indirectWalker) walkPointerBlock(blockNum uint32, childSpan uint64, parentBlock uint32) error {
	if w.remaining == 0 {
		return nil
	}
	if err := w.ctx.checkAbort(); err != nil {
		return err
	}
	if blockNum == 0 {
		span := w.pointersPerBlock * childSpan
		if span > w.remaining {
			span = w.remaining
		}
		w.appendSparse(span)
		w.logical += span
		w.remaining -= span
		return nil
	}
	if blockNum == parentBlock {
		return errValueOutOfBounds("indirect block references itself")
	}

	raw, err := w.ctx.readBlock(uint64(blockNum))
	if err != nil {
		return err
	}

	for i := uint64(0); i < w.pointersPerBlock && w.remaining > 0; i++ {
		off := i * 4
		if off+4 > uint64(len(raw)) {
			break
		}
		entry := binary.LittleEndian.Uint32(raw[off : off+4])
		if entry == blockNum {
			return errValueOutOfBounds("indirect block references itself")
		}
		if childSpan == 1 {
			if err := w.appendUnit(entry); err != nil {
				return err
			}
			continue
		}
		if err := w.walkPointerBlock(entry, childSpan/w.pointersPerBlock, blockNum); err != nil {
			return err
		}
	}
	return nil
}

func (w *indirectWalker) appendRun(physical uint64, length uint64) {
	if n := len(w.out); n > 0 {
		last := &w.out[n-1]
		if !last.Sparse && last.PhysicalBlock+last.Length == physical && uint64(last.LogicalBlock)+last.Length == w.logical {
			last.Length += length
			return
		}
	}
	w.out = append(w.out, Extent{
		LogicalBlock:  uint32(w.logical),
		PhysicalBlock: physical,
		Length:        length,
	})
}

func (w *indirectWalker) appendSparse(length uint64) {
	if length == 0 {
		return
	}
	if n := len(w.out); n > 0 {
		last := &w.out[n-1]
		if last.Sparse && uint64(last.LogicalBlock)+last.Length == w.logical {
			last.Length += length
			return
		}
	}
	w.out = append(w.out, Extent{
		LogicalBlock: uint32(w.logical),
		Length:       length,
		Sparse:       true,
	})
}
