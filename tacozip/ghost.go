package tacozip

import (
	"io"

	"github.com/pkg/errors"
)

// EncodeGhost returns the 160-byte ghost record carrying a. The record is a
// stored, zero-length local file header named TACO_GHOST whose extra field
// holds the pointer slots.
func EncodeGhost(a PointerArray) [GhostSize]byte {
	var buf [GhostSize]byte
	b := writeBuf(buf[:])
	b.uint32(fileHeaderSignature)
	b.uint16(zipVersion45)
	b.uint16(0) // flags
	b.uint16(Store)
	b.uint16(0) // time
	b.uint16(0) // date
	b.uint32(0) // crc32
	b.uint32(0) // compressed size
	b.uint32(0) // uncompressed size
	b.uint16(uint16(ghostNameLen))
	b.uint16(ghostExtraLen)
	b.bytes([]byte(GhostName))
	b.uint16(GhostExtraID)
	b.uint16(ghostExtraSize)
	b.uint8(a.count)
	b.skip(3) // reserved
	for _, p := range a.entries {
		b.uint64(p.Offset)
		b.uint64(p.Length)
	}
	return buf
}

// DecodeGhost validates a ghost record and returns its pointers. All seven
// slots are returned verbatim.
func DecodeGhost(buf []byte) (PointerArray, error) {
	a, err := decodeGhost(buf)
	if err != nil {
		return PointerArray{}, wrapOp("decode_ghost", "", err)
	}
	return a, nil
}

func decodeGhost(buf []byte) (PointerArray, error) {
	var a PointerArray
	if len(buf) != GhostSize {
		return a, ghostErrorf("ghost is %d bytes, want %d", len(buf), GhostSize)
	}
	b := readBuf(buf)
	if sig := b.uint32(); sig != fileHeaderSignature {
		return a, ghostErrorf("bad signature %#08x", sig)
	}
	b = b[22:] // skip over most of the header
	if n := b.uint16(); n != uint16(ghostNameLen) {
		return a, ghostErrorf("filename length %d", n)
	}
	if n := b.uint16(); n != ghostExtraLen {
		return a, ghostErrorf("extra length %d", n)
	}
	if name := string(b.sub(ghostNameLen)); name != GhostName {
		return a, ghostErrorf("filename %q", name)
	}
	if id := b.uint16(); id != GhostExtraID {
		return a, ghostErrorf("extra id %#04x", id)
	}
	if n := b.uint16(); n != ghostExtraSize {
		return a, ghostErrorf("extra size %d", n)
	}
	a.count = b.uint8()
	if a.count > MaxPointers {
		return PointerArray{}, ghostErrorf("count %d exceeds %d", a.count, MaxPointers)
	}
	b = b[3:]
	for i := range a.entries {
		a.entries[i].Offset = b.uint64()
		a.entries[i].Length = b.uint64()
	}
	return a, nil
}

// ReadGhostFrom reads and decodes the ghost at offset 0 of r.
func ReadGhostFrom(r io.ReaderAt) (PointerArray, error) {
	a, err := readGhostAt(r)
	if err != nil {
		return PointerArray{}, wrapOp("read_ghost", "", err)
	}
	return a, nil
}

func readGhostAt(r io.ReaderAt) (PointerArray, error) {
	buf := make([]byte, GhostSize)
	if n, err := r.ReadAt(buf, 0); n < GhostSize {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return PointerArray{}, errors.Wrap(shortRead(err), "read ghost")
	}
	return decodeGhost(buf)
}
