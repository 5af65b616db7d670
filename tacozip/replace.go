package tacozip

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"
	"os"

	"github.com/klauspost/compress/flate"
	"github.com/pkg/errors"
)

// ReplaceFile overwrites the data of the entry called name with content.
// The stored footprint must not change: a stored entry needs content of the
// same length, a deflated entry needs content that compresses to the same
// length. The CRC and sizes are patched in both the local header (or data
// descriptor) and the central directory. An interrupted ReplaceFile can
// leave the two copies of the CRC disagreeing.
func (a *Archiver) ReplaceFile(path, name string, content []byte) error {
	return wrapOp("replace_file", path, a.replaceFile(path, name, content))
}

// ReplaceFromFile is ReplaceFile with the content read from src.
func (a *Archiver) ReplaceFromFile(path, name, src string) error {
	content, err := os.ReadFile(src)
	if err != nil {
		return wrapOp("replace_file", path, errors.Wrap(err, "read source"))
	}
	return a.ReplaceFile(path, name, content)
}

type patch struct {
	off int64
	b   []byte
}

func (a *Archiver) replaceFile(path, name string, content []byte) (err error) {
	if name == GhostName {
		return paramErrorf("%s is updated with UpdateGhost", GhostName)
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return errors.Wrap(err, "open")
	}
	defer closeFile(f, &err)
	if a.lock {
		if err := lockFile(f); err != nil {
			return errors.Wrap(err, "lock")
		}
		defer unlockFile(f)
	}
	defer a.forget(path)

	if _, err := readGhostAt(f); err != nil {
		return err
	}
	d, err := a.directory(path)
	if err != nil {
		return err
	}
	e, ok := d.lookup(name)
	if !ok {
		return notFoundErrorf("no entry %q", name)
	}
	ent := *e
	data, err := a.encodeContent(ent, content)
	if err != nil {
		return err
	}
	crc := crc32.ChecksumIEEE(content)
	uncomp := uint64(len(content))

	lh, err := readLocalHeader(f, ent)
	if err != nil {
		return err
	}
	if end := lh.dataOffset + int64(len(data)); end > d.size {
		return errors.Wrapf(ErrFormat, "entry %q runs past end of file", name)
	}
	local, err := lh.patches(f, ent, crc, uncomp)
	if err != nil {
		return err
	}
	patches := append(local, centralPatches(ent, crc, uncomp)...)

	if _, err := f.WriteAt(data, lh.dataOffset); err != nil {
		return errors.Wrap(err, "write data")
	}
	for _, p := range patches {
		if _, err := f.WriteAt(p.b, p.off); err != nil {
			return errors.Wrap(err, "patch header")
		}
	}
	return errors.Wrap(f.Sync(), "sync")
}

// encodeContent returns content as it will be stored for e, or a ParamError
// when that would change the entry's footprint.
func (a *Archiver) encodeContent(e Entry, content []byte) ([]byte, error) {
	switch e.Method {
	case Store:
		if uint64(len(content)) != e.CompressedSize64 {
			return nil, paramErrorf("content is %d bytes, %s stores %d", len(content), e.Name, e.CompressedSize64)
		}
		return content, nil
	case Deflate:
		var buf bytes.Buffer
		fw, err := flate.NewWriter(&buf, a.level)
		if err != nil {
			return nil, err
		}
		if _, err := fw.Write(content); err != nil {
			return nil, err
		}
		if err := fw.Close(); err != nil {
			return nil, err
		}
		if uint64(buf.Len()) != e.CompressedSize64 {
			return nil, paramErrorf("content deflates to %d bytes, %s stores %d", buf.Len(), e.Name, e.CompressedSize64)
		}
		if !e.sizeInExtra[0] && uint64(len(content)) >= uint32max {
			return nil, paramErrorf("%s has no room for a %d byte size", e.Name, len(content))
		}
		return buf.Bytes(), nil
	}
	return nil, paramErrorf("%s: method %d: %v", e.Name, e.Method, ErrAlgorithm)
}

type localHeader struct {
	flags        uint16
	compSize32   uint32
	uncompSize32 uint32
	dataOffset   int64
	zip64Offset  int64 // payload of the zip64 extra, or 0
	headerOffset int64
}

func readLocalHeader(r io.ReaderAt, e Entry) (*localHeader, error) {
	var buf [fileHeaderLen]byte
	if _, err := r.ReadAt(buf[:], e.HeaderOffset); err != nil {
		return nil, errors.Wrap(shortRead(err), "read local header")
	}
	b := readBuf(buf[:])
	if sig := b.uint32(); sig != fileHeaderSignature {
		return nil, errors.Wrapf(ErrFormat, "local header of %q", e.Name)
	}
	b = b[2:] // skip version needed
	lh := &localHeader{headerOffset: e.HeaderOffset}
	lh.flags = b.uint16()
	b = b[10:] // skip method, time, date, crc32
	lh.compSize32 = b.uint32()
	lh.uncompSize32 = b.uint32()
	filenameLen := int(b.uint16())
	extraLen := int(b.uint16())
	d := make([]byte, filenameLen+extraLen)
	if _, err := r.ReadAt(d, e.HeaderOffset+fileHeaderLen); err != nil {
		return nil, errors.Wrap(shortRead(err), "read local header")
	}
	if string(d[:filenameLen]) != e.Name {
		return nil, errors.Wrapf(ErrFormat, "local header names %q, directory %q", d[:filenameLen], e.Name)
	}
	extraStart := e.HeaderOffset + fileHeaderLen + int64(filenameLen)
	extra := readBuf(d[filenameLen:])
	for len(extra) >= 4 {
		pos := extraStart + int64(extraLen-len(extra))
		fieldTag := extra.uint16()
		fieldSize := int(extra.uint16())
		if len(extra) < fieldSize {
			break
		}
		extra.sub(fieldSize)
		if fieldTag == zip64ExtraID && fieldSize >= 16 {
			lh.zip64Offset = pos + 4
		}
	}
	lh.dataOffset = extraStart + int64(extraLen)
	return lh, nil
}

// patches returns the writes that record crc and the new sizes in the local
// header, or in the data descriptor when the entry has one.
func (lh *localHeader) patches(r io.ReaderAt, e Entry, crc uint32, uncomp uint64) ([]patch, error) {
	comp := e.CompressedSize64
	if lh.flags&flagDataDescriptor != 0 {
		pos := lh.dataOffset + int64(comp)
		var sig [4]byte
		if _, err := r.ReadAt(sig[:], pos); err != nil {
			return nil, errors.Wrap(shortRead(err), "read data descriptor")
		}
		if binary.LittleEndian.Uint32(sig[:]) == dataDescriptorSignature {
			pos += 4
		}
		if e.Zip64 || lh.zip64Offset != 0 {
			return []patch{{pos, le32(crc)}, {pos + 4, le64(comp)}, {pos + 12, le64(uncomp)}}, nil
		}
		return []patch{{pos, le32(crc)}, {pos + 4, le32(uint32(comp))}, {pos + 8, le32(uint32(uncomp))}}, nil
	}

	ps := []patch{{lh.headerOffset + 14, le32(crc)}}
	if lh.zip64Offset != 0 && (lh.uncompSize32 == uint32max || lh.compSize32 == uint32max) {
		return append(ps, patch{lh.zip64Offset, le64(uncomp)}, patch{lh.zip64Offset + 8, le64(comp)}), nil
	}
	if uncomp >= uint32max {
		return nil, paramErrorf("%s has no room for a %d byte size", e.Name, uncomp)
	}
	return append(ps, patch{lh.headerOffset + 18, le32(uint32(comp))}, patch{lh.headerOffset + 22, le32(uint32(uncomp))}), nil
}

// centralPatches returns the writes that record crc and the new sizes in the
// central-directory record of e.
func centralPatches(e Entry, crc uint32, uncomp uint64) []patch {
	ps := []patch{{e.recordOffset + 16, le32(crc)}}
	comp := e.CompressedSize64
	next := e.extraOffset
	if e.sizeInExtra[0] {
		ps = append(ps, patch{next, le64(uncomp)})
		next += 8
	} else {
		ps = append(ps, patch{e.recordOffset + 24, le32(uint32(uncomp))})
	}
	if e.sizeInExtra[1] {
		ps = append(ps, patch{next, le64(comp)})
	} else {
		ps = append(ps, patch{e.recordOffset + 20, le32(uint32(comp))})
	}
	return ps
}

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func le64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}
