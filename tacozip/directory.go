package tacozip

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/mmap"
)

// directory is a parsed central directory together with the file state it
// was read from.
type directory struct {
	size    int64
	modTime time.Time
	entries []Entry
	byName  map[string]int
}

func (d *directory) lookup(name string) (*Entry, bool) {
	i, ok := d.byName[name]
	if !ok {
		return nil, false
	}
	return &d.entries[i], true
}

// List returns the central-directory entries of the archive at path, ghost
// included, in directory order.
func (a *Archiver) List(path string) ([]Entry, error) {
	d, err := a.directory(path)
	if err != nil {
		return nil, wrapOp("list", path, err)
	}
	out := make([]Entry, len(d.entries))
	copy(out, d.entries)
	return out, nil
}

// directory returns the parsed central directory of path, from the cache
// when the file has not changed since it was parsed.
func (a *Archiver) directory(path string) (*directory, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "stat")
	}
	key := cacheKey(path)
	if a.dirs != nil {
		if d, ok := a.dirs.Get(key); ok && d.size == fi.Size() && d.modTime.Equal(fi.ModTime()) {
			return d, nil
		}
	}
	r, err := mmap.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "map")
	}
	defer r.Close()
	d, err := readDirectory(r, int64(r.Len()))
	if err != nil {
		return nil, err
	}
	d.size = fi.Size()
	d.modTime = fi.ModTime()
	if a.dirs != nil {
		a.dirs.Add(key, d)
	}
	return d, nil
}

func readDirectory(r io.ReaderAt, size int64) (*directory, error) {
	end, err := readDirectoryEnd(r, size)
	if err != nil {
		return nil, err
	}
	if end.directoryRecords > uint64(size)/fileHeaderLen {
		return nil, errors.Wrapf(ErrFormat, "TOC declares impossible %d files in %d byte zip", end.directoryRecords, size)
	}
	if end.directoryOffset+end.directorySize > uint64(size) {
		return nil, errors.Wrap(ErrFormat, "central directory beyond end of file")
	}
	d := &directory{
		entries: make([]Entry, 0, end.directoryRecords),
		byName:  make(map[string]int, end.directoryRecords),
	}
	rs := io.NewSectionReader(r, int64(end.directoryOffset), int64(end.directorySize))
	off := int64(end.directoryOffset)
	for i := uint64(0); i < end.directoryRecords; i++ {
		e := Entry{recordOffset: off}
		n, err := readDirectoryHeader(&e, rs)
		if err != nil {
			return nil, errors.Wrapf(err, "record %d", i)
		}
		off += n
		if _, dup := d.byName[e.Name]; !dup {
			d.byName[e.Name] = len(d.entries)
		}
		d.entries = append(d.entries, e)
	}
	return d, nil
}

// readDirectoryHeader parses one central-directory record and returns its
// length in bytes.
func readDirectoryHeader(f *Entry, r io.Reader) (int64, error) {
	var buf [directoryHeaderLen]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, shortRead(err)
	}
	b := readBuf(buf[:])
	if sig := b.uint32(); sig != directoryHeaderSignature {
		return 0, ErrFormat
	}
	b = b[4:] // skipped creator and reader versions
	f.Flags = b.uint16()
	f.Method = b.uint16()
	b = b[4:] // skipped modified time and date
	f.CRC32 = b.uint32()
	compSize := b.uint32()
	uncompSize := b.uint32()
	f.CompressedSize64 = uint64(compSize)
	f.UncompressedSize64 = uint64(uncompSize)
	filenameLen := int(b.uint16())
	extraLen := int(b.uint16())
	commentLen := int(b.uint16())
	b = b[8:] // skipped start disk number, internal and external attributes
	headerOffset := b.uint32()
	f.HeaderOffset = int64(headerOffset)
	d := make([]byte, filenameLen+extraLen+commentLen)
	if _, err := io.ReadFull(r, d); err != nil {
		return 0, shortRead(err)
	}
	f.Name = string(d[:filenameLen])

	needUSize := uncompSize == uint32max
	needCSize := compSize == uint32max
	needHeaderOffset := headerOffset == uint32max

	extraStart := f.recordOffset + directoryHeaderLen + int64(filenameLen)
	extra := readBuf(d[filenameLen : filenameLen+extraLen])
	for len(extra) >= 4 {
		pos := extraStart + int64(extraLen-len(extra))
		fieldTag := extra.uint16()
		fieldSize := int(extra.uint16())
		if len(extra) < fieldSize {
			break
		}
		fieldBuf := extra.sub(fieldSize)
		if fieldTag != zip64ExtraID {
			continue
		}
		f.Zip64 = true
		f.extraOffset = pos + 4

		// update directory values from the zip64 extra block.
		if needUSize {
			needUSize = false
			if len(fieldBuf) < 8 {
				return 0, ErrFormat
			}
			f.UncompressedSize64 = fieldBuf.uint64()
			f.sizeInExtra[0] = true
		}
		if needCSize {
			needCSize = false
			if len(fieldBuf) < 8 {
				return 0, ErrFormat
			}
			f.CompressedSize64 = fieldBuf.uint64()
			f.sizeInExtra[1] = true
		}
		if needHeaderOffset {
			needHeaderOffset = false
			if len(fieldBuf) < 8 {
				return 0, ErrFormat
			}
			f.HeaderOffset = int64(fieldBuf.uint64())
		}
	}
	if needUSize || needCSize || needHeaderOffset {
		return 0, ErrFormat
	}
	return int64(directoryHeaderLen + len(d)), nil
}

// readDirectoryEnd finds the end of central directory record, following the
// zip64 locator when the classic record is saturated.
func readDirectoryEnd(r io.ReaderAt, size int64) (*directoryEnd, error) {
	// look for directoryEndSignature in the last 1k, then in the last 65k
	var buf []byte
	var directoryEndOffset int64
	for i, bLen := range []int64{1024, 65 * 1024} {
		if bLen > size {
			bLen = size
		}
		buf = make([]byte, int(bLen))
		if _, err := r.ReadAt(buf, size-bLen); err != nil && err != io.EOF {
			return nil, err
		}
		if p := findSignatureInBlock(buf); p >= 0 {
			buf = buf[p:]
			directoryEndOffset = size - bLen + int64(p)
			break
		}
		if i == 1 || bLen == size {
			return nil, ErrFormat
		}
	}

	// read header into struct
	b := readBuf(buf[4:]) // skip signature
	d := &directoryEnd{
		diskNbr:            uint32(b.uint16()),
		dirDiskNbr:         uint32(b.uint16()),
		dirRecordsThisDisk: uint64(b.uint16()),
		directoryRecords:   uint64(b.uint16()),
		directorySize:      uint64(b.uint32()),
		directoryOffset:    uint64(b.uint32()),
		commentLen:         b.uint16(),
	}
	l := int(d.commentLen)
	if l > len(b) {
		return nil, errors.New("zip: invalid comment length")
	}
	d.comment = string(b[:l])

	// These values mean that the file can be a zip64 file
	if d.directoryRecords == uint16max || d.directorySize == uint32max || d.directoryOffset == uint32max {
		p, err := findDirectory64End(r, directoryEndOffset)
		if err == nil && p >= 0 {
			err = readDirectory64End(r, p, d)
		}
		if err != nil {
			return nil, err
		}
	}
	return d, nil
}

func findDirectory64End(r io.ReaderAt, directoryEndOffset int64) (int64, error) {
	locOffset := directoryEndOffset - directory64LocLen
	if locOffset < 0 {
		return -1, nil // no need to look for a header outside the file
	}
	buf := make([]byte, directory64LocLen)
	if _, err := r.ReadAt(buf, locOffset); err != nil {
		return -1, err
	}
	b := readBuf(buf)
	if sig := b.uint32(); sig != directory64LocSignature {
		return -1, nil
	}
	if b.uint32() != 0 { // number of the disk with the start of the zip64 end of central directory
		return -1, nil // the file is not a valid zip64-file
	}
	p := b.uint64()      // relative offset of the zip64 end of central directory record
	if b.uint32() != 1 { // total number of disks
		return -1, nil // the file is not a valid zip64-file
	}
	return int64(p), nil
}

func readDirectory64End(r io.ReaderAt, offset int64, d *directoryEnd) (err error) {
	buf := make([]byte, directory64EndLen)
	if _, err := r.ReadAt(buf, offset); err != nil {
		return shortRead(err)
	}

	b := readBuf(buf)
	if sig := b.uint32(); sig != directory64EndSignature {
		return ErrFormat
	}

	b = b[12:]                        // skip dir size, version and version needed (uint64 + 2x uint16)
	d.diskNbr = b.uint32()            // number of this disk
	d.dirDiskNbr = b.uint32()         // number of the disk with the start of the central directory
	d.dirRecordsThisDisk = b.uint64() // total number of entries in the central directory on this disk
	d.directoryRecords = b.uint64()   // total number of entries in the central directory
	d.directorySize = b.uint64()      // size of the central directory
	d.directoryOffset = b.uint64()    // offset of start of central directory with respect to the starting disk number

	return nil
}

func findSignatureInBlock(b []byte) int {
	for i := len(b) - directoryEndLen; i >= 0; i-- {
		// defined from directoryEndSignature in struct.go
		if b[i] == 'P' && b[i+1] == 'K' && b[i+2] == 0x05 && b[i+3] == 0x06 {
			// n is length of comment
			n := int(b[i+directoryEndLen-2]) | int(b[i+directoryEndLen-1])<<8
			if n+directoryEndLen+i <= len(b) {
				return i
			}
		}
	}
	return -1
}

func (e Entry) String() string {
	return fmt.Sprintf("%s method=%d crc=%08x size=%d/%d offset=%d",
		e.Name, e.Method, e.CRC32, e.CompressedSize64, e.UncompressedSize64, e.HeaderOffset)
}
