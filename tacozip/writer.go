package tacozip

import (
	"bufio"
	"hash/crc32"
	"io"
	"os"
	"unicode/utf8"

	"github.com/klauspost/compress/flate"
	"github.com/pkg/errors"
)

// Source names a file to archive: the file at Path is stored as Name.
type Source struct {
	Path string
	Name string
}

type header struct {
	name       string
	flags      uint16
	method     uint16
	crc32      uint32
	compSize   uint64
	uncompSize uint64
	offset     uint64
}

// Create writes a new archive at path: the ghost carrying initial at offset
// 0, then every file in order, then the central directory and the ZIP64 end
// records. A failed Create leaves a partial file behind that the caller must
// discard.
func (a *Archiver) Create(path string, files []Source, initial PointerArray) error {
	return wrapOp("create", path, a.create(path, files, initial))
}

func (a *Archiver) create(path string, files []Source, initial PointerArray) (err error) {
	if err := validateSources(path, files); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return errors.Wrap(err, "open")
	}
	defer closeFile(f, &err)
	a.forget(path)

	if a.prealloc {
		preallocate(f, estimateSize(files))
	}

	w := newArchiveWriter(f, a)
	if err := w.writeGhost(initial); err != nil {
		return err
	}
	for _, s := range files {
		if err := w.addFile(s); err != nil {
			return errors.Wrapf(err, "add %s", s.Name)
		}
	}
	if err := w.writeDirectory(); err != nil {
		return errors.Wrap(err, "write central directory")
	}
	return w.finish()
}

// validateSources checks files before the destination is truncated, so a
// source that is the destination itself is refused.
func validateSources(dest string, files []Source) error {
	if len(files) == 0 {
		return paramErrorf("no files")
	}
	destInfo, err := os.Stat(dest)
	if err != nil {
		destInfo = nil
	}
	seen := make(map[string]bool, len(files))
	for i, s := range files {
		switch {
		case s.Path == "":
			return paramErrorf("file %d: empty source path", i)
		case s.Name == "":
			return paramErrorf("file %d: empty archive name", i)
		case len(s.Name) > uint16max:
			return paramErrorf("file %d: archive name is %d bytes", i, len(s.Name))
		case s.Name == GhostName:
			return paramErrorf("file %d: archive name %s is reserved", i, GhostName)
		case seen[s.Name]:
			return paramErrorf("duplicate archive name %q", s.Name)
		}
		seen[s.Name] = true
		if destInfo == nil {
			continue
		}
		if fi, err := os.Stat(s.Path); err == nil && os.SameFile(fi, destInfo) {
			return paramErrorf("file %d: %s is the destination archive", i, s.Path)
		}
	}
	return nil
}

// estimateSize is the archive size when every source is stored as is.
func estimateSize(files []Source) int64 {
	n := int64(GhostSize + directoryHeaderLen + ghostNameLen + dirZip64ExtraLen)
	for _, s := range files {
		if fi, err := os.Stat(s.Path); err == nil && fi.Mode().IsRegular() {
			n += fi.Size()
		}
		n += int64(fileHeaderLen + len(s.Name) + localZip64ExtraLen)
		n += int64(directoryHeaderLen + len(s.Name) + dirZip64ExtraLen)
	}
	return n + directory64EndLen + directory64LocLen + directoryEndLen
}

type countWriter struct {
	w     io.Writer
	count int64
}

func (w *countWriter) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.count += int64(n)
	return n, err
}

type archiveWriter struct {
	f       *os.File
	bw      *bufio.Writer
	cw      *countWriter
	method  uint16
	level   int
	utf8    bool
	buf     []byte
	fw      *flate.Writer
	headers []*header
}

func newArchiveWriter(f *os.File, a *Archiver) *archiveWriter {
	bw := bufio.NewWriterSize(f, a.bufSize)
	return &archiveWriter{
		f:      f,
		bw:     bw,
		cw:     &countWriter{w: bw},
		method: a.method,
		level:  a.level,
		utf8:   a.utf8,
		buf:    make([]byte, copyBufferSize),
	}
}

func (w *archiveWriter) writeGhost(a PointerArray) error {
	g := EncodeGhost(a)
	if _, err := w.cw.Write(g[:]); err != nil {
		return errors.Wrap(err, "write ghost")
	}
	w.headers = append(w.headers, &header{name: GhostName, method: Store})
	return nil
}

func (w *archiveWriter) addFile(s Source) error {
	in, err := os.Open(s.Path)
	if err != nil {
		return err
	}
	defer in.Close()
	if fi, err := in.Stat(); err != nil {
		return err
	} else if fi.IsDir() {
		return paramErrorf("%s is a directory", s.Path)
	}

	h := &header{
		name:   s.Name,
		method: w.method,
		offset: uint64(w.cw.count),
	}
	if valid, require := detectUTF8(s.Name); w.utf8 || (valid && require) {
		h.flags |= flagUTF8
	}
	if err := w.writeLocalHeader(h); err != nil {
		return err
	}

	crc := crc32.NewIEEE()
	start := w.cw.count
	switch h.method {
	case Store:
		n, err := io.CopyBuffer(io.MultiWriter(w.cw, crc), in, w.buf)
		if err != nil {
			return err
		}
		h.uncompSize = uint64(n)
	case Deflate:
		if w.fw == nil {
			fw, err := flate.NewWriter(w.cw, w.level)
			if err != nil {
				return err
			}
			w.fw = fw
		} else {
			w.fw.Reset(w.cw)
		}
		n, err := io.CopyBuffer(io.MultiWriter(w.fw, crc), in, w.buf)
		if err != nil {
			return err
		}
		if err := w.fw.Close(); err != nil {
			return err
		}
		h.uncompSize = uint64(n)
	default:
		return ErrAlgorithm
	}
	h.compSize = uint64(w.cw.count - start)
	h.crc32 = crc.Sum32()
	w.headers = append(w.headers, h)
	return nil
}

// writeLocalHeader writes h with the CRC and sizes left for finish to patch.
func (w *archiveWriter) writeLocalHeader(h *header) error {
	var buf [fileHeaderLen + localZip64ExtraLen]byte
	b := writeBuf(buf[:])
	b.uint32(fileHeaderSignature)
	b.uint16(zipVersion45)
	b.uint16(h.flags)
	b.uint16(h.method)
	b.uint16(0) // time
	b.uint16(0) // date
	b.uint32(0) // crc32, patched
	b.uint32(uint32max)
	b.uint32(uint32max)
	b.uint16(uint16(len(h.name)))
	b.uint16(localZip64ExtraLen)
	if _, err := w.cw.Write(buf[:fileHeaderLen]); err != nil {
		return err
	}
	if _, err := io.WriteString(w.cw, h.name); err != nil {
		return err
	}
	b.uint16(zip64ExtraID)
	b.uint16(localZip64ExtraLen - 4)
	// sizes, patched
	_, err := w.cw.Write(buf[fileHeaderLen:])
	return err
}

func (w *archiveWriter) writeDirectory() error {
	start := w.cw.count
	for _, h := range w.headers {
		var buf [directoryHeaderLen]byte
		b := writeBuf(buf[:])
		b.uint32(directoryHeaderSignature)
		b.uint16(creatorVersion)
		b.uint16(zipVersion45)
		b.uint16(h.flags)
		b.uint16(h.method)
		b.uint16(0) // time
		b.uint16(0) // date
		b.uint32(h.crc32)
		b.uint32(uint32max) // sizes in the zip64 extra
		b.uint32(uint32max)
		b.uint16(uint16(len(h.name)))
		b.uint16(dirZip64ExtraLen)
		b.uint16(0) // comment length
		b.uint16(0) // disk number start
		b.uint16(0) // internal attributes
		b.uint32(regularFileAttrs)
		b.uint32(uint32max) // offset in the zip64 extra
		if _, err := w.cw.Write(buf[:]); err != nil {
			return err
		}
		if _, err := io.WriteString(w.cw, h.name); err != nil {
			return err
		}
		var extra [dirZip64ExtraLen]byte
		eb := writeBuf(extra[:])
		eb.uint16(zip64ExtraID)
		eb.uint16(dirZip64ExtraLen - 4)
		eb.uint64(h.uncompSize)
		eb.uint64(h.compSize)
		eb.uint64(h.offset)
		if _, err := w.cw.Write(extra[:]); err != nil {
			return err
		}
	}
	end := w.cw.count
	records := uint64(len(w.headers))
	size := uint64(end - start)

	var buf [directory64EndLen + directory64LocLen + directoryEndLen]byte
	b := writeBuf(buf[:])

	// zip64 end of central directory record
	b.uint32(directory64EndSignature)
	b.uint64(directory64EndLen - 12) // length minus signature (uint32) and length fields (uint64)
	b.uint16(creatorVersion)
	b.uint16(zipVersion45)
	b.uint32(0) // number of this disk
	b.uint32(0) // number of the disk with the start of the central directory
	b.uint64(records)
	b.uint64(records)
	b.uint64(size)
	b.uint64(uint64(start))

	// zip64 end of central directory locator
	b.uint32(directory64LocSignature)
	b.uint32(0)           // number of the disk with the start of the zip64 end of central directory
	b.uint64(uint64(end)) // relative offset of the zip64 end of central directory record
	b.uint32(1)           // total number of disks

	// classic end record, saturated so readers follow the locator
	b.uint32(directoryEndSignature)
	b.uint16(0)
	b.uint16(0)
	b.uint16(uint16max)
	b.uint16(uint16max)
	b.uint32(uint32max)
	b.uint32(uint32max)
	b.uint16(0) // comment length

	_, err := w.cw.Write(buf[:])
	return err
}

// finish flushes the buffered output and fills in the CRC and sizes of every
// local header now that they are known.
func (w *archiveWriter) finish() error {
	if err := w.bw.Flush(); err != nil {
		return errors.Wrap(err, "flush")
	}
	for _, h := range w.headers {
		if h.name == GhostName && h.offset == 0 {
			continue
		}
		var crc [4]byte
		cb := writeBuf(crc[:])
		cb.uint32(h.crc32)
		if _, err := w.f.WriteAt(crc[:], int64(h.offset)+14); err != nil {
			return errors.Wrapf(err, "patch %s", h.name)
		}
		var sizes [16]byte
		sb := writeBuf(sizes[:])
		sb.uint64(h.uncompSize)
		sb.uint64(h.compSize)
		off := int64(h.offset) + fileHeaderLen + int64(len(h.name)) + 4
		if _, err := w.f.WriteAt(sizes[:], off); err != nil {
			return errors.Wrapf(err, "patch %s", h.name)
		}
	}
	return nil
}

func detectUTF8(s string) (valid, require bool) {
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		// Officially, ZIP uses CP-437, but many readers use the system's
		// local character encoding. Most encoding are compatible with a large
		// subset of CP-437, which itself is ASCII-like.
		//
		// Forbid 0x7e and 0x5c since EUC-KR and Shift-JIS replace those
		// characters with localized currency and overline characters.
		if r < 0x20 || r > 0x7d || r == 0x5c {
			if !utf8.ValidRune(r) || (r == utf8.RuneError && size == 1) {
				return false, false
			}
			require = true
		}
	}
	return true, require
}
