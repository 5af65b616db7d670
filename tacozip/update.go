package tacozip

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// ReadGhost returns the pointers stored in the ghost of the archive at path.
// Only the first 160 bytes of the file are read.
func (a *Archiver) ReadGhost(path string) (PointerArray, error) {
	p, err := a.readGhost(path)
	return p, wrapOp("read_ghost", path, err)
}

func (a *Archiver) readGhost(path string) (p PointerArray, err error) {
	f, err := os.Open(path)
	if err != nil {
		return p, errors.Wrap(err, "open")
	}
	defer closeFile(f, &err)
	return readGhostAt(f)
}

// UpdateGhost rewrites the ghost of the archive at path with p. The existing
// ghost is validated first; nothing is written to a file that does not
// carry one. No byte outside the ghost changes.
func (a *Archiver) UpdateGhost(path string, p PointerArray) error {
	return wrapOp("update_ghost", path, a.updateGhost(path, p))
}

func (a *Archiver) updateGhost(path string, p PointerArray) (err error) {
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
	if _, err := readGhostAt(f); err != nil {
		return err
	}
	g := EncodeGhost(p)
	if _, err := f.WriteAt(g[:], 0); err != nil {
		return errors.Wrap(err, "write ghost")
	}
	return errors.Wrap(f.Sync(), "sync")
}

// ReadPointer returns the bytes p refers to in the archive at path.
func (a *Archiver) ReadPointer(path string, p Pointer) ([]byte, error) {
	b, err := a.readPointer(path, p)
	return b, wrapOp("read_pointer", path, err)
}

func (a *Archiver) readPointer(path string, p Pointer) (b []byte, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer closeFile(f, &err)
	fi, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "stat")
	}
	if p.Offset > uint64(fi.Size()) || p.Length > uint64(fi.Size())-p.Offset {
		return nil, errors.Wrapf(io.ErrUnexpectedEOF, "range %d+%d beyond %d bytes", p.Offset, p.Length, fi.Size())
	}
	b = make([]byte, p.Length)
	if _, err := f.ReadAt(b, int64(p.Offset)); err != nil {
		return nil, errors.Wrap(shortRead(err), "read")
	}
	return b, nil
}
