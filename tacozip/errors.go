package tacozip

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
)

// Code is the stable status code of a failed operation.
type Code int

// Status codes. The values are fixed; bindings compare against them.
const (
	OK             Code = 0
	IOError        Code = -1
	LibzipReserved Code = -2 // historical, never returned
	InvalidGhost   Code = -3
	ParamError     Code = -4
	NotFound       Code = -5
)

func (c Code) String() string {
	switch c {
	case OK:
		return "ok"
	case IOError:
		return "I/O error (open/read/write/close/flush)"
	case LibzipReserved:
		return "reserved (historical); currently unused"
	case InvalidGhost:
		return "ghost bytes malformed or unexpected"
	case ParamError:
		return "invalid argument(s)"
	case NotFound:
		return "file not found in archive"
	}
	return fmt.Sprintf("unknown error code %d", int(c))
}

var (
	ErrFormat    = errors.New("zip: not a valid zip file")
	ErrAlgorithm = errors.New("zip: unsupported compression algorithm")
)

// Error is returned by every exported operation.
type Error struct {
	Code Code
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	s := "tacozip: " + e.Op
	if e.Path != "" {
		s += " " + e.Path
	}
	s += ": " + e.Code.String()
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Cause() error  { return e.Err }
func (e *Error) Unwrap() error { return e.Err }

// CodeOf returns the status code carried by err, OK for nil and IOError for
// errors that did not come from this package.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Code
		}
		switch x := err.(type) {
		case interface{ Cause() error }:
			err = x.Cause()
		case interface{ Unwrap() error }:
			err = x.Unwrap()
		default:
			return IOError
		}
	}
	return IOError
}

func IsInvalidGhost(err error) bool { return CodeOf(err) == InvalidGhost }
func IsParam(err error) bool        { return CodeOf(err) == ParamError }
func IsNotFound(err error) bool     { return CodeOf(err) == NotFound }

// codeError carries a code from deep inside an operation up to the boundary.
type codeError struct {
	code Code
	err  error
}

func (e *codeError) Error() string { return e.err.Error() }
func (e *codeError) Cause() error  { return e.err }

func paramErrorf(format string, args ...interface{}) error {
	return &codeError{ParamError, errors.Errorf(format, args...)}
}

func ghostErrorf(format string, args ...interface{}) error {
	return &codeError{InvalidGhost, errors.Errorf(format, args...)}
}

func notFoundErrorf(format string, args ...interface{}) error {
	return &codeError{NotFound, errors.Errorf(format, args...)}
}

// wrapOp turns an internal error into the exported *Error. Errors without an
// explicit code are I/O errors.
func wrapOp(op, path string, err error) error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	code := IOError
	for c := err; c != nil; {
		if ce, ok := c.(*codeError); ok {
			code = ce.code
			break
		}
		cc, ok := c.(interface{ Cause() error })
		if !ok {
			break
		}
		c = cc.Cause()
	}
	return &Error{Code: code, Op: op, Path: path, Err: err}
}

// shortRead normalises a short read at EOF to io.ErrUnexpectedEOF.
func shortRead(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

func closeFile(f *os.File, err *error) {
	if cerr := f.Close(); cerr != nil && *err == nil {
		*err = errors.Wrap(cerr, "close")
	}
}
