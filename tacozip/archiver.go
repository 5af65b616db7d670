package tacozip

import (
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/flate"
)

const (
	DefaultBufferSize = 4 << 20 // output buffer
	DefaultCacheSize  = 64      // parsed central directories
	copyBufferSize    = 1 << 20
)

// An Option configures an Archiver.
type Option func(*Archiver)

// WithBufferSize sets the size of the output buffer used by Create.
func WithBufferSize(n int) Option {
	return func(a *Archiver) { a.bufSize = n }
}

// WithMethod selects the storage method for new entries, Store or Deflate.
func WithMethod(method uint16) Option {
	return func(a *Archiver) { a.method = method }
}

// WithLevel sets the deflate compression level used by Create and by
// ReplaceFile on deflated entries.
func WithLevel(level int) Option {
	return func(a *Archiver) { a.level = level }
}

// WithUTF8 forces general purpose bit 11 on every entry. Names that need
// UTF-8 get the bit regardless.
func WithUTF8(on bool) Option {
	return func(a *Archiver) { a.utf8 = on }
}

// WithPreallocate asks the filesystem to reserve the estimated archive size
// before Create writes. Failures are ignored.
func WithPreallocate(on bool) Option {
	return func(a *Archiver) { a.prealloc = on }
}

// WithLock takes an exclusive advisory lock on the archive for the duration
// of UpdateGhost and ReplaceFile, where the platform supports it.
func WithLock(on bool) Option {
	return func(a *Archiver) { a.lock = on }
}

// WithCacheSize bounds the number of parsed central directories kept by the
// Archiver. Zero disables the cache.
func WithCacheSize(n int) Option {
	return func(a *Archiver) { a.cacheSize = n }
}

// Archiver carries the options for archive operations and a cache of parsed
// central directories. It is safe for concurrent use on different files.
type Archiver struct {
	bufSize   int
	method    uint16
	level     int
	utf8      bool
	prealloc  bool
	lock      bool
	cacheSize int

	dirs *lru.Cache[string, *directory]
}

// New returns an Archiver with the given options applied over the defaults:
// Store, 4 MiB buffer, preallocation on, no locking.
func New(opts ...Option) (*Archiver, error) {
	a := &Archiver{
		bufSize:   DefaultBufferSize,
		method:    Store,
		level:     flate.DefaultCompression,
		prealloc:  true,
		cacheSize: DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.bufSize <= 0 {
		return nil, wrapOp("new", "", paramErrorf("buffer size %d", a.bufSize))
	}
	if a.method != Store && a.method != Deflate {
		return nil, wrapOp("new", "", paramErrorf("method %d: %v", a.method, ErrAlgorithm))
	}
	if a.level < flate.HuffmanOnly || a.level > flate.BestCompression {
		return nil, wrapOp("new", "", paramErrorf("deflate level %d", a.level))
	}
	if a.cacheSize < 0 {
		return nil, wrapOp("new", "", paramErrorf("cache size %d", a.cacheSize))
	}
	if a.cacheSize > 0 {
		c, err := lru.New[string, *directory](a.cacheSize)
		if err != nil {
			return nil, wrapOp("new", "", err)
		}
		a.dirs = c
	}
	return a, nil
}

// Method reports the storage method used for new entries.
func (a *Archiver) Method() uint16 { return a.method }

func cacheKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func (a *Archiver) forget(path string) {
	if a.dirs != nil {
		a.dirs.Remove(cacheKey(path))
	}
}

// defaultArchiver backs the package-level functions. Each call gets its own
// value so no state is shared between calls.
func defaultArchiver() *Archiver {
	a, _ := New(WithCacheSize(0))
	return a
}
