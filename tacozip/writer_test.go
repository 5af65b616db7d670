package tacozip

import (
	"bytes"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"
)

func TestCreateScenarioA(t *testing.T) {
	dir := t.TempDir()
	src := writeTestFile(t, dir, "x.bin", []byte("hello ghost"))
	out := filepath.Join(dir, "a.zip")

	p, err := PointersFromSlices([]uint64{100}, []uint64{50})
	if err != nil {
		t.Fatalf("PointersFromSlices: %v", err)
	}
	if err := Create(out, []Source{{Path: src, Name: "x.bin"}}, p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := ReadGhost(out)
	if err != nil {
		t.Fatalf("ReadGhost: %v", err)
	}
	if got.Count() != 1 || got.At(0) != (Pointer{100, 50}) {
		t.Fatalf("ghost = %+v", got)
	}
	for i := 1; i < MaxPointers; i++ {
		if !got.At(i).IsZero() {
			t.Fatalf("slot %d = %+v", i, got.At(i))
		}
	}
}

func TestCreateZipCompatible(t *testing.T) {
	for _, method := range []uint16{Store, Deflate} {
		dir := t.TempDir()
		big := make([]byte, 3<<20)
		if _, err := rand.Read(big[:1<<20]); err != nil {
			t.Fatalf("rand: %v", err)
		}
		files := map[string][]byte{
			"x.bin":             []byte("hello ghost"),
			"empty":             nil,
			"sub/big.parquet":   big,
			"naïve/ünïcode.txt": []byte("utf-8 name"),
		}
		var srcs []Source
		for _, name := range []string{"x.bin", "empty", "sub/big.parquet", "naïve/ünïcode.txt"} {
			path := writeTestFile(t, dir, filepath.Base(name), files[name])
			srcs = append(srcs, Source{Path: path, Name: name})
		}
		out := filepath.Join(dir, "out.zip")
		a := mustArchiver(t, WithMethod(method), WithBufferSize(64<<10))
		if err := a.Create(out, srcs, PointerArray{}); err != nil {
			t.Fatalf("method %d: Create: %v", method, err)
		}

		names, contents := readZip(t, out)
		want := []string{GhostName, "x.bin", "empty", "sub/big.parquet", "naïve/ünïcode.txt"}
		if len(names) != len(want) {
			t.Fatalf("method %d: names %q, want %q", method, names, want)
		}
		for i := range want {
			if names[i] != want[i] {
				t.Fatalf("method %d: names %q, want %q", method, names, want)
			}
		}
		if len(contents[GhostName]) != 0 {
			t.Fatalf("ghost has %d bytes of content", len(contents[GhostName]))
		}
		for name, b := range files {
			if !bytes.Equal(contents[name], b) {
				t.Fatalf("method %d: %s content mismatch", method, name)
			}
		}

		entries, err := a.List(out)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		for _, e := range entries {
			if e.Method != method && !e.IsGhost() {
				t.Fatalf("%s method %d, want %d", e.Name, e.Method, method)
			}
		}
	}
}

func TestCreateGhostAtOffsetZero(t *testing.T) {
	dir := t.TempDir()
	src := writeTestFile(t, dir, "x.bin", []byte("data"))
	out := filepath.Join(dir, "a.zip")
	p := mustPointers(t, Pointer{7, 8})
	if err := Create(out, []Source{{src, "x.bin"}}, p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	g := EncodeGhost(p)
	if !bytes.Equal(b[:GhostSize], g[:]) {
		t.Fatalf("first %d bytes are not the ghost", GhostSize)
	}
	// the first real entry starts right after the ghost
	entries, err := mustArchiver(t).List(out)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 || entries[1].HeaderOffset != GhostSize {
		t.Fatalf("entries %v", entries)
	}
}

func TestCreateParamErrors(t *testing.T) {
	dir := t.TempDir()
	src := writeTestFile(t, dir, "x.bin", []byte("data"))
	out := filepath.Join(dir, "a.zip")
	long := string(bytes.Repeat([]byte("a"), 1<<16))

	tests := []struct {
		name  string
		files []Source
	}{
		{"no files", nil},
		{"empty path", []Source{{"", "x"}}},
		{"empty name", []Source{{src, ""}}},
		{"long name", []Source{{src, long}}},
		{"duplicate", []Source{{src, "x"}, {src, "x"}}},
		{"reserved", []Source{{src, GhostName}}},
		{"directory", []Source{{dir, "d"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Create(out, tt.files, PointerArray{})
			wantCode(t, err, ParamError)
		})
	}
}

func TestCreateRefusesDestinationAsSource(t *testing.T) {
	dir := t.TempDir()
	src := writeTestFile(t, dir, "x.bin", []byte("precious data"))
	other := writeTestFile(t, dir, "y.bin", []byte("other"))
	link := filepath.Join(dir, "link.zip")
	if err := os.Symlink(src, link); err != nil {
		t.Fatalf("Symlink: %v", err)
	}

	for _, dest := range []string{src, link} {
		err := Create(dest, []Source{{other, "y.bin"}, {src, "x.bin"}}, PointerArray{})
		wantCode(t, err, ParamError)
		b, err := os.ReadFile(src)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if string(b) != "precious data" {
			t.Fatalf("source overwritten: %q", b)
		}
	}

	// overwriting an unrelated existing archive is still fine
	out := filepath.Join(dir, "a.zip")
	for i := 0; i < 2; i++ {
		if err := Create(out, []Source{{src, "x.bin"}}, PointerArray{}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
}

func TestCreateIOErrors(t *testing.T) {
	dir := t.TempDir()
	src := writeTestFile(t, dir, "x.bin", []byte("data"))

	err := Create(filepath.Join(dir, "missing", "a.zip"), []Source{{src, "x"}}, PointerArray{})
	wantCode(t, err, IOError)

	err = Create(filepath.Join(dir, "a.zip"), []Source{{filepath.Join(dir, "nope"), "x"}}, PointerArray{})
	wantCode(t, err, IOError)
}

func TestNewRejectsBadOptions(t *testing.T) {
	for _, opts := range [][]Option{
		{WithMethod(12)},
		{WithBufferSize(0)},
		{WithLevel(42)},
		{WithCacheSize(-1)},
	} {
		_, err := New(opts...)
		wantCode(t, err, ParamError)
	}
}
