package tacozip

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func createTestArchive(t *testing.T, a *Archiver, p PointerArray, files map[string][]byte) string {
	t.Helper()
	dir := t.TempDir()
	var srcs []Source
	for name, content := range files {
		srcs = append(srcs, Source{Path: writeTestFile(t, dir, "src-"+filepath.Base(name), content), Name: name})
	}
	out := filepath.Join(dir, "a.zip")
	if err := a.Create(out, srcs, p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return out
}

func TestUpdateGhostScenarioB(t *testing.T) {
	a := mustArchiver(t)
	out := createTestArchive(t, a, mustPointers(t, Pointer{100, 50}), map[string][]byte{"x.bin": []byte("hello")})
	size := fileSize(t, out)

	before, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	p, err := PointersFromSlices([]uint64{10, 20}, []uint64{1, 2})
	if err != nil {
		t.Fatalf("PointersFromSlices: %v", err)
	}
	if err := a.UpdateGhost(out, p); err != nil {
		t.Fatalf("UpdateGhost: %v", err)
	}
	got, err := a.ReadGhost(out)
	if err != nil {
		t.Fatalf("ReadGhost: %v", err)
	}
	if got != p {
		t.Fatalf("ghost = %+v, want %+v", got, p)
	}
	if s := fileSize(t, out); s != size {
		t.Fatalf("size changed from %d to %d", size, s)
	}

	after, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(before[GhostSize:], after[GhostSize:]) {
		t.Fatalf("bytes after the ghost changed")
	}
	readZip(t, out)
}

func TestUpdateGhostIdempotent(t *testing.T) {
	a := mustArchiver(t)
	out := createTestArchive(t, a, PointerArray{}, map[string][]byte{"x.bin": []byte("hello")})
	p := mustPointers(t, Pointer{1, 2}, Pointer{3, 4}, Pointer{5, 6})

	if err := a.UpdateGhost(out, p); err != nil {
		t.Fatalf("UpdateGhost: %v", err)
	}
	first := fileSum(t, out)
	if err := a.UpdateGhost(out, p); err != nil {
		t.Fatalf("UpdateGhost: %v", err)
	}
	if fileSum(t, out) != first {
		t.Fatalf("second update changed the file")
	}
}

func TestReadGhostScenarioC(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "zeros.zip", make([]byte, 4096))
	_, err := ReadGhost(path)
	wantCode(t, err, InvalidGhost)
}

func TestUpdateGhostRejectsForeignFile(t *testing.T) {
	dir := t.TempDir()
	content := bytes.Repeat([]byte("not a taco archive "), 20)
	path := writeTestFile(t, dir, "foreign", content)
	sum := fileSum(t, path)

	err := UpdateGhost(path, mustPointers(t, Pointer{1, 1}))
	wantCode(t, err, InvalidGhost)
	if fileSum(t, path) != sum {
		t.Fatalf("foreign file was modified")
	}
}

func TestReadGhostIOErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadGhost(filepath.Join(dir, "missing.zip"))
	wantCode(t, err, IOError)

	short := writeTestFile(t, dir, "short.zip", make([]byte, GhostSize-1))
	_, err = ReadGhost(short)
	wantCode(t, err, IOError)

	err = UpdateGhost(short, PointerArray{})
	wantCode(t, err, IOError)
}

func TestUpdateGhostWithLock(t *testing.T) {
	a := mustArchiver(t, WithLock(true))
	out := createTestArchive(t, a, PointerArray{}, map[string][]byte{"x.bin": []byte("hello")})
	p := mustPointers(t, Pointer{9, 9})
	if err := a.UpdateGhost(out, p); err != nil {
		t.Fatalf("UpdateGhost: %v", err)
	}
	if got, err := a.ReadGhost(out); err != nil || got != p {
		t.Fatalf("ReadGhost = %+v, %v", got, err)
	}
}

func TestReadPointer(t *testing.T) {
	a := mustArchiver(t)
	out := createTestArchive(t, a, PointerArray{}, map[string][]byte{"meta.json": []byte(`{"k":"v"}`)})

	// point the ghost at the stored bytes of meta.json
	entries, err := a.List(out)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var e Entry
	for _, x := range entries {
		if x.Name == "meta.json" {
			e = x
		}
	}
	dataOffset := uint64(e.HeaderOffset) + fileHeaderLen + uint64(len(e.Name)) + localZip64ExtraLen
	p := mustPointers(t, Pointer{dataOffset, e.CompressedSize64})
	if err := a.UpdateGhost(out, p); err != nil {
		t.Fatalf("UpdateGhost: %v", err)
	}

	g, err := a.ReadGhost(out)
	if err != nil {
		t.Fatalf("ReadGhost: %v", err)
	}
	b, err := a.ReadPointer(out, g.At(0))
	if err != nil {
		t.Fatalf("ReadPointer: %v", err)
	}
	if string(b) != `{"k":"v"}` {
		t.Fatalf("ReadPointer = %q", b)
	}

	_, err = a.ReadPointer(out, Pointer{Offset: uint64(fileSize(t, out)), Length: 1})
	wantCode(t, err, IOError)
	_, err = a.ReadPointer(out, Pointer{Offset: 1, Length: ^uint64(0)})
	wantCode(t, err, IOError)
}
