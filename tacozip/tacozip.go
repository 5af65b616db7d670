// Package tacozip writes ZIP64 archives whose first entry is a fixed-size
// "ghost" record. The ghost is a 160-byte zero-length stored file named
// TACO_GHOST; its extra field holds up to seven (offset, length) pointers
// into the archive, so metadata can be located with one read of the first
// 160 bytes and without parsing the central directory.
//
// The ghost never changes size, so UpdateGhost rewrites it in place after
// the archive is finished. ReplaceFile swaps the content of one entry when
// the stored size stays the same. Generic ZIP readers see TACO_GHOST as an
// empty file followed by the real entries.
//
// Pointer offsets are absolute: offset 0 is the first byte of the archive.
//
// The package-level functions use default options and keep no state
// between calls; use New for configured Archivers.
package tacozip

// Create writes a new archive with default options. See Archiver.Create.
func Create(path string, files []Source, initial PointerArray) error {
	return defaultArchiver().Create(path, files, initial)
}

// ReadGhost reads the ghost of the archive at path.
func ReadGhost(path string) (PointerArray, error) {
	return defaultArchiver().ReadGhost(path)
}

// UpdateGhost rewrites the ghost of the archive at path.
func UpdateGhost(path string, p PointerArray) error {
	return defaultArchiver().UpdateGhost(path, p)
}

// ReplaceFile overwrites the content of one entry. See Archiver.ReplaceFile.
func ReplaceFile(path, name string, content []byte) error {
	return defaultArchiver().ReplaceFile(path, name, content)
}

func CreateSingle(path string, files []Source, offset, length uint64) error {
	return defaultArchiver().CreateSingle(path, files, offset, length)
}

func ReadGhostSingle(path string) (Pointer, error) {
	return defaultArchiver().ReadGhostSingle(path)
}

func UpdateGhostSingle(path string, offset, length uint64) error {
	return defaultArchiver().UpdateGhostSingle(path, offset, length)
}
