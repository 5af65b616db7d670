package tacozip

// The single-pointer calls predate multi-slot ghosts. They go through the
// multi-slot code so both produce identical bytes.

// CreateSingle is Create with one pointer; offset and length both zero
// leave the ghost empty.
func (a *Archiver) CreateSingle(path string, files []Source, offset, length uint64) error {
	return a.Create(path, files, singlePointer(offset, length))
}

// ReadGhostSingle returns the first slot of the ghost, or the zero Pointer
// when no slot is in use.
func (a *Archiver) ReadGhostSingle(path string) (Pointer, error) {
	p, err := a.ReadGhost(path)
	if err != nil || p.Count() == 0 {
		return Pointer{}, err
	}
	return p.At(0), nil
}

// UpdateGhostSingle replaces the first slot and keeps the others.
func (a *Archiver) UpdateGhostSingle(path string, offset, length uint64) error {
	p, err := a.readGhost(path)
	if err != nil {
		return wrapOp("update_ghost", path, err)
	}
	return a.UpdateGhost(path, p.withSlot(0, Pointer{Offset: offset, Length: length}))
}

func singlePointer(offset, length uint64) PointerArray {
	var a PointerArray
	return a.withSlot(0, Pointer{Offset: offset, Length: length})
}
