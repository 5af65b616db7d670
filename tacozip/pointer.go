package tacozip

// Pointer is a byte range inside the archive file. Offset is absolute from
// the first byte of the archive. The zero Pointer marks an unused slot.
type Pointer struct {
	Offset uint64
	Length uint64
}

func (p Pointer) IsZero() bool {
	return p.Offset == 0 && p.Length == 0
}

// PointerArray is the ghost payload: up to MaxPointers slots and the number
// of slots in use. The zero value is an empty array.
type PointerArray struct {
	count   uint8
	entries [MaxPointers]Pointer
}

// NewPointerArray builds an array from ptrs in slot order. Trailing zero
// pointers are allowed; a non-zero pointer after a zero one is not.
func NewPointerArray(ptrs ...Pointer) (PointerArray, error) {
	var a PointerArray
	if len(ptrs) > MaxPointers {
		return a, wrapOp("pointers", "", paramErrorf("%d pointers, at most %d", len(ptrs), MaxPointers))
	}
	copy(a.entries[:], ptrs)
	a.count = leadingCount(a.entries)
	for i := int(a.count); i < MaxPointers; i++ {
		if !a.entries[i].IsZero() {
			return PointerArray{}, wrapOp("pointers", "", paramErrorf("pointer %d follows an unused slot", i))
		}
	}
	return a, nil
}

// PointersFromSlices pairs offsets[i] with lengths[i].
func PointersFromSlices(offsets, lengths []uint64) (PointerArray, error) {
	if len(offsets) != len(lengths) {
		return PointerArray{}, wrapOp("pointers", "", paramErrorf("%d offsets but %d lengths", len(offsets), len(lengths)))
	}
	if len(offsets) > MaxPointers {
		return PointerArray{}, wrapOp("pointers", "", paramErrorf("%d pointers, at most %d", len(offsets), MaxPointers))
	}
	ptrs := make([]Pointer, len(offsets))
	for i := range offsets {
		ptrs[i] = Pointer{Offset: offsets[i], Length: lengths[i]}
	}
	return NewPointerArray(ptrs...)
}

// Count is the number of slots in use.
func (a PointerArray) Count() int { return int(a.count) }

// At returns slot i, in use or not. It panics if i is out of range.
func (a PointerArray) At(i int) Pointer { return a.entries[i] }

// Pointers returns the slots in use.
func (a PointerArray) Pointers() []Pointer {
	out := make([]Pointer, a.count)
	copy(out, a.entries[:a.count])
	return out
}

// Entries returns all slots, including unused ones.
func (a PointerArray) Entries() [MaxPointers]Pointer { return a.entries }

// Slices returns every slot as parallel offset and length slices.
func (a PointerArray) Slices() (offsets, lengths []uint64) {
	offsets = make([]uint64, MaxPointers)
	lengths = make([]uint64, MaxPointers)
	for i, p := range a.entries {
		offsets[i] = p.Offset
		lengths[i] = p.Length
	}
	return offsets, lengths
}

// withSlot replaces slot i and recounts, leaving the other slots untouched.
func (a PointerArray) withSlot(i int, p Pointer) PointerArray {
	a.entries[i] = p
	a.count = leadingCount(a.entries)
	return a
}

func leadingCount(entries [MaxPointers]Pointer) uint8 {
	for i, p := range entries {
		if p.IsZero() {
			return uint8(i)
		}
	}
	return MaxPointers
}
