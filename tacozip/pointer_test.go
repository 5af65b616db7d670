package tacozip

import "testing"

func TestNewPointerArray(t *testing.T) {
	tests := []struct {
		name  string
		ptrs  []Pointer
		count int
		code  Code
	}{
		{"empty", nil, 0, OK},
		{"one", []Pointer{{100, 50}}, 1, OK},
		{"offset only", []Pointer{{100, 0}}, 1, OK},
		{"length only", []Pointer{{0, 50}}, 1, OK},
		{"trailing zero", []Pointer{{1, 1}, {}}, 1, OK},
		{"full", []Pointer{{1, 1}, {2, 2}, {3, 3}, {4, 4}, {5, 5}, {6, 6}, {7, 7}}, 7, OK},
		{"too many", make([]Pointer, 8), 0, ParamError},
		{"gap", []Pointer{{}, {5, 5}}, 0, ParamError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPointerArray(tt.ptrs...)
			wantCode(t, err, tt.code)
			if err != nil {
				return
			}
			if p.Count() != tt.count {
				t.Fatalf("Count() = %d, want %d", p.Count(), tt.count)
			}
			for i, q := range p.Pointers() {
				if q != tt.ptrs[i] {
					t.Fatalf("slot %d = %+v, want %+v", i, q, tt.ptrs[i])
				}
			}
			for i := p.Count(); i < MaxPointers; i++ {
				if !p.At(i).IsZero() {
					t.Fatalf("slot %d = %+v past count", i, p.At(i))
				}
			}
		})
	}
}

func TestPointersFromSlices(t *testing.T) {
	p, err := PointersFromSlices([]uint64{10, 20}, []uint64{1, 2})
	if err != nil {
		t.Fatalf("PointersFromSlices: %v", err)
	}
	if p.Count() != 2 || p.At(0) != (Pointer{10, 1}) || p.At(1) != (Pointer{20, 2}) {
		t.Fatalf("got %+v", p)
	}
	offsets, lengths := p.Slices()
	if len(offsets) != MaxPointers || len(lengths) != MaxPointers {
		t.Fatalf("Slices lengths %d, %d", len(offsets), len(lengths))
	}
	if offsets[1] != 20 || lengths[1] != 2 || offsets[2] != 0 {
		t.Fatalf("Slices = %v, %v", offsets, lengths)
	}

	_, err = PointersFromSlices([]uint64{1, 2}, []uint64{1})
	wantCode(t, err, ParamError)
	_, err = PointersFromSlices(make([]uint64, 8), make([]uint64, 8))
	wantCode(t, err, ParamError)
}

func TestWithSlotRecounts(t *testing.T) {
	p := mustPointers(t, Pointer{1, 1}, Pointer{2, 2})
	q := p.withSlot(0, Pointer{})
	if q.Count() != 0 {
		t.Fatalf("Count() = %d, want 0", q.Count())
	}
	if q.At(1) != (Pointer{2, 2}) {
		t.Fatalf("slot 1 lost: %+v", q.At(1))
	}
	if p.Count() != 2 {
		t.Fatalf("withSlot modified its receiver")
	}
}
