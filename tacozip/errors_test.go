package tacozip

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, OK},
		{"foreign", io.EOF, IOError},
		{"param", wrapOp("op", "", paramErrorf("bad")), ParamError},
		{"wrapped ghost", errors.Wrap(wrapOp("op", "p", ghostErrorf("bad")), "outer"), InvalidGhost},
		{"fmt wrapped", fmt.Errorf("outer: %w", wrapOp("op", "p", notFoundErrorf("x"))), NotFound},
		{"code below wrap", wrapOp("op", "p", errors.Wrap(paramErrorf("inner"), "middle")), ParamError},
		{"plain wrap", wrapOp("op", "p", errors.Wrap(io.ErrUnexpectedEOF, "read")), IOError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Fatalf("CodeOf(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	err := wrapOp("replace", "a.zip", notFoundErrorf("entry %q", "x.bin"))
	msg := err.Error()
	for _, want := range []string{"replace", "a.zip", NotFound.String(), `"x.bin"`} {
		if !strings.Contains(msg, want) {
			t.Fatalf("%q does not contain %q", msg, want)
		}
	}
	if errors.Cause(err) == err {
		t.Fatalf("Cause did not unwrap")
	}
	if wrapOp("x", "", nil) != nil {
		t.Fatalf("wrapOp(nil) != nil")
	}
}

func TestCodeValues(t *testing.T) {
	for c, v := range map[Code]int{OK: 0, IOError: -1, LibzipReserved: -2, InvalidGhost: -3, ParamError: -4, NotFound: -5} {
		if int(c) != v {
			t.Fatalf("%v = %d, want %d", c, int(c), v)
		}
	}
	if !strings.Contains(Code(-9).String(), "-9") {
		t.Fatalf("unknown code string %q", Code(-9).String())
	}
}
