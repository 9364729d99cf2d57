package scanerr

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: KindUnknown},
		{name: "plain error", err: io.EOF, want: KindUnknown},
		{name: "direct", err: New(KindMalformed, "op", "bad"), want: KindMalformed},
		{name: "wrapped by fmt", err: fmt.Errorf("ctx: %w", New(KindUnsupported, "op", "x")), want: KindUnsupported},
		{name: "Wrap keeps inner kind", err: Wrap(KindIO, "outer", New(KindInsufficientData, "inner", "eof")), want: KindInsufficientData},
		{name: "Wrap classifies plain", err: Wrap(KindIO, "open", io.ErrUnexpectedEOF), want: KindIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	err := WithPath(Errorf(KindUnsupported, "bmp", "compression %d", 4), "/media/a.bmp")

	want := "/media/a.bmp: bmp: compression 4"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if KindOf(err) != KindUnsupported {
		t.Errorf("KindOf() = %v, want unsupported", KindOf(err))
	}
}

func TestWithPathPlainError(t *testing.T) {
	err := WithPath(io.EOF, "/x")
	if !errors.Is(err, io.EOF) {
		t.Error("WithPath should keep the wrapped error reachable")
	}
	if WithPath(nil, "/x") != nil {
		t.Error("WithPath(nil) should be nil")
	}
}

func TestIsFatal(t *testing.T) {
	for _, k := range Kinds {
		err := New(k, "op", "msg")
		want := k == KindAllocation || k == KindUnallocated
		if IsFatal(err) != want {
			t.Errorf("IsFatal(%v) = %v, want %v", k, IsFatal(err), want)
		}
	}
}

func TestKindString(t *testing.T) {
	seen := map[string]bool{}
	for _, k := range Kinds {
		s := k.String()
		if seen[s] {
			t.Errorf("duplicate kind string %q", s)
		}
		seen[s] = true
	}
}
