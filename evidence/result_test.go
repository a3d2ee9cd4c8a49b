package evidence

import (
	"errors"
	"testing"
)

func TestResult_Present(t *testing.T) {
	t.Parallel()
	r := Present(42)
	v, ok := r.Get()
	if !ok || v != 42 {
		t.Errorf("Get() = %v, %v; want 42, true", v, ok)
	}
	if r.Reason() != nil {
		t.Errorf("Reason() = %v, want nil", r.Reason())
	}
}

func TestResult_Absent(t *testing.T) {
	t.Parallel()
	cause := errors.New("timeout")
	r := Absent[string](cause)
	if r.Ok() {
		t.Error("Ok() = true for absent result")
	}
	if !errors.Is(r.Reason(), cause) {
		t.Errorf("Reason() = %v, want %v", r.Reason(), cause)
	}
}

func TestResult_ZeroValueIsAbsent(t *testing.T) {
	t.Parallel()
	var r Result[Record]
	if r.Ok() {
		t.Error("zero Result reports present")
	}
	if !errors.Is(r.Reason(), ErrAbsent) {
		t.Errorf("Reason() = %v, want ErrAbsent", r.Reason())
	}
	if !errors.Is(Absent[int](nil).Reason(), ErrAbsent) {
		t.Error("Absent(nil) should report ErrAbsent")
	}
}
