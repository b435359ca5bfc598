package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseValidate,
				Kind:   KindUnsupported,
				Path:   []string{"fetch", "result", "ok"},
				Type:   "stream<u8>",
				Detail: "no canonical lowering",
			},
			contains: []string{"[validate]", "unsupported", "fetch.result.ok", "stream<u8>", "no canonical lowering"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseGenerate,
				Kind:  KindStackMismatch,
			},
			contains: []string{"[generate]", "stack_mismatch"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseEval,
				Kind:   KindAllocation,
				Detail: "memory full",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[eval]", "allocation", "memory full", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseParse,
		Kind:  KindInvalidData,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseGenerate,
		Kind:  KindStackMismatch,
		Path:  []string{"foo"},
	}

	if !err.Is(&Error{Phase: PhaseGenerate, Kind: KindStackMismatch}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseEval, Kind: KindStackMismatch}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseGenerate, Kind: KindOutOfBounds}) {
		t.Error("Is should not match different kind")
	}

	target := &Error{Phase: PhaseGenerate, Kind: KindStackMismatch}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseValidate, KindUnsupported).
		Path("fn", "arg").
		Type("future<u32>").
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "value", "future").
		Build()

	if err.Phase != PhaseValidate {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseValidate)
	}
	if err.Kind != KindUnsupported {
		t.Errorf("Kind = %v, want %v", err.Kind, KindUnsupported)
	}
	if len(err.Path) != 2 || err.Path[0] != "fn" || err.Path[1] != "arg" {
		t.Errorf("Path = %v, want [fn arg]", err.Path)
	}
	if err.Type != "future<u32>" {
		t.Errorf("Type = %v, want 'future<u32>'", err.Type)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected value, got future" {
		t.Errorf("Detail = %v", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("Unsupported", func(t *testing.T) {
		err := Unsupported(PhaseValidate, []string{"f"}, "stream<u8>", "streams")
		if err.Kind != KindUnsupported {
			t.Errorf("Kind = %v, want %v", err.Kind, KindUnsupported)
		}
		if err.Type != "stream<u8>" {
			t.Errorf("Type = %v", err.Type)
		}
	})

	t.Run("StackMismatch", func(t *testing.T) {
		err := StackMismatch(PhaseGenerate, "RecordLift", 3, 2)
		if err.Kind != KindStackMismatch {
			t.Errorf("Kind = %v, want %v", err.Kind, KindStackMismatch)
		}
		if !strings.Contains(err.Detail, "want 3") || !strings.Contains(err.Detail, "have 2") {
			t.Errorf("Detail = %v", err.Detail)
		}
	})

	t.Run("UnbalancedBlock", func(t *testing.T) {
		err := UnbalancedBlock(PhaseGenerate, "finish without push")
		if err.Kind != KindUnbalancedBlock {
			t.Errorf("Kind = %v, want %v", err.Kind, KindUnbalancedBlock)
		}
	})

	t.Run("TypeMismatch", func(t *testing.T) {
		err := TypeMismatch(PhaseEval, []string{"x"}, "u32", "str")
		if err.Type != "u32" || !strings.Contains(err.Detail, "string") {
			t.Errorf("Type=%v Detail=%v", err.Type, err.Detail)
		}
	})

	t.Run("AllocationFailed", func(t *testing.T) {
		err := AllocationFailed(PhaseEval, 1024, 8)
		if err.Kind != KindAllocation {
			t.Errorf("Kind = %v, want %v", err.Kind, KindAllocation)
		}
		if !strings.Contains(err.Detail, "1024") {
			t.Errorf("Detail = %v, should contain size", err.Detail)
		}
	})

	t.Run("InvalidDiscriminant", func(t *testing.T) {
		err := InvalidDiscriminant(PhaseEval, []string{"variant"}, 5, 3)
		if err.Kind != KindInvalidVariant {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidVariant)
		}
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		err := OutOfBounds(PhaseEval, []string{"list"}, 10, 5)
		if err.Kind != KindOutOfBounds {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOutOfBounds)
		}
		if err.Value != uint32(10) {
			t.Errorf("Value = %v, want 10", err.Value)
		}
	})

	t.Run("ParseFailed", func(t *testing.T) {
		cause := errors.New("bad token")
		err := ParseFailed("signature", cause)
		if err.Phase != PhaseParse || !errors.Is(err, cause) {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestIsAs(t *testing.T) {
	inner := StackMismatch(PhaseGenerate, "emit", 1, 0)
	outer := Wrap(PhaseEval, KindInvalidData, inner, "call")

	if !Is(outer, &Error{Phase: PhaseGenerate, Kind: KindStackMismatch}) {
		t.Error("Is should find the wrapped error")
	}
	var target *Error
	if !As(outer, &target) || target.Kind != KindInvalidData {
		t.Errorf("As = %v", target)
	}
}
