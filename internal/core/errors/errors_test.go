package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeNotFound, "root not found")
		if err.Error() != "[NOT_FOUND] root not found" {
			t.Errorf("expected [NOT_FOUND] root not found, got %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("unexpected EOF")
		err := Wrap(original, CodeParseFailure, "parse failed")
		expected := "[PARSE_FAILURE] parse failed: unexpected EOF"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
		if !errors.Is(err, original) {
			t.Error("expected wrapped error to unwrap to original")
		}
	})

	t.Run("WrapNil", func(t *testing.T) {
		if err := Wrap(nil, CodeInternal, "noop"); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})

	t.Run("ContextIsSorted", func(t *testing.T) {
		err := New(CodeInconsistent, "close out of order")
		err = AddContext(err, CtxPath, "a.py")
		err = AddContext(err, CtxBlock, 3)
		expected := "[INCONSISTENT_STATE] close out of order {block=3, path=a.py}"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
	})

	t.Run("AddContextOnPlainError", func(t *testing.T) {
		err := AddContext(errors.New("boom"), CtxOperation, "walk")
		if !IsCode(err, CodeInternal) {
			t.Errorf("expected plain error to be wrapped as internal, got %v", err)
		}
	})

	t.Run("CodeOfThroughFmtWrap", func(t *testing.T) {
		inner := New(CodeCanceled, "run canceled")
		err := fmt.Errorf("index: %w", inner)
		if CodeOf(err) != CodeCanceled {
			t.Errorf("expected CANCELED, got %q", CodeOf(err))
		}
		if IsCode(err, CodeNotFound) {
			t.Error("expected IsCode to return false for CodeNotFound")
		}
	})

	t.Run("CodeOfPlain", func(t *testing.T) {
		if code := CodeOf(errors.New("plain")); code != "" {
			t.Errorf("expected empty code, got %q", code)
		}
	})
}
