package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeNotFound, "resource not found")
		if err.Error() != "[NOT_FOUND] resource not found" {
			t.Errorf("expected [NOT_FOUND] resource not found, got %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("original error")
		err := Wrap(original, CodeLoad, "cannot load sub.py")
		expected := "[LOAD_ERROR] cannot load sub.py: original error"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
		if !errors.Is(err, original) {
			t.Error("expected wrapped error to unwrap to original")
		}
	})

	t.Run("IsCode", func(t *testing.T) {
		err := New(CodePattern, "bad pattern")
		if !IsCode(err, CodePattern) {
			t.Error("expected IsCode to return true for CodePattern")
		}
		if IsCode(err, CodeNotFound) {
			t.Error("expected IsCode to return false for CodeNotFound")
		}
	})

	t.Run("IsCodeThroughFmtWrap", func(t *testing.T) {
		err := fmt.Errorf("check main: %w", New(CodeMissingAttribute, "missing main"))
		if !IsCode(err, CodeMissingAttribute) {
			t.Error("expected IsCode to see through fmt.Errorf wrapping")
		}
	})

	t.Run("AddContext", func(t *testing.T) {
		err := AddContext(errors.New("boom"), CtxPath, "sub.py")
		if !IsCode(err, CodeInternal) {
			t.Errorf("expected plain error to be wrapped as internal, got %v", err)
		}
		var de *DomainError
		if !errors.As(err, &de) || de.Context[CtxPath] != "sub.py" {
			t.Errorf("expected path context, got %v", err)
		}
	})

	t.Run("ContextRendering", func(t *testing.T) {
		err := (&DomainError{Code: CodeLoad, Message: "invalid syntax"}).
			WithContext(CtxPath, "sub/calc.py").
			WithContext(CtxLine, 3)
		expected := "[LOAD_ERROR] invalid syntax (line=3, path=sub/calc.py)"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
	})

	t.Run("AddContextKeepsWrapping", func(t *testing.T) {
		inner := New(CodeMissingAttribute, "no main")
		err := AddContext(fmt.Errorf("check: %w", inner), CtxSymbol, "main")
		if !strings.HasPrefix(err.Error(), "check: ") {
			t.Errorf("expected the outer message to survive, got %s", err.Error())
		}
		if !strings.HasSuffix(err.Error(), "(symbol=main)") {
			t.Errorf("expected symbol context, got %s", err.Error())
		}
	})

	t.Run("IsSubmissionFault", func(t *testing.T) {
		if !IsSubmissionFault(New(CodeLoad, "x")) || !IsSubmissionFault(New(CodeMissingAttribute, "x")) {
			t.Error("expected load and missing attribute errors to be submission faults")
		}
		if IsSubmissionFault(New(CodeUnresolvedCallTarget, "x")) {
			t.Error("unresolved call targets are configuration faults")
		}
	})
}
