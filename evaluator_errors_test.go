package prefs

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapEvaluationErrorCreatesMetadata(t *testing.T) {
	base := errors.New("boom")
	err := wrapEvaluationError("expr", "value && missing", "ui.theme", base)

	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T", err)
	}
	if evalErr.Engine != "expr" {
		t.Fatalf("expected engine expr, got %q", evalErr.Engine)
	}
	if evalErr.Expr != "value && missing" {
		t.Fatalf("expected expression metadata, got %q", evalErr.Expr)
	}
	if evalErr.Key != "ui.theme" {
		t.Fatalf("expected key metadata, got %q", evalErr.Key)
	}
	if !errors.Is(evalErr.Err, base) {
		t.Fatalf("wrapped error should unwrap to base error")
	}
	if !strings.Contains(err.Error(), `expr="value && missing"`) {
		t.Fatalf("expected the expression in the message, got %q", err.Error())
	}
}

func TestWrapEvaluationErrorAugmentsExisting(t *testing.T) {
	base := errors.New("compile failure")
	existing := &EvaluationError{
		Engine: "expr",
		Err:    base,
	}

	err := wrapEvaluationError("cel", "rule", "retry.limit", existing)
	if !errors.Is(err, base) {
		t.Fatalf("expected base error to unwrap")
	}
	if existing.Engine != "expr" {
		t.Fatalf("existing engine should not be overwritten, got %q", existing.Engine)
	}
	if existing.Expr != "rule" {
		t.Fatalf("expression should be filled, got %q", existing.Expr)
	}
	if existing.Key != "retry.limit" {
		t.Fatalf("key should be filled, got %q", existing.Key)
	}
}

func TestWrapEvaluationErrorNil(t *testing.T) {
	if wrapEvaluationError("expr", "true", "k", nil) != nil {
		t.Fatalf("nil errors stay nil")
	}
	if wrapEvaluatorError("expr", nil) != nil {
		t.Fatalf("nil errors stay nil")
	}
	prefixed := errors.New("prefs: already labelled")
	if got := wrapEvaluatorError("expr", prefixed); got != prefixed {
		t.Fatalf("labelled errors pass through, got %v", got)
	}
	if got := wrapEvaluatorError("cel", errors.New("raw")); !strings.HasPrefix(got.Error(), "prefs: cel evaluator:") {
		t.Fatalf("unexpected wrap: %v", got)
	}
}
