package models

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestPlanErrorMessages(t *testing.T) {
	err := NewAmbiguousQueryError("could not determine surface type")
	if !strings.Contains(err.Error(), "ambiguous_query") {
		t.Errorf("error should carry its kind: %v", err)
	}

	short := NewInsufficientStepsError(1, 3)
	if short.Found != 1 || short.Required != 3 {
		t.Errorf("Found/Required = %d/%d, want 1/3", short.Found, short.Required)
	}
	if !strings.Contains(short.Error(), "1 steps") {
		t.Errorf("message should name the counts: %v", short)
	}
}

func TestPlanErrorUnwrap(t *testing.T) {
	cause := errors.New("database is locked")
	err := NewRetrievalError("fetch_methods", cause)

	if !errors.Is(err, cause) {
		t.Error("wrapped cause should be reachable via errors.Is")
	}
	if !strings.Contains(err.Error(), "database is locked") {
		t.Errorf("message should include the cause: %v", err)
	}
}

func TestKindOf(t *testing.T) {
	if kind := KindOf(NewNoMatchFoundError("nothing", nil)); kind != ErrKindNoMatchFound {
		t.Errorf("KindOf = %q, want %q", kind, ErrKindNoMatchFound)
	}

	wrapped := fmt.Errorf("planning failed: %w", NewAmbiguousQueryError("unclear"))
	if kind := KindOf(wrapped); kind != ErrKindAmbiguousQuery {
		t.Errorf("KindOf should see through wrapping, got %q", kind)
	}

	if kind := KindOf(errors.New("plain")); kind != "" {
		t.Errorf("KindOf(plain error) = %q, want empty", kind)
	}
}
