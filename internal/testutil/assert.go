package testutil

import (
	"errors"
	"testing"

	apperrors "pooled-lending/internal/errors"
)

// AssertAppError fails unless err matches want by code.
func AssertAppError(t *testing.T, err error, want *apperrors.AppError) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", want.Code)
	}
	if !errors.Is(err, want) {
		t.Fatalf("expected %s, got %v", want.Code, err)
	}
}

func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
