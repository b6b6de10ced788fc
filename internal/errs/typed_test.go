package errs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestValidationError_IsAndMessage(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("create: %w", &ValidationError{Fields: []string{"nickname", "type"}})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
	var ve *ValidationError
	if !errors.As(err, &ve) || len(ve.Fields) != 2 {
		t.Fatalf("errors.As failed: %v", err)
	}
	if ve.Error() != "validation: nickname, type" {
		t.Fatalf("message: %q", ve.Error())
	}
	ve.Message = "custom"
	if ve.Error() != "custom" {
		t.Fatalf("custom message ignored: %q", ve.Error())
	}
}

func TestHTTPError_StatusMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code         int
		unauthorized bool
		notFound     bool
	}{
		{http.StatusUnauthorized, true, false},
		{http.StatusForbidden, true, false},
		{http.StatusNotFound, false, true},
		{http.StatusInternalServerError, false, false},
	}
	for _, c := range cases {
		err := &HTTPError{Op: "delete", StatusCode: c.code}
		if !errors.Is(err, ErrHTTP) {
			t.Fatalf("%d: want ErrHTTP", c.code)
		}
		if errors.Is(err, ErrUnauthorized) != c.unauthorized {
			t.Fatalf("%d: unauthorized mismatch", c.code)
		}
		if errors.Is(err, ErrNotFound) != c.notFound {
			t.Fatalf("%d: not found mismatch", c.code)
		}
		if errors.Is(err, ErrNetwork) {
			t.Fatalf("%d: http error must not be a network error", c.code)
		}
	}

	withBody := &HTTPError{Op: "update", StatusCode: 500, Body: "boom"}
	if withBody.Error() != "update: http 500: boom" {
		t.Fatalf("message: %q", withBody.Error())
	}
}

func TestNetworkError_Unwrap(t *testing.T) {
	t.Parallel()

	err := &NetworkError{Op: "create", Err: context.Canceled}
	if !errors.Is(err, ErrNetwork) || !errors.Is(err, context.Canceled) {
		t.Fatalf("network error should match ErrNetwork and the cause: %v", err)
	}
	if err.Error() != "create: context canceled" {
		t.Fatalf("message: %q", err.Error())
	}
}
