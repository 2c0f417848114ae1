package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
		detailsOK bool
		expose    bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, detailsOK: true, expose: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, expose: true},
		{code: CodeNotFound, status: http.StatusNotFound, expose: true},
		{code: CodeConflict, status: http.StatusConflict, expose: true},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, detailsOK: true, expose: true},
		{code: CodeCapacity, status: http.StatusConflict, detailsOK: true, expose: true},
		{code: CodeRateLimit, status: http.StatusTooManyRequests, expose: true},
		{code: CodeInternal, status: http.StatusInternalServerError, retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage == "" {
			t.Fatalf("code %s has no public message", tt.code)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
		if meta.ExposeMessage != tt.expose {
			t.Fatalf("code %s expected expose %v got %v", tt.code, tt.expose, meta.ExposeMessage)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stdErrors.New("redis: connection refused")
	wrapped := Wrap(CodeDependency, cause, "save cart")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatal("Wrap did not preserve cause")
	}
	if got := wrapped.Error(); got != "DEPENDENCY_ERROR: save cart: redis: connection refused" {
		t.Fatalf("unexpected error string %q", got)
	}
	if wrapped.Message() != "save cart" {
		t.Fatalf("message should exclude the cause, got %q", wrapped.Message())
	}
}

func TestNewfAndDetails(t *testing.T) {
	err := Newf(CodeCapacity, "Only %d items available", 2).WithDetails(map[string]any{"available": 2})
	if err.Message() != "Only 2 items available" {
		t.Fatalf("unexpected message %q", err.Message())
	}
	if err.Details() == nil {
		t.Fatal("details should be preserved")
	}
}

func TestAsAndHasCode(t *testing.T) {
	err := fmt.Errorf("lookup: %w", New(CodeNotFound, "product missing"))
	if got := As(err); got == nil || got.Code() != CodeNotFound {
		t.Fatal("As failed to return typed error")
	}
	if !HasCode(err, CodeNotFound) || HasCode(err, CodeConflict) {
		t.Fatal("HasCode mismatched")
	}
	if As(nil) != nil || HasCode(nil, CodeInternal) {
		t.Fatal("nil errors carry no code")
	}

	var nilErr *Error
	if nilErr.Code() != CodeInternal || nilErr.WithDetails("x") != nil {
		t.Fatal("nil *Error should be safe to use")
	}
}
