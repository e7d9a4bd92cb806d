package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	if got := E(KindInvalidInput, "visitor_id is required").Error(); got != "visitor_id is required" {
		t.Fatalf("message = %q", got)
	}
	if got := (Error{Kind: KindNotFound}).Error(); got != "not_found" {
		t.Fatalf("empty message fallback = %q", got)
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{E(KindInvalidInput, "bad"), http.StatusBadRequest},
		{E(KindNotFound, "missing"), http.StatusNotFound},
		{E(KindConflict, "duplicate"), http.StatusConflict},
		{E(KindUnavailable, "down"), http.StatusServiceUnavailable},
		{E(KindUnknown, "unknown"), http.StatusInternalServerError},
		{stderrors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Fatalf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestHTTPStatusUnwrapsWrappedErrors(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("handle request: %w", E(KindInvalidInput, "bad field"))
	if got := HTTPStatus(wrapped); got != http.StatusBadRequest {
		t.Fatalf("HTTPStatus(wrapped) = %d, want %d", got, http.StatusBadRequest)
	}
}

func TestIsKind(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("assign: %w", E(KindConflict, "assignment exists"))
	if !IsKind(err, KindConflict) {
		t.Fatal("expected conflict kind")
	}
	if IsKind(err, KindNotFound) {
		t.Fatal("did not expect not-found kind")
	}
	if IsKind(stderrors.New("plain"), KindUnknown) {
		t.Fatal("plain error should not match any kind")
	}
}
