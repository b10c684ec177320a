package fault_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/JaimeStill/pulse/pkg/fault"
)

func TestCodeOf(t *testing.T) {
	err := fault.New(fault.InvalidState, "action %q not allowed", "resolve")
	if fault.CodeOf(err) != fault.InvalidState {
		t.Errorf("CodeOf = %q, want invalid_state", fault.CodeOf(err))
	}
}

func TestCodeOfWrappedChain(t *testing.T) {
	inner := fault.New(fault.NotFound, "issue missing")
	wrapped := fmt.Errorf("perform action: %w", inner)
	if fault.CodeOf(wrapped) != fault.NotFound {
		t.Errorf("CodeOf(wrapped) = %q, want not_found", fault.CodeOf(wrapped))
	}
}

func TestCodeOfUncoded(t *testing.T) {
	if got := fault.CodeOf(errors.New("plain")); got != "" {
		t.Errorf("CodeOf(plain) = %q, want empty", got)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("row locked")
	err := fault.Wrap(fault.InvalidState, cause, "dismiss conflict")
	if !errors.Is(err, cause) {
		t.Error("wrapped cause should survive errors.Is")
	}
}

func TestMapHTTPStatus(t *testing.T) {
	cases := []struct {
		code fault.Code
		want int
	}{
		{fault.InvalidState, http.StatusConflict},
		{fault.Duplicate, http.StatusConflict},
		{fault.InvalidParam, http.StatusBadRequest},
		{fault.MissingParam, http.StatusBadRequest},
		{fault.UnexpectedParam, http.StatusBadRequest},
		{fault.ForbiddenSection, http.StatusForbidden},
		{fault.NotFound, http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			got := fault.MapHTTPStatus(fault.New(tc.code, "x"))
			if got != tc.want {
				t.Errorf("MapHTTPStatus(%s) = %d, want %d", tc.code, got, tc.want)
			}
		})
	}

	if got := fault.MapHTTPStatus(errors.New("boom")); got != http.StatusInternalServerError {
		t.Errorf("MapHTTPStatus(uncoded) = %d, want 500", got)
	}
}
