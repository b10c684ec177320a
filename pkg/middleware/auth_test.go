package middleware_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/pulse/pkg/middleware"
)

type fakeVerifier struct {
	actor string
	err   error
}

func (f *fakeVerifier) VerifyActor(ctx context.Context, raw string) (string, error) {
	return f.actor, f.err
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestActorDefaultsToSystem(t *testing.T) {
	if got := middleware.Actor(context.Background()); got != middleware.SystemActor {
		t.Errorf("Actor = %q, want %q", got, middleware.SystemActor)
	}
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := middleware.Auth(&fakeVerifier{actor: "ops@example.com"}, discard())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not run without a token")
		}),
	)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/inbox", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := middleware.Auth(&fakeVerifier{err: errors.New("expired")}, discard())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not run with a rejected token")
		}),
	)

	req := httptest.NewRequest("GET", "/inbox", nil)
	req.Header.Set("Authorization", "Bearer bad")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthInjectsActor(t *testing.T) {
	var got string
	handler := middleware.Auth(&fakeVerifier{actor: "ops@example.com"}, discard())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = middleware.Actor(r.Context())
		}),
	)

	req := httptest.NewRequest("POST", "/inbox/abc/actions", nil)
	req.Header.Set("Authorization", "Bearer good")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got != "ops@example.com" {
		t.Errorf("actor = %q, want ops@example.com", got)
	}
}
