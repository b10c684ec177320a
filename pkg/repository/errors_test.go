package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JaimeStill/pulse/pkg/fault"
)

var (
	errNotFound  = errors.New("not found")
	errDuplicate = errors.New("duplicate")
)

func TestMapError(t *testing.T) {
	if err := MapError(nil, errNotFound, errDuplicate); err != nil {
		t.Errorf("nil should map to nil, got %v", err)
	}

	if err := MapError(sql.ErrNoRows, errNotFound, errDuplicate); err != errNotFound {
		t.Errorf("ErrNoRows should map to the not-found sentinel, got %v", err)
	}

	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgDuplicateKeyCode})
	if err := MapError(unique, errNotFound, errDuplicate); err != errDuplicate {
		t.Errorf("unique violation should map to the duplicate sentinel, got %v", err)
	}

	check := fmt.Errorf("update: %w", &pgconn.PgError{Code: pgCheckViolationCode, ConstraintName: "ck_issues_scope"})
	if got := fault.CodeOf(MapError(check, errNotFound, errDuplicate)); got != fault.InvalidParam {
		t.Errorf("check violation should map to invalid_param, got %q", got)
	}

	passthrough := errors.New("connection reset")
	if err := MapError(passthrough, errNotFound, errDuplicate); err != passthrough {
		t.Errorf("unrelated errors should pass through, got %v", err)
	}
}

func TestViolationPredicates(t *testing.T) {
	unique := fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: pgDuplicateKeyCode})
	check := fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: pgCheckViolationCode})

	if !IsUniqueViolation(unique) || IsUniqueViolation(check) {
		t.Error("IsUniqueViolation should match 23505 only")
	}
	if !IsCheckViolation(check) || IsCheckViolation(unique) {
		t.Error("IsCheckViolation should match 23514 only")
	}
	if IsUniqueViolation(errors.New("plain")) || IsCheckViolation(nil) {
		t.Error("non-pg errors should not match either predicate")
	}
}
