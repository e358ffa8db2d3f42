// Package logging includes tests for the zap logger helpers.
package logging

import (
	"testing"

	"go.uber.org/zap"
)

// TestNewDevelopmentLogger confirms the development logger builds and logs.
func TestNewDevelopmentLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(true, "")
	if err != nil {
		t.Fatalf("New(true, \"\") error = %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger to be non-nil")
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush
	logger.Info("development logger ready")
}

// TestNewProductionLogger ensures the production logger configuration succeeds.
func TestNewProductionLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(false, "warn")
	if err != nil {
		t.Fatalf("New(false, \"warn\") error = %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger to be non-nil")
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush
	if logger.Core().Enabled(zap.InfoLevel) {
		t.Error("expected info to be disabled at warn level")
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	t.Parallel()

	if _, err := New(false, "verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestInstallReplacesGlobal(t *testing.T) {
	logger, restore, err := Install(true, "debug")
	if err != nil {
		t.Fatalf("Install error = %v", err)
	}
	defer restore()

	if zap.L() != logger {
		t.Error("expected zap global to be the installed logger")
	}
}
