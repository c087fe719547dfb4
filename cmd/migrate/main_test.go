package main

import (
	"context"
	"strings"
	"testing"
)

func TestRunRejectsUnknownAction(t *testing.T) {
	err := run(context.Background(), []string{"sideways"})
	if err == nil || !strings.Contains(err.Error(), "unknown action") {
		t.Fatalf("expected unknown action error, got %v", err)
	}
}

func TestRunRequiresDatabaseURL(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATABASE_URL", "")
	err := run(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "connect database") {
		t.Fatalf("expected connect error, got %v", err)
	}
}
