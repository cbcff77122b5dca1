package projects

import (
	"errors"
	"testing"
)

func TestListPath(t *testing.T) {
	path, err := ListPath(" 42 ")
	if err != nil {
		t.Fatalf("ListPath: %v", err)
	}
	if path != "/workspaces/42/projects" {
		t.Fatalf("unexpected path: %q", path)
	}
	if _, err := ListPath(""); !errors.Is(err, ErrWorkspaceRequired) {
		t.Fatalf("expected ErrWorkspaceRequired, got %v", err)
	}
}

func TestBuildListQuery(t *testing.T) {
	if got := BuildListQuery(false).Get("archived"); got != "false" {
		t.Fatalf("expected archived=false, got %q", got)
	}
	if BuildListQuery(true).Has("archived") {
		t.Fatalf("expected no archived filter")
	}
}
