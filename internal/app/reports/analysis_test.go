package reports

import (
	"strings"
	"testing"
	"time"

	"github.com/agisilaos/asana-planner/internal/api"
)

func TestBuildInsights(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	tasks := []api.Task{
		{GID: "1", Completed: true},
		{GID: "2", DueOn: "2026-02-01", Assignee: &api.Ref{GID: "u1"}},
		{GID: "3"},
	}
	got := BuildInsights(tasks, now)

	want := Analysis{TotalTasks: 3, CompletedTasks: 1, PendingTasks: 2, TasksWithoutDueDate: 1, UnassignedTasks: 1, OverdueTasks: 1}
	if got.Analysis != want {
		t.Fatalf("unexpected analysis: %#v", got.Analysis)
	}
	if got.CompletionRate != 33.3 {
		t.Fatalf("expected 33.3, got %v", got.CompletionRate)
	}
	var types []string
	for _, s := range got.Suggestions {
		types = append(types, s.Type+"/"+string(s.Priority))
	}
	if strings.Join(types, ",") != "deadline/high,assignment/medium,overdue/critical,productivity/medium" {
		t.Fatalf("unexpected suggestions: %v", types)
	}
	if !strings.Contains(got.Suggestions[3].Message, "33.3%") {
		t.Fatalf("expected rate in message: %q", got.Suggestions[3].Message)
	}
	if len(got.TaskIdeas) != 3 {
		t.Fatalf("expected 3 ideas, got %d", len(got.TaskIdeas))
	}
}

func TestBuildInsightsAllDone(t *testing.T) {
	got := BuildInsights([]api.Task{{Completed: true}, {Completed: true}}, time.Now())
	if got.CompletionRate != 100 {
		t.Fatalf("expected 100, got %v", got.CompletionRate)
	}
	if len(got.Suggestions) != 0 || len(got.TaskIdeas) != 0 {
		t.Fatalf("expected no suggestions or ideas, got %#v", got)
	}
}

func TestBuildInsightsEmpty(t *testing.T) {
	got := BuildInsights(nil, time.Now())
	if got.CompletionRate != 0 {
		t.Fatalf("expected 0, got %v", got.CompletionRate)
	}
	if len(got.Suggestions) != 1 || got.Suggestions[0].Type != "productivity" {
		t.Fatalf("expected only the productivity suggestion, got %#v", got.Suggestions)
	}
	if !strings.Contains(got.Suggestions[0].Message, "rate is 0%.") {
		t.Fatalf("expected a bare 0%% rate: %q", got.Suggestions[0].Message)
	}
}
