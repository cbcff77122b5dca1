package reports

import (
	"fmt"
	"math"
	"time"

	"github.com/agisilaos/asana-planner/internal/api"
)

type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
)

type Analysis struct {
	TotalTasks          int `json:"totalTasks"`
	CompletedTasks      int `json:"completedTasks"`
	PendingTasks        int `json:"pendingTasks"`
	TasksWithoutDueDate int `json:"tasksWithoutDueDate"`
	UnassignedTasks     int `json:"unassignedTasks"`
	OverdueTasks        int `json:"overdueTasks"`
}

type Suggestion struct {
	Type     string   `json:"type"`
	Priority Priority `json:"priority"`
	Message  string   `json:"message"`
	Action   string   `json:"action"`
}

type Insights struct {
	Analysis       Analysis     `json:"analysis"`
	Suggestions    []Suggestion `json:"suggestions"`
	TaskIdeas      []string     `json:"taskIdeas"`
	CompletionRate float64      `json:"completionRate"`
}

var pendingIdeas = []string{
	"Schedule a sprint planning meeting to prioritize pending tasks",
	"Create a task review checkpoint to assess progress",
	"Set up automated reminders for upcoming deadlines",
}

func Analyze(tasks []api.Task, now time.Time) Analysis {
	out := Analysis{TotalTasks: len(tasks)}
	for _, task := range tasks {
		if task.Completed {
			out.CompletedTasks++
			continue
		}
		out.PendingTasks++
		if task.Assignee == nil {
			out.UnassignedTasks++
		}
		due, ok := parseDueOn(task.DueOn)
		if !ok {
			out.TasksWithoutDueDate++
			continue
		}
		if due.Before(now) {
			out.OverdueTasks++
		}
	}
	return out
}

// CompletionRate is the completed share as a percentage rounded to one
// decimal. An empty task list rates 0.
func CompletionRate(a Analysis) float64 {
	if a.TotalTasks == 0 {
		return 0
	}
	pct := float64(a.CompletedTasks) / float64(a.TotalTasks) * 100
	return math.Round(pct*10) / 10
}

func BuildInsights(tasks []api.Task, now time.Time) Insights {
	analysis := Analyze(tasks, now)
	rate := CompletionRate(analysis)
	out := Insights{
		Analysis:       analysis,
		Suggestions:    []Suggestion{},
		TaskIdeas:      []string{},
		CompletionRate: rate,
	}
	if analysis.TasksWithoutDueDate > 0 {
		out.Suggestions = append(out.Suggestions, Suggestion{
			Type:     "deadline",
			Priority: PriorityHigh,
			Message:  fmt.Sprintf("%d tasks don't have due dates. Consider setting deadlines to improve planning.", analysis.TasksWithoutDueDate),
			Action:   "Set due dates for pending tasks",
		})
	}
	if analysis.UnassignedTasks > 0 {
		out.Suggestions = append(out.Suggestions, Suggestion{
			Type:     "assignment",
			Priority: PriorityMedium,
			Message:  fmt.Sprintf("%d tasks are unassigned. Assign them to team members to clarify ownership.", analysis.UnassignedTasks),
			Action:   "Assign tasks to team members",
		})
	}
	if analysis.OverdueTasks > 0 {
		out.Suggestions = append(out.Suggestions, Suggestion{
			Type:     "overdue",
			Priority: PriorityCritical,
			Message:  fmt.Sprintf("%d tasks are overdue. Review and reschedule or complete them.", analysis.OverdueTasks),
			Action:   "Address overdue tasks immediately",
		})
	}
	if rate < 50 {
		out.Suggestions = append(out.Suggestions, Suggestion{
			Type:     "productivity",
			Priority: PriorityMedium,
			Message:  fmt.Sprintf("Current completion rate is %s%%. Consider breaking down large tasks into smaller, manageable subtasks.", formatRate(analysis, rate)),
			Action:   "Create subtasks for better progress tracking",
		})
	}
	if analysis.PendingTasks > 0 {
		out.TaskIdeas = append(out.TaskIdeas, pendingIdeas...)
	}
	return out
}

// formatRate prints one decimal, except that an empty task list reads "0".
func formatRate(a Analysis, rate float64) string {
	if a.TotalTasks == 0 {
		return "0"
	}
	return fmt.Sprintf("%.1f", rate)
}
