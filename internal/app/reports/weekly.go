package reports

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/agisilaos/asana-planner/internal/api"
)

const dueDateLayout = "2006-01-02"

// WeeklyPlan groups open tasks by how far away their due date is.
type WeeklyPlan struct {
	ThisWeek  []api.Task `json:"thisWeek"`
	NextWeek  []api.Task `json:"nextWeek"`
	Overdue   []api.Task `json:"overdue"`
	NoDueDate []api.Task `json:"noDueDate"`
}

func (p WeeklyPlan) Total() int {
	return len(p.ThisWeek) + len(p.NextWeek) + len(p.Overdue) + len(p.NoDueDate)
}

// BuildWeeklyPlan buckets tasks relative to now. Completed tasks are
// skipped, and tasks due more than two weeks out fall into no bucket.
func BuildWeeklyPlan(tasks []api.Task, now time.Time) WeeklyPlan {
	plan := WeeklyPlan{
		ThisWeek:  []api.Task{},
		NextWeek:  []api.Task{},
		Overdue:   []api.Task{},
		NoDueDate: []api.Task{},
	}
	for _, task := range tasks {
		if task.Completed {
			continue
		}
		due, ok := parseDueOn(task.DueOn)
		if !ok {
			plan.NoDueDate = append(plan.NoDueDate, task)
			continue
		}
		switch days := DaysUntil(due, now); {
		case days < 0:
			plan.Overdue = append(plan.Overdue, task)
		case days <= 7:
			plan.ThisWeek = append(plan.ThisWeek, task)
		case days <= 14:
			plan.NextWeek = append(plan.NextWeek, task)
		}
	}
	sortByDue(plan.ThisWeek)
	sortByDue(plan.NextWeek)
	sortByDue(plan.Overdue)
	return plan
}

// DaysUntil is the ceiling of the days between now and due, so a date that
// started earlier today still counts as 0.
func DaysUntil(due, now time.Time) int {
	return int(math.Ceil(due.Sub(now).Hours() / 24))
}

// parseDueOn reads a due date as midnight UTC.
func parseDueOn(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(dueDateLayout, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func sortByDue(tasks []api.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].DueOn < tasks[j].DueOn
	})
}
