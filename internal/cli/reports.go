package cli

import (
	"fmt"
	"strconv"

	"github.com/agisilaos/asana-planner/internal/api"
	"github.com/agisilaos/asana-planner/internal/app/reports"
	apptasks "github.com/agisilaos/asana-planner/internal/app/tasks"
	"github.com/agisilaos/asana-planner/internal/output"
)

func planCommand(ctx *Context, args []string) error {
	if len(args) == 0 || isHelpArg(args[0]) {
		printPlanHelp(ctx.Stdout)
		return nil
	}
	switch args[0] {
	case "weekly", "week":
		return planWeekly(ctx, args[1:])
	default:
		return usageError(fmt.Errorf("unknown plan subcommand: %s", args[0]))
	}
}

func planWeekly(ctx *Context, args []string) error {
	fs := newFlagSet("plan weekly")
	var scope taskScope
	var help bool
	bindTaskScope(fs, &scope)
	bindHelpFlag(fs, &help)
	if err := parseFlagSetInterspersed(fs, args); err != nil {
		return usageError(err)
	}
	if help {
		printPlanHelp(ctx.Stdout)
		return nil
	}
	tasks, err := fetchTasks(ctx, scope, apptasks.ListFieldsReport)
	if err != nil {
		return err
	}
	plan := reports.BuildWeeklyPlan(tasks, ctx.Now())

	switch ctx.Mode {
	case output.ModeJSON:
		return output.WriteJSON(ctx.Stdout, plan, output.Meta{Count: plan.Total()})
	case output.ModeNDJSON:
		items := make([]any, 0, plan.Total())
		for _, b := range planBuckets(plan) {
			for _, t := range b.tasks {
				items = append(items, map[string]any{"bucket": b.key, "task": t})
			}
		}
		return output.WriteNDJSON(ctx.Stdout, items)
	case output.ModePlain:
		var rows [][]string
		for _, b := range planBuckets(plan) {
			for _, t := range b.tasks {
				rows = append(rows, []string{b.key, t.GID, t.Name, t.DueOn})
			}
		}
		return output.WritePlain(ctx.Stdout, rows)
	}
	for _, b := range planBuckets(plan) {
		fmt.Fprintf(ctx.Stdout, "%s (%d)\n", b.title, len(b.tasks))
		for _, t := range b.tasks {
			if t.DueOn != "" {
				fmt.Fprintf(ctx.Stdout, "  %s  %s\n", t.DueOn, t.Name)
			} else {
				fmt.Fprintf(ctx.Stdout, "  %s\n", t.Name)
			}
		}
	}
	return nil
}

type planBucket struct {
	key   string
	title string
	tasks []api.Task
}

func planBuckets(p reports.WeeklyPlan) []planBucket {
	return []planBucket{
		{key: "overdue", title: "Overdue", tasks: p.Overdue},
		{key: "thisWeek", title: "This week", tasks: p.ThisWeek},
		{key: "nextWeek", title: "Next week", tasks: p.NextWeek},
		{key: "noDueDate", title: "No due date", tasks: p.NoDueDate},
	}
}

func analyzeCommand(ctx *Context, args []string) error {
	fs := newFlagSet("analyze")
	var scope taskScope
	var help bool
	bindTaskScope(fs, &scope)
	bindHelpFlag(fs, &help)
	if err := parseFlagSetInterspersed(fs, args); err != nil {
		return usageError(err)
	}
	if help {
		printAnalyzeHelp(ctx.Stdout)
		return nil
	}
	tasks, err := fetchTasks(ctx, scope, apptasks.ListFieldsReport)
	if err != nil {
		return err
	}
	insights := reports.BuildInsights(tasks, ctx.Now())

	switch ctx.Mode {
	case output.ModeJSON:
		return output.WriteJSON(ctx.Stdout, insights, output.Meta{Count: insights.Analysis.TotalTasks})
	case output.ModeNDJSON:
		return output.WriteNDJSON(ctx.Stdout, insights.Suggestions)
	}
	a := insights.Analysis
	rows := [][]string{
		{"total", strconv.Itoa(a.TotalTasks)},
		{"completed", strconv.Itoa(a.CompletedTasks)},
		{"pending", strconv.Itoa(a.PendingTasks)},
		{"overdue", strconv.Itoa(a.OverdueTasks)},
		{"no due date", strconv.Itoa(a.TasksWithoutDueDate)},
		{"unassigned", strconv.Itoa(a.UnassignedTasks)},
		{"completion rate", strconv.FormatFloat(insights.CompletionRate, 'f', 1, 64) + "%"},
	}
	if ctx.Mode == output.ModePlain {
		return output.WritePlain(ctx.Stdout, rows)
	}
	if err := output.WriteTable(ctx.Stdout, []string{"METRIC", "VALUE"}, rows); err != nil {
		return err
	}
	if len(insights.Suggestions) > 0 {
		fmt.Fprintln(ctx.Stdout, "\nSuggestions:")
		for _, s := range insights.Suggestions {
			fmt.Fprintf(ctx.Stdout, "  [%s] %s\n", s.Priority, s.Message)
		}
	}
	if len(insights.TaskIdeas) > 0 {
		fmt.Fprintln(ctx.Stdout, "\nIdeas:")
		for _, idea := range insights.TaskIdeas {
			fmt.Fprintf(ctx.Stdout, "  - %s\n", idea)
		}
	}
	return nil
}
