package cli

import (
	"errors"
	"flag"
	"fmt"

	"github.com/agisilaos/asana-planner/internal/api"
	appprojects "github.com/agisilaos/asana-planner/internal/app/projects"
	"github.com/agisilaos/asana-planner/internal/app/refs"
	apptasks "github.com/agisilaos/asana-planner/internal/app/tasks"
	"github.com/agisilaos/asana-planner/internal/output"
)

func workspaceCommand(ctx *Context, args []string) error {
	if len(args) == 0 || isHelpArg(args[0]) {
		printWorkspaceHelp(ctx.Stdout)
		return nil
	}
	switch args[0] {
	case "list", "ls":
		return workspaceList(ctx, args[1:])
	default:
		return usageError(fmt.Errorf("unknown workspace subcommand: %s", args[0]))
	}
}

func workspaceList(ctx *Context, args []string) error {
	fs := newFlagSet("workspace list")
	var help bool
	bindHelpFlag(fs, &help)
	if err := parseFlagSetInterspersed(fs, args); err != nil {
		return usageError(err)
	}
	if help {
		printWorkspaceHelp(ctx.Stdout)
		return nil
	}
	if err := ensureClient(ctx); err != nil {
		return err
	}
	reqCtx, cancel := requestContext(ctx)
	defer cancel()
	items, err := api.ListAll[api.Workspace](reqCtx, ctx.Client, appprojects.WorkspacesPath, appprojects.BuildWorkspacesQuery())
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(items))
	for _, ws := range items {
		rows = append(rows, []string{ws.GID, ws.Name, yesNo(ws.IsOrganization)})
	}
	return writeRows(ctx, []string{"GID", "NAME", "ORG"}, rows, items, output.Meta{Count: len(items)})
}

func projectCommand(ctx *Context, args []string) error {
	if len(args) == 0 || isHelpArg(args[0]) {
		printProjectHelp(ctx.Stdout)
		return nil
	}
	switch args[0] {
	case "list", "ls":
		return projectList(ctx, args[1:])
	case "browse":
		return projectBrowse(ctx, args[1:])
	default:
		return usageError(fmt.Errorf("unknown project subcommand: %s", args[0]))
	}
}

func projectList(ctx *Context, args []string) error {
	fs := newFlagSet("project list")
	var workspace string
	var archived bool
	var help bool
	fs.StringVar(&workspace, "workspace", "", "Workspace gid")
	fs.BoolVar(&archived, "archived", false, "Include archived projects")
	bindHelpFlag(fs, &help)
	if err := parseFlagSetInterspersed(fs, args); err != nil {
		return usageError(err)
	}
	if help {
		printProjectHelp(ctx.Stdout)
		return nil
	}
	if workspace == "" {
		workspace = ctx.Creds.WorkspaceGID
	}
	path, err := appprojects.ListPath(refs.StripIDPrefix(workspace))
	if err != nil {
		return usageError(err)
	}
	if err := ensureClient(ctx); err != nil {
		return err
	}
	reqCtx, cancel := requestContext(ctx)
	defer cancel()
	items, err := api.ListAll[api.Project](reqCtx, ctx.Client, path, appprojects.BuildListQuery(archived))
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(items))
	for _, p := range items {
		rows = append(rows, []string{p.GID, p.Name, yesNo(p.Archived)})
	}
	return writeRows(ctx, []string{"GID", "NAME", "ARCHIVED"}, rows, items, output.Meta{Count: len(items)})
}

func projectBrowse(ctx *Context, args []string) error {
	fs := newFlagSet("project browse")
	var id string
	var view string
	var help bool
	fs.StringVar(&id, "id", "", "Project gid")
	fs.StringVar(&view, "view", "", "list, board, calendar or timeline")
	bindHelpFlag(fs, &help)
	if err := parseFlagSetInterspersed(fs, args); err != nil {
		return usageError(err)
	}
	if help {
		printProjectHelp(ctx.Stdout)
		return nil
	}
	if id == "" && len(fs.Args()) > 0 {
		id = fs.Args()[0]
	}
	if id == "" {
		id = ctx.Creds.ProjectGID
	}
	link, err := appprojects.BuildBrowseURL(appprojects.BrowseURLInput{ID: refs.StripIDPrefix(id), View: view})
	if err != nil {
		return usageError(err)
	}
	if ctx.Mode == output.ModeJSON {
		return output.WriteJSON(ctx.Stdout, map[string]any{"url": link}, output.Meta{})
	}
	fmt.Fprintln(ctx.Stdout, link)
	return nil
}

type taskScope struct {
	workspace string
	project   string
	user      string
}

func bindTaskScope(fs *flag.FlagSet, scope *taskScope) {
	fs.StringVar(&scope.workspace, "workspace", "", "Workspace gid")
	fs.StringVar(&scope.project, "project", "", "Project gid")
	fs.StringVar(&scope.user, "user", "", "Assignee gid")
}

func (s taskScope) input(ctx *Context, fields string) apptasks.ListInput {
	in := apptasks.ListInput{
		WorkspaceGID: refs.StripIDPrefix(s.workspace),
		ProjectGID:   refs.StripIDPrefix(s.project),
		UserGID:      refs.StripIDPrefix(s.user),
		Fields:       fields,
	}
	if in.WorkspaceGID == "" {
		in.WorkspaceGID = ctx.Creds.WorkspaceGID
	}
	if in.ProjectGID == "" {
		in.ProjectGID = ctx.Creds.ProjectGID
	}
	if in.UserGID == "" {
		in.UserGID = ctx.Creds.UserGID
	}
	return in
}

func fetchTasks(ctx *Context, scope taskScope, fields string) ([]api.Task, error) {
	if err := ensureClient(ctx); err != nil {
		return nil, err
	}
	reqCtx, cancel := requestContext(ctx)
	defer cancel()
	tasks, err := apptasks.Fetch(reqCtx, ctx.Client, scope.input(ctx, fields))
	if errors.Is(err, apptasks.ErrNoTaskScope) {
		return nil, usageError(err)
	}
	return tasks, err
}

func taskCommand(ctx *Context, args []string) error {
	if len(args) == 0 || isHelpArg(args[0]) {
		printTaskHelp(ctx.Stdout)
		return nil
	}
	switch args[0] {
	case "list", "ls":
		return taskList(ctx, args[1:])
	default:
		return usageError(fmt.Errorf("unknown task subcommand: %s", args[0]))
	}
}

func taskList(ctx *Context, args []string) error {
	fs := newFlagSet("task list")
	var scope taskScope
	var all bool
	var help bool
	bindTaskScope(fs, &scope)
	fs.BoolVar(&all, "all", false, "Include completed tasks")
	bindHelpFlag(fs, &help)
	if err := parseFlagSetInterspersed(fs, args); err != nil {
		return usageError(err)
	}
	if help {
		printTaskHelp(ctx.Stdout)
		return nil
	}
	tasks, err := fetchTasks(ctx, scope, apptasks.ListFieldsFull)
	if err != nil {
		return err
	}
	if !all {
		open := tasks[:0]
		for _, t := range tasks {
			if !t.Completed {
				open = append(open, t)
			}
		}
		tasks = open
	}
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		assignee := ""
		if t.Assignee != nil {
			assignee = t.Assignee.Name
		}
		rows = append(rows, []string{t.GID, t.Name, t.DueOn, assignee, yesNo(t.Completed)})
	}
	return writeRows(ctx, []string{"GID", "NAME", "DUE", "ASSIGNEE", "DONE"}, rows, tasks, output.Meta{Count: len(tasks)})
}
