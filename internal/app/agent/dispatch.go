package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	coreagent "github.com/agisilaos/asana-planner/internal/agent"
	"github.com/agisilaos/asana-planner/internal/api"
	appassignees "github.com/agisilaos/asana-planner/internal/app/assignees"
	appcomments "github.com/agisilaos/asana-planner/internal/app/comments"
	apprefs "github.com/agisilaos/asana-planner/internal/app/refs"
	appsections "github.com/agisilaos/asana-planner/internal/app/sections"
	apptags "github.com/agisilaos/asana-planner/internal/app/tags"
	apptasks "github.com/agisilaos/asana-planner/internal/app/tasks"
)

// Outcome is what a successful dispatch reports back to the executor.
type Outcome struct {
	TaskGID        string
	Data           any
	TagGIDs        []string
	RemovedTagGIDs []string
	SkippedTags    []string
	SectionGID     string
	AssigneeGID    string
}

// Dispatcher turns one validated action into remote calls. It is bound to a
// single batch: its credentials, gateway and resolver cache.
type Dispatcher struct {
	gw       Gateway
	resolver *Resolver
	creds    coreagent.Credentials
	logger   *slog.Logger
}

func NewDispatcher(gw Gateway, resolver *Resolver, creds coreagent.Credentials, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if resolver == nil {
		resolver = NewResolver(gw, logger)
	}
	return &Dispatcher{gw: gw, resolver: resolver, creds: creds, logger: logger}
}

func (d *Dispatcher) Dispatch(ctx context.Context, action coreagent.Action) (Outcome, error) {
	switch a := action.(type) {
	case coreagent.UpdateTask:
		return d.updateTask(ctx, a)
	case coreagent.CreateSubtask:
		return d.createSubtask(ctx, a)
	case coreagent.CommentTask:
		return d.commentTask(ctx, a)
	case coreagent.CreateTask:
		return d.createTask(ctx, a)
	case coreagent.AssignTask:
		return d.assignTask(ctx, a)
	case coreagent.SetTags:
		return d.setTags(ctx, a)
	case coreagent.SetSection:
		return d.setSection(ctx, a)
	case coreagent.CompleteTask:
		return d.completeTask(ctx, a)
	case nil:
		return Outcome{}, &coreagent.InvalidActionError{Reason: "action is nil"}
	default:
		return Outcome{}, &coreagent.InvalidActionError{Kind: string(action.Kind()), Reason: "no handler for action kind"}
	}
}

func (d *Dispatcher) updateTask(ctx context.Context, a coreagent.UpdateTask) (Outcome, error) {
	taskGID := apprefs.NormalizeTaskRef(a.TaskGID)
	var task api.Task
	if _, err := d.gw.Put(ctx, apptasks.TaskPath(taskGID), apptasks.BuildUpdatePayload(a.Fields), &task); err != nil {
		return Outcome{}, fmt.Errorf("update task %s: %w", taskGID, err)
	}
	return Outcome{TaskGID: taskGID, Data: task}, nil
}

func (d *Dispatcher) createSubtask(ctx context.Context, a coreagent.CreateSubtask) (Outcome, error) {
	parent := apprefs.NormalizeTaskRef(a.ParentGID)
	var task api.Task
	if _, err := d.gw.Post(ctx, apptasks.SubtasksPath(parent), apptasks.BuildUpdatePayload(a.Fields), &task); err != nil {
		return Outcome{}, fmt.Errorf("create subtask of %s: %w", parent, err)
	}
	return Outcome{TaskGID: task.GID, Data: task}, nil
}

func (d *Dispatcher) commentTask(ctx context.Context, a coreagent.CommentTask) (Outcome, error) {
	taskGID := apprefs.NormalizeTaskRef(a.TaskGID)
	body, err := appcomments.BuildAddPayload(a.Text)
	if err != nil {
		return Outcome{}, &coreagent.InvalidActionError{Kind: string(a.Kind()), Reason: err.Error()}
	}
	var story api.Story
	if _, err := d.gw.Post(ctx, appcomments.StoriesPath(taskGID), body, &story); err != nil {
		return Outcome{}, fmt.Errorf("comment on task %s: %w", taskGID, err)
	}
	return Outcome{TaskGID: taskGID, Data: story}, nil
}

func (d *Dispatcher) createTask(ctx context.Context, a coreagent.CreateTask) (Outcome, error) {
	workspace := firstNonEmpty(a.Workspace, d.creds.WorkspaceGID)
	projects := a.Projects
	if len(projects) == 0 && strings.TrimSpace(d.creds.ProjectGID) != "" {
		projects = []string{strings.TrimSpace(d.creds.ProjectGID)}
	}
	if workspace == "" && len(projects) == 0 {
		return Outcome{}, &coreagent.NotFoundError{Entity: "workspace"}
	}

	var assigneeGID string
	if strings.TrimSpace(a.Assignee) != "" {
		scope := workspace
		if scope == "" && appassignees.ParseRef(a.Assignee).NeedsLookup {
			ws, err := d.projectWorkspace(ctx, projects[0])
			if err != nil {
				return Outcome{}, err
			}
			scope = ws
		}
		gid, err := d.resolveAssignee(ctx, a.Assignee, scope)
		if err != nil {
			return Outcome{}, err
		}
		assigneeGID = gid
	}

	body, err := apptasks.BuildCreatePayload(apptasks.CreateInput{
		Name:        a.Name,
		Notes:       a.Notes,
		DueOn:       a.DueOn,
		DueAt:       a.DueAt,
		Workspace:   workspace,
		Projects:    projects,
		AssigneeGID: assigneeGID,
		Extra:       a.Extra,
	})
	if err != nil {
		return Outcome{}, &coreagent.InvalidActionError{Kind: string(a.Kind()), Reason: err.Error()}
	}
	var task api.Task
	if _, err := d.gw.Post(ctx, "/tasks", body, &task); err != nil {
		return Outcome{}, fmt.Errorf("create task: %w", err)
	}
	if strings.TrimSpace(task.GID) == "" {
		return Outcome{}, errors.New("create task: response has no gid")
	}
	out := Outcome{TaskGID: task.GID, Data: task, AssigneeGID: assigneeGID}

	if len(a.Tags) > 0 {
		tagScope := workspace
		if tagScope == "" && task.Workspace != nil {
			tagScope = task.Workspace.GID
		}
		out.TagGIDs, out.SkippedTags = d.attachTags(ctx, task.GID, tagScope, a.Tags)
	}
	return out, nil
}

func (d *Dispatcher) assignTask(ctx context.Context, a coreagent.AssignTask) (Outcome, error) {
	taskGID := apprefs.NormalizeTaskRef(a.TaskGID)
	scope := ""
	if appassignees.ParseRef(a.Assignee).NeedsLookup {
		ws, err := d.taskWorkspace(ctx, a.Workspace, taskGID)
		if err != nil {
			return Outcome{}, err
		}
		scope = ws
	}
	userGID, err := d.resolveAssignee(ctx, a.Assignee, scope)
	if err != nil {
		return Outcome{}, err
	}
	var task api.Task
	if _, err := d.gw.Put(ctx, apptasks.TaskPath(taskGID), appassignees.BuildAssignPayload(userGID), &task); err != nil {
		return Outcome{}, fmt.Errorf("assign task %s: %w", taskGID, err)
	}
	return Outcome{TaskGID: taskGID, Data: task, AssigneeGID: userGID}, nil
}

func (d *Dispatcher) setTags(ctx context.Context, a coreagent.SetTags) (Outcome, error) {
	taskGID := apprefs.NormalizeTaskRef(a.TaskGID)
	workspace, err := d.taskWorkspace(ctx, a.Workspace, taskGID)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{TaskGID: taskGID}
	out.TagGIDs, out.SkippedTags = d.attachTags(ctx, taskGID, workspace, a.Add)
	for _, name := range a.Remove {
		res, err := d.resolver.Find(ctx, EntityTag, name, workspace)
		if err != nil || !res.Found() {
			// unknown tags have nothing to detach
			d.logger.DebugContext(ctx, "skipping removal of unknown tag", "task", taskGID, "tag", name)
			out.SkippedTags = append(out.SkippedTags, name)
			continue
		}
		if _, err := d.gw.Post(ctx, apptags.DetachPath(taskGID), apptags.BuildRelationPayload(res.Ref.GID), nil); err != nil {
			d.logger.WarnContext(ctx, "tag detach failed", "task", taskGID, "tag", name, "error", err)
			out.SkippedTags = append(out.SkippedTags, name)
			continue
		}
		out.RemovedTagGIDs = append(out.RemovedTagGIDs, res.Ref.GID)
	}
	return out, nil
}

func (d *Dispatcher) setSection(ctx context.Context, a coreagent.SetSection) (Outcome, error) {
	taskGID := apprefs.NormalizeTaskRef(a.TaskGID)
	project := firstNonEmpty(a.Project, d.creds.ProjectGID)
	sectionGID := strings.TrimSpace(a.SectionGID)
	if sectionGID == "" {
		if project == "" {
			return Outcome{}, &coreagent.NotFoundError{Entity: "project"}
		}
		ref, err := d.resolver.ResolveOrCreate(ctx, EntitySection, a.SectionName, project)
		if err != nil {
			return Outcome{}, err
		}
		sectionGID = ref.GID
	}

	_, primaryErr := d.gw.Post(ctx, appsections.AddTaskPath(sectionGID), appsections.BuildAddTaskPayload(taskGID), nil)
	if primaryErr == nil {
		return Outcome{TaskGID: taskGID, SectionGID: sectionGID}, nil
	}
	d.logger.InfoContext(ctx, "section add rejected; trying project membership", "task", taskGID, "section", sectionGID, "error", primaryErr)
	body, err := appsections.BuildAddProjectPayload(project, sectionGID)
	if err != nil {
		return Outcome{}, fmt.Errorf("move task %s to section %s: %w", taskGID, sectionGID, primaryErr)
	}
	if _, err := d.gw.Post(ctx, appsections.AddProjectPath(taskGID), body, nil); err != nil {
		return Outcome{}, fmt.Errorf("move task %s to section %s: %v; fallback: %w", taskGID, sectionGID, primaryErr, err)
	}
	return Outcome{TaskGID: taskGID, SectionGID: sectionGID}, nil
}

func (d *Dispatcher) completeTask(ctx context.Context, a coreagent.CompleteTask) (Outcome, error) {
	taskGID := apprefs.NormalizeTaskRef(a.TaskGID)
	var task api.Task
	if _, err := d.gw.Put(ctx, apptasks.TaskPath(taskGID), apptasks.BuildCompletePayload(a.Completed), &task); err != nil {
		return Outcome{}, fmt.Errorf("complete task %s: %w", taskGID, err)
	}
	return Outcome{TaskGID: taskGID, Data: task}, nil
}

// attachTags resolves (creating when needed) and attaches each tag. Failures
// are logged and reported as skipped; they never fail the enclosing action.
func (d *Dispatcher) attachTags(ctx context.Context, taskGID, workspace string, names []string) (attached, skipped []string) {
	for _, name := range names {
		if workspace == "" {
			d.logger.WarnContext(ctx, "no workspace for tag; skipping", "task", taskGID, "tag", name)
			skipped = append(skipped, name)
			continue
		}
		ref, err := d.resolver.ResolveOrCreate(ctx, EntityTag, name, workspace)
		if err != nil {
			d.logger.WarnContext(ctx, "tag resolution failed", "task", taskGID, "tag", name, "error", err)
			skipped = append(skipped, name)
			continue
		}
		if _, err := d.gw.Post(ctx, apptags.AttachPath(taskGID), apptags.BuildRelationPayload(ref.GID), nil); err != nil {
			d.logger.WarnContext(ctx, "tag attach failed", "task", taskGID, "tag", name, "error", err)
			skipped = append(skipped, name)
			continue
		}
		attached = append(attached, ref.GID)
	}
	return attached, skipped
}

func (d *Dispatcher) resolveAssignee(ctx context.Context, reference, workspace string) (string, error) {
	parsed := appassignees.ParseRef(reference)
	if !parsed.Valid() {
		return "", &coreagent.InvalidActionError{Reason: fmt.Sprintf("assignee %q is not a gid, email or \"me\"", reference)}
	}
	if !parsed.NeedsLookup {
		return parsed.ID, nil
	}
	if workspace == "" {
		return "", &coreagent.NotFoundError{Entity: "workspace"}
	}
	ref, err := d.resolver.ResolveOrCreate(ctx, EntityUser, parsed.Email, workspace)
	if err != nil {
		return "", err
	}
	return ref.GID, nil
}

// taskWorkspace prefers the explicit value, then the caller's default, then
// reads the task itself.
func (d *Dispatcher) taskWorkspace(ctx context.Context, explicit, taskGID string) (string, error) {
	if ws := firstNonEmpty(explicit, d.creds.WorkspaceGID); ws != "" {
		return ws, nil
	}
	var task api.Task
	if _, err := d.gw.Get(ctx, apptasks.TaskPath(taskGID), apptasks.BuildWorkspaceQuery(), &task); err != nil {
		return "", fmt.Errorf("read workspace of task %s: %w", taskGID, err)
	}
	if task.Workspace == nil || strings.TrimSpace(task.Workspace.GID) == "" {
		return "", &coreagent.NotFoundError{Entity: "workspace"}
	}
	return task.Workspace.GID, nil
}

func (d *Dispatcher) projectWorkspace(ctx context.Context, projectGID string) (string, error) {
	var project api.Project
	query := url.Values{}
	query.Set("opt_fields", "workspace")
	if _, err := d.gw.Get(ctx, "/projects/"+url.PathEscape(projectGID), query, &project); err != nil {
		return "", fmt.Errorf("read workspace of project %s: %w", projectGID, err)
	}
	if project.Workspace == nil || strings.TrimSpace(project.Workspace.GID) == "" {
		return "", &coreagent.NotFoundError{Entity: "workspace"}
	}
	return project.Workspace.GID, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
