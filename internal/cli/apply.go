package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	coreagent "github.com/agisilaos/asana-planner/internal/agent"
	appagent "github.com/agisilaos/asana-planner/internal/app/agent"
	"github.com/agisilaos/asana-planner/internal/app/refs"
	"github.com/agisilaos/asana-planner/internal/audit"
	"github.com/agisilaos/asana-planner/internal/output"
)

type dryRunItem struct {
	Index int    `json:"index"`
	Type  string `json:"type"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

func applyCommand(ctx *Context, args []string) error {
	fs := newFlagSet("apply")
	var planPath string
	var workspace string
	var project string
	var dryRun bool
	var help bool
	fs.StringVar(&planPath, "plan", "", "Plan file path or - for stdin")
	fs.StringVar(&workspace, "workspace", "", "Default workspace gid")
	fs.StringVar(&project, "project", "", "Default project gid")
	fs.BoolVar(&dryRun, "dry-run", false, "Validate without calling the API")
	bindHelpFlag(fs, &help)
	if err := parseFlagSetInterspersed(fs, args); err != nil {
		return usageError(err)
	}
	if help {
		printApplyHelp(ctx.Stdout)
		return nil
	}
	if planPath == "" && len(fs.Args()) == 1 {
		planPath = fs.Args()[0]
	}
	if planPath == "" {
		return usageError(errors.New("apply requires --plan <file|->"))
	}
	data, err := readPlanFile(ctx, planPath)
	if err != nil {
		return err
	}
	batch, err := coreagent.ParseBatch(data)
	if err != nil {
		return usageError(err)
	}
	emitProgress(ctx, "plan_loaded", map[string]any{
		"action_count": len(batch),
		"dry_run":      dryRun,
	})
	if dryRun {
		return applyDryRun(ctx, batch)
	}

	if err := ensureClient(ctx); err != nil {
		return err
	}
	creds := ctx.Creds
	if workspace = refs.StripIDPrefix(workspace); workspace != "" {
		creds.WorkspaceGID = workspace
	}
	if project = refs.StripIDPrefix(project); project != "" {
		creds.ProjectGID = project
	}

	client := ctx.Client
	exec := appagent.NewExecutor(func(coreagent.Credentials) appagent.Gateway { return client }, ctx.Logger)
	exec.Observe = func(ev appagent.Event) {
		fields := map[string]any{"index": ev.Index, "action_type": ev.Kind}
		if ev.Error != "" {
			fields["error"] = ev.Error
		}
		emitProgress(ctx, ev.Type, fields)
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	results, err := exec.ExecuteBatch(runCtx, batch, creds)
	if err != nil {
		return err
	}
	summary := appagent.Summarize(results)
	emitProgress(ctx, "apply_summary", map[string]any{
		"total":     summary.Total,
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
	})

	auditID, err := recordApply(runCtx, ctx, creds, batch, results, summary)
	if err != nil {
		ctx.Logger.Warn("audit record failed", "error", err)
	}
	if err := writeApplyResults(ctx, results, summary, auditID); err != nil {
		return err
	}
	if summary.Failed > 0 {
		return &CodeError{Code: exitError, Err: fmt.Errorf("%d of %d actions failed", summary.Failed, summary.Total)}
	}
	return nil
}

func applyDryRun(ctx *Context, batch []json.RawMessage) error {
	items := make([]dryRunItem, 0, len(batch))
	invalid := 0
	for i, raw := range batch {
		item := dryRunItem{Index: i, Type: coreagent.PeekKind(raw), Valid: true}
		if action, err := coreagent.ParseAction(raw); err != nil {
			item.Valid = false
			item.Error = err.Error()
			invalid++
		} else {
			item.Type = string(action.Kind())
		}
		items = append(items, item)
	}
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		status := "valid"
		if !item.Valid {
			status = "invalid"
		}
		rows = append(rows, []string{strconv.Itoa(item.Index), item.Type, status, item.Error})
	}
	meta := output.Meta{Count: len(items), Failed: invalid, DryRun: true}
	if err := writeRows(ctx, []string{"#", "TYPE", "STATUS", "DETAIL"}, rows, items, meta); err != nil {
		return err
	}
	if invalid > 0 {
		return usageError(fmt.Errorf("%d of %d actions are invalid", invalid, len(items)))
	}
	return nil
}

func writeApplyResults(ctx *Context, results []appagent.ActionResult, summary appagent.BatchSummary, auditID string) error {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		status := "ok"
		detail := resultDetail(r)
		if !r.OK {
			status = "failed"
			detail = r.Error
		}
		rows = append(rows, []string{strconv.Itoa(r.Index), r.Type, status, r.TaskGID, detail})
	}
	meta := output.Meta{RequestID: ctx.RequestID, Count: summary.Total, Failed: summary.Failed, AuditID: auditID}
	if err := writeRows(ctx, []string{"#", "TYPE", "STATUS", "TASK", "DETAIL"}, rows, results, meta); err != nil {
		return err
	}
	if ctx.Mode == output.ModeHuman && !ctx.Global.Quiet {
		fmt.Fprintf(ctx.Stdout, "%d succeeded, %d failed\n", summary.Succeeded, summary.Failed)
	}
	return nil
}

func resultDetail(r appagent.ActionResult) string {
	var parts []string
	if len(r.TagGIDs) > 0 {
		parts = append(parts, "tags="+strings.Join(r.TagGIDs, ","))
	}
	if len(r.RemovedTagGIDs) > 0 {
		parts = append(parts, "removed="+strings.Join(r.RemovedTagGIDs, ","))
	}
	if len(r.SkippedTags) > 0 {
		parts = append(parts, "skipped="+strings.Join(r.SkippedTags, ","))
	}
	if r.SectionGID != "" {
		parts = append(parts, "section="+r.SectionGID)
	}
	if r.AssigneeGID != "" {
		parts = append(parts, "assignee="+r.AssigneeGID)
	}
	return strings.Join(parts, " ")
}

// recordApply stores the batch when an audit database is configured. It
// returns the new entry id, or "" when auditing is off.
func recordApply(runCtx context.Context, ctx *Context, creds coreagent.Credentials, batch []json.RawMessage, results []appagent.ActionResult, summary appagent.BatchSummary) (string, error) {
	if ctx.Config.AuditDB == "" {
		return "", nil
	}
	store, err := audit.Open(ctx.Config.AuditDB)
	if err != nil {
		return "", err
	}
	defer store.Close()
	request, err := json.Marshal(batch)
	if err != nil {
		return "", err
	}
	encoded, err := json.Marshal(results)
	if err != nil {
		return "", err
	}
	entry, err := store.Record(runCtx, audit.Entry{
		Source:       audit.SourceCLI,
		WorkspaceGID: creds.WorkspaceGID,
		ProjectGID:   creds.ProjectGID,
		Request:      request,
		Results:      encoded,
		Total:        summary.Total,
		Failed:       summary.Failed,
	})
	if err != nil {
		return "", err
	}
	return entry.ID, nil
}

func readPlanFile(ctx *Context, path string) ([]byte, error) {
	if path == "-" {
		if isTTYReader(ctx.Stdin) {
			return nil, usageError(errors.New("refusing to read a plan from an interactive terminal; pipe it in or pass a file"))
		}
		data, err := readAllTrim(ctx.Stdin)
		if err != nil {
			return nil, err
		}
		return []byte(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return data, nil
}
