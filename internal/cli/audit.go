package cli

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/agisilaos/asana-planner/internal/audit"
	"github.com/agisilaos/asana-planner/internal/output"
)

func auditCommand(ctx *Context, args []string) error {
	if len(args) == 0 || isHelpArg(args[0]) {
		printAuditHelp(ctx.Stdout)
		return nil
	}
	switch args[0] {
	case "list", "ls":
		return auditList(ctx, args[1:])
	default:
		return usageError(fmt.Errorf("unknown audit subcommand: %s", args[0]))
	}
}

func auditList(ctx *Context, args []string) error {
	fs := newFlagSet("audit list")
	var limit int
	var help bool
	fs.IntVar(&limit, "limit", audit.DefaultRecentLimit, "Number of entries")
	bindHelpFlag(fs, &help)
	if err := parseFlagSetInterspersed(fs, args); err != nil {
		return usageError(err)
	}
	if help {
		printAuditHelp(ctx.Stdout)
		return nil
	}
	if ctx.Config.AuditDB == "" {
		return usageError(errors.New("no audit database configured; set audit_db in config or ASANA_PLANNER_AUDIT_DB"))
	}
	store, err := audit.Open(ctx.Config.AuditDB)
	if err != nil {
		return err
	}
	defer store.Close()
	reqCtx, cancel := requestContext(ctx)
	defer cancel()
	entries, err := store.Recent(reqCtx, limit)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.ID,
			e.CreatedAt.Local().Format(time.DateTime),
			e.Source,
			strconv.Itoa(e.Total),
			strconv.Itoa(e.Failed),
			e.WorkspaceGID,
		})
	}
	return writeRows(ctx, []string{"ID", "WHEN", "SOURCE", "TOTAL", "FAILED", "WORKSPACE"}, rows, entries, output.Meta{Count: len(entries)})
}
