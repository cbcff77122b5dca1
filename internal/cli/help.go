package cli

import (
	"fmt"
	"strings"

	coreagent "github.com/agisilaos/asana-planner/internal/agent"
)

func printRootHelp(out interface{ Write([]byte) (int, error) }) {
	fmt.Fprint(out, `asana-planner - resolve and execute planned Asana actions

Usage:
  asana-planner [global flags] <command> [args]

Commands:
  apply       Execute a batch of planned actions
  serve       Run the HTTP gateway
  workspace   List workspaces
  project     List and browse projects
  task        List tasks
  plan        Weekly plan from task due dates
  analyze     Task statistics and suggestions
  audit       Show recorded batches
  auth        Authenticate and manage tokens
  version     Show version
  help        Show help for a command

Global flags:
  -h, --help            Show help
  --version             Show version
  -q, --quiet           Suppress non-essential output
  -v, --verbose         Enable debug logging
  --json                JSON output
  --plain               Plain text output (tab-separated)
  --ndjson              NDJSON output
  --no-input            Disable prompts
  --timeout <seconds>   Request timeout (default 10)
  --config <path>       Config file path
  --profile <name>      Profile name (default "default")
  --progress-jsonl      Emit progress events as JSONL to stderr or file
  --base-url <url>      Override API base URL

Examples:
  asana-planner auth login --token-stdin --workspace 12345 < token.txt
  asana-planner apply --plan actions.json --dry-run
  cat actions.json | asana-planner --progress-jsonl apply --plan -
  asana-planner plan weekly --project 67890
  asana-planner serve --listen 127.0.0.1:3000
`)
}

func helpCommand(ctx *Context, args []string) error {
	if len(args) == 0 {
		printRootHelp(ctx.Stdout)
		return nil
	}
	switch args[0] {
	case "apply":
		printApplyHelp(ctx.Stdout)
	case "serve":
		printServeHelp(ctx.Stdout)
	case "workspace":
		printWorkspaceHelp(ctx.Stdout)
	case "project":
		printProjectHelp(ctx.Stdout)
	case "task":
		printTaskHelp(ctx.Stdout)
	case "plan":
		printPlanHelp(ctx.Stdout)
	case "analyze":
		printAnalyzeHelp(ctx.Stdout)
	case "audit":
		printAuditHelp(ctx.Stdout)
	case "auth":
		printAuthHelp(ctx.Stdout)
	default:
		printRootHelp(ctx.Stdout)
	}
	return nil
}

func printApplyHelp(out interface{ Write([]byte) (int, error) }) {
	fmt.Fprintf(out, `Usage:
  asana-planner apply --plan <file|-> [--workspace <gid>] [--project <gid>] [--dry-run]

The plan is a JSON array of action objects, or {"actions": [...]}.
Every action runs in order; a failed action does not stop the ones after it.
Exit code is 1 when any action failed.

Action types:
  %s

Flags:
  --plan <file|->       Plan file, or - to read stdin
  --workspace <gid>     Default workspace for actions that name none
  --project <gid>       Default project for actions that name none
  --dry-run             Validate every action without calling the API
`, strings.Join(coreagent.SupportedKinds(), "\n  "))
}

func printServeHelp(out interface{ Write([]byte) (int, error) }) {
	fmt.Fprint(out, `Usage:
  asana-planner serve [--listen <host:port>]

Routes:
  GET  /health
  GET  /api/credentials/status
  GET  /api/workspaces
  GET  /api/projects
  GET  /api/tasks
  POST /api/plan/weekly
  POST /api/brainstorm
  POST /api/actions/execute
  GET  /api/audit

Credentials come from the X-Asana-Token, X-Workspace-Gid, X-Project-Gid and
X-User-Gid headers of each request.
`)
}

func printWorkspaceHelp(out interface{ Write([]byte) (int, error) }) {
	fmt.Fprint(out, `Usage:
  asana-planner workspace list
`)
}

func printProjectHelp(out interface{ Write([]byte) (int, error) }) {
	fmt.Fprint(out, `Usage:
  asana-planner project list [--workspace <gid>] [--archived]
  asana-planner project browse [--id <gid>] [--view list|board|calendar|timeline]
`)
}

func printTaskHelp(out interface{ Write([]byte) (int, error) }) {
	fmt.Fprint(out, `Usage:
  asana-planner task list [--project <gid>] [--workspace <gid>] [--user <gid>] [--all]

Scope is the project when given, else the user's tasks in the workspace,
else every task in the workspace.
`)
}

func printPlanHelp(out interface{ Write([]byte) (int, error) }) {
	fmt.Fprint(out, `Usage:
  asana-planner plan weekly [--project <gid>] [--workspace <gid>] [--user <gid>]

Buckets open tasks into overdue, this week, next week and no due date.
`)
}

func printAnalyzeHelp(out interface{ Write([]byte) (int, error) }) {
	fmt.Fprint(out, `Usage:
  asana-planner analyze [--project <gid>] [--workspace <gid>] [--user <gid>]
`)
}

func printAuditHelp(out interface{ Write([]byte) (int, error) }) {
	fmt.Fprint(out, `Usage:
  asana-planner audit list [--limit <n>]

Requires audit_db in config or ASANA_PLANNER_AUDIT_DB.
`)
}

func printAuthHelp(out interface{ Write([]byte) (int, error) }) {
	fmt.Fprint(out, `Usage:
  asana-planner auth login [--token-stdin] [--workspace <gid>] [--project <gid>] [--user <gid>] [--print-env]
  asana-planner auth status
  asana-planner auth logout

Environment:
  ASANA_TOKEN, ASANA_WORKSPACE_GID, ASANA_PROJECT_GID, ASANA_USER_GID
  override the saved profile.
`)
}
