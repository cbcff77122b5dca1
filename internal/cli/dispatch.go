package cli

import "fmt"

func dispatch(ctx *Context, args []string) int {
	cmd := args[0]
	rest := args[1:]
	var err error
	switch cmd {
	case "apply":
		err = applyCommand(ctx, rest)
	case "serve":
		err = serveCommand(ctx, rest)
	case "workspace":
		err = workspaceCommand(ctx, rest)
	case "project":
		err = projectCommand(ctx, rest)
	case "task":
		err = taskCommand(ctx, rest)
	case "plan":
		err = planCommand(ctx, rest)
	case "analyze":
		err = analyzeCommand(ctx, rest)
	case "audit":
		err = auditCommand(ctx, rest)
	case "auth":
		err = authCommand(ctx, rest)
	case "version":
		fmt.Fprintf(ctx.Stdout, "asana-planner %s (%s) %s\n", Version, Commit, Date)
	case "help":
		err = helpCommand(ctx, rest)
	default:
		fmt.Fprintf(ctx.Stderr, "unknown command: %s\n", cmd)
		printRootHelp(ctx.Stderr)
		return exitUsage
	}
	if err != nil {
		writeError(ctx, err)
	}
	return toExitCode(err)
}
