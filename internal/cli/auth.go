package cli

import (
	"errors"
	"fmt"

	"github.com/agisilaos/asana-planner/internal/app/refs"
	"github.com/agisilaos/asana-planner/internal/config"
	"github.com/agisilaos/asana-planner/internal/output"
)

func authCommand(ctx *Context, args []string) error {
	if len(args) == 0 || isHelpArg(args[0]) {
		printAuthHelp(ctx.Stdout)
		return nil
	}
	switch args[0] {
	case "login":
		return authLogin(ctx, args[1:])
	case "status":
		return authStatus(ctx)
	case "logout":
		return authLogout(ctx)
	default:
		return usageError(fmt.Errorf("unknown auth subcommand: %s", args[0]))
	}
}

func authLogin(ctx *Context, args []string) error {
	fs := newFlagSet("auth login")
	var tokenStdin bool
	var printEnv bool
	var defaults config.Credential
	var help bool
	fs.BoolVar(&tokenStdin, "token-stdin", false, "Read token from stdin")
	fs.BoolVar(&printEnv, "print-env", false, "Print export commands instead of saving")
	fs.StringVar(&defaults.WorkspaceGID, "workspace", "", "Default workspace gid")
	fs.StringVar(&defaults.ProjectGID, "project", "", "Default project gid")
	fs.StringVar(&defaults.UserGID, "user", "", "Default user gid")
	bindHelpFlag(fs, &help)
	if err := parseFlagSetInterspersed(fs, args); err != nil {
		return usageError(err)
	}
	if help {
		printAuthHelp(ctx.Stdout)
		return nil
	}
	var token string
	if tokenStdin {
		val, err := readAllTrim(ctx.Stdin)
		if err != nil {
			return err
		}
		token = val
	} else {
		val, err := promptLine(ctx, "Asana personal access token", "--token-stdin")
		if err != nil {
			return err
		}
		token = val
	}
	if token == "" {
		return usageError(errors.New("token is empty"))
	}
	defaults.Token = token
	defaults.WorkspaceGID = refs.StripIDPrefix(defaults.WorkspaceGID)
	defaults.ProjectGID = refs.StripIDPrefix(defaults.ProjectGID)
	defaults.UserGID = refs.StripIDPrefix(defaults.UserGID)
	if printEnv {
		fmt.Fprintf(ctx.Stdout, "export ASANA_TOKEN=%s\n", token)
		for _, kv := range [][2]string{
			{"ASANA_WORKSPACE_GID", defaults.WorkspaceGID},
			{"ASANA_PROJECT_GID", defaults.ProjectGID},
			{"ASANA_USER_GID", defaults.UserGID},
		} {
			if kv[1] != "" {
				fmt.Fprintf(ctx.Stdout, "export %s=%s\n", kv[0], kv[1])
			}
		}
		return nil
	}
	return storeProfileToken(ctx, defaults)
}

// storeProfileToken saves cred under the active profile. Gids left empty keep
// whatever the profile already had.
func storeProfileToken(ctx *Context, cred config.Credential) error {
	credsPath := config.CredentialsPathFromConfig(ctx.ConfigPath)
	creds, _, err := config.LoadCredentials(credsPath)
	if err != nil {
		return err
	}
	if creds.Profiles == nil {
		creds.Profiles = map[string]config.Credential{}
	}
	prev := creds.Profiles[ctx.Profile]
	if cred.WorkspaceGID == "" {
		cred.WorkspaceGID = prev.WorkspaceGID
	}
	if cred.ProjectGID == "" {
		cred.ProjectGID = prev.ProjectGID
	}
	if cred.UserGID == "" {
		cred.UserGID = prev.UserGID
	}
	creds.Profiles[ctx.Profile] = cred
	if err := config.SaveCredentials(credsPath, creds); err != nil {
		return err
	}
	if ctx.Mode == output.ModeJSON {
		return output.WriteJSON(ctx.Stdout, map[string]any{
			"profile":       ctx.Profile,
			"stored":        true,
			"workspace_gid": cred.WorkspaceGID,
			"project_gid":   cred.ProjectGID,
			"user_gid":      cred.UserGID,
		}, output.Meta{})
	}
	fmt.Fprintf(ctx.Stdout, "stored token for profile %q\n", ctx.Profile)
	return nil
}

func authStatus(ctx *Context) error {
	source := ctx.TokenSource
	configured := ctx.Token != ""
	if source == "" && configured {
		source = "unknown"
	}
	if ctx.Mode == output.ModeJSON {
		return output.WriteJSON(ctx.Stdout, map[string]any{
			"profile":       ctx.Profile,
			"configured":    configured,
			"source":        source,
			"workspace_gid": ctx.Creds.WorkspaceGID,
			"project_gid":   ctx.Creds.ProjectGID,
			"user_gid":      ctx.Creds.UserGID,
		}, output.Meta{})
	}
	if !configured {
		fmt.Fprintf(ctx.Stdout, "profile %q has no token configured\n", ctx.Profile)
		return nil
	}
	fmt.Fprintf(ctx.Stdout, "profile %q token source: %s\n", ctx.Profile, source)
	if ctx.Creds.WorkspaceGID != "" {
		fmt.Fprintf(ctx.Stdout, "workspace: %s\n", ctx.Creds.WorkspaceGID)
	}
	if ctx.Creds.ProjectGID != "" {
		fmt.Fprintf(ctx.Stdout, "project: %s\n", ctx.Creds.ProjectGID)
	}
	if ctx.Creds.UserGID != "" {
		fmt.Fprintf(ctx.Stdout, "user: %s\n", ctx.Creds.UserGID)
	}
	return nil
}

func authLogout(ctx *Context) error {
	credsPath := config.CredentialsPathFromConfig(ctx.ConfigPath)
	creds, _, err := config.LoadCredentials(credsPath)
	if err != nil {
		return err
	}
	if creds.Profiles != nil {
		delete(creds.Profiles, ctx.Profile)
	}
	if err := config.SaveCredentials(credsPath, creds); err != nil {
		return err
	}
	if ctx.Mode == output.ModeJSON {
		return output.WriteJSON(ctx.Stdout, map[string]any{
			"profile": ctx.Profile,
			"removed": true,
		}, output.Meta{})
	}
	fmt.Fprintf(ctx.Stdout, "removed token for profile %q\n", ctx.Profile)
	return nil
}
