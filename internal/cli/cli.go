package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	coreagent "github.com/agisilaos/asana-planner/internal/agent"
	"github.com/agisilaos/asana-planner/internal/api"
	"github.com/agisilaos/asana-planner/internal/config"
	"github.com/agisilaos/asana-planner/internal/output"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

const (
	exitOK       = 0
	exitError    = 1
	exitUsage    = 2
	exitAuth     = 3
	exitNotFound = 4
	exitConflict = 5
)

type GlobalOptions struct {
	Help          bool
	Version       bool
	Quiet         bool
	Verbose       bool
	JSON          bool
	Plain         bool
	NDJSON        bool
	NoInput       bool
	TimeoutSec    int
	ConfigPath    string
	Profile       string
	BaseURL       string
	ProgressJSONL string
}

type Context struct {
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader

	Global     GlobalOptions
	Mode       output.Mode
	Config     config.Config
	Profile    string
	ConfigPath string

	Token       string
	TokenSource string
	// Creds carries the token plus the default workspace, project and user
	// gids resolved from the profile and environment.
	Creds coreagent.Credentials

	Client    *api.Client
	Logger    *slog.Logger
	Now       func() time.Time
	RequestID string
	Progress  *progressSink
}

func Execute(args []string, stdout, stderr io.Writer) int {
	return ExecuteWithInput(args, os.Stdin, stdout, stderr)
}

func ExecuteWithInput(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, rest, err := parseGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(stderr, err)
		printRootHelp(stderr)
		return exitUsage
	}
	if opts.Version {
		fmt.Fprintf(stdout, "asana-planner %s (%s) %s\n", Version, Commit, Date)
		return exitOK
	}
	mode, err := output.DetectMode(opts.JSON, opts.Plain, opts.NDJSON, isTTYFile(stdout))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	ctx := &Context{
		Stdout: stdout,
		Stderr: stderr,
		Stdin:  stdin,
		Global: opts,
		Mode:   mode,
		Logger: newLogger(stderr, opts),
		Now:    time.Now,
	}
	if sink, err := newProgressSink(opts.ProgressJSONL, stderr); err == nil {
		ctx.Progress = sink
		defer sink.Close()
	}
	if err := loadConfig(ctx); err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	if len(rest) == 0 {
		printRootHelp(stdout)
		return exitOK
	}
	if opts.Help {
		rest = append(rest, "--help")
	}
	return dispatch(ctx, rest)
}

var globalSwitches = map[string]func(*GlobalOptions){
	"--help":     func(o *GlobalOptions) { o.Help = true },
	"-h":         func(o *GlobalOptions) { o.Help = true },
	"--version":  func(o *GlobalOptions) { o.Version = true },
	"--quiet":    func(o *GlobalOptions) { o.Quiet = true },
	"-q":         func(o *GlobalOptions) { o.Quiet = true },
	"--verbose":  func(o *GlobalOptions) { o.Verbose = true },
	"-v":         func(o *GlobalOptions) { o.Verbose = true },
	"--json":     func(o *GlobalOptions) { o.JSON = true },
	"--plain":    func(o *GlobalOptions) { o.Plain = true },
	"--ndjson":   func(o *GlobalOptions) { o.NDJSON = true },
	"--no-input": func(o *GlobalOptions) { o.NoInput = true },
}

var globalValues = map[string]func(*GlobalOptions, string) error{
	"--timeout": func(o *GlobalOptions, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("--timeout wants whole seconds, got %q", v)
		}
		o.TimeoutSec = n
		return nil
	},
	"--config":         func(o *GlobalOptions, v string) error { o.ConfigPath = v; return nil },
	"--profile":        func(o *GlobalOptions, v string) error { o.Profile = v; return nil },
	"--base-url":       func(o *GlobalOptions, v string) error { o.BaseURL = v; return nil },
	"--progress-jsonl": func(o *GlobalOptions, v string) error { o.ProgressJSONL = v; return nil },
}

// parseGlobalFlags pulls the global options out of args wherever they appear
// and returns the remaining words in order. --progress-jsonl takes an
// optional path and means stderr when given bare.
func parseGlobalFlags(args []string) (GlobalOptions, []string, error) {
	var opts GlobalOptions
	var rest []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			rest = append(rest, args[i+1:]...)
			break
		}
		if set, ok := globalSwitches[arg]; ok {
			set(&opts)
			continue
		}
		name, val, inline := strings.Cut(arg, "=")
		apply, ok := globalValues[name]
		if !ok {
			rest = append(rest, arg)
			continue
		}
		if !inline {
			next := i + 1
			switch {
			case next < len(args) && !(name == "--progress-jsonl" && strings.HasPrefix(args[next], "-")):
				val = args[next]
				i = next
			case name == "--progress-jsonl":
				val = "-"
			default:
				return opts, nil, fmt.Errorf("%s needs a value", name)
			}
		}
		if err := apply(&opts, val); err != nil {
			return opts, nil, err
		}
	}
	if opts.Quiet && opts.Verbose {
		return opts, rest, errors.New("pick one of --quiet and --verbose")
	}
	return opts, rest, nil
}

// loadConfig layers user config, project config, environment and flags, in
// that order of precedence from lowest to highest.
func loadConfig(ctx *Context) error {
	configPath := ctx.Global.ConfigPath
	if configPath == "" {
		configPath = os.Getenv("ASANA_PLANNER_CONFIG")
	}
	if configPath == "" {
		path, err := config.DefaultUserConfigPath()
		if err != nil {
			return err
		}
		configPath = path
	}
	ctx.ConfigPath = configPath
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	userCfg, _, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	projectCfg, _, err := config.LoadConfig(config.DefaultProjectConfigPath(cwd))
	if err != nil {
		return err
	}
	cfg := config.MergeConfig(userCfg, projectCfg)
	if env := os.Getenv("ASANA_BASE_URL"); env != "" {
		cfg.BaseURL = env
	}
	if ctx.Global.BaseURL != "" {
		cfg.BaseURL = ctx.Global.BaseURL
	}
	if env := os.Getenv("ASANA_TIMEOUT"); env != "" {
		if v, err := strconv.Atoi(env); err == nil {
			cfg.TimeoutSeconds = v
		}
	}
	if ctx.Global.TimeoutSec > 0 {
		cfg.TimeoutSeconds = ctx.Global.TimeoutSec
	}
	if env := os.Getenv("ASANA_PLANNER_AUDIT_DB"); env != "" {
		cfg.AuditDB = env
	}
	ctx.Config = config.WithDefaults(cfg)

	profile := ctx.Global.Profile
	if profile == "" {
		profile = os.Getenv("ASANA_PLANNER_PROFILE")
	}
	if profile == "" {
		profile = cfg.DefaultProfile
	}
	if profile == "" {
		profile = "default"
	}
	ctx.Profile = profile

	creds, _, err := config.LoadCredentials(config.CredentialsPathFromConfig(configPath))
	if err != nil {
		return err
	}
	saved := creds.Profiles[profile]
	if token := os.Getenv("ASANA_TOKEN"); token != "" {
		ctx.Token = token
		ctx.TokenSource = "env"
	} else if saved.Token != "" {
		ctx.Token = saved.Token
		ctx.TokenSource = "credentials"
	}
	ctx.Creds = coreagent.Credentials{
		Token:        ctx.Token,
		WorkspaceGID: envOr("ASANA_WORKSPACE_GID", saved.WorkspaceGID),
		ProjectGID:   envOr("ASANA_PROJECT_GID", saved.ProjectGID),
		UserGID:      envOr("ASANA_USER_GID", saved.UserGID),
	}
	if ctx.Token != "" {
		ctx.Client = newClient(ctx.Config, ctx.Token)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func newClient(cfg config.Config, token string) *api.Client {
	return api.NewClient(cfg.BaseURL, token, time.Duration(cfg.TimeoutSeconds)*time.Second).
		WithRateLimit(cfg.RateLimit, cfg.RateBurst)
}

func newLogger(w io.Writer, opts GlobalOptions) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel(opts, slog.LevelWarn)}))
}

// logLevel maps --verbose and --quiet onto slog levels; fallback applies when
// neither is set.
func logLevel(opts GlobalOptions, fallback slog.Level) slog.Level {
	switch {
	case opts.Verbose:
		return slog.LevelDebug
	case opts.Quiet:
		return slog.LevelError
	default:
		return fallback
	}
}

func isTTYFile(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return output.IsTTY(f)
}

func ensureClient(ctx *Context) error {
	if ctx.Token == "" {
		return &CodeError{Code: exitAuth, Err: fmt.Errorf("missing auth token; run 'asana-planner auth login' or set ASANA_TOKEN")}
	}
	if ctx.Client == nil {
		ctx.Client = newClient(ctx.Config, ctx.Token)
	}
	return nil
}

type CodeError struct {
	Code int
	Err  error
}

func (e *CodeError) Error() string {
	return e.Err.Error()
}

func (e *CodeError) Unwrap() error {
	return e.Err
}

func toExitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var codeErr *CodeError
	if errors.As(err, &codeErr) {
		return codeErr.Code
	}
	if errors.Is(err, coreagent.ErrEmptyBatch) || errors.Is(err, coreagent.ErrMalformedBatch) || coreagent.IsInvalidAction(err) {
		return exitUsage
	}
	if coreagent.IsNotFound(err) {
		return exitNotFound
	}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case 401, 403:
			return exitAuth
		case 404:
			return exitNotFound
		case 409:
			return exitConflict
		default:
			return exitError
		}
	}
	return exitError
}

func requestContext(ctx *Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(ctx.Config.TimeoutSeconds)*time.Second)
}
