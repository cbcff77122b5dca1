package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agisilaos/asana-planner/internal/audit"
	"github.com/agisilaos/asana-planner/internal/server"
)

func serveCommand(ctx *Context, args []string) error {
	fs := newFlagSet("serve")
	var listen string
	var help bool
	fs.StringVar(&listen, "listen", "", "Listen address (host:port)")
	bindHelpFlag(fs, &help)
	if err := parseFlagSetInterspersed(fs, args); err != nil {
		return usageError(err)
	}
	if help {
		printServeHelp(ctx.Stdout)
		return nil
	}
	if listen == "" {
		listen = ctx.Config.ListenAddr
	}

	var store *audit.Store
	if ctx.Config.AuditDB != "" {
		s, err := audit.Open(ctx.Config.AuditDB)
		if err != nil {
			return err
		}
		defer s.Close()
		store = s
	}
	// request logs are info level, so serve defaults lower than other commands
	logger := slog.New(slog.NewTextHandler(ctx.Stderr, &slog.HandlerOptions{Level: logLevel(ctx.Global, slog.LevelInfo)}))
	srv := server.New(server.Options{
		BaseURL:   ctx.Config.BaseURL,
		Timeout:   time.Duration(ctx.Config.TimeoutSeconds) * time.Second,
		RateLimit: ctx.Config.RateLimit,
		RateBurst: ctx.Config.RateBurst,
		Audit:     store,
		Logger:    logger,
	})
	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.ListenAndServe(runCtx, listen)
}
