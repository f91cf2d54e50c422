// ABOUTME: Entry point for the railsdevs-conversations operator CLI
// ABOUTME: Inspects and drives developer/business conversations stored in SQLite

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/JuzerShakir/railsdevs.com/internal/config"
	"github.com/JuzerShakir/railsdevs.com/internal/conversation"
	"github.com/JuzerShakir/railsdevs.com/internal/gateway"
	"github.com/JuzerShakir/railsdevs.com/internal/inbound"
	"github.com/JuzerShakir/railsdevs.com/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
            _ _         _
 _ __ __ _(_) |___  __| | _____   _____
| '__/ _' | | / __|/ _' |/ _ \ \ / / __|
| | | (_| | | \__ \ (_| |  __/\ V /\__ \
|_|  \__,_|_|_|___/\__,_|\___| \_/ |___/
`

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "add":
		err = withApp(func(a *app) error { return cmdAdd(ctx, a, args) })
	case "start":
		err = withApp(func(a *app) error { return cmdStart(ctx, a, args) })
	case "show":
		err = withApp(func(a *app) error { return cmdShow(ctx, a, args) })
	case "list", "inbox":
		err = withApp(func(a *app) error { return cmdList(ctx, a, args) })
	case "send":
		err = withApp(func(a *app) error { return cmdSend(ctx, a, args) })
	case "read":
		err = withApp(func(a *app) error { return cmdRead(ctx, a, args) })
	case "block", "unblock", "archive", "unarchive":
		err = withApp(func(a *app) error { return cmdToggle(ctx, a, cmd, args) })
	case "delete":
		err = withApp(func(a *app) error { return cmdDelete(ctx, a, args) })
	case "deliver":
		err = withApp(func(a *app) error { return cmdDeliver(ctx, a, os.Stdin) })
	case "version":
		fmt.Println(version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Error:"), err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: railsdevs-conversations <command> [flags]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  serve                                  Start the HTTP API and inbound webhook")
	fmt.Println("  init                                   Create a new config file interactively")
	fmt.Println("  add user|developer|business            Register an account or profile")
	fmt.Println("  start -developer ID -business ID       Start a conversation")
	fmt.Println("  show <id|token> [-as USER]             Show a conversation and its messages")
	fmt.Println("  list -user ID -side SIDE [-archived]   List a user's inbox")
	fmt.Println("  send <id> -user ID [body]              Send a message (body from stdin if omitted)")
	fmt.Println("  read <id> -user ID                     Mark a user's notifications read")
	fmt.Println("  block|unblock <id> -user ID            Block or unblock for the user's side")
	fmt.Println("  archive|unarchive <id> -user ID        Archive or unarchive for the user's side")
	fmt.Println("  delete <id>                            Delete a conversation")
	fmt.Println("  deliver                                Route inbound emails (JSON stream on stdin)")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  RAILSDEVS_CONFIG         Config file path (default ~/.config/railsdevs/conversations.yaml)")
	fmt.Println("  RAILSDEVS_DATABASE_PATH  Overrides database.path")
	fmt.Println("  RAILSDEVS_LOG_LEVEL      Overrides logging.level")
}

func runServe(ctx context.Context) error {
	configPath := config.DefaultPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging, os.Stderr)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s\n", cfg.Database.Path)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	if cfg.Inbound.Domain != "" {
		fmt.Printf("Inbound:   *@%s\n", cfg.Inbound.Domain)
	} else {
		fmt.Printf("Inbound:   ")
		gray.Println("disabled")
	}
	fmt.Println()

	logger.Info("starting railsdevs-conversations",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
	)

	gw, err := gateway.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	return gw.Run(ctx)
}

// app bundles the components every data command needs.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.SQLiteStore
	svc    *conversation.Service
	router *inbound.Router
	seen   *inbound.SeenTracker
}

func openApp(configPath string, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging, logOut)

	s, err := store.NewSQLiteStore(cfg.Database.Path, store.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	svc := conversation.New(
		conversation.DepsFromStore(s),
		conversation.Settings{HiringFeeWindow: cfg.HiringFee.GracePeriod},
		nil,
		logger,
	)

	a := &app{cfg: cfg, logger: logger, store: s, svc: svc}
	if cfg.Inbound.Domain != "" {
		a.seen = inbound.NewSeenTracker(cfg.Inbound.DedupeTTL, cfg.Inbound.DedupeSize)
		a.router = inbound.NewRouter(cfg.Inbound.Domain, svc, s, a.seen, logger)
	}

	logger.Debug("opened store", "config", configPath, "database", cfg.Database.Path)
	return a, nil
}

func withApp(fn func(*app) error) error {
	a, err := openApp(config.DefaultPath(), os.Stderr)
	if err != nil {
		return err
	}
	defer func() {
		if a.seen != nil {
			a.seen.Close()
		}
		if err := a.store.Close(); err != nil {
			a.logger.Warn("closing store", "error", err)
		}
	}()
	return fn(a)
}
