package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/billscan/internal/bill"
	"github.com/zombor/billscan/internal/config"
	"github.com/zombor/billscan/internal/metrics"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	os.Exit(run())
}

func run() int {
	fs := ff.NewFlagSet("billscan")
	var (
		port        = fs.IntLong("port", 8080, "HTTP server port")
		dbPath      = fs.StringLong("db", "billscan.db", "Database file path")
		storagePath = fs.StringLong("storage", "./uploads", "Upload storage directory path")
		authUser    = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass    = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		_           = fs.BoolLong("version", "Show version information")
	)
	cfg := config.Register(fs)

	if err := config.Parse(fs, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	logger, err := cfg.Logger(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	slog.SetDefault(logger)
	logger.Info("starting billscan", "version", version)

	m := metrics.New(nil)

	components, err := cfg.Build(os.Getenv("GEMINI_API_KEY"), m, logger)
	if err != nil {
		logger.Error("failed to initialize pipeline", "error", err)
		return 1
	}
	defer components.Close()

	logger.Info("initializing database...", "path", *dbPath)
	db, err := bill.NewBoltDB(*dbPath)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		return 1
	}
	defer db.Close()

	logger.Info("initializing storage...", "path", *storagePath)
	store, err := bill.NewLocalStorage(*storagePath)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err)
		return 1
	}

	service := bill.NewService(db, components.Pipeline, store, logger)
	server := bill.NewServer(service, bill.BasicAuth{Username: *authUser, Password: *authPass}, m, logger)

	if *authUser != "" || *authPass != "" {
		logger.Info("basic auth enabled", "user", *authUser)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf(":%d", *port)
	if err := server.Start(ctx, addr); err != nil {
		logger.Error("server error", "error", err)
		return 1
	}
	logger.Info("shut down")
	return 0
}
