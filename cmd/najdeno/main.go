package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/najdeno/internal/api"
	"github.com/erazemk/najdeno/internal/artifact"
	"github.com/erazemk/najdeno/internal/config"
	"github.com/erazemk/najdeno/internal/db"
	"github.com/erazemk/najdeno/internal/imaging"
	"github.com/erazemk/najdeno/internal/store"
	"github.com/erazemk/najdeno/internal/web"
)

// levelRouter is a slog.Handler that routes INFO/WARN to stdout and ERROR+ to stderr.
type levelRouter struct {
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// setupLogger configures structured logging. INFO/WARN go to stdout, ERROR goes
// to stderr. If logPath is non-empty, all levels are also written to that file.
// Returns a cleanup function that closes the log file (if opened).
func setupLogger(logPath string) (func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var cleanup func()

	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	handler := &levelRouter{
		stdout: slog.NewTextHandler(stdoutW, opts),
		stderr: slog.NewTextHandler(stderrW, opts),
	}
	slog.SetDefault(slog.New(handler))
	return cleanup, nil
}

func main() {
	fs := flag.NewFlagSet("najdeno", flag.ContinueOnError)

	var dbPath string
	fs.StringVar(&dbPath, "db", "najdeno.sqlite3", "")
	fs.StringVar(&dbPath, "d", "najdeno.sqlite3", "")

	var addr string
	fs.StringVar(&addr, "addr", "", "")
	fs.StringVar(&addr, "a", "", "")

	var uploadDir string
	fs.StringVar(&uploadDir, "uploads", "uploads", "")
	fs.StringVar(&uploadDir, "U", "uploads", "")

	var logPath string
	fs.StringVar(&logPath, "log", "", "")
	fs.StringVar(&logPath, "l", "", "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: najdeno [flags]

Flags:
  -d, -db <path>          SQLite database path (default: najdeno.sqlite3)
  -a, -addr <host:port>   listen address (default: PORT env, :5001)
  -U, -uploads <dir>      image upload directory (default: uploads)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -h, -help               show this help and exit

Environment: MAX_UPLOAD_SIZE, MAX_SAVED_IMAGE_SIZE, ADMIN_TOKEN, SECRET_KEY,
PORT and the IMAGE_* pipeline knobs; a .env file is read when present.
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}

	// Set up structured logging: INFO/WARN → stdout, ERROR → stderr.
	// Optionally also write to a log file.
	closeLog, err := setupLogger(logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	cfg := config.Load()
	if addr == "" {
		addr = cfg.Addr()
	}

	// Open database and bring the schema up to date (idempotent).
	database, err := db.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	slog.Info("database ready", "path", dbPath)

	uploads, err := artifact.NewStore(uploadDir)
	if err != nil {
		slog.Error("failed to create upload directory", "error", err)
		os.Exit(1)
	}

	pipeline := imaging.New(uploads, cfg.Policy)

	// Session signing secret: SECRET_KEY wins, otherwise a generated secret
	// persisted in the settings table.
	secret := cfg.SecretKey
	if secret == "" {
		secret, err = store.GetSessionSecret(context.Background(), database)
		if err != nil {
			slog.Error("failed to get session secret", "error", err)
			os.Exit(1)
		}
	}

	// The admin token is bcrypt-hashed once at startup; the plaintext is not
	// kept around. With no token configured, admin routes answer 503.
	var adminHash []byte
	if cfg.AdminToken == "" {
		slog.Warn("ADMIN_TOKEN not set, admin routes are disabled")
	} else {
		adminHash, err = bcrypt.GenerateFromPassword([]byte(cfg.AdminToken), bcrypt.DefaultCost)
		if err != nil {
			slog.Error("failed to hash admin token", "error", err)
			os.Exit(1)
		}
	}

	// Set up routers.
	apiRouter := api.NewRouter(api.Options{
		DB:             database,
		Uploads:        uploads,
		Pipeline:       pipeline,
		JWTSecret:      secret,
		AdminHash:      adminHash,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	webRouter, err := web.NewRouter(web.Options{
		DB:             database,
		Uploads:        uploads,
		Pipeline:       pipeline,
		JWTSecret:      secret,
		AdminHash:      adminHash,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	if err != nil {
		slog.Error("failed to set up web router", "error", err)
		os.Exit(1)
	}

	// Combine: API routes take priority, web routes handle the rest.
	mux := http.NewServeMux()
	mux.Handle("/api/", apiRouter)
	mux.Handle("/", webRouter)

	handler := api.LoggingMiddleware(mux)

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", addr, "uploads", uploadDir)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped, closing database")
}
