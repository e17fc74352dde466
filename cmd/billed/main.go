package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"golang.org/x/sync/errgroup"

	"github.com/zombor/billed/internal/bill"
	"github.com/zombor/billed/internal/scanning"
	"github.com/zombor/billed/internal/session"
	"github.com/zombor/billed/internal/store"
	"github.com/zombor/billed/internal/ui"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

type config struct {
	port         int
	apiPort      int
	dbPath       string
	sessionsPath string
	storagePath  string
	apiURL       string
	scannerType  string
	geminiKey    string
	geminiModel  string
	ollamaURL    string
	ollamaModel  string
	authUser     string
	authPass     string
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error: loading .env: %v\n", err)
		os.Exit(1)
	}

	flags := ff.NewFlagSet("billed")
	var (
		port         = flags.IntLong("port", 8080, "HTTP port of the employee interface")
		apiPort      = flags.IntLong("api-port", 8081, "HTTP port of the bills API (0 to serve it only under /api/ of the interface)")
		dbPath       = flags.StringLong("db", "billed.db", "Bills database file path")
		sessionsPath = flags.StringLong("sessions", "billed-sessions.db", "Sessions database file path (empty keeps sessions in memory)")
		storagePath  = flags.StringLong("storage", "./receipts", "Receipts directory path")
		apiURL       = flags.StringLong("api-url", "", "URL of a remote bills API (empty serves the API from this process)")
		scannerType  = flags.StringLong("scanner", "none", "Receipt scanner: 'none', 'gemini' or 'ollama'")
		geminiKey    = flags.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel  = flags.StringLong("gemini-model", scanning.DefaultGeminiModel, "Google Gemini model name")
		ollamaURL    = flags.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel  = flags.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, llava-phi3, qwen2-vl)")
		authUser     = flags.StringLong("auth-user", "", "Bills API basic auth username (optional)")
		authPass     = flags.StringLong("auth-pass", "", "Bills API basic auth password (optional)")
		logLevel     = flags.StringLong("log-level", "info", "Log level: debug, info, warn or error")
	)
	showVersion := flags.BoolLong("version", "Show version information")

	if err := ff.Parse(flags, os.Args[1:],
		ff.WithEnvVarPrefix("BILLED"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(flags))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid log level %q\n", *logLevel)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := config{
		port:         *port,
		apiPort:      *apiPort,
		dbPath:       *dbPath,
		sessionsPath: *sessionsPath,
		storagePath:  *storagePath,
		apiURL:       *apiURL,
		scannerType:  *scannerType,
		geminiKey:    *geminiKey,
		geminiModel:  *geminiModel,
		ollamaURL:    *ollamaURL,
		ollamaModel:  *ollamaModel,
		authUser:     *authUser,
		authPass:     *authPass,
	}
	if err := run(cfg); err != nil {
		slog.Error("Fatal error", "error", err)
		os.Exit(1)
	}
}

// newScanner builds the configured receipt scanner; "none" yields nil
func newScanner(ctx context.Context, cfg config) (scanning.Scanner, error) {
	switch cfg.scannerType {
	case "none", "":
		return nil, nil
	case "gemini":
		apiKey := cfg.geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			return nil, errors.New("gemini API key is required: set --gemini-key or GEMINI_API_KEY")
		}
		slog.Info("Initializing Gemini scanner...", "model", cfg.geminiModel)
		return scanning.NewGemini(ctx, apiKey, cfg.geminiModel)
	case "ollama":
		slog.Info("Initializing Ollama scanner...", "url", cfg.ollamaURL, "model", cfg.ollamaModel)
		return scanning.NewOllama(cfg.ollamaURL, cfg.ollamaModel)
	}
	return nil, fmt.Errorf("invalid scanner type %q: valid are none, gemini or ollama", cfg.scannerType)
}

func run(cfg config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sessions session.Provider
	if cfg.sessionsPath == "" {
		sessions = session.NewMemoryProvider()
	} else {
		boltSessions, err := session.NewBoltProvider(cfg.sessionsPath)
		if err != nil {
			return fmt.Errorf("initializing sessions: %w", err)
		}
		defer boltSessions.Close()
		sessions = boltSessions
	}

	views, err := ui.NewViews()
	if err != nil {
		return fmt.Errorf("loading templates: %w", err)
	}

	basicAuth := bill.BasicAuth{Username: cfg.authUser, Password: cfg.authPass}
	servers := make(map[string]*http.Server)

	var (
		bills    store.Store
		receipts ui.Receipts
	)
	if cfg.apiURL != "" {
		slog.Info("Using remote bills API", "url", cfg.apiURL)
		client, err := store.NewHTTPClient(cfg.apiURL, store.WithBasicAuth(cfg.authUser, cfg.authPass))
		if err != nil {
			return fmt.Errorf("initializing API client: %w", err)
		}
		bills = client
	} else {
		slog.Info("Initializing database...")
		db, err := bill.NewBoltDB(cfg.dbPath)
		if err != nil {
			return fmt.Errorf("initializing database: %w", err)
		}
		defer db.Close()

		slog.Info("Initializing storage...")
		storage, err := bill.NewLocalStorage(cfg.storagePath)
		if err != nil {
			return fmt.Errorf("initializing storage: %w", err)
		}

		scanner, err := newScanner(ctx, cfg)
		if err != nil {
			return fmt.Errorf("initializing scanner: %w", err)
		}
		if scanner != nil {
			defer scanner.Close()
		}

		service := bill.NewService(db, storage, scanner)
		apiServer := bill.NewServer(service, basicAuth)
		bills = store.NewLocal(service)
		receipts = service
		if cfg.apiPort > 0 {
			servers["api"] = &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.apiPort),
				Handler:           apiServer,
				ReadHeaderTimeout: 10 * time.Second,
			}
		}
		if basicAuth.Enabled() {
			slog.Info("Basic auth enabled", "user", cfg.authUser)
		}
	}

	servers["ui"] = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.port),
		Handler:           ui.NewServer(bills, receipts, sessions, views),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	for name, srv := range servers {
		g.Go(func() error {
			slog.Info("Server started", "name", name, "address", fmt.Sprintf("http://localhost%s", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("%s server: %w", name, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for name, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Error("Error shutting down server", "name", name, "error", err)
			}
		}
		return nil
	})

	return g.Wait()
}
