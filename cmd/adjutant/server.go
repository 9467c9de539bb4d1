package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/naborsk/adjutant/internal/api"
	"github.com/naborsk/adjutant/internal/cache"
	"github.com/naborsk/adjutant/internal/config"
	"github.com/naborsk/adjutant/internal/dispatch"
	"github.com/naborsk/adjutant/internal/intent"
	"github.com/naborsk/adjutant/internal/links"
	"github.com/naborsk/adjutant/internal/llm"
	"github.com/naborsk/adjutant/internal/memory"
	"github.com/naborsk/adjutant/internal/pipeline"
	"github.com/naborsk/adjutant/internal/sched"
	"github.com/naborsk/adjutant/internal/sources"
	"github.com/naborsk/adjutant/internal/storage"
	"github.com/naborsk/adjutant/internal/tasks"
	"github.com/naborsk/adjutant/internal/telegram"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the adjutant server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running adjutant server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show adjutant system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "adjutant.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "adjutant version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("adjutant is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("adjutant is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := time.LoadLocation(cfg.Storage.Timezone)
	if err != nil {
		slog.Warn("invalid timezone, using UTC", "timezone", cfg.Storage.Timezone, "error", err)
		loc = time.UTC
	}

	// Open storage.
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	// Provider chain: Groq primary, Groq fallback, NVIDIA last resort.
	providers := []llm.Completer{
		llm.NewProvider("groq-primary", cfg.LLM.GroqAPIKey, cfg.LLM.GroqBaseURL, cfg.LLM.PrimaryModel),
		llm.NewProvider("groq-fallback", cfg.LLM.GroqAPIKey, cfg.LLM.GroqBaseURL, cfg.LLM.FallbackModel),
	}
	if cfg.LLM.NvidiaAPIKey != "" {
		providers = append(providers,
			llm.NewThinkingProvider("nvidia", cfg.LLM.NvidiaAPIKey, cfg.LLM.NvidiaBaseURL, cfg.LLM.NvidiaModel))
	}
	chain := llm.NewChain(providers...)

	// Core services.
	mem := memory.NewService(store)
	taskSvc := tasks.NewService(store, loc)
	router := intent.NewRouter(chain, store)
	calendar := sources.UnconfiguredCalendar{}
	registry := sources.NewRegistry(store, mem, chain, cache.New(),
		cfg.Sources.BraveAPIKey, cfg.Sources.StockWatchlist, cfg.Sources.StockIndices,
		calendar, sources.UnconfiguredEmail{}, loc)
	linkSvc := links.NewService(chain, store)
	dispatcher := dispatch.New(store, taskSvc, mem, router, chain, registry, linkSvc, calendar, loc)

	// Telegram transport and processing pipeline.
	tg, err := telegram.New(cfg.Telegram.BotToken)
	if err != nil {
		return fmt.Errorf("creating telegram client: %w", err)
	}
	if cfg.Server.WebhookURL != "" {
		if err := tg.SetWebhook(cfg.Server.WebhookURL); err != nil {
			return fmt.Errorf("registering webhook: %w", err)
		}
		slog.Info("webhook registered", "url", cfg.Server.WebhookURL)
	}
	pipe := pipeline.New(store, tg, dispatcher, cfg.Telegram.UserID)

	// Build HTTP handler and server.
	appHandler := api.NewAppHandler(api.AppDeps{
		Store:    store,
		Pipeline: pipe,
		Token:    cfg.Server.APIToken,
		UserID:   cfg.Telegram.UserID,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: appHandler,
	}

	// Background jobs: morning briefing, nightly reflection, overdue
	// reminders, keep-alive.
	runner := sched.New(mem, chain, registry, taskSvc, tg, cfg.Telegram.UserID, cfg.Server.SelfPingURL, loc)
	scheduler, err := runner.Start()
	if err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer scheduler.Shutdown()

	// MCP server on its own port (streamable HTTP transport).
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Store:  store,
		Tasks:  taskSvc,
		UserID: cfg.Telegram.UserID,
	})
	mcpHTTP := server.NewStreamableHTTPServer(mcpSrv)
	go func() {
		mcpAddr := fmt.Sprintf(":%d", cfg.Server.MCPPort)
		slog.Info("MCP server started", "addr", mcpAddr)
		if err := mcpHTTP.Start(mcpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("MCP server error", "error", err)
		}
	}()

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "adjutant listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mcpHTTP.Shutdown(shutdownCtx); err != nil {
		slog.Warn("MCP server shutdown", "error", err)
	}
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("adjutant is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop adjutant (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to adjutant (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	// Check server health.
	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Primary model", "%s", cfg.LLM.PrimaryModel)
	printStatus("Fallback model", "%s", cfg.LLM.FallbackModel)
	if cfg.LLM.NvidiaAPIKey != "" {
		printStatus("Last-resort model", "%s", cfg.LLM.NvidiaModel)
	}
	if cfg.Server.WebhookURL != "" {
		printStatus("Webhook", "%s", cfg.Server.WebhookURL)
	}
	printStatus("Timezone", "%s", cfg.Storage.Timezone)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
