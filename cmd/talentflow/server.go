package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
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
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/talentflow/internal/api"
	"github.com/kalambet/talentflow/internal/config"
	"github.com/kalambet/talentflow/internal/storage"
	"github.com/kalambet/talentflow/internal/worker"
)

const (
	seedJobs       = 25
	seedCandidates = 1000
	workerPoll     = 500 * time.Millisecond
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the record service in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, _ := cmd.Flags().GetBool("seed")
			return runServer(cmd.Context(), seed)
		},
	}
	cmd.Flags().Bool("seed", false, "populate an empty database with sample jobs and candidates")
	return cmd
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return stopServer()
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show service status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStatus(cmd.Context())
		},
	}
}

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the record store over MCP (stdio)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := storage.Open(cfg.Storage.DataDir)
			if err != nil {
				return fmt.Errorf("opening storage: %w", err)
			}
			defer store.Close()

			return server.ServeStdio(api.NewMCPServer(api.MCPDeps{Store: store, Version: version}))
		},
	}
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "talentflow.pid")
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

func runServer(parent context.Context, seed bool) error {
	slog.Info("starting talentflow", "version", version)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	token := cfg.Server.APIToken
	if token == "" {
		if token, err = config.APIToken(config.NewKeychain()); err != nil {
			return fmt.Errorf("initializing API token: %w", err)
		}
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer os.Remove(pidPath)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("closing storage", "error", err)
		}
	}()

	if seed {
		if err := store.Seed(seedJobs, seedCandidates); err != nil {
			return fmt.Errorf("seeding storage: %w", err)
		}
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewHandler(api.Deps{Store: store, Token: token}),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		worker.NewWorker(store, workerPoll).Run(gctx)
		return nil
	})
	g.Go(func() error {
		slog.Info("listening", "addr", addr, "data_dir", cfg.Storage.DataDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func stopServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		return fmt.Errorf("talentflow is not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("finding process %d: %w", pid, err)
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		printWarning("Removing stale PID file %s", pidPath)
		os.Remove(pidPath)
		return fmt.Errorf("stopping talentflow (PID %d): %w", pid, err)
	}

	printSuccess("Sent stop signal to talentflow (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	app, err := newClientApp()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}
	defer app.Close()

	if err := app.remote.Health(ctx); err != nil {
		printStatus("Server", "stopped (%s)", app.cfg.Server.BaseURL)
	} else {
		printStatus("Server", "running at %s", app.cfg.Server.BaseURL)
		if page, err := app.remote.Jobs().List(ctx, recordQuery(1, 1)); err == nil {
			printStatus("Jobs", "%d", page.Total)
		}
		if page, err := app.remote.Candidates().List(ctx, recordQuery(1, 1)); err == nil {
			printStatus("Candidates", "%d", page.Total)
		}
	}
	printStatus("Data dir", "%s", app.cfg.Storage.DataDir)
	return nil
}
