package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-iam/cmd/odyssey/cli"
	"github.com/odyssey-erp/odyssey-iam/internal/app"
	"github.com/odyssey-erp/odyssey-iam/internal/observability"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "odyssey",
		Short:        "Odyssey identity and access service",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply database migrations or indexes for the configured store",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigrate(cmd.Context())
			},
		},
		newBootstrapCommand(),
		newJobsCommand(),
	)
	return root
}

// setup loads configuration and a logger. Config failures are logged before
// they are returned.
func setup() (*app.Config, *slog.Logger, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		return nil, nil, err
	}
	return cfg, app.NewLogger(cfg), nil
}

func openContainer(ctx context.Context, cfg *app.Config, logger *slog.Logger, metrics *observability.Metrics, onCritical func(error)) (*app.Container, *app.Backends, error) {
	backends, err := app.OpenBackends(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Error("open backends", slog.Any("error", err))
		return nil, nil, err
	}
	container, err := app.NewContainer(app.ContainerParams{
		Config:       cfg,
		Logger:       logger,
		Stores:       backends.Stores,
		Revocations:  backends.Revocations,
		Notifier:     backends.Notifier,
		Metrics:      metrics,
		JobInspector: backends.JobInspector,
		OnCritical:   onCritical,
	})
	if err != nil {
		logger.Error("wire services", slog.Any("error", err))
		_ = backends.Close()
		return nil, nil, err
	}
	return container, backends, nil
}

func runServe(ctx context.Context) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	metrics := observability.NewMetrics()

	critical := make(chan error, 1)
	onCritical := func(err error) {
		select {
		case critical <- err:
		default:
		}
	}

	container, backends, err := openContainer(ctx, cfg, logger, metrics, onCritical)
	if err != nil {
		return err
	}
	defer func() {
		if err := backends.Close(); err != nil {
			logger.Warn("close backends", slog.Any("error", err))
		}
	}()

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      container.Handler,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("store", cfg.StoreDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		var cause error
		select {
		case <-groupCtx.Done():
		case cause = <-critical:
			metrics.ObserveCritical()
			logger.Error("critical error, shutting down", slog.Any("error", cause))
		}
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown", slog.Any("error", err))
		}
		return cause
	})

	if err := group.Wait(); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		return err
	}
	return nil
}

func runMigrate(ctx context.Context) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if cfg.StoreDriver == app.DriverMemory {
		logger.Info("memory store needs no migrations")
		return nil
	}
	cfg.DBAutoMigrate = true
	backends, err := app.OpenBackends(ctx, cfg, logger, nil)
	if err != nil {
		logger.Error("migrate", slog.Any("error", err))
		return err
	}
	logger.Info("migrations applied", slog.String("store", cfg.StoreDriver))
	return backends.Close()
}

func newBootstrapCommand() *cobra.Command {
	var opts cli.BootstrapOptions
	cmd := &cobra.Command{
		Use:   "bootstrap-admin",
		Short: "Grant a full-access Administrator role to an existing user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			if cfg.StoreDriver == app.DriverMemory {
				return errors.New("bootstrap-admin needs a persistent store")
			}
			container, backends, err := openContainer(cmd.Context(), cfg, logger, nil, nil)
			if err != nil {
				return err
			}
			defer func() { _ = backends.Close() }()

			opts.Stdout, opts.Stderr = cmd.OutOrStdout(), cmd.ErrOrStderr()
			bootstrap := cli.NewBootstrapCLI(container.Users, container.Roles, container.Employees, container.Assignments)
			if code := bootstrap.BootstrapCommand(cmd.Context(), opts); code != 0 {
				return fmt.Errorf("bootstrap-admin exited with %d", code)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Email, "email", "", "Email of the user to promote (required)")
	cmd.Flags().StringVar(&opts.Tag, "tag", "", "Employee tag, defaults to the user's tag")
	cmd.Flags().BoolVar(&opts.JSONOutput, "json", false, "Print a JSON summary")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newJobsCommand() *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and trigger background jobs",
	}
	openJobs := func() (*cli.JobsCLI, error) {
		cfg, _, err := setup()
		if err != nil {
			return nil, err
		}
		return cli.NewJobsCLI(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	}

	var params []string
	trigger := &cobra.Command{
		Use:   "trigger <job>",
		Short: "Enqueue a job, e.g. jobs trigger user:welcome --param userId=... --param email=...",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values := make(map[string]string, len(params))
			for _, p := range params {
				key, value, ok := strings.Cut(p, "=")
				if !ok {
					return fmt.Errorf("invalid --param %q, expected key=value", p)
				}
				values[key] = value
			}
			jobsCLI, err := openJobs()
			if err != nil {
				return err
			}
			defer func() { _ = jobsCLI.Close() }()
			info, err := jobsCLI.Trigger(cmd.Context(), args[0], values)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s as %s on %s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	}
	trigger.Flags().StringArrayVar(&params, "param", nil, "Payload field as key=value, repeatable")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Print queue statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			jobsCLI, err := openJobs()
			if err != nil {
				return err
			}
			defer func() { _ = jobsCLI.Close() }()
			s, err := jobsCLI.InspectQueue(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "queue=%s pending=%d active=%d scheduled=%d retry=%d\n", s.Queue, s.Pending, s.Active, s.Scheduled, s.Retry)
			return nil
		},
	}
	jobsCmd.AddCommand(trigger, stats)
	return jobsCmd
}
