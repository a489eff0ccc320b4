package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/loopfz/gadgeto/tonic"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	builder "github.com/fhir-builder/fhir-builder/pkg/builder_client"
	"github.com/fhir-builder/fhir-builder/pkg/builder_client/database"
	"github.com/fhir-builder/fhir-builder/pkg/builder_client/handler"
	"github.com/fhir-builder/fhir-builder/pkg/builder_client/helpers/httpclient"
	"github.com/fhir-builder/fhir-builder/pkg/builder_client/helpers/scaffold"
	"github.com/fhir-builder/fhir-builder/pkg/builder_client/repositories"
	"github.com/fhir-builder/fhir-builder/pkg/builder_client/services"
	"github.com/fhir-builder/fhir-builder/pkg/builder_client/storage"
	"github.com/fhir-builder/fhir-builder/pkg/config"
	"github.com/fhir-builder/fhir-builder/pkg/jobs"
	"github.com/fhir-builder/fhir-builder/pkg/tools"
)

// version wordt bij release gezet via -ldflags "-X main.version=..."
var version = "1.0.0"

func init() {
	tonic.SetErrorHook(builder.ErrorHook)
	tonic.SetBindHook(builder.BindJSON)
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "fhir-builder",
		Short: "FHIR CapabilityStatement analyzer and app scaffold generator",
	}
	serve := serveCmd()
	rootCmd.AddCommand(serve, sweepCmd())
	rootCmd.RunE = serve.RunE

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the builder HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg, logger)
		},
	}
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired build artifacts once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			svc, err := buildService(cfg, logger)
			if err != nil {
				return err
			}
			report, err := svc.SweepExpired(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scanned=%d deleted=%d failed=%d tempRemoved=%d\n",
				report.Scanned, report.Deleted, report.Failed, report.TempRemoved)
			return nil
		},
	}
}

func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	logger := cfg.Logger(os.Stdout)
	zerolog.DefaultContextLogger = &logger
	return cfg, logger, nil
}

func buildService(cfg *config.Config, logger zerolog.Logger) (*services.BuilderService, error) {
	if cfg.DBDriver == database.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.DBDSN), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := database.Connect(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}

	var store storage.ArtifactStore
	switch cfg.ArtifactStore {
	case config.StoreDatabase:
		store = storage.NewDBStore(db)
	default:
		fs, err := storage.NewFileStore(cfg.ArtifactDir)
		if err != nil {
			return nil, err
		}
		store = fs
	}

	svc := services.NewBuilderService(
		repositories.NewBuildRepository(db),
		store,
		httpclient.NewClient(cfg.FetchTimeout),
		scaffold.NewGenerator(logger),
		services.Options{
			ScratchDir:    cfg.ScratchDir,
			TTL:           cfg.BuildTTL,
			PublicBaseURL: cfg.PublicBaseURL,
		},
		logger,
	)
	return svc, nil
}

func runServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := buildService(cfg, logger)
	if err != nil {
		return err
	}

	dispatcher := tools.NewDispatcher(logger)
	if _, err := jobs.ScheduleSweep(ctx, svc, cfg.SweepSchedule, dispatcher); err != nil {
		return err
	}

	router := builder.NewRouter(builder.RouterOptions{
		Version:   version,
		PublicURL: cfg.PublicBaseURL,
		Logger:    logger,

		AllowedOrigins: cfg.CORSOrigins,
	}, handler.NewBuilderController(svc))

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("version", version).Msg("server is running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	dispatcher.Wait()
	return nil
}
