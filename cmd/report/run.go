package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dvloznov/finance-reports/internal/artifacts"
	"github.com/dvloznov/finance-reports/internal/config"
	"github.com/dvloznov/finance-reports/internal/domain"
	"github.com/dvloznov/finance-reports/internal/logger"
	"github.com/dvloznov/finance-reports/internal/notionsync"
	"github.com/dvloznov/finance-reports/internal/pipeline"
	"github.com/dvloznov/finance-reports/internal/records"
	"github.com/dvloznov/finance-reports/internal/registry"
	"github.com/dvloznov/finance-reports/internal/runs"
	"github.com/dvloznov/finance-reports/internal/runs/inmemory"
	"github.com/dvloznov/finance-reports/internal/runs/sqlite"
	"github.com/dvloznov/finance-reports/internal/views"
	"github.com/dvloznov/finance-reports/internal/warehouse"
)

// runReport executes one pipeline run and then announces presence. Fatal
// pipeline errors are returned so the process exits non-zero.
func runReport(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	runID := uuid.NewString()
	ctx = logger.WithContext(ctx, log.With().Str("run_id", runID).Logger())

	deps := pipeline.Deps{Loader: records.NewCSVLoader()}

	writer, closeWriter, err := newWriter(ctx, cfg, runID)
	if err != nil {
		return err
	}
	defer closeWriter()
	deps.Writer = writer

	if cfg.Warehouse.Enabled() {
		sink, err := warehouse.NewBigQuerySink(ctx, cfg.Warehouse.ProjectID, cfg.Warehouse.Dataset, cfg.Warehouse.Table)
		if err != nil {
			return err
		}
		defer sink.Close()
		deps.Sink = sink
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	deps.Store = store

	p := pipeline.New(deps, pipeline.Options{
		RunID:     runID,
		InputPath: cfg.InputPath,
		OutputDir: cfg.OutputDir,
		Threshold: cfg.Threshold(),
		Policy:    pipeline.Policy(cfg.FailurePolicy),
		Render:    views.Options{Width: cfg.Chart.Width, Height: cfg.Chart.Height},
	})

	run, runErr := p.Run(ctx)

	announce(ctx, cfg)
	publish(ctx, cfg, run)

	if runErr != nil {
		return fmt.Errorf("run %s failed: %w", run.RunID, runErr)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Run %s %s: %d of %d rows kept, %d written, %d skipped, %d failed\n",
		run.RunID, run.Status, run.Filtered, run.Rows,
		run.Count(runs.OutcomeWritten), run.Count(runs.OutcomeSkipped), run.Count(runs.OutcomeFailed))
	return nil
}

func commandContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	return ctx, func() {
		stop()
		cancel()
	}
}

// newWriter returns the local artifact writer, wrapped with a GCS mirror
// when a bucket is configured.
func newWriter(ctx context.Context, c *config.Config, runID string) (pipeline.ArtifactWriter, func(), error) {
	local := artifacts.NewLocalWriter(c.OutputDir)
	if c.Storage.Bucket == "" {
		return local, func() {}, nil
	}

	bucket, prefix, err := mirrorTarget(c.Storage.Bucket, c.Storage.Prefix)
	if err != nil {
		return nil, nil, err
	}
	store, err := artifacts.NewGCSStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	log := logger.FromContext(ctx)
	log.Info().Str("bucket", bucket).Str("prefix", prefix).Msg("Mirroring artifacts to GCS")
	return artifacts.NewMirrorWriter(local, store, bucket, prefix, runID), func() { _ = store.Close() }, nil
}

// mirrorTarget accepts either a bare bucket name or a gs:// URI. A path in
// the URI is prepended to prefix.
func mirrorTarget(bucket, prefix string) (string, string, error) {
	if !strings.HasPrefix(bucket, "gs://") {
		return bucket, prefix, nil
	}

	trimmed := strings.TrimSuffix(bucket, "/")
	if !strings.Contains(strings.TrimPrefix(trimmed, "gs://"), "/") {
		return strings.TrimPrefix(trimmed, "gs://"), prefix, nil
	}

	name, object, err := artifacts.SplitURI(trimmed)
	if err != nil {
		return "", "", fmt.Errorf("storage bucket: %w", err)
	}
	if prefix != "" {
		object = object + "/" + prefix
	}
	return name, object, nil
}

// openStore opens the SQLite ledger when a path is configured and falls back
// to an in-memory store otherwise.
func openStore(ctx context.Context, c *config.Config) (runs.Store, func(), error) {
	if c.RunStore.Path == "" {
		return inmemory.NewStore(), func() {}, nil
	}
	store, err := sqlite.Open(ctx, c.RunStore.Path)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

// announce registers this process under the configured key. Failures are
// logged only.
func announce(ctx context.Context, c *config.Config) {
	log := logger.ForStage(ctx, "register")

	var reg registry.Registrar = registry.NewMemoryRegistrar()
	if c.Registry.Enabled {
		redisReg, err := registry.NewRedisRegistrar(ctx, c.RedisAddr(), c.Registry.Password)
		if err != nil {
			log.Warn().Err(&domain.RegistrationError{Key: c.Registry.Key, Err: err}).Msg("Presence registration unavailable")
			return
		}
		defer redisReg.Close()
		reg = redisReg
	}

	if err := registry.Announce(ctx, reg, c.Registry.Key, []byte(c.Registry.Payload)); err != nil {
		log.Warn().Err(err).Msg("Presence registration failed")
	}
}

// publish mirrors the run summary into Notion when configured. Failures are
// logged only.
func publish(ctx context.Context, c *config.Config, run *runs.Run) {
	if !c.Notion.Enabled() || run == nil {
		return
	}
	log := logger.ForStage(ctx, "publish")

	p := notionsync.NewPublisher(notionsync.NewNotionClient(c.Notion.Token), c.Notion.DatabaseID)
	if _, err := p.PublishRun(ctx, run); err != nil {
		log.Warn().Err(err).Msg("Notion publish failed")
	}
}
