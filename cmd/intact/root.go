package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"intactcore/internal/archive"
	"intactcore/internal/blob"
	"intactcore/internal/config"
	"intactcore/internal/core"
	"intactcore/internal/logging"
	"intactcore/pkg/domain"
)

type cli struct {
	v       *viper.Viper
	cfgFile string
	out     io.Writer
	errOut  io.Writer
}

// newRootCommand builds the command tree writing results to out and logs to errOut.
func newRootCommand(out, errOut io.Writer) *cobra.Command {
	c := &cli{v: config.New(), out: out, errOut: errOut}
	root := &cobra.Command{
		Use:   "intact",
		Short: "Administer an IntAct curation store",
		Long: `intact manages the persistent IntAct object graph.

Settings come from intact.yaml in the working directory or ./config, from
INTACT_* environment variables (INTACT_STORAGE_DRIVER, INTACT_LOG_LEVEL, ...)
and from the global flags below, which take precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "config file (default is ./intact.yaml)")
	flags.String("storage", "", "storage driver: memory, sqlite or postgres")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("log-format", "", "log format: text or json")
	flags.String("metrics-file", "", "write the command's prometheus metrics to this file in text format")
	_ = c.v.BindPFlag("storage.driver", flags.Lookup("storage"))
	_ = c.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = c.v.BindPFlag("log.format", flags.Lookup("log-format"))
	_ = c.v.BindPFlag("metrics.file", flags.Lookup("metrics-file"))

	root.AddCommand(
		c.migrateCommand(),
		c.acCommand(),
		c.userCommand(),
		c.publicationCommand(),
		c.lifecycleCommand(),
		c.historyCommand(),
		c.releasesCommand(),
	)
	return root
}

func (c *cli) loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(c.v, c.cfgFile)
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format, c.errOut)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// app holds the components a command works with.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	store    domain.PersistentStore
	svc      *core.Service
	archiver *archive.Archiver
	registry *prometheus.Registry
}

// open wires the configured store, term cache and release archive into a service.
func (c *cli) open(ctx context.Context) (*app, error) {
	cfg, log, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := core.OpenPersistentStore(ctx, cfg, core.NewDefaultRulesEngine(), log)
	if err != nil {
		return nil, err
	}
	blobs, err := blob.Open(ctx, blob.Config{
		Driver: cfg.Blob.Driver,
		FSRoot: cfg.Blob.FS.Root,
		S3: blob.S3Config{
			Bucket:    cfg.Blob.S3.Bucket,
			Region:    cfg.Blob.S3.Region,
			Endpoint:  cfg.Blob.S3.Endpoint,
			PathStyle: cfg.Blob.S3.PathStyle,
		},
	})
	if err != nil {
		return nil, errors.Join(err, core.CloseStore(store))
	}
	cache, err := core.NewCvCache(store, cfg.Cache.CvTerms)
	if err != nil {
		return nil, errors.Join(err, core.CloseStore(store))
	}
	archiver := archive.New(blobs, archive.WithLogger(log))
	registry := prometheus.NewRegistry()
	metrics := core.NewMetrics(registry)
	svc := core.NewService(store,
		core.WithLogger(log),
		core.WithCvCache(cache),
		core.WithMetrics(metrics),
		core.WithPostCommitListener(archiver),
		core.WithPostCommitListener(metrics),
	)
	return &app{cfg: cfg, log: log, store: store, svc: svc, archiver: archiver, registry: registry}, nil
}

// Close writes the metrics file when one is configured and closes the store.
func (a *app) Close() error {
	var errs []error
	if file := a.cfg.Metrics.File; file != "" {
		if err := prometheus.WriteToTextfile(file, a.registry); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	if err := core.CloseStore(a.store); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}

// withApp runs fn with an opened app and closes it afterwards.
func (c *cli) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, a.Close()) }()
	return fn(ctx, a)
}
