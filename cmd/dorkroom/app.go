package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"dorkroom/internal/config"
	"dorkroom/internal/core"
	"dorkroom/internal/logging"
)

// app carries the state shared by every subcommand.
type app struct {
	configPath string
	stdout     io.Writer
	stderr     io.Writer

	cfg       *config.Config
	extraOpts []core.Option
	logger    zerolog.Logger
	logCloser io.Closer
	registry  *prometheus.Registry
	svc       *core.Service
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr, logger: zerolog.Nop()}
	root := &cobra.Command{
		Use:           "dorkroom",
		Short:         "Query and maintain the dorkroom film development dataset",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&a.configPath, "config", "dorkroom.yaml", "path to the YAML config file")

	root.AddCommand(
		newSearchCmd(a),
		newFuzzyCmd(a),
		newShowCmd(a),
		newCombosCmd(a),
		newAdmitCmd(a),
		newCheckCmd(a),
		newServeCmd(a),
		newExportCmd(a),
	)
	return root
}

// open loads config, builds the logger and metrics, opens the snapshot store
// and loads the engine.
func (a *app) open(ctx context.Context) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, closer, err := logging.New(cfg.Logging(), a.stderr)
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	a.logger, a.logCloser = logger, closer

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := core.NewPrometheusMetricsRecorder(a.registry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	store, err := core.OpenSnapshotStore(ctx, cfg.StorageOptions())
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}
	opts := append(cfg.EngineOptions(), a.extraOpts...)
	opts = append(opts, core.WithLogger(logger), core.WithMetrics(metrics))
	a.svc = core.NewService(core.NewEngine(opts...), store)
	if _, err := a.svc.Reload(ctx); err != nil {
		return err
	}
	return nil
}

func (a *app) engine() *core.Engine { return a.svc.Engine() }

func (a *app) close() error {
	var err error
	if a.svc != nil {
		err = a.svc.Close()
		a.svc = nil
	}
	if a.logCloser != nil {
		_ = a.logCloser.Close()
		a.logCloser = nil
	}
	return err
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// withEngine adapts a RunE that needs a loaded service.
func (a *app) withEngine(run func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if cerr := a.close(); err == nil {
				err = cerr
			}
		}()
		if err := a.open(cmd.Context()); err != nil {
			return err
		}
		return run(cmd, args)
	}
}
