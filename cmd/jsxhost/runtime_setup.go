package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jsxhost/internal/config"
	"jsxhost/internal/pipeline"
	"jsxhost/internal/script"
	"jsxhost/internal/sequence"
	"jsxhost/internal/trace"
)

// cliEnv is what every command shares once the persistent flags are read.
type cliEnv struct {
	cfg            config.Config
	tracer         trace.Tracer
	colored        bool
	quiet          bool
	timings        bool
	maxDiagnostics int
}

// setupCommand reads the persistent flags, loads the configuration and
// starts logging, tracing and profiling. The returned cleanup undoes all of
// it in reverse order.
func setupCommand(cmd *cobra.Command, status func() string) (*cliEnv, func(), error) {
	root := cmd.Root()
	flags := root.PersistentFlags()

	colorFlag, err := flags.GetString("color")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get color flag: %w", err)
	}
	quiet, err := flags.GetBool("quiet")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	timings, err := flags.GetBool("timings")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get timings flag: %w", err)
	}
	verbose, err := flags.GetBool("verbose")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get verbose flag: %w", err)
	}
	configPath, err := flags.GetString("config")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	maxDiagnostics, err := flags.GetInt("max-diagnostics")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}

	colored, err := applyColorMode(colorFlag)
	if err != nil {
		return nil, nil, err
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	cfg, err := config.Load(config.LoadOptions{Dir: wd, Path: configPath})
	if err != nil {
		return nil, nil, err
	}
	if err := applyConfigFlags(cmd, &cfg); err != nil {
		return nil, nil, err
	}

	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	if verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create logger: %w", err)
		}
		pipeline.SetLogger(logger)
		cleanups = append(cleanups, func() {
			_ = logger.Sync()
			pipeline.SetLogger(nil)
		})
		if cfg.Path != "" {
			logger.Debug("config loaded", zap.String("path", cfg.Path))
		}
	}

	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	cleanups = append(cleanups, stopProfiling)

	tracer, stopTracing, err := setupTracing(cmd, status)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	cleanups = append(cleanups, stopTracing)

	return &cliEnv{
		cfg:            cfg,
		tracer:         tracer,
		colored:        colored,
		quiet:          quiet,
		timings:        timings,
		maxDiagnostics: maxDiagnostics,
	}, cleanup, nil
}

// addConfigFlags registers the flags that override jsxhost.toml.
func addConfigFlags(cmd *cobra.Command, withMode bool) {
	cmd.Flags().Bool("harmony", false, "lower ES2015+ syntax in addition to JSX")
	if withMode {
		cmd.Flags().String("mode", "pragma", "which scripts to transform (pragma|always|never)")
	}
	cmd.Flags().Bool("no-source-map", false, "do not embed source maps")
	cmd.Flags().Bool("cache", false, "cache transform results on disk")
}

func applyConfigFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Lookup("harmony") != nil && flags.Changed("harmony") {
		v, err := flags.GetBool("harmony")
		if err != nil {
			return fmt.Errorf("failed to get harmony flag: %w", err)
		}
		cfg.Harmony = v
	}
	if flags.Lookup("mode") != nil && flags.Changed("mode") {
		v, err := flags.GetString("mode")
		if err != nil {
			return fmt.Errorf("failed to get mode flag: %w", err)
		}
		if cfg.Mode, err = script.ParseTransformMode(v); err != nil {
			return err
		}
	}
	if flags.Lookup("no-source-map") != nil && flags.Changed("no-source-map") {
		v, err := flags.GetBool("no-source-map")
		if err != nil {
			return fmt.Errorf("failed to get no-source-map flag: %w", err)
		}
		cfg.SourceMaps = !v
	}
	if flags.Lookup("cache") != nil && flags.Changed("cache") {
		v, err := flags.GetBool("cache")
		if err != nil {
			return fmt.Errorf("failed to get cache flag: %w", err)
		}
		cfg.Cache = v
	}
	if flags.Lookup("failure") != nil && flags.Changed("failure") {
		v, err := flags.GetString("failure")
		if err != nil {
			return fmt.Errorf("failed to get failure flag: %w", err)
		}
		if cfg.Failure, err = sequence.ParsePolicy(v); err != nil {
			return err
		}
	}
	if flags.Lookup("jobs") != nil && flags.Changed("jobs") {
		v, err := flags.GetInt("jobs")
		if err != nil {
			return fmt.Errorf("failed to get jobs flag: %w", err)
		}
		if v < 1 {
			return fmt.Errorf("--jobs must be positive, got %d", v)
		}
		cfg.Jobs = v
	}
	return nil
}

// newHost builds a Host from the resolved configuration. root anchors
// scheme-less script paths.
func newHost(env *cliEnv, root string) (*pipeline.Host, error) {
	engine, err := env.cfg.Engine(func(err error) {
		pipeline.Logger().Warn("transform cache", zap.Error(err))
	})
	if err != nil {
		return nil, err
	}
	fetcher, err := env.cfg.Fetcher(root)
	if err != nil {
		return nil, err
	}
	pc := env.cfg.Pipeline()
	if env.maxDiagnostics > 0 {
		pc.MaxDiagnostics = env.maxDiagnostics
	}
	if env.quiet {
		pc.Advisory = false
	}
	h := pipeline.NewHost(engine, fetcher, pc)
	h.Console = os.Stdout
	h.Tracer = env.tracer
	return h, nil
}
