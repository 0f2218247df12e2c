package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pixelink/internal/bridge"
	"pixelink/internal/config"
	"pixelink/internal/executor"
	"pixelink/internal/nlu"
	"pixelink/internal/runtime"
	"pixelink/internal/vault"
)

var (
	// Global flags
	configPath string
	verbose    bool
	dryRun     bool
	speed      float64
	apiKey     string

	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pixelink",
	Short: "PixelLink - voice and text desktop command pipeline",
	Long: `PixelLink turns free-form voice or text commands into validated desktop
automation: a deterministic rule parser with a bounded LLM fallback, an
action planner, a safety guard, and a cooperative kill switch.

The bridge subcommand speaks line-delimited JSON on stdin/stdout for
embedding in a desktop shell; run executes a single instruction.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		// Responses own stdout; logs go to stderr only.
		zapCfg.OutputPaths = []string{"stderr"}
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// bridgeCmd runs the long-lived JSON bridge loop.
var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Run the line-delimited JSON bridge on stdin/stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, store, err := buildRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()
		if store != nil {
			defer store.Close()
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// SIGUSR1 is the kill-switch trigger: abort automation without
		// taking the bridge down. Signals are only wired when the config
		// enables the switch.
		trigger := make(chan struct{}, 1)
		if rt.StartKillSwitch(ctx, trigger) {
			killSignals := make(chan os.Signal, 1)
			signal.Notify(killSignals, syscall.SIGUSR1)
			defer signal.Stop(killSignals)
			go func() {
				for range killSignals {
					select {
					case trigger <- struct{}{}:
					default:
					}
				}
			}()
		}

		if configPath != "" {
			watcher, err := config.NewWatcher(configPath, logger)
			if err != nil {
				logger.Warn("config hot-reload unavailable", zap.Error(err))
			} else if err := watcher.Start(ctx); err != nil {
				logger.Warn("config hot-reload unavailable", zap.Error(err))
			} else {
				defer watcher.Stop()
				go func() {
					for cfg := range watcher.Updates() {
						speed := cfg.Execution.Speed
						rt.SetPreferences(&speed, cfg.Safety.Profile)
					}
				}()
			}
		}

		b := bridge.New(rt, os.Stdout, nil, logger)
		return b.Run(ctx, os.Stdin)
	},
}

// runCmd executes a single instruction and prints the JSON response.
var runCmd = &cobra.Command{
	Use:   "run \"instruction\"",
	Short: "Execute a single instruction and print the response",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, store, err := buildRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()
		if store != nil {
			defer store.Close()
		}

		resp := rt.HandleInput(cmd.Context(), strings.Join(args, " "), "text", "")
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	},
}

// buildRuntime loads config and assembles the pipeline with its optional
// pieces: the Gemini brain when an API key is present, the credential vault
// when its database can be opened.
func buildRuntime(ctx context.Context) (*runtime.Runtime, *vault.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if dryRun {
		cfg.Execution.DryRun = true
	}
	if speed != 0 {
		cfg.Execution.Speed = speed
	}
	if apiKey != "" {
		cfg.LLM.APIKey = apiKey
	}

	var brain nlu.Brain
	if cfg.NLU.Enabled && cfg.LLM.APIKey != "" {
		gemini, err := nlu.NewGeminiBrain(ctx, cfg.LLM)
		if err != nil {
			logger.Warn("fallback brain unavailable, parsing is rules-only", zap.Error(err))
		} else {
			brain = gemini
		}
	}

	store, err := vault.Open(cfg.Vault.Path, logger)
	if err != nil {
		logger.Warn("credential vault unavailable", zap.Error(err))
		store = nil
	}

	backend := executor.NewDesktopBackend(noopDriver{}, nil, logger)
	rt := runtime.New(runtime.Options{
		Config:  cfg,
		Brain:   brain,
		Backend: backend,
		Vault:   store,
		Logger:  logger,
	})
	return rt, store, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "log steps without executing them")
	rootCmd.PersistentFlags().Float64Var(&speed, "speed", 0, "execution speed multiplier")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Gemini API key for the fallback brain")

	rootCmd.AddCommand(bridgeCmd)
	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
