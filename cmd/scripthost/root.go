package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/caffeineduck/scripthost/executor"
	"github.com/caffeineduck/scripthost/hostfunc"
	"github.com/caffeineduck/scripthost/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "scripthost",
	Short: "JavaScript command handlers for a key-value data store",
	Long: `scripthost - Run JavaScript handlers against an in-memory key-value store.

Scripts reach the store through host.invoke (also keydb.call and redis.call),
write to the log with host.log, and load modules with require. Compiled
scripts are cached per worker by the SHA-256 of their source.

Settings come from flags, SCRIPTHOST_* environment variables, or a
scripthost.yaml/toml/json file in the working directory.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// errScriptFailed marks a run whose diagnostic was already printed.
var errScriptFailed = errors.New("script failed")

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errScriptFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default: ./scripthost.{yaml,toml,json})")
	rootCmd.PersistentFlags().String("workdir", "", "Directory modules resolve against (default: current directory)")
	rootCmd.PersistentFlags().Int("cache-capacity", executor.DefaultCacheCapacity, "Compiled scripts kept per worker")
	rootCmd.PersistentFlags().String("prelude", "", "Prelude script path, or 'none' to disable the built-in prelude")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(config.LoadOptions{
		ConfigFilePath: path,
		Flags:          cmd.Flags(),
	})
}

func newLogger(w io.Writer, cfg *config.Config) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          config.AppName,
		Level:           cfg.Level(),
	})
}

// newEngine builds an engine backed by a fresh key-value store.
func newEngine(cfg *config.Config, logger *log.Logger) (*executor.Engine, error) {
	registry := hostfunc.NewRegistry()
	hostfunc.NewStore().Register(registry)

	opts := []executor.EngineOption{
		executor.WithLogger(logger),
		executor.WithCacheCapacity(cfg.CacheCapacity),
		executor.WithWorkDir(cfg.WorkDir),
	}
	switch cfg.Prelude {
	case "":
	case config.PreludeNone:
		opts = append(opts, executor.WithPrelude(""))
	default:
		src, err := os.ReadFile(cfg.Prelude)
		if err != nil {
			return nil, fmt.Errorf("read prelude: %w", err)
		}
		opts = append(opts, executor.WithPrelude(string(src)))
	}
	return executor.New(registry, opts...)
}

// formatValue renders a script's completion value for terminal output.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "undefined"
	case string:
		return val
	case map[string]any, []any:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	default:
		return fmt.Sprint(val)
	}
}
