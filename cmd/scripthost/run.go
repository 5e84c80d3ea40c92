package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/caffeineduck/scripthost/executor"
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Run a script once",
	Long: `Run a JavaScript handler and print its completion value.

Code can be provided via:
  - File argument: scripthost run handler.js
  - Inline flag: scripthost run -c 'host.invoke("PING")'
  - Stdin: echo '1+1' | scripthost run

With --repeat the same source runs several times on one worker, which shows
the compiled-script cache at work (see --stats).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringP("code", "c", "", "Code to execute")
	runCmd.Flags().Duration("timeout", 30*time.Second, "Execution timeout (0 disables)")
	runCmd.Flags().Int("repeat", 1, "Run the source this many times")
	runCmd.Flags().Bool("stats", false, "Print cache statistics after running")
	rootCmd.AddCommand(runCmd)
}

func readSource(cmd *cobra.Command, args []string) ([]byte, bool, error) {
	code, _ := cmd.Flags().GetString("code")
	switch {
	case code != "":
		return []byte(code), true, nil
	case len(args) > 0:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return nil, false, err
		}
		return data, true, nil
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok {
		// No piped input
		if stat, err := f.Stat(); err == nil && stat.Mode()&os.ModeCharDevice != 0 {
			return nil, false, nil
		}
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, false, err
	}
	return data, len(data) > 0, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	src, ok, err := readSource(cmd, args)
	if err != nil {
		return err
	}
	if !ok {
		return cmd.Help()
	}

	repeat, _ := cmd.Flags().GetInt("repeat")
	showStats, _ := cmd.Flags().GetBool("stats")
	if repeat < 1 {
		return fmt.Errorf("invalid repeat %d: must be at least 1", repeat)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	engine, err := newEngine(cfg, newLogger(cmd.ErrOrStderr(), cfg))
	if err != nil {
		return err
	}
	defer engine.Close()

	thread := engine.NewThread()
	defer thread.Shutdown()

	var result executor.Result
	for i := 0; i < repeat; i++ {
		ctx, cancel := runContext(cfg.Timeout)
		result, err = thread.RunContext(ctx, src)
		cancel()
		if err != nil {
			return err
		}
		if result.Diagnostic != nil {
			break
		}
	}

	if showStats {
		s := thread.CacheStats()
		fmt.Fprintf(cmd.ErrOrStderr(), "cache: hits=%d misses=%d compiles=%d entries=%d/%d\n",
			s.Hits, s.Misses, s.Compiles, s.Entries, s.Capacity)
	}
	if result.Diagnostic != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", result.Diagnostic)
		return errScriptFailed
	}
	if result.Value != nil {
		fmt.Fprintln(cmd.OutOrStdout(), formatValue(result.Value))
	}
	return nil
}

func runContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), timeout)
}
