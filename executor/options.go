package executor

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/caffeineduck/scripthost/language/javascript"
)

// EngineOption configures the Engine at creation time.
type EngineOption func(*engineConfig)

type engineConfig struct {
	cacheCapacity int
	logger        *log.Logger
	fs            afero.Fs
	workDir       string
	language      string
	prelude       string
}

func defaultEngineConfig() engineConfig {
	lang := javascript.New()
	return engineConfig{
		cacheCapacity: DefaultCacheCapacity,
		language:      lang.Name(),
		prelude:       lang.Prelude(),
	}
}

func defaultLogger() *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "scripthost",
	})
}

// WithCacheCapacity sets how many compiled scripts each environment keeps.
// Values below 1 are rejected by New.
func WithCacheCapacity(n int) EngineOption {
	return func(c *engineConfig) {
		c.cacheCapacity = n
	}
}

// WithLogger sets the logger for engine events. Script output from host.log
// goes to a "script" sub-logger of it.
func WithLogger(l *log.Logger) EngineOption {
	return func(c *engineConfig) {
		c.logger = l
	}
}

// WithFS sets the filesystem modules are resolved and read from.
// Defaults to the OS filesystem.
func WithFS(fs afero.Fs) EngineOption {
	return func(c *engineConfig) {
		c.fs = fs
	}
}

// WithWorkDir sets the directory top-level specifiers resolve against.
// Defaults to the process working directory.
func WithWorkDir(dir string) EngineOption {
	return func(c *engineConfig) {
		c.workDir = dir
	}
}

// WithPrelude replaces the source run once in every new environment before
// any script. An empty string disables the prelude.
func WithPrelude(src string) EngineOption {
	return func(c *engineConfig) {
		c.prelude = src
	}
}

// WithLanguage takes the prelude from a language adapter.
func WithLanguage(lang Language) EngineOption {
	return func(c *engineConfig) {
		c.language = lang.Name()
		c.prelude = lang.Prelude()
	}
}
