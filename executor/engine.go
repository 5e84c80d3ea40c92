package executor

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/caffeineduck/scripthost/hostfunc"
	"github.com/caffeineduck/scripthost/module"
)

var (
	ErrEngineClosed            = errors.New("engine closed")
	ErrThreadsActive           = errors.New("engine has active threads")
	ErrThreadClosed            = errors.New("thread shut down")
	ErrEnvironmentConstruction = errors.New("environment construction failed")
)

// Engine holds the process-wide state shared by every worker thread: the
// scope template, the module resolver and the logger.
type Engine struct {
	cfg       engineConfig
	template  *Template
	resolver  *module.Resolver
	logger    *log.Logger
	scriptLog *log.Logger

	mu      sync.Mutex
	closed  bool
	nextEnv uint64
	nextTid uint64
	threads map[uint64]struct{}
}

// New creates an engine whose scripts reach the host through invoker.
// A nil invoker answers every call with hostfunc.ErrUnknownCommand.
func New(invoker hostfunc.Invoker, opts ...EngineOption) (*Engine, error) {
	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.cacheCapacity < 1 {
		return nil, fmt.Errorf("invalid cache capacity %d: must be at least 1", cfg.cacheCapacity)
	}
	if cfg.logger == nil {
		cfg.logger = defaultLogger()
	}
	if cfg.fs == nil {
		cfg.fs = afero.NewOsFs()
	}
	if cfg.workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
		cfg.workDir = wd
	}
	if invoker == nil {
		invoker = hostfunc.NewRegistry()
	}

	e := &Engine{
		cfg:       cfg,
		template:  newTemplate(invoker),
		resolver:  module.NewResolver(cfg.fs, cfg.workDir),
		logger:    cfg.logger,
		scriptLog: cfg.logger.WithPrefix("script"),
		threads:   make(map[uint64]struct{}),
	}
	e.logger.Debug("engine initialized", "language", cfg.language, "work_dir", e.resolver.WorkDir(), "cache_capacity", cfg.cacheCapacity)
	return e, nil
}

// NewThread returns a context for one worker. The thread's environment is
// built on its first Acquire. Every thread must be shut down before Close.
func (e *Engine) NewThread() *Thread {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextTid++
	t := &Thread{engine: e, id: e.nextTid}
	if e.closed {
		t.err = ErrEngineClosed
		return t
	}
	e.threads[t.id] = struct{}{}
	return t
}

// Close releases the engine. It fails with ErrThreadsActive while any thread
// has not been shut down; closing twice is a no-op.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	if n := len(e.threads); n > 0 {
		return fmt.Errorf("%w: %d", ErrThreadsActive, n)
	}
	e.closed = true
	e.logger.Debug("engine closed")
	return nil
}

// ActiveThreads returns the number of threads not yet shut down.
func (e *Engine) ActiveThreads() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.threads)
}

// Resolver returns the module resolver shared by all environments.
func (e *Engine) Resolver() *module.Resolver {
	return e.resolver
}

// Logger returns the engine logger.
func (e *Engine) Logger() *log.Logger {
	return e.logger
}

func (e *Engine) buildEnvironment() (*Environment, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrEngineClosed
	}
	e.nextEnv++
	id := e.nextEnv
	e.mu.Unlock()

	env, err := newEnvironment(e, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEnvironmentConstruction, err)
	}
	return env, nil
}

func (e *Engine) release(t *Thread) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.threads, t.id)
}
