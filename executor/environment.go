package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dop251/goja"

	"github.com/caffeineduck/scripthost/module"
)

// Environment is one worker's script engine instance: a runtime, the scope
// installed on its global object, its hot-script cache and its module load
// stack. It must only be used from the goroutine driving its Thread.
type Environment struct {
	id        uint64
	rt        *goja.Runtime
	template  *Template
	scope     *Scope
	requireFn goja.Value
	cache     *scriptCache
	resolver  *module.Resolver
	stack     module.Stack
	logger    *log.Logger
	scriptLog *log.Logger

	ctx context.Context
}

func newEnvironment(e *Engine, id uint64) (*Environment, error) {
	logger := e.logger.With("env", id)
	cache, err := newScriptCache(e.cfg.cacheCapacity, logger)
	if err != nil {
		return nil, err
	}

	env := &Environment{
		id:        id,
		rt:        goja.New(),
		template:  e.template,
		cache:     cache,
		resolver:  e.resolver,
		logger:    logger,
		scriptLog: e.scriptLog,
	}
	env.requireFn = env.rt.ToValue(env.require)
	env.scope = env.template.stamp(env, "")
	if err := env.scope.install(env.rt, env.requireFn); err != nil {
		return nil, err
	}

	if e.cfg.prelude != "" {
		if _, err := env.rt.RunScript(preludeName, e.cfg.prelude); err != nil {
			return nil, fmt.Errorf("run prelude: %w", env.format(err))
		}
	}
	logger.Debug("environment ready", "cache_capacity", e.cfg.cacheCapacity)
	return env, nil
}

const preludeName = "prelude.js"

// ID identifies the environment within its engine.
func (env *Environment) ID() uint64 {
	return env.id
}

// RunCached runs src in the default scope, reusing the compiled program when
// the same bytes were run recently. Faults are returned as the Diagnostic.
func (env *Environment) RunCached(ctx context.Context, src []byte) Result {
	start := time.Now()
	env.ctx = ctx
	env.rt.ClearInterrupt()
	defer func() {
		env.ctx = nil
		env.rt.ClearInterrupt()
	}()

	if ctx.Done() != nil {
		fired := make(chan struct{})
		stop := context.AfterFunc(ctx, func() {
			defer close(fired)
			env.rt.Interrupt(context.Cause(ctx))
		})
		// A callback already under way must land before the interrupt is cleared.
		defer func() {
			if !stop() {
				<-fired
			}
		}()
	}

	prog, err := env.cache.program(src)
	if err != nil {
		return Result{Diagnostic: env.format(err), Duration: time.Since(start)}
	}

	v, err := env.rt.RunProgram(prog)
	if err != nil {
		return Result{Diagnostic: env.format(err), Duration: time.Since(start)}
	}
	return Result{Value: env.export(v), Duration: time.Since(start)}
}

// CacheStats returns the environment's hot-script cache counters.
func (env *Environment) CacheStats() CacheStats {
	return env.cache.snapshot()
}

// Cached reports whether src is currently held in the hot-script cache.
func (env *Environment) Cached(src []byte) bool {
	return env.cache.contains(src)
}

func (env *Environment) context() context.Context {
	if env.ctx == nil {
		return context.Background()
	}
	return env.ctx
}

// format is Format with string conversions guarded by the runtime.
func (env *Environment) format(err error) *Diagnostic {
	return format(err, env.tryString)
}

func (env *Environment) export(v goja.Value) (out any) {
	if v == nil || goja.IsUndefined(v) {
		return nil
	}
	if ex := env.rt.Try(func() { out = v.Export() }); ex != nil {
		return env.stringify(v)
	}
	return out
}
