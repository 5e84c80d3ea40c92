package executor

import (
	"context"
	"sync/atomic"

	"github.com/dop251/goja"
)

// Thread is the per-worker context. It owns at most one Environment, built on
// first use. A Thread must be driven by a single goroutine; only Interrupt may
// be called from elsewhere.
type Thread struct {
	engine *Engine
	id     uint64
	env    *Environment
	err    error
	closed bool

	rt atomic.Pointer[goja.Runtime]
}

// ID identifies the thread within its engine.
func (t *Thread) ID() uint64 {
	return t.id
}

// Acquire returns the thread's environment, constructing it on the first call.
// A construction failure wraps ErrEnvironmentConstruction and is returned by
// every later call without retrying.
func (t *Thread) Acquire() (*Environment, error) {
	if t.closed {
		return nil, ErrThreadClosed
	}
	if t.err != nil {
		return nil, t.err
	}
	if t.env != nil {
		return t.env, nil
	}

	env, err := t.engine.buildEnvironment()
	if err != nil {
		t.err = err
		t.engine.logger.Error("environment construction failed", "thread", t.id, "err", err)
		return nil, err
	}
	t.env = env
	t.rt.Store(env.rt)
	return env, nil
}

// Run executes src in the thread's environment. The error is non-nil only when
// no environment is available; script faults are reported in Result.
func (t *Thread) Run(src []byte) (Result, error) {
	return t.RunContext(context.Background(), src)
}

// RunContext is Run with a context passed to host invocations. Cancelling ctx
// interrupts the script.
func (t *Thread) RunContext(ctx context.Context, src []byte) (Result, error) {
	env, err := t.Acquire()
	if err != nil {
		return Result{}, err
	}
	return env.RunCached(ctx, src), nil
}

// Interrupt stops the script currently running on this thread; the run
// reports a KindInterrupted Diagnostic. It is safe to call from any goroutine
// and does nothing when no environment exists yet. An interrupt that arrives
// while no script is running is discarded when the next run starts.
func (t *Thread) Interrupt(reason any) {
	if rt := t.rt.Load(); rt != nil {
		rt.Interrupt(reason)
	}
}

// CacheStats returns the environment's cache counters, or zero values when
// the environment has not been built.
func (t *Thread) CacheStats() CacheStats {
	if t.env == nil {
		return CacheStats{}
	}
	return t.env.CacheStats()
}

// Shutdown releases the thread's environment. Calling it again returns
// ErrThreadClosed.
func (t *Thread) Shutdown() error {
	if t.closed {
		return ErrThreadClosed
	}
	t.closed = true
	if t.env != nil {
		t.engine.logger.Debug("environment released", "thread", t.id, "env", t.env.id)
	}
	t.rt.Store(nil)
	t.env = nil
	t.engine.release(t)
	return nil
}
