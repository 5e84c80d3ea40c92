// Package worker runs scripts on a fixed set of executor threads, each owned
// by one goroutine locked to its OS thread.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/caffeineduck/scripthost/executor"
)

var ErrPoolClosed = errors.New("worker pool closed")

// Stats aggregates counters over all workers.
type Stats struct {
	Workers int                 `json:"workers"`
	Runs    uint64              `json:"runs"`
	Faults  uint64              `json:"faults"`
	Cache   executor.CacheStats `json:"cache"`
}

type job struct {
	ctx   context.Context
	src   []byte
	reply chan outcome
}

type outcome struct {
	result executor.Result
	err    error
}

// Pool dispatches submitted scripts to its workers.
type Pool struct {
	engine *executor.Engine
	size   int
	jobs   chan job
	group  *errgroup.Group
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool

	statsMu sync.Mutex
	runs    uint64
	faults  uint64
	cache   []executor.CacheStats
}

// New starts size workers on engine and waits until every worker has built
// its environment. The first construction failure is returned and the pool
// is torn down.
func New(engine *executor.Engine, size int) (*Pool, error) {
	if size < 1 {
		return nil, fmt.Errorf("invalid pool size %d: must be at least 1", size)
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)
	p := &Pool{
		engine: engine,
		size:   size,
		jobs:   make(chan job),
		group:  group,
		cancel: cancel,
		cache:  make([]executor.CacheStats, size),
	}

	ready := make(chan error, size)
	for i := 0; i < size; i++ {
		id := i
		group.Go(func() error {
			return p.work(gctx, id, ready)
		})
	}

	var startErr error
	for i := 0; i < size; i++ {
		if err := <-ready; err != nil && startErr == nil {
			startErr = err
		}
	}
	if startErr != nil {
		_ = p.Close()
		return nil, startErr
	}
	engine.Logger().Debug("worker pool started", "workers", size)
	return p, nil
}

func (p *Pool) work(ctx context.Context, id int, ready chan<- error) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	th := p.engine.NewThread()
	defer th.Shutdown()

	env, err := th.Acquire()
	if err != nil {
		ready <- fmt.Errorf("worker %d: %w", id, err)
		return err
	}
	p.engine.Logger().Debug("worker ready", "worker", id, "thread", th.ID(), "env", env.ID())
	p.statsMu.Lock()
	p.cache[id] = th.CacheStats()
	p.statsMu.Unlock()
	ready <- nil

	for {
		select {
		case <-ctx.Done():
			return nil
		case j, ok := <-p.jobs:
			if !ok {
				return nil
			}
			res, err := th.RunContext(j.ctx, j.src)
			p.record(id, res, th.CacheStats())
			j.reply <- outcome{result: res, err: err}
		}
	}
}

func (p *Pool) record(id int, res executor.Result, cache executor.CacheStats) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	p.runs++
	if res.Diagnostic != nil {
		p.faults++
	}
	p.cache[id] = cache
}

// Submit runs src on the next free worker and waits for its result.
// Cancelling ctx before a worker picks the job up abandons it; once running,
// cancellation interrupts the script.
func (p *Pool) Submit(ctx context.Context, src []byte) (executor.Result, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return executor.Result{}, ErrPoolClosed
	}

	j := job{ctx: ctx, src: src, reply: make(chan outcome, 1)}
	select {
	case p.jobs <- j:
	case <-ctx.Done():
		return executor.Result{}, ctx.Err()
	}
	out := <-j.reply
	return out.result, out.err
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.size
}

// Stats returns counters accumulated since the pool started.
func (p *Pool) Stats() Stats {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	s := Stats{Workers: p.size, Runs: p.runs, Faults: p.faults}
	for _, c := range p.cache {
		s.Cache.Add(c)
	}
	return s
}

// Close stops accepting jobs, waits for in-flight jobs and shuts every
// worker thread down.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	err := p.group.Wait()
	p.cancel()
	return err
}
