package worker_test

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caffeineduck/scripthost/executor"
	"github.com/caffeineduck/scripthost/worker"
)

func newPool(t *testing.T, size int, opts ...executor.EngineOption) (*worker.Pool, *executor.TestEngine) {
	t.Helper()
	te, err := executor.NewTestEngine("/app", opts...)
	require.NoError(t, err)
	p, err := worker.New(te.Engine, size)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = p.Close()
		_ = te.Close()
	})
	return p, te
}

func TestPoolSubmit(t *testing.T) {
	p, _ := newPool(t, 2)

	res, err := p.Submit(context.Background(), []byte(`6 * 7`))
	require.NoError(t, err)
	require.Nil(t, res.Diagnostic)
	assert.EqualValues(t, 42, res.Value)
}

func TestPoolConcurrentSubmit(t *testing.T) {
	p, te := newPool(t, 4)

	const jobs = 40
	var wg sync.WaitGroup
	errs := make(chan error, jobs)
	for i := 0; i < jobs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := p.Submit(context.Background(), []byte(fmt.Sprintf(`host.invoke("INCR", "hits"); %d`, i)))
			if err != nil {
				errs <- err
				return
			}
			if res.Diagnostic != nil {
				errs <- res.Diagnostic
				return
			}
			if v, ok := res.Value.(int64); !ok || v != int64(i) {
				errs <- fmt.Errorf("job %d: got %v", i, res.Value)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	got, err := te.Store.Get(context.Background(), []string{"hits"})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprint(jobs), got)

	stats := p.Stats()
	assert.Equal(t, 4, stats.Workers)
	assert.EqualValues(t, jobs, stats.Runs)
	assert.EqualValues(t, 0, stats.Faults)
	assert.EqualValues(t, jobs, stats.Cache.Compiles)
	assert.Equal(t, 4*executor.DefaultCacheCapacity, stats.Cache.Capacity)
}

func TestPoolReportsFaults(t *testing.T) {
	p, _ := newPool(t, 1)

	res, err := p.Submit(context.Background(), []byte(`throw new Error("boom")`))
	require.NoError(t, err)
	require.NotNil(t, res.Diagnostic)
	assert.Contains(t, res.Diagnostic.Message, "boom")
	assert.EqualValues(t, 1, p.Stats().Faults)
}

func TestPoolWorkersOwnTheirEnvironment(t *testing.T) {
	p, _ := newPool(t, 1)

	_, err := p.Submit(context.Background(), []byte(`var seen = 1;`))
	require.NoError(t, err)
	res, err := p.Submit(context.Background(), []byte(`++seen`))
	require.NoError(t, err)
	require.Nil(t, res.Diagnostic)
	assert.EqualValues(t, 2, res.Value)
}

func TestPoolSubmitTimeout(t *testing.T) {
	p, _ := newPool(t, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	res, err := p.Submit(ctx, []byte(`for (;;) {}`))
	require.NoError(t, err)
	require.NotNil(t, res.Diagnostic)
	assert.Equal(t, executor.KindInterrupted, res.Diagnostic.Kind)

	res, err = p.Submit(context.Background(), []byte(`"next"`))
	require.NoError(t, err)
	assert.Equal(t, "next", res.Value)
}

func TestPoolSubmitCancelledBeforeDispatch(t *testing.T) {
	p, _ := newPool(t, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// the only worker is busy, so the cancelled job cannot be picked up
	busy := make(chan struct{})
	go func() {
		defer close(busy)
		long, stop := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer stop()
		_, _ = p.Submit(long, []byte(`for (;;) {}`))
	}()
	time.Sleep(20 * time.Millisecond)

	_, err := p.Submit(ctx, []byte(`1`))
	assert.ErrorIs(t, err, context.Canceled)
	<-busy
}

func TestPoolClose(t *testing.T) {
	te, err := executor.NewTestEngine("/app")
	require.NoError(t, err)
	p, err := worker.New(te.Engine, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, te.ActiveThreads())

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 0, te.ActiveThreads())
	assert.NoError(t, te.Close())

	_, err = p.Submit(context.Background(), []byte(`1`))
	assert.ErrorIs(t, err, worker.ErrPoolClosed)
}

func TestPoolConstructionFailure(t *testing.T) {
	te, err := executor.NewTestEngine("/app", executor.WithPrelude(`throw new Error("broken prelude")`))
	require.NoError(t, err)

	_, err = worker.New(te.Engine, 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, executor.ErrEnvironmentConstruction)
	assert.Equal(t, 0, te.ActiveThreads())
	assert.NoError(t, te.Close())
}

func TestPoolInvalidSize(t *testing.T) {
	te, err := executor.NewTestEngine("/app")
	require.NoError(t, err)
	_, err = worker.New(te.Engine, 0)
	assert.Error(t, err)
}

func TestPoolLogsWorkerIdentity(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})
	newPool(t, 1, executor.WithLogger(logger))

	out := buf.String()
	assert.Contains(t, out, "worker ready")
	assert.Contains(t, out, "thread=")
	assert.Contains(t, out, "env=")
}
