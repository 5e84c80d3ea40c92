package executor

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/caffeineduck/scripthost/hostfunc"
)

// TestEngine bundles an engine built on an in-memory filesystem with the
// store behind its invoker, for tests of packages that run scripts.
type TestEngine struct {
	*Engine
	FS    afero.Fs
	Store *hostfunc.Store
}

// NewTestEngine returns an engine rooted at workDir on a fresh MemMapFs, with
// a hostfunc.Store registered and logging discarded unless opts override it.
func NewTestEngine(workDir string, opts ...EngineOption) (*TestEngine, error) {
	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll(workDir, 0o755); err != nil {
		return nil, err
	}
	registry := hostfunc.NewRegistry()
	store := hostfunc.NewStore()
	store.Register(registry)

	base := []EngineOption{
		WithFS(fs),
		WithWorkDir(workDir),
		WithLogger(log.New(io.Discard)),
	}
	e, err := New(registry, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	return &TestEngine{Engine: e, FS: fs, Store: store}, nil
}

// WriteFile writes a module into the test filesystem, creating parents.
func (te *TestEngine) WriteFile(path, src string) error {
	return afero.WriteFile(te.FS, path, []byte(src), 0o644)
}
