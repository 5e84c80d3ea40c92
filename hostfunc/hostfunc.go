package hostfunc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrNoCommand      = errors.New("no command given")
	ErrUnknownCommand = errors.New("unknown command")
	ErrWrongArity     = errors.New("wrong number of arguments")
)

// Invoker is the host's command-execution path. Scripts reach it through
// invoke(); args[0] names the command.
type Invoker interface {
	Invoke(ctx context.Context, args []string) (any, error)
}

// InvokerFunc adapts a plain function to Invoker.
type InvokerFunc func(ctx context.Context, args []string) (any, error)

func (f InvokerFunc) Invoke(ctx context.Context, args []string) (any, error) {
	return f(ctx, args)
}

// Func implements one command. args excludes the command name.
type Func func(ctx context.Context, args []string) (any, error)

// Registry dispatches commands by case-insensitive name.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	r.funcs[strings.ToUpper(name)] = fn
	r.mu.Unlock()
}

func (r *Registry) Get(name string) (Func, bool) {
	r.mu.RLock()
	fn, ok := r.funcs[strings.ToUpper(name)]
	r.mu.RUnlock()
	return fn, ok
}

// List returns the registered command names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke runs the command named by args[0] with the remaining arguments.
func (r *Registry) Invoke(ctx context.Context, args []string) (any, error) {
	if len(args) == 0 {
		return nil, ErrNoCommand
	}
	fn, ok := r.Get(args[0])
	if !ok {
		return nil, fmt.Errorf("%w '%s'", ErrUnknownCommand, args[0])
	}
	return fn(ctx, args[1:])
}

func arity(name string, args []string, min, max int) error {
	if len(args) < min || (max >= 0 && len(args) > max) {
		return fmt.Errorf("%w for '%s' command", ErrWrongArity, strings.ToLower(name))
	}
	return nil
}
