package executor

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dop251/goja"

	"github.com/caffeineduck/scripthost/hostfunc"
	"github.com/caffeineduck/scripthost/module"
)

// Unprintable is logged in place of a value whose string conversion throws.
const Unprintable = "<unprintable value>"

// InvocationError is raised into a script when the host rejects an invoke call.
type InvocationError struct {
	Args []string
	Err  error
}

func (e *InvocationError) Error() string {
	if len(e.Args) == 0 {
		return fmt.Sprintf("host invocation failed: %v", e.Err)
	}
	return fmt.Sprintf("host invocation %s failed: %v", e.Args[0], e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// Template is the fixed set of bindings every scope is stamped from: the host
// bridge objects plus the module plumbing.
type Template struct {
	invoker hostfunc.Invoker
}

func newTemplate(invoker hostfunc.Invoker) *Template {
	return &Template{invoker: invoker}
}

// Scope holds the bindings of one top-level script context or module.
type Scope struct {
	Host     *goja.Object
	KeyDB    *goja.Object
	Module   *goja.Object
	Exports  *goja.Object
	Filename string
}

// wrapperParams is the parameter list of the function each module body is
// compiled into. Scope.args returns values in the same order.
const wrapperParams = "exports, require, module, __filename, __dirname, host, keydb, redis"

// stamp builds a fresh scope for env. filename is empty for the default context.
func (t *Template) stamp(env *Environment, filename string) *Scope {
	rt := env.rt
	s := &Scope{
		Host:     t.bridge(env, "invoke"),
		KeyDB:    t.bridge(env, "call"),
		Module:   rt.NewObject(),
		Exports:  rt.NewObject(),
		Filename: filename,
	}
	_ = s.Module.Set("exports", s.Exports)
	if filename != "" {
		_ = s.Module.Set("id", filename)
		_ = s.Module.Set("filename", filename)
	}
	return s
}

func (t *Template) bridge(env *Environment, invokeName string) *goja.Object {
	o := env.rt.NewObject()
	_ = o.Set("log", env.hostLog)
	_ = o.Set(invokeName, env.hostInvoke)
	return o
}

func (s *Scope) dirname() string {
	if s.Filename == "" {
		return ""
	}
	return filepath.Dir(s.Filename)
}

func (s *Scope) args(rt *goja.Runtime, require goja.Value) []goja.Value {
	return []goja.Value{
		s.Exports,
		require,
		s.Module,
		rt.ToValue(s.Filename),
		rt.ToValue(s.dirname()),
		s.Host,
		s.KeyDB,
		s.KeyDB,
	}
}

// install binds the scope as the runtime's global bindings.
func (s *Scope) install(rt *goja.Runtime, require goja.Value) error {
	bindings := []struct {
		name  string
		value any
	}{
		{"host", s.Host},
		{"keydb", s.KeyDB},
		{"redis", s.KeyDB},
		{"require", require},
		{"module", s.Module},
		{"exports", s.Exports},
	}
	for _, b := range bindings {
		if err := rt.Set(b.name, b.value); err != nil {
			return fmt.Errorf("bind %s: %w", b.name, err)
		}
	}
	return nil
}

// hostLog writes its arguments, space separated, to the script logger.
func (env *Environment) hostLog(call goja.FunctionCall) goja.Value {
	if len(call.Arguments) == 0 {
		return goja.Undefined()
	}
	parts := make([]string, len(call.Arguments))
	for i, arg := range call.Arguments {
		parts[i] = env.stringify(arg)
	}
	env.scriptLog.Info(strings.Join(parts, " "))
	return goja.Undefined()
}

func (env *Environment) hostInvoke(call goja.FunctionCall) goja.Value {
	args := make([]string, len(call.Arguments))
	for i, arg := range call.Arguments {
		args[i] = env.stringify(arg)
	}
	res, err := env.template.invoker.Invoke(env.context(), args)
	if err != nil {
		panic(env.throwable(&InvocationError{Args: args, Err: err}))
	}
	return env.rt.ToValue(res)
}

// stringify converts v without letting a throwing toString escape.
func (env *Environment) stringify(v goja.Value) string {
	if v == nil {
		return "undefined"
	}
	s, ok := env.tryString(v)
	if !ok {
		return Unprintable
	}
	return s
}

func (env *Environment) tryString(v goja.Value) (s string, ok bool) {
	if ex := env.rt.Try(func() { s = v.String() }); ex != nil {
		return "", false
	}
	return s, true
}

// throwable converts a host-side error into an Error object carrying err, with
// name and code naming its kind.
func (env *Environment) throwable(err error) *goja.Object {
	obj := env.rt.NewGoError(err)
	name := errorName(err)
	_ = obj.Set("name", name)
	_ = obj.Set("code", name)
	return obj
}

func errorName(err error) string {
	var invocation *InvocationError
	switch {
	case isCompileError(err):
		return "CompileError"
	case errors.Is(err, module.ErrNotFound):
		return "ModuleNotFoundError"
	case errors.Is(err, module.ErrRead):
		return "FileReadError"
	case errors.Is(err, module.ErrCycle):
		return "RequireCycleError"
	case errors.As(err, &invocation):
		return "HostInvocationError"
	}
	return "Error"
}
