package executor

import (
	"github.com/dop251/goja"
	"github.com/spf13/afero"

	"github.com/caffeineduck/scripthost/module"
)

// require resolves a specifier against the module being loaded (or the
// working directory at top level), evaluates it in a fresh scope and returns
// its module.exports. Every failure is thrown into the calling script.
func (env *Environment) require(call goja.FunctionCall) goja.Value {
	if len(call.Arguments) != 1 {
		panic(env.rt.NewTypeError("require expects exactly one argument, got %d", len(call.Arguments)))
	}
	specifier := env.stringify(call.Arguments[0])
	parent, _ := env.stack.Top()

	path, err := env.resolver.Resolve(specifier, parent)
	if err != nil {
		env.logger.Debug("module not found", "specifier", specifier, "parent", parent)
		panic(env.throwable(err))
	}
	return env.load(path)
}

func (env *Environment) load(path string) goja.Value {
	src, err := afero.ReadFile(env.resolver.Fs(), path)
	if err != nil {
		panic(env.throwable(&module.ReadError{Path: path, Err: err}))
	}

	pop, err := env.stack.Push(path)
	if err != nil {
		panic(env.throwable(err))
	}
	defer pop()

	prog, err := goja.Compile(path, wrapModule(src), false)
	if err != nil {
		panic(env.throwable(err))
	}
	fn, err := env.rt.RunProgram(prog)
	if err != nil {
		panic(err)
	}
	enter, ok := goja.AssertFunction(fn)
	if !ok {
		panic(env.rt.NewTypeError("module %s did not compile to a function", path))
	}
	inner, err := enter(goja.Undefined(), env.sandbox())
	if err != nil {
		panic(err)
	}
	body, ok := goja.AssertFunction(inner)
	if !ok {
		panic(env.rt.NewTypeError("module %s did not compile to a function", path))
	}

	scope := env.template.stamp(env, path)
	if _, err := body(scope.Exports, scope.args(env.rt, env.requireFn)...); err != nil {
		panic(err)
	}
	env.logger.Debug("loaded module", "path", path, "depth", env.stack.Len())
	return scope.Module.Get("exports")
}

// wrapModule turns a module body into a function that takes the module's
// sandbox and returns the CommonJS body bound inside it. The header shares the
// first line with the source, so line numbers in traces match the file but
// columns on line 1 are shifted by len(moduleHeader).
func wrapModule(src []byte) string {
	return moduleHeader + string(src) + moduleFooter
}

const (
	moduleHeader = "(function(sandbox) { with (sandbox) { return (function(" + wrapperParams + ") {"
	moduleFooter = "\n}); } })"
)

// sandbox returns the object a module's free identifiers resolve through.
// Reads fall back to the global object; writes land on a per-module object,
// so implicit globals assigned by a module stay inside it. Every name is
// claimed, so an undeclared name reads as undefined instead of throwing.
func (env *Environment) sandbox() *goja.Object {
	locals := env.rt.NewObject()
	_ = locals.SetPrototype(nil)
	global := env.rt.GlobalObject()

	proxy := env.rt.NewProxy(locals, &goja.ProxyTrapConfig{
		Has: func(*goja.Object, string) bool { return true },
		Get: func(target *goja.Object, name string, _ goja.Value) goja.Value {
			if v := target.Get(name); v != nil {
				return v
			}
			if v := global.Get(name); v != nil {
				return v
			}
			return goja.Undefined()
		},
		Set: func(target *goja.Object, name string, value goja.Value, _ goja.Value) bool {
			return target.Set(name, value) == nil
		},
	})
	return env.rt.ToValue(proxy).ToObject(env.rt)
}
