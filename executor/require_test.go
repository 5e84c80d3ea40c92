package executor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caffeineduck/scripthost/executor"
)

func writeFiles(t *testing.T, te *executor.TestEngine, files map[string]string) {
	t.Helper()
	for path, src := range files {
		require.NoError(t, te.WriteFile(path, src))
	}
}

func TestRequireExports(t *testing.T) {
	te := newTestEngine(t)
	writeFiles(t, te, map[string]string{"/app/m.js": `exports.x = 5;`})
	th := newThread(t, te)

	res := run(t, th, `require('./m').x`)
	require.Nil(t, res.Diagnostic)
	assert.EqualValues(t, 5, res.Value)
}

func TestRequireModuleExportsReplacement(t *testing.T) {
	te := newTestEngine(t)
	writeFiles(t, te, map[string]string{
		"/app/f.js": `module.exports = function (n) { return n * 3; };`,
	})
	th := newThread(t, te)

	res := run(t, th, `require('./f')(3)`)
	require.Nil(t, res.Diagnostic)
	assert.EqualValues(t, 9, res.Value)
}

func TestRequireResolvesRelativeToRequiringModule(t *testing.T) {
	te := newTestEngine(t)
	writeFiles(t, te, map[string]string{
		"/app/lib/a.js": `module.exports = require('./b');`,
		"/app/lib/b.js": `module.exports = "lib/b";`,
		"/app/b.js":     `module.exports = "root b";`,
	})
	th := newThread(t, te)

	res := run(t, th, `require('./lib/a')`)
	require.Nil(t, res.Diagnostic)
	assert.Equal(t, "lib/b", res.Value)
}

func TestRequireParentDirectory(t *testing.T) {
	te := newTestEngine(t)
	writeFiles(t, te, map[string]string{
		"/app/lib/deep/a.js": `module.exports = require('../util').name;`,
		"/app/lib/util.js":   `exports.name = "util";`,
	})
	th := newThread(t, te)

	res := run(t, th, `require('./lib/deep/a.js')`)
	require.Nil(t, res.Diagnostic)
	assert.Equal(t, "util", res.Value)
}

func TestRequireDirectoryIndex(t *testing.T) {
	te := newTestEngine(t)
	writeFiles(t, te, map[string]string{"/app/pkg/index.js": `exports.ok = true;`})
	th := newThread(t, te)

	res := run(t, th, `require('./pkg').ok`)
	require.Nil(t, res.Diagnostic)
	assert.Equal(t, true, res.Value)
}

func TestRequireNodeModulesAscent(t *testing.T) {
	te, err := executor.NewTestEngine("/app/sub/deep")
	require.NoError(t, err)
	writeFiles(t, te, map[string]string{
		"/app/node_modules/pkg.js":        `exports.from = "pkg.js";`,
		"/node_modules/other/index.js":    `exports.from = "other/index.js";`,
		"/app/sub/node_modules/near.js":   `exports.from = "near";`,
		"/app/node_modules/near/index.js": `exports.from = "far";`,
	})
	th := newThread(t, te)

	tests := []struct {
		specifier string
		want      string
	}{
		{"pkg", "pkg.js"},
		{"other", "other/index.js"},
		{"near", "near"},
	}
	for _, tt := range tests {
		t.Run(tt.specifier, func(t *testing.T) {
			res := run(t, th, `require('`+tt.specifier+`').from`)
			require.Nil(t, res.Diagnostic)
			assert.Equal(t, tt.want, res.Value)
		})
	}
}

func TestRequireWorkDirBeforePackages(t *testing.T) {
	te := newTestEngine(t)
	writeFiles(t, te, map[string]string{
		"/app/config.js":              `module.exports = "local";`,
		"/app/node_modules/config.js": `module.exports = "package";`,
	})
	th := newThread(t, te)

	res := run(t, th, `require('config')`)
	require.Nil(t, res.Diagnostic)
	assert.Equal(t, "local", res.Value)
}

func TestRequireNotFound(t *testing.T) {
	th := newThread(t, newTestEngine(t))

	res := run(t, th, `require('./missing')`)
	require.NotNil(t, res.Diagnostic)
	assert.Equal(t, executor.KindModuleNotFound, res.Diagnostic.Kind)
	assert.Contains(t, res.Diagnostic.Message, "ModuleNotFoundError")
	assert.Contains(t, res.Diagnostic.Message, "/app/missing.js")
}

func TestRequireErrorsAreCatchable(t *testing.T) {
	th := newThread(t, newTestEngine(t))

	res := run(t, th, `
var code;
try { require('nope'); } catch (e) { code = e.code; }
code`)
	require.Nil(t, res.Diagnostic)
	assert.Equal(t, "ModuleNotFoundError", res.Value)
}

func TestSiblingRequireAfterFailedNestedLoad(t *testing.T) {
	te := newTestEngine(t)
	writeFiles(t, te, map[string]string{
		"/app/lib/a.js": `require('./missing');`,
		"/app/lib/c.js": `module.exports = "lib/c";`,
		"/app/c.js":     `module.exports = "root c";`,
	})
	th := newThread(t, te)

	res := run(t, th, `
var failed = false;
try { require('./lib/a'); } catch (e) { failed = true; }
[failed, require('./c')]`)
	require.Nil(t, res.Diagnostic)
	assert.Equal(t, []any{true, "root c"}, res.Value)
}

func TestRequireThrowingModule(t *testing.T) {
	te := newTestEngine(t)
	writeFiles(t, te, map[string]string{
		"/app/bad.js": "var a = 1;\nthrow new Error('inner failure');",
	})
	th := newThread(t, te)

	res := run(t, th, `require('./bad')`)
	require.NotNil(t, res.Diagnostic)
	assert.Equal(t, executor.KindRuntime, res.Diagnostic.Kind)
	assert.Contains(t, res.Diagnostic.Message, "inner failure")
	assert.Contains(t, res.Diagnostic.Stack, "/app/bad.js:2")

	// the load stack unwound, so top-level relative lookups work again
	writeFiles(t, te, map[string]string{"/app/ok.js": `module.exports = 1;`})
	res = run(t, th, `require('./ok')`)
	require.Nil(t, res.Diagnostic)
	assert.EqualValues(t, 1, res.Value)
}

func TestRequireCompileError(t *testing.T) {
	te := newTestEngine(t)
	writeFiles(t, te, map[string]string{
		"/app/esm.js":    `import x from "y";`,
		"/app/broken.js": `var = ;`,
	})
	th := newThread(t, te)

	for _, spec := range []string{"./esm", "./broken"} {
		res := run(t, th, `require('`+spec+`')`)
		require.NotNil(t, res.Diagnostic, spec)
		assert.Equal(t, executor.KindCompile, res.Diagnostic.Kind, spec)
		assert.Contains(t, res.Diagnostic.Message, "CompileError", spec)
	}
}

func TestRequireCycle(t *testing.T) {
	te := newTestEngine(t)
	writeFiles(t, te, map[string]string{
		"/app/a.js": `require('./b');`,
		"/app/b.js": `require('./a');`,
	})
	th := newThread(t, te)

	res := run(t, th, `require('./a')`)
	require.NotNil(t, res.Diagnostic)
	assert.Contains(t, res.Diagnostic.Message, "require cycle detected: /app/a.js -> /app/b.js -> /app/a.js")
	assert.Contains(t, res.Diagnostic.Message, "RequireCycleError")
}

func TestModuleScopeIsolation(t *testing.T) {
	te := newTestEngine(t)
	writeFiles(t, te, map[string]string{
		"/app/m.js": `var secret = 1; host.extra = true; module.exports = [__filename, __dirname];`,
	})
	th := newThread(t, te)

	res := run(t, th, `var paths = require('./m'); [typeof secret, host.extra === undefined, paths[0], paths[1]]`)
	require.Nil(t, res.Diagnostic)
	assert.Equal(t, []any{"undefined", true, "/app/m.js", "/app"}, res.Value)
}

func TestModuleImplicitGlobalsStayInModule(t *testing.T) {
	te := newTestEngine(t)
	writeFiles(t, te, map[string]string{
		"/app/m.js": `leaked = 42; this.viaThis = 1; exports.read = function() { return leaked; };`,
	})
	th := newThread(t, te)

	res := run(t, th, `var m = require('./m'); [typeof leaked, typeof viaThis, m.read(), m.viaThis]`)
	require.Nil(t, res.Diagnostic)
	assert.Equal(t, []any{"undefined", "undefined", int64(42), int64(1)}, res.Value)

	res = run(t, th, `typeof leaked`)
	require.Nil(t, res.Diagnostic)
	assert.Equal(t, "undefined", res.Value)
}

func TestModulesDoNotShareImplicitGlobals(t *testing.T) {
	te := newTestEngine(t)
	writeFiles(t, te, map[string]string{
		"/app/a.js": `shared = 'a'; module.exports = require('./b');`,
		"/app/b.js": `module.exports = typeof shared;`,
	})
	th := newThread(t, te)

	res := run(t, th, `require('./a')`)
	require.Nil(t, res.Diagnostic)
	assert.Equal(t, "undefined", res.Value)
}

func TestModuleReadsGlobals(t *testing.T) {
	te := newTestEngine(t)
	writeFiles(t, te, map[string]string{
		"/app/m.js": `module.exports = [greeting, Math.max(1, 2), typeof notDefinedAnywhere];`,
	})
	th := newThread(t, te)

	res := run(t, th, `var greeting = 'hi'; require('./m')`)
	require.Nil(t, res.Diagnostic)
	assert.Equal(t, []any{"hi", int64(2), "undefined"}, res.Value)
}

func TestModuleErrorOnFirstLine(t *testing.T) {
	te := newTestEngine(t)
	writeFiles(t, te, map[string]string{
		"/app/first.js": "throw new Error('first line');",
	})
	th := newThread(t, te)

	res := run(t, th, `require('./first')`)
	require.NotNil(t, res.Diagnostic)
	assert.Contains(t, res.Diagnostic.Stack, "/app/first.js:1:")
}

func TestTopLevelRelativeRequireFindsPackage(t *testing.T) {
	te := newTestEngine(t)
	writeFiles(t, te, map[string]string{
		"/node_modules/util.js": `exports.name = 'util';`,
	})
	th := newThread(t, te)

	res := run(t, th, `require('./util').name`)
	require.Nil(t, res.Diagnostic)
	assert.Equal(t, "util", res.Value)
}

func TestModulesAreEvaluatedPerRequire(t *testing.T) {
	te := newTestEngine(t)
	writeFiles(t, te, map[string]string{
		"/app/count.js": `host.invoke("INCR", "loads");`,
	})
	th := newThread(t, te)

	res := run(t, th, `require('./count'); require('./count'); host.invoke("GET", "loads")`)
	require.Nil(t, res.Diagnostic)
	assert.Equal(t, "2", res.Value)
}

func TestRequireArity(t *testing.T) {
	th := newThread(t, newTestEngine(t))

	res := run(t, th, `require()`)
	require.NotNil(t, res.Diagnostic)
	assert.Contains(t, res.Diagnostic.Message, "TypeError")

	res = run(t, th, `require('a', 'b')`)
	require.NotNil(t, res.Diagnostic)
	assert.Contains(t, res.Diagnostic.Message, "exactly one argument")
}

func TestTopLevelModuleBindings(t *testing.T) {
	th := newThread(t, newTestEngine(t))

	res := run(t, th, `[typeof require, typeof module.exports, exports === module.exports]`)
	require.Nil(t, res.Diagnostic)
	assert.Equal(t, []any{"function", "object", true}, res.Value)
}
