// Package executor runs JavaScript command handlers inside a data-store
// server, one engine instance per worker thread.
//
// # Overview
//
// An [Engine] is created once per process. Each worker asks it for a
// [Thread] and drives that thread from a single goroutine. The thread builds
// its [Environment] on first use: a fresh runtime with the host bridge,
// require and module bindings installed, followed by the language prelude.
//
// Scripts are compiled once per distinct source and kept in a small LRU keyed
// by the SHA-256 of the exact bytes, so a handler sent again is not recompiled.
//
// # Basic Usage
//
//	registry := hostfunc.NewRegistry()
//	hostfunc.NewStore().Register(registry)
//
//	engine, err := executor.New(registry)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Close()
//
//	thread := engine.NewThread()
//	defer thread.Shutdown()
//
//	result, err := thread.Run([]byte(`host.invoke("SET", "k", "v")`))
//	if err != nil {
//	    log.Fatal(err) // no environment could be built
//	}
//	if result.Diagnostic != nil {
//	    fmt.Println(result.Diagnostic) // message and stack trace
//	}
//
// # Script Capabilities
//
// Every scope sees the same fixed bindings:
//
//	host.log(value)        // write to the host log
//	host.invoke(cmd, ...)  // call a host command, arguments are stringified
//	keydb.call / redis.call // aliases of host.invoke, with log
//	require(specifier)     // load a module and return its module.exports
//
// # Modules
//
// Relative specifiers resolve against the requiring module's directory, or the
// working directory at top level. Other specifiers try the working directory
// and then node_modules directories up to the filesystem root. Each module
// body runs in its own function scope with fresh module and exports objects.
//
// # Errors
//
// A fault raised by a script never escapes as a panic. It is caught at the
// nearest boundary and returned as a [Diagnostic] in [Result]. The error
// returned next to Result is reserved for conditions where no script could
// run at all, such as [ErrEnvironmentConstruction] or [ErrThreadClosed].
package executor
