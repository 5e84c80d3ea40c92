// Package scripthost runs JavaScript command handlers inside a key-value
// data-store server.
//
// # Overview
//
// Each server worker owns one script environment: a JavaScript runtime with
// the host bridge installed, a require() loader, and a small cache of compiled
// scripts keyed by the SHA-256 of their source. Sending the same handler
// again skips compilation.
//
// # Basic Usage
//
//	registry := hostfunc.NewRegistry()
//	hostfunc.NewStore().Register(registry)
//
//	engine, _ := executor.New(registry, executor.WithWorkDir("/srv/scripts"))
//	defer engine.Close()
//
//	thread := engine.NewThread()
//	defer thread.Shutdown()
//
//	result, _ := thread.Run([]byte(`host.invoke("INCR", "hits")`))
//	fmt.Println(result.Value) // 1
//
// For concurrent callers, [worker.Pool] pins one thread to each worker
// goroutine and dispatches submitted scripts to them.
//
// # Script Capabilities
//
//	host.log("text")              // write to the server log
//	host.invoke("SET", "k", "v")  // run a store command
//	keydb.call / redis.call       // aliases of host.invoke
//	require("./lib")              // load a CommonJS module
//
// See the [executor], [hostfunc], [module], [worker], and
// [language/javascript] packages for detailed API documentation.
package scripthost
