// Package hostfunc provides the host side of the script call bridge.
//
// Scripts affect host state through a single channel: invoke(args...),
// which the executor forwards to an [Invoker]. args[0] names the command
// and the remaining strings are its arguments.
//
// # Registry
//
// [Registry] is the standard Invoker. It dispatches by case-insensitive
// command name:
//
//	registry := hostfunc.NewRegistry()
//	registry.Register("greet", func(ctx context.Context, args []string) (any, error) {
//	    return "hello " + args[0], nil
//	})
//
// A command returns any value the script engine can convert (string,
// int64, []string, nil, maps) or an error, which surfaces in the script as
// a thrown HostInvocationError.
//
// # Store
//
// [Store] is an in-memory keyspace with PING, ECHO, GET, SET, DEL, EXISTS,
// INCR and KEYS commands:
//
//	store := hostfunc.NewStore()
//	store.Register(registry)
//
// It backs the CLI and the tests; an embedding server registers its own
// command table instead.
package hostfunc
