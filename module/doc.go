// Package module resolves require() specifiers to script files and tracks
// the stack of modules currently being loaded.
//
// # Resolution
//
// A [Resolver] maps a specifier to a file on an [afero.Fs]. The first
// matching candidate wins:
//
//  1. A relative specifier ("./x", "../x") issued while a module is loading
//     is resolved against the directory of that module. The candidates are
//     the path itself, the path with ".js" appended, and "<path>/index.js".
//  2. Otherwise the specifier is looked up from the working directory:
//     "<specifier>.js" first, then "node_modules/<specifier>.js" and
//     "node_modules/<specifier>/index.js" at the working directory and at
//     every parent up to the filesystem root. A relative specifier at top
//     level, with no module loading, first tries the rule 1 candidates
//     against the working directory and then the same node_modules ascent.
//
// Only regular files match. When nothing matches, Resolve returns a
// [*NotFoundError] listing every candidate it tried.
//
// # Load stack
//
// A [Stack] records the absolute paths of in-progress loads. [Stack.Push]
// returns the matching pop so callers can defer it:
//
//	pop, err := stack.Push(path)
//	if err != nil {
//	    return err // cycle
//	}
//	defer pop()
package module
