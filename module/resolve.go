package module

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// Filesystem conventions for modules. They are fixed, not configurable.
const (
	Extension    = ".js"
	PackageDir   = "node_modules"
	DefaultEntry = "index.js"
)

// Resolver maps require() specifiers to module files.
type Resolver struct {
	fs      afero.Fs
	workDir string
}

// NewResolver returns a Resolver that searches fs, treating workDir as the
// process working directory.
func NewResolver(fs afero.Fs, workDir string) *Resolver {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if abs, err := filepath.Abs(workDir); err == nil {
		workDir = abs
	}
	return &Resolver{fs: fs, workDir: filepath.Clean(workDir)}
}

// WorkDir returns the directory bare specifiers are searched from.
func (r *Resolver) WorkDir() string {
	return r.workDir
}

// Fs returns the filesystem modules are read from.
func (r *Resolver) Fs() afero.Fs {
	return r.fs
}

// IsRelative reports whether specifier is written relative to the requiring
// module ("./x", "../x", "." or "..").
func IsRelative(specifier string) bool {
	s := filepath.ToSlash(specifier)
	return s == "." || s == ".." || strings.HasPrefix(s, "./") || strings.HasPrefix(s, "../")
}

// Resolve returns the path of the file specifier refers to. parent is the
// path of the module currently loading, or "" when the caller is top-level
// script code.
func (r *Resolver) Resolve(specifier, parent string) (string, error) {
	if specifier == "" || strings.ContainsRune(specifier, 0) {
		return "", &NotFoundError{Specifier: specifier}
	}

	c := candidates{fs: r.fs}
	switch {
	case filepath.IsAbs(specifier):
		if p, ok := c.first(fileCandidates(specifier)...); ok {
			return p, nil
		}
	case IsRelative(specifier) && parent != "":
		if p, ok := c.first(fileCandidates(filepath.Join(filepath.Dir(parent), specifier))...); ok {
			return p, nil
		}
	case IsRelative(specifier):
		// No enclosing module: the working directory, then node_modules.
		if p, ok := c.first(fileCandidates(filepath.Join(r.workDir, specifier))...); ok {
			return p, nil
		}
		if name := filepath.Clean(specifier); name != "." && !escapes(name) {
			if p, ok := r.searchAscent(name, &c); ok {
				return p, nil
			}
		}
	default:
		if escapes(specifier) {
			return "", &NotFoundError{Specifier: specifier}
		}
		if p, ok := r.searchPackages(specifier, &c); ok {
			return p, nil
		}
	}
	return "", &NotFoundError{Specifier: specifier, Tried: c.tried}
}

// searchPackages looks for a bare specifier in the working directory and
// then in node_modules of the working directory and each of its parents.
func (r *Resolver) searchPackages(specifier string, c *candidates) (string, bool) {
	local := filepath.Join(r.workDir, specifier)
	if p, ok := c.first(local, local+Extension); ok {
		return p, true
	}

	return r.searchAscent(specifier, c)
}

// searchAscent tries node_modules/<specifier>.js and
// node_modules/<specifier>/index.js from the working directory up to the root.
func (r *Resolver) searchAscent(specifier string, c *candidates) (string, bool) {
	for _, dir := range ascend(r.workDir) {
		pkg := filepath.Join(dir, PackageDir, specifier)
		if p, ok := c.first(pkg+Extension, filepath.Join(pkg, DefaultEntry)); ok {
			return p, true
		}
	}
	return "", false
}

// Package is a module reachable through node_modules lookup.
type Package struct {
	Name string
	Path string
}

// Packages lists the packages a bare require() can reach from the working
// directory. Nearer node_modules directories shadow farther ones.
func (r *Resolver) Packages() ([]Package, error) {
	seen := make(map[string]bool)
	var pkgs []Package
	for _, dir := range ascend(r.workDir) {
		nm := filepath.Join(dir, PackageDir)
		entries, err := afero.ReadDir(r.fs, nm)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		for _, entry := range entries {
			name, path := entry.Name(), ""
			switch {
			case entry.IsDir():
				entryFile := filepath.Join(nm, name, DefaultEntry)
				if isFile(r.fs, entryFile) {
					path = entryFile
				}
			case entry.Mode().IsRegular() && filepath.Ext(name) == Extension:
				name = strings.TrimSuffix(name, Extension)
				path = filepath.Join(nm, entry.Name())
			}
			if path == "" || seen[name] {
				continue
			}
			seen[name] = true
			pkgs = append(pkgs, Package{Name: name, Path: path})
		}
	}
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Name < pkgs[j].Name })
	return pkgs, nil
}

type candidates struct {
	fs    afero.Fs
	tried []string
}

func (c *candidates) first(paths ...string) (string, bool) {
	for _, p := range paths {
		p = filepath.Clean(p)
		c.tried = append(c.tried, p)
		if isFile(c.fs, p) {
			return p, true
		}
	}
	return "", false
}

func fileCandidates(path string) []string {
	return []string{path, path + Extension, filepath.Join(path, DefaultEntry)}
}

func isFile(fs afero.Fs, path string) bool {
	info, err := fs.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// ascend returns dir followed by each of its parents, ending at the root.
func ascend(dir string) []string {
	dirs := []string{dir}
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			return dirs
		}
		dirs = append(dirs, parent)
		dir = parent
	}
}

// escapes reports whether a bare specifier climbs out of the directory it
// is joined to.
func escapes(specifier string) bool {
	for _, part := range strings.Split(filepath.ToSlash(specifier), "/") {
		if part == ".." {
			return true
		}
	}
	return false
}
