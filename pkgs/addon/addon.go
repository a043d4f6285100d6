// Package addon locates compiled native addon modules produced by a CMake
// build, searching the usual build-output layouts from a starting directory
// upward to the filesystem root.
package addon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/goplus/ncmake/internal/platform"
)

// Mode selects which build configuration is preferred.
type Mode int

const (
	Release Mode = iota
	Debug
)

func (m Mode) String() string {
	if m == Debug {
		return "debug"
	}
	return "release"
}

func (m Mode) opposite() Mode {
	if m == Debug {
		return Release
	}
	return Debug
}

// configs lists the configuration names that belong to m.
func (m Mode) configs() []string {
	if m == Debug {
		return []string{"Debug"}
	}
	return []string{"Release", "MinSizeRel", "RelWithDebInfo"}
}

// ErrNotFound is matched by every *NotFoundError.
var ErrNotFound = errors.New("native module not found")

// NotFoundError is returned when the search is exhausted.
type NotFoundError struct {
	Name  string
	Start string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("unable to find native module %q from %s", e.Name, e.Start)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Location is a resolved addon binary.
type Location struct {
	Path string
	Mode Mode
}

// Candidate is a relative path template checked at every directory level.
// Lower Priority is checked first.
type Candidate struct {
	Template string
	Priority int
}

// Template placeholders.
const (
	phPlatform = "{platform}"
	phArch     = "{arch}"
	phConfig   = "{config}"
	phName     = "{name}"
	phExt      = "{ext}"
)

// DefaultRoots are the output roots searched when Resolver.Roots is empty.
var DefaultRoots = []string{"build", "out"}

// Resolver searches for addon binaries.
type Resolver struct {
	Platform string
	Arch     string
	Ext      string
	Roots    []string
}

// NewResolver returns a Resolver for the host platform.
func NewResolver() *Resolver {
	p, a := platform.Host()
	return &Resolver{
		Platform: p,
		Arch:     string(a),
		Ext:      platform.AddonExt,
		Roots:    DefaultRoots,
	}
}

// Resolve finds name starting at dir using a host Resolver.
func Resolve(dir, name string, mode Mode) (Location, error) {
	return NewResolver().Resolve(dir, name, mode)
}

// ResolveFromCaller finds name starting at the directory of the source file
// that calls it.
func ResolveFromCaller(name string, mode Mode) (Location, error) {
	_, file, _, ok := runtime.Caller(1)
	if !ok {
		return Location{}, &NotFoundError{Name: name}
	}
	return Resolve(filepath.Dir(file), name, mode)
}

// Candidates returns the ordered search templates for mode.
func (r *Resolver) Candidates(mode Mode) []Candidate {
	roots := r.Roots
	if len(roots) == 0 {
		roots = DefaultRoots
	}
	var templates []string
	for _, root := range roots {
		if r.Platform != "" && r.Arch != "" {
			templates = append(templates, join(root, phPlatform, phArch, phConfig, phName+phExt))
		}
		templates = append(templates, join(root, phConfig, phName+phExt))
	}

	var out []Candidate
	add := func(t string) {
		out = append(out, Candidate{Template: t, Priority: len(out)})
	}
	for _, t := range templates {
		for _, cfg := range mode.configs() {
			add(strings.ReplaceAll(t, phConfig, cfg))
		}
	}
	// Single-config generators (Ninja, Makefiles) write straight into the
	// build directory.
	if r.Platform != "" && r.Arch != "" {
		for _, root := range roots {
			add(join(root, phPlatform, phArch, phName+phExt))
		}
	}
	// CLion style per-configuration output directories.
	add(join("cmake-build-"+strings.ToLower(mode.configs()[0]), phName+phExt))
	return out
}

// Resolve walks from dir up to the filesystem root. At each level the
// candidates for mode are checked before those of the opposite mode, and a
// level is exhausted before moving to its parent.
func (r *Resolver) Resolve(dir, name string, mode Mode) (Location, error) {
	notFound := &NotFoundError{Name: name, Start: dir}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Location{}, notFound
	}
	primary := r.paths(name, mode)
	fallback := r.paths(name, mode.opposite())

	root := filepath.VolumeName(abs) + string(filepath.Separator)
	for cur := abs; ; {
		for _, p := range primary {
			if path := filepath.Join(cur, p); exists(path) {
				return Location{Path: path, Mode: mode}, nil
			}
		}
		for _, p := range fallback {
			if path := filepath.Join(cur, p); exists(path) {
				return Location{Path: path, Mode: mode.opposite()}, nil
			}
		}
		parent := filepath.Dir(cur)
		if cur == root || parent == cur {
			break
		}
		cur = parent
	}
	return Location{}, notFound
}

func (r *Resolver) paths(name string, mode Mode) []string {
	ext := r.Ext
	if ext == "" {
		ext = platform.AddonExt
	}
	repl := strings.NewReplacer(
		phPlatform, r.Platform,
		phArch, r.Arch,
		phName, name,
		phExt, ext,
	)
	cands := r.Candidates(mode)
	paths := make([]string, len(cands))
	for i, c := range cands {
		paths[i] = filepath.FromSlash(repl.Replace(c.Template))
	}
	return paths
}

func join(elem ...string) string {
	return strings.Join(elem, "/")
}

func exists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}
