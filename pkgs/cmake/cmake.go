// Package cmake wraps the cmake configure/build/install workflow.
package cmake

import (
	"context"
	"io"
	"os"
	"sort"

	"github.com/qiniu/x/log"
)

type defineValue struct {
	value    string
	typeName string
}

// CMake drives CMake-based builds of a single source tree into a single
// build directory.
type CMake struct {
	program    string
	sourceDir  string
	buildDir   string
	generator  string
	toolset    string
	platform   string
	buildType  string
	nativeArgs []string
	defines    map[string]defineValue

	runner Runner
	stdout io.Writer
	stderr io.Writer
}

// New returns a ready-to-use CMake. An empty program means "cmake" from PATH.
func New(program, sourceDir, buildDir string) *CMake {
	if program == "" {
		program = "cmake"
	}
	return &CMake{
		program:   program,
		sourceDir: sourceDir,
		buildDir:  buildDir,
		defines:   make(map[string]defineValue),
		runner:    ExecRunner{},
		stdout:    os.Stdout,
		stderr:    os.Stderr,
	}
}

// Program overrides the cmake executable (e.g. an environment wrapper script).
func (c *CMake) Program(path string) { c.program = path }

// Generator sets the CMake generator (e.g. "Ninja", "Xcode").
func (c *CMake) Generator(name string) { c.generator = name }

// Toolset sets the generator toolset (-T).
func (c *CMake) Toolset(name string) { c.toolset = name }

// Platform sets the generator platform (-A).
func (c *CMake) Platform(name string) { c.platform = name }

// BuildType sets CMAKE_BUILD_TYPE and the --config used for multi-config generators.
func (c *CMake) BuildType(name string) { c.buildType = name }

// NativeArgs sets arguments passed through to the native build tool after "--".
func (c *CMake) NativeArgs(args ...string) { c.nativeArgs = args }

// Define adds a -D<key>=<value> definition.
func (c *CMake) Define(key, value string) {
	c.defines[key] = defineValue{value: value}
}

// DefineBool adds a -D<key>:BOOL=ON/OFF definition.
func (c *CMake) DefineBool(key string, value bool) {
	v := "OFF"
	if value {
		v = "ON"
	}
	c.defines[key] = defineValue{value: v, typeName: "BOOL"}
}

// SetRunner replaces the process runner.
func (c *CMake) SetRunner(r Runner) { c.runner = r }

// SetOutput redirects the child process output.
func (c *CMake) SetOutput(stdout, stderr io.Writer) {
	c.stdout, c.stderr = stdout, stderr
}

// Configure runs "cmake -S <source> -B <build>" with all configured options.
// Extra args are appended at the end.
func (c *CMake) Configure(ctx context.Context, args ...string) (Result, error) {
	return c.run(ctx, c.configureArgs(args))
}

// Build runs "cmake --build <build>". A non-empty target selects --target.
func (c *CMake) Build(ctx context.Context, target string, cleanFirst bool) (Result, error) {
	return c.run(ctx, c.buildArgs(target, cleanFirst))
}

// Clean runs the generated "clean" target.
func (c *CMake) Clean(ctx context.Context) (Result, error) {
	return c.Build(ctx, "clean", false)
}

// Install runs "cmake --install <build>".
func (c *CMake) Install(ctx context.Context, prefix string) (Result, error) {
	args := []string{"--install", c.buildDir}
	if c.buildType != "" {
		args = append(args, "--config", c.buildType)
	}
	if prefix != "" {
		args = append(args, "--prefix", prefix)
	}
	return c.run(ctx, args)
}

// MakeDirectory uses "cmake -E make_directory" as a portable mkdir -p.
func (c *CMake) MakeDirectory(ctx context.Context, dir string) (Result, error) {
	return c.run(ctx, []string{"-E", "make_directory", dir})
}

// RemoveDirectory uses "cmake -E remove_directory" as a portable rm -rf.
func (c *CMake) RemoveDirectory(ctx context.Context, dir string) (Result, error) {
	return c.run(ctx, []string{"-E", "remove_directory", dir})
}

func (c *CMake) configureArgs(extra []string) []string {
	args := []string{"-S", c.sourceDir, "-B", c.buildDir}
	if c.generator != "" {
		args = append(args, "-G", c.generator)
	}
	if c.toolset != "" {
		args = append(args, "-T", c.toolset)
	}
	if c.platform != "" {
		args = append(args, "-A", c.platform)
	}
	if c.buildType != "" {
		c.Define("CMAKE_BUILD_TYPE", c.buildType)
	}
	args = append(args, c.definesArgs()...)
	return append(args, extra...)
}

func (c *CMake) buildArgs(target string, cleanFirst bool) []string {
	args := []string{"--build", c.buildDir}
	if target != "" {
		args = append(args, "--target", target)
	}
	if c.buildType != "" {
		args = append(args, "--config", c.buildType)
	}
	if cleanFirst {
		args = append(args, "--clean-first")
	}
	if len(c.nativeArgs) > 0 {
		args = append(args, "--")
		args = append(args, c.nativeArgs...)
	}
	return args
}

func (c *CMake) run(ctx context.Context, args []string) (Result, error) {
	cmd := &Command{
		Path:   c.program,
		Args:   args,
		Stdout: c.stdout,
		Stderr: c.stderr,
	}
	log.Debugf("run: %s", cmd)
	return c.runner.Run(ctx, cmd)
}

func (c *CMake) definesArgs() []string {
	if len(c.defines) == 0 {
		return nil
	}
	keys := make([]string, 0, len(c.defines))
	for k := range c.defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, len(keys))
	for _, k := range keys {
		d := c.defines[k]
		if d.typeName != "" {
			args = append(args, "-D"+k+":"+d.typeName+"="+d.value)
			continue
		}
		args = append(args, "-D"+k+"="+d.value)
	}
	return args
}
