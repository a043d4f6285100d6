package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goplus/ncmake/internal/config"
	"github.com/goplus/ncmake/internal/hook"
	"github.com/goplus/ncmake/internal/state"
	"github.com/goplus/ncmake/pkgs/cmake"
)

// fakeCMake emulates the side effects of the cmake commands used by the
// pipeline and records which ones ran.
type fakeCMake struct {
	calls []string
	cmds  []*cmake.Command
	fail  map[string]int
	err   error
}

func (f *fakeCMake) Run(_ context.Context, c *cmake.Command) (cmake.Result, error) {
	op := opOf(c)
	f.calls = append(f.calls, op)
	f.cmds = append(f.cmds, c)
	if f.err != nil {
		return cmake.Result{ExitCode: -1}, f.err
	}
	if code, ok := f.fail[op]; ok {
		return cmake.Result{ExitCode: code}, nil
	}
	switch op {
	case "make_directory":
		if err := os.MkdirAll(c.Args[2], 0o755); err != nil {
			return cmake.Result{ExitCode: 1}, nil
		}
	case "remove_directory":
		if err := os.RemoveAll(c.Args[2]); err != nil {
			return cmake.Result{ExitCode: 1}, nil
		}
	case "configure":
		gen := "Unix Makefiles"
		if v := argAfter(c.Args, "-G"); v != "" {
			gen = v
		}
		cache := fmt.Sprintf("CMAKE_GENERATOR:INTERNAL=%s\nCMAKE_GENERATOR_TOOLSET:INTERNAL=%s\n", gen, argAfter(c.Args, "-T"))
		if err := os.WriteFile(filepath.Join(argAfter(c.Args, "-B"), state.CMakeCacheFile), []byte(cache), 0o644); err != nil {
			return cmake.Result{ExitCode: 1}, nil
		}
	}
	return cmake.Result{}, nil
}

func opOf(c *cmake.Command) string {
	switch c.Args[0] {
	case "-E":
		return c.Args[1]
	case "-S":
		return "configure"
	case "--install":
		return "install"
	case "--build":
		if argAfter(c.Args, "--target") == "clean" {
			return "clean"
		}
		return "build"
	}
	return strings.Join(c.Args, " ")
}

func argAfter(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func newRequest(t *testing.T, output string, l config.Layer) config.Request {
	t.Helper()
	l.Output = output
	if l.Platform == "" {
		l.Platform = "linux"
	}
	if l.Arch == "" {
		l.Arch = "x64"
	}
	if l.Config == "" {
		l.Config = config.Release
	}
	req, err := config.Resolve(config.Layer{}, nil, l)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return req
}

func newPipeline(req config.Request, f *fakeCMake) *Pipeline {
	return New(req, Options{
		CMake:     "cmake",
		SourceDir: "src",
		Runner:    f,
		Stdout:    io.Discard,
		Stderr:    io.Discard,
	})
}

func assertCalls(t *testing.T, f *fakeCMake, want ...string) {
	t.Helper()
	if strings.Join(f.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", f.calls, want)
	}
}

func TestConfigureFresh(t *testing.T) {
	out := filepath.Join(t.TempDir(), "build")
	req := newRequest(t, out, config.Layer{Generator: config.Generator{Name: "Ninja"}})
	f := &fakeCMake{}
	p := newPipeline(req, f)

	if err := p.Configure(context.Background()); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	assertCalls(t, f, "make_directory", "configure")
	if p.Stage() != StageConfigured {
		t.Errorf("Stage = %v, want configured", p.Stage())
	}

	s, err := state.Load(req.BuildDir())
	if err != nil || s == nil {
		t.Fatalf("state.Load = %v, %v", s, err)
	}
	if s.BuildType != config.Release || s.Generator != "Ninja" {
		t.Errorf("state = %+v", s)
	}
	if _, err := os.Stat(filepath.Join(req.BuildDir(), hook.FileName)); err != nil {
		t.Errorf("hook template not copied: %v", err)
	}
	cmd := f.cmds[1].String()
	for _, want := range []string{"-S src", "-G Ninja", "-DCMAKE_BUILD_TYPE=Release", "-DNodeJS_ARCH=x64", "-DNodeJS_PLATFORM=linux"} {
		if !strings.Contains(cmd, want) {
			t.Errorf("configure command %q missing %q", cmd, want)
		}
	}
}

func TestConfigureRecordsDefaultGenerator(t *testing.T) {
	out := filepath.Join(t.TempDir(), "build")
	req := newRequest(t, out, config.Layer{})
	if err := newPipeline(req, &fakeCMake{}).Configure(context.Background()); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	s, _ := state.Load(req.BuildDir())
	if s == nil || s.Generator != "Unix Makefiles" {
		t.Errorf("state = %+v, want generator from CMakeCache", s)
	}
}

func TestBuildUnconfigured(t *testing.T) {
	req := newRequest(t, filepath.Join(t.TempDir(), "build"), config.Layer{})
	f := &fakeCMake{}
	p := newPipeline(req, f)

	err := p.Build(context.Background())
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Build err = %v, want ErrNotConfigured", err)
	}
	if code := ExitCode(err); code != 6 {
		t.Errorf("ExitCode = %d, want 6", code)
	}
	if p.Stage() != StageFailed {
		t.Errorf("Stage = %v, want failed", p.Stage())
	}
	assertCalls(t, f)
}

func TestInstallUnconfigured(t *testing.T) {
	req := newRequest(t, filepath.Join(t.TempDir(), "build"), config.Layer{})
	f := &fakeCMake{}
	if code := ExitCode(newPipeline(req, f).Install(context.Background())); code != 6 {
		t.Errorf("ExitCode = %d, want 6", code)
	}
	assertCalls(t, f)
}

func TestCleanUnconfigured(t *testing.T) {
	req := newRequest(t, filepath.Join(t.TempDir(), "build"), config.Layer{})
	f := &fakeCMake{}
	if err := newPipeline(req, f).Clean(context.Background()); err != nil {
		t.Fatalf("Clean: %v", err)
	}
	assertCalls(t, f)
}

func TestBuildIncremental(t *testing.T) {
	out := filepath.Join(t.TempDir(), "build")
	req := newRequest(t, out, config.Layer{})
	ctx := context.Background()

	if err := newPipeline(req, &fakeCMake{}).Configure(ctx); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	f := &fakeCMake{}
	p := newPipeline(req, f)
	if err := p.Build(ctx); err != nil {
		t.Fatalf("Build: %v", err)
	}
	assertCalls(t, f, "build")
	if p.Stage() != StageBuilt {
		t.Errorf("Stage = %v, want built", p.Stage())
	}
}

func TestBuildReconfiguresWithoutPurge(t *testing.T) {
	out := filepath.Join(t.TempDir(), "build")
	ctx := context.Background()
	if err := newPipeline(newRequest(t, out, config.Layer{}), &fakeCMake{}).Configure(ctx); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	f := &fakeCMake{}
	req := newRequest(t, out, config.Layer{Config: config.Debug})
	if err := newPipeline(req, f).Build(ctx); err != nil {
		t.Fatalf("Build: %v", err)
	}
	assertCalls(t, f, "make_directory", "configure", "build")
	if s, _ := state.Load(req.BuildDir()); s == nil || s.BuildType != config.Debug {
		t.Errorf("state after reconfigure = %+v", s)
	}
}

func TestConfigurePurgesOnGeneratorChange(t *testing.T) {
	out := filepath.Join(t.TempDir(), "build")
	ctx := context.Background()
	first := newRequest(t, out, config.Layer{Generator: config.Generator{Name: "Ninja"}})
	if err := newPipeline(first, &fakeCMake{}).Configure(ctx); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	stale := filepath.Join(first.BuildDir(), "stale.o")
	if err := os.WriteFile(stale, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	f := &fakeCMake{}
	second := newRequest(t, out, config.Layer{Generator: config.Generator{Name: "Unix Makefiles"}})
	if err := newPipeline(second, f).Configure(ctx); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	assertCalls(t, f, "remove_directory", "make_directory", "configure")
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("stale file survived the purge: %v", err)
	}
}

func TestConfigureFailure(t *testing.T) {
	out := filepath.Join(t.TempDir(), "build")
	req := newRequest(t, out, config.Layer{})
	f := &fakeCMake{fail: map[string]int{"configure": 1}}
	p := newPipeline(req, f)

	err := p.Configure(context.Background())
	if code := ExitCode(err); code != 4 {
		t.Fatalf("ExitCode = %d (%v), want 4", code, err)
	}
	var ee *ExitError
	if !errors.As(err, &ee) || ee.Result.ExitCode != 1 {
		t.Errorf("err = %v, want wrapped ExitError", err)
	}
	if p.Stage() != StageFailed {
		t.Errorf("Stage = %v, want failed", p.Stage())
	}
	if s, _ := state.Load(req.BuildDir()); s != nil {
		t.Errorf("state saved after failed configure: %+v", s)
	}
}

func TestRebuildStopsAfterConfigureFailure(t *testing.T) {
	req := newRequest(t, filepath.Join(t.TempDir(), "build"), config.Layer{})
	f := &fakeCMake{fail: map[string]int{"configure": 1}}
	if code := ExitCode(newPipeline(req, f).Rebuild(context.Background())); code != 4 {
		t.Errorf("ExitCode = %d, want 4", code)
	}
	assertCalls(t, f, "make_directory", "configure")
}

func TestRebuild(t *testing.T) {
	out := filepath.Join(t.TempDir(), "build")
	req := newRequest(t, out, config.Layer{})
	ctx := context.Background()
	if err := newPipeline(req, &fakeCMake{}).Configure(ctx); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	f := &fakeCMake{}
	if err := newPipeline(req, f).Rebuild(ctx); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	assertCalls(t, f, "clean", "make_directory", "configure", "build")
}

func TestMakeDirectoryFailure(t *testing.T) {
	req := newRequest(t, filepath.Join(t.TempDir(), "build"), config.Layer{})
	f := &fakeCMake{fail: map[string]int{"make_directory": 1}}
	if code := ExitCode(newPipeline(req, f).Configure(context.Background())); code != 3 {
		t.Errorf("ExitCode = %d, want 3", code)
	}
	assertCalls(t, f, "make_directory")
}

func TestInstall(t *testing.T) {
	out := filepath.Join(t.TempDir(), "build")
	req := newRequest(t, out, config.Layer{})
	ctx := context.Background()
	if err := newPipeline(req, &fakeCMake{}).Configure(ctx); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	f := &fakeCMake{}
	if err := newPipeline(req, f).Install(ctx); err != nil {
		t.Fatalf("Install: %v", err)
	}
	assertCalls(t, f, "build", "install")

	f = &fakeCMake{fail: map[string]int{"build": 2}}
	if code := ExitCode(newPipeline(req, f).Install(ctx)); code != 7 {
		t.Errorf("ExitCode on build failure = %d, want 7", code)
	}
	assertCalls(t, f, "build")

	f = &fakeCMake{fail: map[string]int{"install": 1}}
	if code := ExitCode(newPipeline(req, f).Install(ctx)); code != 7 {
		t.Errorf("ExitCode on install failure = %d, want 7", code)
	}
}

func TestDistclean(t *testing.T) {
	out := filepath.Join(t.TempDir(), "build")
	req := newRequest(t, out, config.Layer{})
	ctx := context.Background()

	f := &fakeCMake{}
	if err := newPipeline(req, f).Distclean(ctx); err != nil {
		t.Fatalf("Distclean on missing output: %v", err)
	}
	assertCalls(t, f)

	if err := newPipeline(req, &fakeCMake{}).Configure(ctx); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	f = &fakeCMake{fail: map[string]int{"remove_directory": 1}}
	if code := ExitCode(newPipeline(req, f).Distclean(ctx)); code != 8 {
		t.Errorf("ExitCode = %d, want 8", code)
	}

	f = &fakeCMake{}
	if err := newPipeline(req, f).Distclean(ctx); err != nil {
		t.Fatalf("Distclean: %v", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("output directory still exists: %v", err)
	}
}

func TestToolMissingAtRunTime(t *testing.T) {
	req := newRequest(t, filepath.Join(t.TempDir(), "build"), config.Layer{})
	f := &fakeCMake{err: &exec.Error{Name: "cmake", Err: exec.ErrNotFound}}
	if code := ExitCode(newPipeline(req, f).Configure(context.Background())); code != 127 {
		t.Errorf("ExitCode = %d, want 127", code)
	}
}

func TestXcodeInvalidArch(t *testing.T) {
	req := newRequest(t, filepath.Join(t.TempDir(), "build"), config.Layer{
		Platform:  "darwin",
		Arch:      "arm",
		Generator: config.Generator{Name: "Xcode"},
	})
	f := &fakeCMake{}
	if code := ExitCode(newPipeline(req, f).Configure(context.Background())); code != 2 {
		t.Errorf("ExitCode = %d, want 2", code)
	}
	assertCalls(t, f, "make_directory")
}

func TestDriverNativeArgs(t *testing.T) {
	out := filepath.Join(t.TempDir(), "build")
	tests := []struct {
		name  string
		layer config.Layer
		want  string
		not   string
	}{
		{"ninja verbose", config.Layer{Generator: config.Generator{Name: "Ninja"}, Verbose: true}, "-- -v", "-A"},
		{"xcode", config.Layer{Platform: "darwin", Generator: config.Generator{Name: "Xcode"}}, "-- -arch x86_64", "-A"},
		{"clean first", config.Layer{CleanFirst: true}, "--clean-first", " -- "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeCMake{}
			p := newPipeline(newRequest(t, out, tt.layer), f)
			if err := p.Configure(context.Background()); err != nil {
				t.Fatalf("Configure: %v", err)
			}
			if err := p.Build(context.Background()); err != nil {
				t.Fatalf("Build: %v", err)
			}
			build := f.cmds[len(f.cmds)-1].String()
			if !strings.Contains(build, tt.want) {
				t.Errorf("build command %q missing %q", build, tt.want)
			}
			if strings.Contains(build, tt.not) {
				t.Errorf("build command %q contains %q", build, tt.not)
			}
		})
	}
}

func TestWindowsGeneratorPlatform(t *testing.T) {
	out := filepath.Join(t.TempDir(), "build")
	f := &fakeCMake{}
	req := newRequest(t, out, config.Layer{Platform: "win32", Arch: "ia32"})
	if err := newPipeline(req, f).Configure(context.Background()); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if cmd := f.cmds[len(f.cmds)-1].String(); !strings.Contains(cmd, "-A win32") {
		t.Errorf("configure command %q missing -A win32", cmd)
	}

	f = &fakeCMake{}
	req = newRequest(t, out, config.Layer{Platform: "win32", Generator: config.Generator{Name: "Ninja"}})
	if err := newPipeline(req, f).Configure(context.Background()); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if cmd := f.cmds[len(f.cmds)-1].String(); strings.Contains(cmd, "-A ") {
		t.Errorf("ninja configure command %q has a generator platform", cmd)
	}
}

func TestMSVCWrapper(t *testing.T) {
	out := filepath.Join(t.TempDir(), "build")
	req := newRequest(t, out, config.Layer{Platform: "win32", Generator: config.Generator{Name: "Ninja"}})
	f := &fakeCMake{}
	p := New(req, Options{
		CMake:     "cmake.exe",
		VCVarsAll: `C:\VS\vcvarsall.bat`,
		Runner:    f,
		Stdout:    io.Discard,
		Stderr:    io.Discard,
	})
	if err := p.Configure(context.Background()); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if f.cmds[0].Path != "cmake.exe" {
		t.Errorf("mkdir ran %q, want plain cmake", f.cmds[0].Path)
	}
	if want := filepath.Join(req.BuildDir(), "cmake_ninja_msvc.bat"); f.cmds[1].Path != want {
		t.Errorf("configure ran %q, want %q", f.cmds[1].Path, want)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{errors.New("x"), 2},
		{&Error{Kind: Generic}, 2},
		{&Error{Kind: InvalidCommand}, 2},
		{&Error{Kind: ToolNotFound}, 127},
		{&Error{Kind: DirectoryCreation}, 3},
		{&Error{Kind: Configuration}, 4},
		{&Error{Kind: Unconfigured}, 6},
		{&Error{Kind: BuildFailure}, 7},
		{&Error{Kind: InstallFailure}, 7},
		{&Error{Kind: DistcleanFailure}, 8},
		{&Error{Kind: TemplateCopy}, 9},
		{fmt.Errorf("wrapped: %w", &Error{Kind: Configuration}), 4},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestConfigureDownloadIsBool(t *testing.T) {
	out := filepath.Join(t.TempDir(), "build")
	off := false
	f := &fakeCMake{}
	req := newRequest(t, out, config.Layer{Download: &off})
	if err := newPipeline(req, f).Configure(context.Background()); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	cmd := f.cmds[len(f.cmds)-1].String()
	if !strings.Contains(cmd, "-DNodeJS_DOWNLOAD:BOOL=OFF") {
		t.Errorf("configure command %q missing typed NodeJS_DOWNLOAD", cmd)
	}
	if strings.Contains(cmd, "-DNodeJS_DOWNLOAD=") {
		t.Errorf("configure command %q has an untyped NodeJS_DOWNLOAD", cmd)
	}
}
