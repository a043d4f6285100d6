// Package pipeline runs the purge, configure, build and install steps for
// one build request. Steps run strictly one after another and the first
// failure aborts the rest.
package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/qiniu/x/log"

	"github.com/goplus/ncmake/internal/config"
	"github.com/goplus/ncmake/internal/hook"
	"github.com/goplus/ncmake/internal/platform"
	"github.com/goplus/ncmake/internal/reconcile"
	"github.com/goplus/ncmake/internal/state"
	"github.com/goplus/ncmake/internal/toolchain"
	"github.com/goplus/ncmake/pkgs/cmake"
)

// Options holds the collaborators of a Pipeline.
type Options struct {
	// CMake is the cmake executable. Empty means "cmake".
	CMake string

	// SourceDir holds the top-level CMakeLists.txt.
	SourceDir string

	// VCVarsAll, when set, makes Ninja builds go through a batch wrapper
	// that loads the MSVC environment first.
	VCVarsAll string

	Runner cmake.Runner
	Stdout io.Writer
	Stderr io.Writer
}

// Pipeline drives cmake for a single resolved request.
// It does not lock the build directory; concurrent pipelines on the same
// output directory are unsupported.
type Pipeline struct {
	req   config.Request
	opts  Options
	stage Stage
}

// New returns a Pipeline for req.
func New(req config.Request, opts Options) *Pipeline {
	if opts.Runner == nil {
		opts.Runner = cmake.ExecRunner{}
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.SourceDir == "" {
		opts.SourceDir = "."
	}
	return &Pipeline{req: req, opts: opts}
}

// Stage returns the current stage.
func (p *Pipeline) Stage() Stage {
	return p.stage
}

// Configure generates the build directory, purging it first when the
// persisted configuration cannot be reconciled in place.
func (p *Pipeline) Configure(ctx context.Context) error {
	return p.configure(ctx, p.load())
}

// Build compiles the project, reconfiguring first when the request differs
// from the persisted configuration. It fails with an Unconfigured error when
// the build directory was never configured.
func (p *Pipeline) Build(ctx context.Context) error {
	if err := p.ensureConfigured(ctx, "build"); err != nil {
		return err
	}
	return p.build(ctx)
}

// Install builds and installs the project.
func (p *Pipeline) Install(ctx context.Context) error {
	if err := p.Build(ctx); err != nil {
		return err
	}
	d, err := p.driver()
	if err != nil {
		return err
	}
	res, err := d.Install(ctx, "")
	if err := p.check("install", InstallFailure, res, err); err != nil {
		return err
	}
	p.stage = StageBuilt
	return nil
}

// Clean runs the generated clean target. Cleaning a directory that was
// never configured succeeds without doing anything.
func (p *Pipeline) Clean(ctx context.Context) error {
	if p.load() == nil {
		log.Infof("%s is not configured, nothing to clean", p.req.BuildDir())
		return nil
	}
	d, err := p.driver()
	if err != nil {
		return err
	}
	res, err := d.Clean(ctx)
	if err := p.check("clean", BuildFailure, res, err); err != nil {
		return err
	}
	p.stage = StageConfigured
	return nil
}

// Distclean removes the whole output directory, for every platform and
// architecture.
func (p *Pipeline) Distclean(ctx context.Context) error {
	if !dirExists(p.req.Output) {
		log.Debugf("%s does not exist", p.req.Output)
		p.stage = StageUnconfigured
		return nil
	}
	d := p.plainDriver()
	res, err := d.RemoveDirectory(ctx, p.req.Output)
	if err := p.check("distclean", DistcleanFailure, res, err); err != nil {
		return err
	}
	p.stage = StageUnconfigured
	return nil
}

// Rebuild is Clean, Configure and Build in sequence.
func (p *Pipeline) Rebuild(ctx context.Context) error {
	if err := p.Clean(ctx); err != nil {
		return err
	}
	if err := p.Configure(ctx); err != nil {
		return err
	}
	return p.Build(ctx)
}

// load reads the persisted state. An unreadable record is treated as
// absent, which forces a purge on the next configure.
func (p *Pipeline) load() *state.State {
	s, err := state.Load(p.req.BuildDir())
	if err != nil {
		log.Warnf("ignoring build state in %s: %v", p.req.BuildDir(), err)
		return nil
	}
	if s == nil {
		p.stage = StageUnconfigured
	} else if p.stage == StageUnconfigured {
		p.stage = StageConfigured
	}
	return s
}

func (p *Pipeline) ensureConfigured(ctx context.Context, op string) error {
	persisted := p.load()
	if persisted == nil {
		p.stage = StageFailed
		return &Error{Kind: Unconfigured, Op: op, Err: ErrNotConfigured}
	}
	if !reconcile.ShouldRegenerate(&p.req, persisted) {
		return nil
	}
	log.Infof("configuration changed, regenerating %s", p.req.BuildDir())
	return p.configure(ctx, persisted)
}

func (p *Pipeline) configure(ctx context.Context, persisted *state.State) error {
	dir := p.req.BuildDir()
	plain := p.plainDriver()

	if reconcile.ShouldPurge(&p.req, persisted) && dirExists(dir) {
		log.Infof("purging %s", dir)
		res, err := plain.RemoveDirectory(ctx, dir)
		if err := p.check("purge", DistcleanFailure, res, err); err != nil {
			return err
		}
		p.stage = StageUnconfigured
	}

	p.stage = StageConfiguring
	res, err := plain.MakeDirectory(ctx, dir)
	if err := p.check("mkdir", DirectoryCreation, res, err); err != nil {
		return err
	}
	if p.usesMSVCWrapper() {
		if _, err := toolchain.WriteMSVCWrapper(dir, p.cmakeProgram(), p.opts.VCVarsAll, string(p.req.Arch)); err != nil {
			return p.fail(&Error{Kind: TemplateCopy, Op: "configure", Err: err})
		}
	}
	if _, err := hook.Copy(dir); err != nil {
		return p.fail(&Error{Kind: TemplateCopy, Op: "configure", Err: err})
	}

	d, err := p.driver()
	if err != nil {
		return err
	}
	res, err = d.Configure(ctx)
	if err := p.check("configure", Configuration, res, err); err != nil {
		return err
	}

	s := state.FromRequest(&p.req)
	if gen, toolset, err := state.ReadCMakeCache(dir); err == nil {
		if gen != "" {
			s.Generator = gen
		}
		if toolset != "" {
			s.Toolset = toolset
		}
	} else {
		log.Debugf("no CMake cache in %s: %v", dir, err)
	}
	if err := state.Save(dir, s); err != nil {
		return p.fail(&Error{Kind: Configuration, Op: "configure", Err: err})
	}
	p.stage = StageConfigured
	return nil
}

func (p *Pipeline) build(ctx context.Context) error {
	d, err := p.driver()
	if err != nil {
		return err
	}
	p.stage = StageBuilding
	res, err := d.Build(ctx, "", p.req.CleanFirst)
	if err := p.check("build", BuildFailure, res, err); err != nil {
		return err
	}
	p.stage = StageBuilt
	return nil
}

func (p *Pipeline) check(op string, kind Kind, res cmake.Result, err error) error {
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			kind = ToolNotFound
		}
		return p.fail(&Error{Kind: kind, Op: op, Err: err})
	}
	if !res.Success() {
		return p.fail(&Error{Kind: kind, Op: op, Err: &ExitError{Command: "cmake", Result: res}})
	}
	return nil
}

func (p *Pipeline) fail(err *Error) error {
	p.stage = StageFailed
	log.Debugf("%s failed: %v", err.Op, err.Err)
	return err
}

func (p *Pipeline) cmakeProgram() string {
	if p.opts.CMake == "" {
		return "cmake"
	}
	return p.opts.CMake
}

func (p *Pipeline) usesMSVCWrapper() bool {
	return p.opts.VCVarsAll != "" && strings.EqualFold(p.req.Generator, "ninja")
}

// plainDriver runs cmake without the MSVC wrapper, for -E commands.
func (p *Pipeline) plainDriver() *cmake.CMake {
	d := cmake.New(p.cmakeProgram(), p.opts.SourceDir, p.req.BuildDir())
	d.SetRunner(p.opts.Runner)
	d.SetOutput(p.opts.Stdout, p.opts.Stderr)
	return d
}

// driver returns a cmake driver carrying every option of the request.
func (p *Pipeline) driver() (*cmake.CMake, error) {
	d := p.plainDriver()
	if p.usesMSVCWrapper() {
		d.Program(filepath.Join(p.req.BuildDir(), toolchain.MSVCWrapperName))
	}
	d.Generator(p.req.Generator)
	d.Toolset(p.req.Toolset)
	d.BuildType(p.req.BuildType)
	for k, v := range p.req.Defines {
		switch {
		case k == config.FlagBuildType:
		case k == config.FlagDownload && p.req.Download != nil:
			d.DefineBool(k, *p.req.Download)
		default:
			d.Define(k, v)
		}
	}

	gen := p.req.Generator
	if p.req.Platform == platform.Win32 && (gen == "" || strings.HasPrefix(gen, "Visual Studio")) {
		d.Platform(platform.GeneratorPlatform(p.req.Arch))
	}
	switch {
	case gen == "Xcode":
		arch, err := platform.XcodeArch(p.req.Arch)
		if err != nil {
			return nil, p.fail(&Error{Kind: Generic, Op: "configure", Err: err})
		}
		d.NativeArgs("-arch", arch)
	case strings.EqualFold(gen, "ninja") && p.req.Verbose:
		d.NativeArgs("-v")
	}
	return d, nil
}

func dirExists(dir string) bool {
	fi, err := os.Stat(dir)
	return err == nil && fi.IsDir()
}
