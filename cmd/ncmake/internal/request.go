package internal

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goplus/ncmake/internal/config"
	"github.com/goplus/ncmake/internal/pipeline"
	"github.com/goplus/ncmake/internal/platform"
	"github.com/goplus/ncmake/internal/toolchain"
	"github.com/goplus/ncmake/pkgs/cmake"
)

// Replaced in tests.
var (
	findTool  = toolchain.Find
	findNinja = toolchain.FindNinja

	runner cmake.Runner = cmake.ExecRunner{}
)

// triState is a boolean flag that remembers whether it was given.
type triState struct {
	v *bool
}

func (t *triState) String() string {
	if t.v == nil {
		return ""
	}
	return strconv.FormatBool(*t.v)
}

func (t *triState) Set(s string) error {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	t.v = &b
	return nil
}

func (t *triState) Type() string { return "bool" }

// flagLayer collects the command-line options into a configuration layer.
func flagLayer() (config.Layer, error) {
	l := config.Layer{
		Config:     flagConfig,
		Generator:  config.Generator{Name: flagGenerator, Toolset: flagToolset},
		Arch:       flagArch,
		Variant:    flagVariant,
		Version:    flagTarget,
		Standard:   flagStd,
		Download:   flagDownload.v,
		Output:     flagOutput,
		Name:       flagName,
		DistURL:    flagDistURL,
		Verbose:    flagVerbose,
		CleanFirst: flagCleanFirst,
	}
	if flagDebug && l.Config == "" {
		l.Config = config.Debug
	}
	if len(flagDefines) > 0 {
		l.Flags = make(map[string]string, len(flagDefines))
	}
	for _, d := range flagDefines {
		k, v, ok := strings.Cut(d, "=")
		if !ok || k == "" {
			return config.Layer{}, fmt.Errorf("invalid definition %q, want KEY=VALUE", d)
		}
		l.Flags[k] = v
	}
	return l, nil
}

// newPipeline resolves the build request for the current directory and
// returns a pipeline for it.
func newPipeline(cmd *cobra.Command) (*pipeline.Pipeline, error) {
	ctx := cmd.Context()
	flags, err := flagLayer()
	if err != nil {
		return nil, err
	}
	project, err := config.LoadProject(".")
	if err != nil {
		return nil, err
	}

	host, _ := platform.Host()
	ninja := findNinja(ctx, host)
	req, err := config.Resolve(config.Defaults(host, ninja.Found), project.Overrides(host), flags)
	if err != nil {
		return nil, err
	}

	program, err := findTool("cmake")
	if err != nil {
		return nil, err
	}
	opts := pipeline.Options{
		CMake:     program,
		// CMakeLists.txt comes from the working directory even when
		// package.json was found further up.
		SourceDir: ".",
		Runner:    runner,
		Stdout:    cmd.OutOrStdout(),
		Stderr:    cmd.ErrOrStderr(),
	}
	if req.Platform == platform.Win32 && strings.EqualFold(req.Generator, "ninja") {
		opts.VCVarsAll = ninja.VCVarsAll
	}
	return pipeline.New(req, opts), nil
}

// pipelineCmd returns a command that runs step on a fresh pipeline.
func pipelineCmd(use, short string, step func(*pipeline.Pipeline, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPipeline(cmd)
			if err != nil {
				return err
			}
			return step(p, cmd.Context())
		},
	}
}
