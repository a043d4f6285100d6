// Package config resolves the build request from built-in defaults, the
// project's package.json and command-line flags.
package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/goplus/ncmake/internal/platform"
	"github.com/goplus/ncmake/internal/toolchain"
)

// Build types accepted by CMAKE_BUILD_TYPE.
const (
	Debug          = "Debug"
	Release        = "Release"
	MinSizeRel     = "MinSizeRel"
	RelWithDebInfo = "RelWithDebInfo"
)

// DefaultOutput is the build-output root used when none is given.
const DefaultOutput = "build"

// Installed as a runtime version stands for the runtime found on PATH.
const Installed = "installed"

// InstalledVersion returns the version of the runtime on PATH.
var InstalledVersion = func() (string, error) {
	return toolchain.RuntimeVersion(context.Background(), "node")
}

// CMake cache variables understood by the runtime's CMake module.
const (
	FlagBuildType = "CMAKE_BUILD_TYPE"
	FlagDownload  = "NodeJS_DOWNLOAD"
	FlagStandard  = "NodeJS_CXX_STANDARD"
	FlagVariant   = "NodeJS_VARIANT"
	FlagVersion   = "NodeJS_VERSION"
	FlagPlatform  = "NodeJS_PLATFORM"
	FlagArch      = "NodeJS_ARCH"
	FlagURL       = "NodeJS_URL"
	FlagName      = "NodeJS_ADDON_NAME"
)

// Generator selects the CMake generator and toolset.
type Generator struct {
	Name    string `json:"name,omitempty"`
	Toolset string `json:"toolset,omitempty"`
}

// Layer is one source of configuration. Zero fields do not override.
type Layer struct {
	Config     string            `json:"config,omitempty"`
	Generator  Generator         `json:"generator"`
	Platform   string            `json:"platform,omitempty"`
	Arch       string            `json:"arch,omitempty"`
	Variant    string            `json:"variant,omitempty"`
	Version    string            `json:"version,omitempty"`
	Standard   string            `json:"standard,omitempty"`
	Download   *bool             `json:"download,omitempty"`
	Flags      map[string]string `json:"flags,omitempty"`
	Output     string            `json:"output,omitempty"`
	Name       string            `json:"name,omitempty"`
	DistURL    string            `json:"distUrl,omitempty"`
	Verbose    bool              `json:"verbose,omitempty"`
	CleanFirst bool              `json:"cleanFirst,omitempty"`
}

// Request is the fully resolved build configuration. It is produced once by
// Resolve and treated as read-only afterwards.
type Request struct {
	BuildType  string
	Generator  string
	Toolset    string
	Platform   string
	Arch       platform.Arch
	Variant    string
	Version    string
	Standard   string
	Download   *bool
	Output     string
	Name       string
	DistURL    string
	Verbose    bool
	CleanFirst bool

	// Defines holds every -D definition passed to cmake, including the ones
	// derived from the fields above.
	Defines map[string]string
}

// BuildDir returns the per-platform, per-architecture build directory.
func (r *Request) BuildDir() string {
	return filepath.Join(r.Output, r.Platform, string(r.Arch))
}

// Resolve merges defaults, then each platform override, then the CLI flags,
// and normalizes the result.
func Resolve(defaults Layer, overrides []Layer, flags Layer) (Request, error) {
	merged := Layer{}
	merge(&merged, defaults)
	for _, o := range overrides {
		merge(&merged, o)
	}
	merge(&merged, flags)
	return normalize(merged)
}

func merge(dst *Layer, src Layer) {
	set := func(d *string, s string) {
		if s != "" {
			*d = s
		}
	}
	set(&dst.Config, src.Config)
	set(&dst.Generator.Name, src.Generator.Name)
	set(&dst.Generator.Toolset, src.Generator.Toolset)
	set(&dst.Platform, src.Platform)
	set(&dst.Arch, src.Arch)
	set(&dst.Variant, src.Variant)
	set(&dst.Version, src.Version)
	set(&dst.Standard, src.Standard)
	set(&dst.Output, src.Output)
	set(&dst.Name, src.Name)
	set(&dst.DistURL, src.DistURL)
	if src.Download != nil {
		v := *src.Download
		dst.Download = &v
	}
	dst.Verbose = dst.Verbose || src.Verbose
	dst.CleanFirst = dst.CleanFirst || src.CleanFirst
	if len(src.Flags) > 0 && dst.Flags == nil {
		dst.Flags = make(map[string]string, len(src.Flags))
	}
	for k, v := range src.Flags {
		dst.Flags[k] = v
	}
}

func normalize(l Layer) (Request, error) {
	req := Request{
		BuildType:  l.Config,
		Generator:  l.Generator.Name,
		Toolset:    l.Generator.Toolset,
		Platform:   platform.Normalize(l.Platform),
		Variant:    l.Variant,
		Version:    l.Version,
		Standard:   l.Standard,
		Download:   l.Download,
		Output:     l.Output,
		Name:       l.Name,
		DistURL:    l.DistURL,
		Verbose:    l.Verbose,
		CleanFirst: l.CleanFirst,
		Defines:    make(map[string]string, len(l.Flags)+8),
	}
	for k, v := range l.Flags {
		req.Defines[k] = v
	}
	if req.Output == "" {
		req.Output = DefaultOutput
	}
	if req.BuildType == "" {
		req.BuildType = MinSizeRel
	}
	if !ValidBuildType(req.BuildType) {
		return Request{}, fmt.Errorf("invalid build type %q", req.BuildType)
	}
	if req.Platform == "" {
		req.Platform, _ = platform.Host()
	}
	if l.Arch == "" {
		_, req.Arch = platform.Host()
	} else {
		arch, err := platform.ParseArch(l.Arch)
		if err != nil {
			return Request{}, err
		}
		req.Arch = arch
	}

	// The -D spelling seeds the option when the option itself is absent;
	// otherwise the option wins and is written back as a definition.
	if v, ok := req.Defines[FlagDownload]; ok && req.Download == nil {
		on := cmakeBool(v)
		req.Download = &on
	} else if req.Download != nil {
		req.Defines[FlagDownload] = onOff(*req.Download)
	}
	seed(req.Defines, FlagStandard, &req.Standard)
	seed(req.Defines, FlagVariant, &req.Variant)
	seed(req.Defines, FlagVersion, &req.Version)

	if req.Version == Installed {
		v, err := InstalledVersion()
		if err != nil {
			return Request{}, fmt.Errorf("failed to get the installed runtime version: %w", err)
		}
		req.Version = v
	}
	if req.Version != "" {
		v, err := NormalizeVersion(req.Version)
		if err != nil {
			return Request{}, err
		}
		req.Version = v
		req.Defines[FlagVersion] = v
	}
	if req.Variant != "" && req.Version == "" {
		return Request{}, fmt.Errorf("variant %q set without a version", req.Variant)
	}
	if req.DistURL != "" {
		req.Defines[FlagURL] = req.DistURL
	}
	if req.Name != "" {
		req.Defines[FlagName] = req.Name
	}

	req.Defines[FlagBuildType] = req.BuildType
	req.Defines[FlagPlatform] = req.Platform
	req.Defines[FlagArch] = string(req.Arch)
	return req, nil
}

func seed(defines map[string]string, key string, field *string) {
	if v, ok := defines[key]; ok && *field == "" {
		*field = v
	} else if *field != "" {
		defines[key] = *field
	}
}

// ValidBuildType reports whether s is one of the CMake build types.
func ValidBuildType(s string) bool {
	switch s {
	case Debug, Release, MinSizeRel, RelWithDebInfo:
		return true
	}
	return false
}

// NormalizeVersion strips the "v" of a numeric runtime version such as
// "v20.1" and rejects malformed numeric versions. The value is otherwise
// kept as given: "20" stays "20". Release tags like "latest" pass through.
func NormalizeVersion(s string) (string, error) {
	v := strings.TrimSpace(s)
	if v == "" || strings.ContainsAny(v, " \t\"") {
		return "", fmt.Errorf("invalid runtime version %q", s)
	}
	num := strings.TrimPrefix(v, "v")
	if num == "" || num[0] < '0' || num[0] > '9' {
		return v, nil
	}
	if !semver.IsValid("v" + num) {
		return "", fmt.Errorf("invalid runtime version %q", s)
	}
	return num, nil
}

func cmakeBool(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ON", "TRUE", "YES", "Y", "1":
		return true
	}
	return false
}

func onOff(b bool) string {
	if b {
		return "On"
	}
	return "Off"
}
