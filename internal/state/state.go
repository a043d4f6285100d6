// Package state persists the configuration of the last successful
// generation next to the build output.
package state

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/goplus/ncmake/internal/config"
)

// Build directory layout:
//
//	<output>/<platform>/<arch>/
//	  build.yaml        # State of the last successful configure
//	  CMakeCache.txt    # written by cmake
//	  ...
const (
	FileName       = "build.yaml"
	CMakeCacheFile = "CMakeCache.txt"
)

// Bool is a boolean that also accepts CMake spellings (ON/OFF, TRUE/FALSE,
// YES/NO, 1/0) when decoded.
type Bool bool

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *Bool) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a boolean", value.Line)
	}
	switch strings.ToUpper(value.Value) {
	case "ON", "TRUE", "YES", "Y", "1":
		*b = true
	default:
		*b = false
	}
	return nil
}

// State is the configuration baked into an existing build directory.
type State struct {
	BuildType string    `yaml:"build_type"`
	Generator string    `yaml:"generator,omitempty"`
	Toolset   string    `yaml:"toolset,omitempty"`
	Variant   string    `yaml:"variant,omitempty"`
	Version   string    `yaml:"version,omitempty"`
	Download  Bool      `yaml:"download"`
	Standard  string    `yaml:"standard,omitempty"`
	Time      time.Time `yaml:"configure_time"`
}

// FromRequest records req as the state of a fresh generation.
func FromRequest(req *config.Request) *State {
	s := &State{
		BuildType: req.BuildType,
		Generator: req.Generator,
		Toolset:   req.Toolset,
		Variant:   req.Variant,
		Version:   req.Version,
		Standard:  req.Standard,
		Time:      time.Now(),
	}
	if req.Download != nil {
		s.Download = Bool(*req.Download)
	}
	return s
}

// Load reads the state stored in buildDir. It returns nil, nil when the
// directory or the state file does not exist.
func Load(buildDir string) (*State, error) {
	data, err := os.ReadFile(filepath.Join(buildDir, FileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var s State
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}
	return &s, nil
}

// Save writes s into buildDir, which must exist.
func Save(buildDir string, s *State) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(buildDir, FileName), data, 0o644)
}

// ReadCMakeCache returns the generator and toolset recorded by cmake in
// buildDir. Missing entries are returned as empty strings.
func ReadCMakeCache(buildDir string) (generator, toolset string, err error) {
	f, err := os.Open(filepath.Join(buildDir, CMakeCacheFile))
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		name, _, _ := strings.Cut(key, ":")
		switch name {
		case "CMAKE_GENERATOR":
			generator = value
		case "CMAKE_GENERATOR_TOOLSET":
			toolset = value
		}
	}
	return generator, toolset, sc.Err()
}
