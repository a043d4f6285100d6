package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goplus/ncmake/internal/platform"
)

// ManifestFile is the package manifest that carries the "cmake" section.
const ManifestFile = "package.json"

// Project is the addon project found around the working directory.
type Project struct {
	// Dir is the directory holding the manifest, or the start directory
	// when no manifest was found.
	Dir string

	// Sections maps "default" and platform names to configuration layers.
	Sections map[string]Layer
}

// Overrides returns the project layers that apply to platformName, lowest
// precedence first.
func (p *Project) Overrides(platformName string) []Layer {
	var layers []Layer
	if l, ok := p.Sections["default"]; ok {
		layers = append(layers, l)
	}
	if l, ok := p.Sections[platformName]; ok {
		layers = append(layers, l)
	}
	return layers
}

// LoadProject walks from dir upward and loads the first package.json found.
// A missing manifest is not an error.
func LoadProject(dir string) (*Project, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	for cur := abs; ; {
		path := filepath.Join(cur, ManifestFile)
		data, err := os.ReadFile(path)
		if err == nil {
			return parseProject(cur, data)
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}
		cur = parent
	}
	return &Project{Dir: abs}, nil
}

func parseProject(dir string, data []byte) (*Project, error) {
	var manifest struct {
		CMake map[string]Layer `json:"cmake"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Join(dir, ManifestFile), err)
	}
	return &Project{Dir: dir, Sections: manifest.CMake}, nil
}

// Defaults returns the built-in layer for the target platform. hasNinja
// reports whether a ninja executable is on PATH.
func Defaults(platformName string, hasNinja bool) Layer {
	l := Layer{
		Config: MinSizeRel,
		Output: DefaultOutput,
	}
	switch {
	case platformName == platform.Darwin:
		l.Generator.Name = "Xcode"
	case platformName != platform.Win32 && hasNinja:
		l.Generator.Name = "Ninja"
	}
	return l
}
