// Package toolchain locates the external tools driven by ncmake.
package toolchain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/execabs"
)

var lookPath = execabs.LookPath

// NotFoundError reports a required tool missing from PATH.
type NotFoundError struct {
	Tool string
	Err  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found in PATH", e.Tool)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// Find returns the absolute path of tool.
func Find(tool string) (string, error) {
	path, err := lookPath(tool)
	if err != nil {
		return "", &NotFoundError{Tool: tool, Err: err}
	}
	return path, nil
}

// Has reports whether tool is on PATH.
func Has(tool string) bool {
	_, err := lookPath(tool)
	return err == nil
}

// Ninja describes the ninja installation.
type Ninja struct {
	Found bool

	// VCVarsAll is the vcvarsall.bat to call before cmake on Windows when
	// cl.exe is not already on PATH. Empty elsewhere.
	VCVarsAll string
}

// FindNinja looks for ninja and, on win32, for the MSVC environment script
// ninja builds need.
func FindNinja(ctx context.Context, platformName string) Ninja {
	if !Has("ninja") {
		return Ninja{}
	}
	if platformName != "win32" || Has("cl") {
		return Ninja{Found: true}
	}
	vcvars, err := findVCVarsAll(ctx)
	if err != nil {
		return Ninja{}
	}
	return Ninja{Found: true, VCVarsAll: vcvars}
}

func vswherePath() (string, error) {
	if path, err := lookPath("vswhere"); err == nil {
		return path, nil
	}
	pf := os.Getenv("ProgramFiles(x86)")
	if pf == "" {
		return "", errors.New("vswhere not found")
	}
	path := filepath.Join(pf, "Microsoft Visual Studio", "Installer", "vswhere.exe")
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}

func findVCVarsAll(ctx context.Context) (string, error) {
	vswhere, err := vswherePath()
	if err != nil {
		return "", err
	}
	var stdout bytes.Buffer
	cmd := execabs.CommandContext(ctx, vswhere,
		"-format", "json",
		"-products", "*",
		"-legacy",
		"-latest",
		"-property", "installationPath",
	)
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("vswhere: %w", err)
	}
	return parseVSWhere(stdout.Bytes())
}

func parseVSWhere(data []byte) (string, error) {
	var installs []struct {
		InstallationPath string `json:"installationPath"`
	}
	if err := json.Unmarshal(data, &installs); err != nil {
		return "", fmt.Errorf("vswhere: %w", err)
	}
	if len(installs) == 0 || installs[0].InstallationPath == "" {
		return "", errors.New("vswhere: no Visual Studio installation found")
	}
	vcvars := filepath.Join(installs[0].InstallationPath, "VC", "Auxiliary", "Build", "vcvarsall.bat")
	if _, err := os.Stat(vcvars); err != nil {
		return "", err
	}
	return vcvars, nil
}

// RuntimeVersion returns the version of the runtime executable on PATH,
// used to expand "--target installed".
func RuntimeVersion(ctx context.Context, name string) (string, error) {
	path, err := Find(name)
	if err != nil {
		return "", err
	}
	out, err := execabs.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("%s --version: %w", name, err)
	}
	return string(bytes.TrimSpace(out)), nil
}
