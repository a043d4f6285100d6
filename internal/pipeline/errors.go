package pipeline

import (
	"errors"
	"fmt"

	"github.com/goplus/ncmake/internal/toolchain"
	"github.com/goplus/ncmake/pkgs/cmake"
)

// Kind classifies pipeline failures. Each kind maps to a process exit code.
type Kind int

const (
	Generic Kind = iota
	ToolNotFound
	DirectoryCreation
	Configuration
	Unconfigured
	BuildFailure
	InstallFailure
	DistcleanFailure
	TemplateCopy
	InvalidCommand
)

var kindNames = [...]string{
	Generic:           "error",
	ToolNotFound:      "tool not found",
	DirectoryCreation: "directory creation failed",
	Configuration:     "configuration failed",
	Unconfigured:      "not configured",
	BuildFailure:      "build failed",
	InstallFailure:    "install failed",
	DistcleanFailure:  "distclean failed",
	TemplateCopy:      "template copy failed",
	InvalidCommand:    "invalid command",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Code returns the process exit code for k.
func (k Kind) Code() int {
	switch k {
	case ToolNotFound:
		return 127
	case DirectoryCreation:
		return 3
	case Configuration:
		return 4
	case Unconfigured:
		return 6
	case BuildFailure, InstallFailure:
		return 7
	case DistcleanFailure:
		return 8
	case TemplateCopy:
		return 9
	}
	return 2
}

// Error is a failed pipeline step.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.String()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// ErrNotConfigured is wrapped by Unconfigured errors.
var ErrNotConfigured = errors.New("build directory is not configured, run 'ncmake configure' first")

// ExitError reports a child process that did not exit cleanly.
type ExitError struct {
	Command string
	Result  cmake.Result
}

func (e *ExitError) Error() string {
	if e.Result.Signal != "" {
		return fmt.Sprintf("%s: %s", e.Command, e.Result.Signal)
	}
	return fmt.Sprintf("%s exited with code %d", e.Command, e.Result.ExitCode)
}

// ExitCode maps err onto the process exit code. nil yields 0 and
// unclassified errors yield 2.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var nf *toolchain.NotFoundError
	if errors.As(err, &nf) {
		return ToolNotFound.Code()
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind.Code()
	}
	return Generic.Code()
}
