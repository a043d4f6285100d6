// Package platform maps Go's GOOS/GOARCH onto the platform and architecture
// names used by the addon runtime and its build files.
package platform

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// Arch is a runtime architecture name.
type Arch string

const (
	X64     Arch = "x64"
	IA32    Arch = "ia32"
	ARM     Arch = "arm"
	ARM64   Arch = "arm64"
	PPC64   Arch = "ppc64"
	S390X   Arch = "s390x"
	MIPS    Arch = "mips"
	MIPSEL  Arch = "mipsel"
	RISCV64 Arch = "riscv64"
	LOONG64 Arch = "loong64"
)

// AddonExt is the file extension of a compiled addon.
const AddonExt = ".node"

// Platform names.
const (
	Linux   = "linux"
	Darwin  = "darwin"
	Win32   = "win32"
	FreeBSD = "freebsd"
	OpenBSD = "openbsd"
	SunOS   = "sunos"
	AIX     = "aix"
)

// String returns the architecture as string.
func (a Arch) String() string {
	return string(a)
}

// ParseArch returns the canonical Arch for value or an error if unsupported.
func ParseArch(value string) (Arch, error) {
	if arch := NormalizeArch(value); arch != "" {
		return arch, nil
	}
	return "", fmt.Errorf("unsupported architecture %q (supported: %s)", value, strings.Join(supportedArchs(), ", "))
}

// NormalizeArch maps Go, CMake and runtime spellings onto an Arch.
// Returns "" when the value cannot be normalized.
func NormalizeArch(value string) Arch {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "x64", "amd64", "x86_64", "x86-64":
		return X64
	case "ia32", "386", "x86", "i386", "i686", "win32":
		return IA32
	case "arm", "armv7l", "armv7":
		return ARM
	case "arm64", "aarch64":
		return ARM64
	case "ppc64", "ppc64le":
		return PPC64
	case "s390x":
		return S390X
	case "mips":
		return MIPS
	case "mipsel", "mipsle":
		return MIPSEL
	case "riscv64":
		return RISCV64
	case "loong64", "loongarch64":
		return LOONG64
	}
	return ""
}

// Normalize maps a GOOS value onto a runtime platform name. Names that are
// already runtime platform names are returned unchanged.
func Normalize(goos string) string {
	switch goos {
	case "windows":
		return Win32
	case "solaris", "illumos":
		return SunOS
	}
	return goos
}

// Host returns the platform and architecture of the running process.
func Host() (string, Arch) {
	return Normalize(runtime.GOOS), NormalizeArch(runtime.GOARCH)
}

// XcodeArch returns the value Xcode expects for -arch.
func XcodeArch(a Arch) (string, error) {
	switch a {
	case X64:
		return "x86_64", nil
	case IA32:
		return "i386", nil
	case ARM64:
		return "arm64", nil
	}
	return "", fmt.Errorf("invalid architecture %s for Xcode", a)
}

// GeneratorPlatform returns the CMake -A value for Visual Studio generators.
func GeneratorPlatform(a Arch) string {
	if a == IA32 {
		return "win32"
	}
	return string(a)
}

func supportedArchs() []string {
	all := []Arch{X64, IA32, ARM, ARM64, PPC64, S390X, MIPS, MIPSEL, RISCV64, LOONG64}
	values := make([]string, 0, len(all))
	for _, a := range all {
		values = append(values, string(a))
	}
	sort.Strings(values)
	return values
}
