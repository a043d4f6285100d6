package toolchain

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// MSVCWrapperName is the batch file that loads the MSVC environment before
// running cmake.
const MSVCWrapperName = "cmake_ninja_msvc.bat"

var openWrapper = func(path string) (io.WriteCloser, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o755)
}

// vcvarsArch maps a runtime architecture onto a vcvarsall.bat argument.
func vcvarsArch(arch string) string {
	switch arch {
	case "ia32":
		return "x86"
	case "arm64":
		return "arm64"
	}
	return "x64"
}

// WriteMSVCWrapper creates dir/cmake_ninja_msvc.bat unless it already exists
// and returns its path. The script only calls vcvarsall when cl is not
// already reachable.
func WriteMSVCWrapper(dir, cmake, vcvarsall, arch string) (string, error) {
	path := filepath.Join(dir, MSVCWrapperName)
	f, err := openWrapper(path)
	if errors.Is(err, fs.ErrExist) {
		return path, nil
	}
	if err != nil {
		return "", err
	}

	w := bufio.NewWriter(f)
	fmt.Fprint(w, "@ECHO OFF\r\n")
	fmt.Fprint(w, "call where /Q cl\r\n")
	fmt.Fprint(w, "if ERRORLEVEL 1 (\r\n")
	fmt.Fprintf(w, "  call \"%s\" %s\r\n", vcvarsall, vcvarsArch(arch))
	fmt.Fprint(w, ")\r\n")
	fmt.Fprintf(w, "call \"%s\" %%*\r\n", cmake)
	err = w.Flush()
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		// Never leave a partial script behind: existing wrappers are reused.
		os.Remove(path)
		return "", err
	}
	return path, nil
}
