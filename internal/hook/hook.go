// Package hook ships the Windows delay-load hook source that CMake compiles
// into every addon.
package hook

import (
	"embed"
	"io"
	"os"
	"path/filepath"
)

// FileName is the name of the template inside the build directory.
const FileName = "win_delay_load_hook.c"

//go:embed win_delay_load_hook.c
var files embed.FS

// Copy writes the template into dir and returns the path written.
func Copy(dir string) (string, error) {
	src, err := files.Open(FileName)
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst := filepath.Join(dir, FileName)
	f, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return "", err
	}
	return dst, f.Close()
}
