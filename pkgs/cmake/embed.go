package cmake

import (
	"io"
	"strings"
)

// Embed translates a text file into CMake commands that reproduce it
// line by line at configure time, appending to the file named by ${OUTPUT}.
func Embed(w io.Writer, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		line = strings.ReplaceAll(line, `"`, `\"`)
		lines[i] = `file(APPEND ${OUTPUT} "` + line + `\n")`
	}
	_, err = io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}
