package internal

import "github.com/goplus/ncmake/internal/pipeline"

var buildCmd = pipelineCmd("build", "Build a configured project", (*pipeline.Pipeline).Build)

var rebuildCmd = pipelineCmd("rebuild", "Clean, configure and build the project", (*pipeline.Pipeline).Rebuild)

func init() {
	buildCmd.Long = `Build compiles the project in an already configured build directory.

The directory is regenerated first when the requested options differ from
those it was configured with. Building a directory that was never configured
fails with exit code 6.`
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(rebuildCmd)
}
