package internal

import "github.com/goplus/ncmake/internal/pipeline"

var cleanCmd = pipelineCmd("clean", "Run the clean target of the build directory", (*pipeline.Pipeline).Clean)

var distcleanCmd = pipelineCmd("distclean", "Remove the build output root", (*pipeline.Pipeline).Distclean)

func init() {
	distcleanCmd.Long = `Distclean removes the whole output root, including the build directories of
every platform and architecture.`
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(distcleanCmd)
}
