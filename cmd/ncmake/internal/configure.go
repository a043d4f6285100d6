package internal

import "github.com/goplus/ncmake/internal/pipeline"

var configureCmd = pipelineCmd("configure", "Generate the build directory with CMake", (*pipeline.Pipeline).Configure)

func init() {
	configureCmd.Long = `Configure runs cmake to generate <output>/<platform>/<arch>.

If the generator or toolset differs from the one the directory was generated
with, the directory is removed and generated from scratch.`
	rootCmd.AddCommand(configureCmd)
}
