package internal

import "github.com/goplus/ncmake/internal/pipeline"

var installCmd = pipelineCmd("install", "Build and install the project", (*pipeline.Pipeline).Install)

func init() {
	rootCmd.AddCommand(installCmd)
}
