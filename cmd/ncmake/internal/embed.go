package internal

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/goplus/ncmake/pkgs/cmake"
)

var embedCmd = &cobra.Command{
	Use:   "embed <file>",
	Short: "Print CMake commands that write a text file to ${OUTPUT}",
	Args:  cobra.ExactArgs(1),
	RunE:  runEmbed,
}

func init() {
	rootCmd.AddCommand(embedCmd)
}

func runEmbed(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	return cmake.Embed(cmd.OutOrStdout(), f)
}
