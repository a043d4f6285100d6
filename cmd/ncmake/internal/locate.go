package internal

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goplus/ncmake/internal/config"
	"github.com/goplus/ncmake/pkgs/addon"
)

var locateDir string

var locateCmd = &cobra.Command{
	Use:   "locate <name>",
	Short: "Print the path of a built native addon",
	Long: `Locate searches the build output directories around --dir for <name>.node,
walking up to the root of the volume. Nearer directories win; at the same
level the requested configuration (--debug) beats the other one.`,
	Args: cobra.ExactArgs(1),
	RunE: runLocate,
}

func init() {
	locateCmd.Flags().StringVar(&locateDir, "dir", ".", "Directory to start searching from")
	rootCmd.AddCommand(locateCmd)
}

func runLocate(cmd *cobra.Command, args []string) error {
	mode := addon.Release
	if flagDebug || flagConfig == config.Debug {
		mode = addon.Debug
	}
	loc, err := addon.Resolve(locateDir, args[0], mode)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), loc.Path)
	return err
}
