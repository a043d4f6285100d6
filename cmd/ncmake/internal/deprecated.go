package internal

import (
	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"
)

func deprecatedCmd(use string) *cobra.Command {
	return &cobra.Command{
		Use:    use,
		Short:  "Deprecated, does nothing",
		Hidden: true,
		Args:   cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Warnf("'ncmake %s' is deprecated and does nothing: runtime headers are managed by the project's CMake files", use)
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(deprecatedCmd("list"))
	rootCmd.AddCommand(deprecatedCmd("remove"))
}
