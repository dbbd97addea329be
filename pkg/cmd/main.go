// Package cmd bundles every subcommand of the tool binary.
package cmd

import (
	"github.com/spf13/cobra"

	taskcmd "github.com/and3rson/yagni/pkg/buildsys/cmd"
)

var rootCmd = &cobra.Command{
	Use:   "tool",
	Short: "Build tools for yagni",
	Long: `This command bundles the tools used to build, package and publish yagni.
This includes the task runner, the packaging and publishing tools, a small
package index for local development and helpers to fetch dev dependencies.`,
}

func init() {
	rootCmd.AddCommand(taskcmd.RootCmd)
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
