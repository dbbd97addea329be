package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/and3rson/yagni/pkg/config"
	"github.com/and3rson/yagni/pkg/index"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Runs a local package index",
	Long: `Serves a development package index that accepts uploads from the publish
tool and stores them under the configured data directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		setupLogging(cfg)

		return index.StartServer(cfg)
	},
}

var genTokenCmd = &cobra.Command{
	Use:   "gen-token",
	Short: "Generates a fresh upload token",
	Long: `Prints a random token suitable for the index.token and publish.token
settings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := index.GenerateToken()
		if err != nil {
			return err
		}

		fmt.Println(token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(genTokenCmd)
}
