package cmd

import (
	"path/filepath"

	"github.com/muyo/sno"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/and3rson/yagni/pkg"
	"github.com/and3rson/yagni/pkg/config"
	"github.com/and3rson/yagni/pkg/project"
	"github.com/and3rson/yagni/pkg/publish"
	"github.com/and3rson/yagni/pkg/storage"
)

var publishCmd = &cobra.Command{
	Use:   "publish [files...]",
	Short: "Uploads build artifacts to the package index",
	Long: `Uploads the given files (default: everything in the dist directory) to the
package index configured under publish.url. Successful uploads are recorded
in a local ledger so repeated runs only transfer what is missing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		setupLogging(cfg)

		root, err := pkg.GetProjectRoot()
		if err != nil {
			return err
		}

		manifest, err := project.Load(filepath.Join(root, project.DefaultFile))
		if err != nil {
			return err
		}

		files := args
		if len(files) == 0 {
			files, err = publish.DefaultFiles(filepath.Join(root, "dist"))
			if err != nil {
				return err
			}
		}

		ledger, err := storage.OpenLedger(filepath.Join(root, storage.LedgerFile))
		if err != nil {
			return err
		}
		defer ledger.Close()

		logger := log.With().Str("session", sno.New(0).String()).Logger()
		ctx := logger.WithContext(cmd.Context())
		logger.Info().Msgf("Publishing %s %s to %s", manifest.Name, manifest.Version, cfg.Publish.URL)

		client := publish.NewClient(cfg, ledger)
		counts := map[publish.Status]int{}
		for _, file := range files {
			status, err := client.UploadFile(ctx, manifest.Name, manifest.Version, file)
			if err != nil {
				return err
			}

			counts[status]++
		}

		logger.Info().Msgf("Done: %d uploaded, %d already present",
			counts[publish.StatusUploaded],
			counts[publish.StatusAlreadySent]+counts[publish.StatusExists])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(publishCmd)
}
