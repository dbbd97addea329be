package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/and3rson/yagni/pkg"
	"github.com/and3rson/yagni/pkg/dist"
	"github.com/and3rson/yagni/pkg/project"
)

var packCmd = &cobra.Command{
	Use:   "pack",
	Short: "Packs the project files into distributable archives",
	Long: `Reads project.yml, collects the listed files and writes one archive per
configured compression format into the dist directory, together with a build
manifest and a checksum file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := pkg.GetProjectRoot()
		if err != nil {
			return err
		}

		manifest, err := project.Load(filepath.Join(root, project.DefaultFile))
		if err != nil {
			return err
		}

		outDir, err := cmd.Flags().GetString("dest")
		if err != nil {
			return err
		}
		if !filepath.IsAbs(outDir) {
			outDir = filepath.Join(root, outDir)
		}

		pkg.PrintTask(fmt.Sprintf("Packing %s %s (%d formats)", manifest.Name, manifest.Version, len(manifest.Compression)))
		info, err := dist.Pack(root, manifest, outDir)
		if err != nil {
			return err
		}

		for _, artifact := range info.Artifacts {
			pkg.PrintSubtask(fmt.Sprintf("%s  (%d bytes, sha256 %s)", artifact.File, artifact.Size, artifact.Digest[:12]))
		}
		pkg.PrintSubtask(fmt.Sprintf("%d files included", len(info.Files)))

		return nil
	},
}

func init() {
	packCmd.Flags().StringP("dest", "d", "dist", "destination directory for the archives")
	rootCmd.AddCommand(packCmd)
}
