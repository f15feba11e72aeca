package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ldnfood/linkage-cli/internal/districts"
	"github.com/ldnfood/linkage-cli/internal/fetcher"
)

var districtsDir string

var districtsCmd = &cobra.Command{
	Use:   "districts",
	Short: "Manage borough boundary data",
}

var districtsImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Download the borough boundary archive and verify it loads",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{})
		zipPath, err := districts.Download(ctx, f, cfg.Districts.ShapefileURL, districtsDir)
		if err != nil {
			return err
		}

		set, err := districts.LoadArchive(zipPath, cfg.Districts.NameField)
		if err != nil {
			return err
		}

		zap.L().Info("boundary archive ready",
			zap.String("path", zipPath),
			zap.Int("districts", set.Len()),
		)
		return nil
	},
}

func init() {
	districtsImportCmd.Flags().StringVar(&districtsDir, "dir", ".", "directory to store the boundary archive")
	districtsCmd.AddCommand(districtsImportCmd)
	rootCmd.AddCommand(districtsCmd)
}
