package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ldnfood/linkage-cli/internal/ingest"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import snapshots from local files",
	Long:  "Loads venue or establishment snapshots from CSV, JSON, XLSX, XML, or zipped XML files into the store.",
}

var importVenuesCmd = &cobra.Command{
	Use:   "venues <file>",
	Short: "Import a venue snapshot (csv, json, or xlsx)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		venues, err := ingest.Venues(ctx, args[0])
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		saved, err := st.SaveVenues(ctx, venues)
		if err != nil {
			return eris.Wrap(err, "save venues")
		}

		zap.L().Info("venue import complete",
			zap.String("file", args[0]),
			zap.Int("venues", len(venues)),
			zap.Int("saved", saved),
		)
		return nil
	},
}

var importEstablishmentsCmd = &cobra.Command{
	Use:   "establishments <file>",
	Short: "Import an FHRS open-data snapshot (xml or zip)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		ests, err := ingest.Establishments(ctx, args[0])
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		saved, err := st.SaveEstablishments(ctx, ests)
		if err != nil {
			return eris.Wrap(err, "save establishments")
		}

		zap.L().Info("establishment import complete",
			zap.String("file", args[0]),
			zap.Int("establishments", len(ests)),
			zap.Int("saved", saved),
		)
		return nil
	},
}

func init() {
	importCmd.AddCommand(importVenuesCmd)
	importCmd.AddCommand(importEstablishmentsCmd)
	rootCmd.AddCommand(importCmd)
}
