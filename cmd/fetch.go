package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ldnfood/linkage-cli/internal/scan"
	"github.com/ldnfood/linkage-cli/pkg/fhrs"
	"github.com/ldnfood/linkage-cli/pkg/places"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch source snapshots into the store",
	Long:  "Sweeps the configured grid against a source API and stores the deduplicated snapshot.",
}

var fetchPlacesCmd = &cobra.Command{
	Use:   "places",
	Short: "Fetch the venue directory snapshot",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if cfg.Places.Key == "" {
			return eris.New("places API key is required (LINKAGE_PLACES_KEY)")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		client := places.NewClient(cfg.Places.Key, places.WithBaseURL(cfg.Places.BaseURL))
		venues, err := scan.NewPlacesScanner(client, *cfg).Run(ctx)
		if err != nil {
			return eris.Wrap(err, "fetch places")
		}

		saved, err := st.SaveVenues(ctx, venues)
		if err != nil {
			return eris.Wrap(err, "save venues")
		}

		zap.L().Info("places fetch complete",
			zap.Int("venues", len(venues)),
			zap.Int("saved", saved),
		)
		return nil
	},
}

var fetchFHRSCmd = &cobra.Command{
	Use:   "fhrs",
	Short: "Fetch the FHRS establishment snapshot",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		client := fhrs.NewClient(fhrs.WithBaseURL(cfg.FHRS.BaseURL))
		ests, err := scan.NewFHRSScanner(client, *cfg).Run(ctx)
		if err != nil {
			return eris.Wrap(err, "fetch fhrs")
		}

		saved, err := st.SaveEstablishments(ctx, ests)
		if err != nil {
			return eris.Wrap(err, "save establishments")
		}

		zap.L().Info("fhrs fetch complete",
			zap.Int("establishments", len(ests)),
			zap.Int("saved", saved),
		)
		return nil
	},
}

func init() {
	fetchCmd.AddCommand(fetchPlacesCmd)
	fetchCmd.AddCommand(fetchFHRSCmd)
	rootCmd.AddCommand(fetchCmd)
}
