package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ldnfood/linkage-cli/internal/linkage"
	"github.com/ldnfood/linkage-cli/internal/report"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match stored venues against stored establishments",
	Long:  "Runs the matching engine over the stored snapshots and records the results as a new match run.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		venues, err := st.ListVenues(ctx)
		if err != nil {
			return eris.Wrap(err, "list venues")
		}
		if len(venues) == 0 {
			return eris.New("no venues stored; run fetch places or import venues first")
		}
		ests, err := st.ListEstablishments(ctx)
		if err != nil {
			return eris.Wrap(err, "list establishments")
		}
		if len(ests) == 0 {
			return eris.New("no establishments stored; run fetch fhrs or import establishments first")
		}

		engine, err := linkage.New(cfg.Match)
		if err != nil {
			return err
		}

		run, err := st.CreateMatchRun(ctx)
		if err != nil {
			return eris.Wrap(err, "create match run")
		}

		results, err := engine.Run(ctx, venues, ests)
		if err != nil {
			if failErr := st.FailMatchRun(ctx, run.ID); failErr != nil {
				zap.L().Error("mark run failed", zap.String("run", run.ID), zap.Error(failErr))
			}
			return eris.Wrap(err, "match run")
		}

		if err := st.SaveMatchResults(ctx, run.ID, results); err != nil {
			if failErr := st.FailMatchRun(ctx, run.ID); failErr != nil {
				zap.L().Error("mark run failed", zap.String("run", run.ID), zap.Error(failErr))
			}
			return eris.Wrap(err, "save match results")
		}

		summary := report.Summarize(results, len(ests), cfg.Report.HighConfidence)
		if err := st.CompleteMatchRun(ctx, run.ID, &summary); err != nil {
			return eris.Wrap(err, "complete match run")
		}

		zap.L().Info("match run complete",
			zap.String("run", run.ID),
			zap.Int("probes", summary.Probes),
			zap.Int("candidates", summary.Candidates),
			zap.Int("matched", summary.Matched),
			zap.Int("high_confidence", summary.HighConfidence),
			zap.Float64("match_rate", summary.MatchRate),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)
}
