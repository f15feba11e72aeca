package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ldnfood/linkage-cli/internal/districts"
	"github.com/ldnfood/linkage-cli/internal/model"
	"github.com/ldnfood/linkage-cli/internal/report"
)

var (
	reportRunID     string
	reportCSVPath   string
	reportXLSXPath  string
	reportShapefile string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Report on a match run",
	Long:  "Prints the run summary as YAML and optionally exports the joined rows to CSV or XLSX. A boundary shapefile adds a per-borough breakdown.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		var run *model.MatchRun
		if reportRunID != "" {
			run, err = st.GetMatchRun(ctx, reportRunID)
			if err != nil {
				return eris.Wrapf(err, "run %s", reportRunID)
			}
		} else {
			run, err = st.LatestMatchRun(ctx)
			if err != nil {
				return eris.Wrap(err, "latest run")
			}
			if run == nil {
				return eris.New("no match runs recorded; run match first")
			}
		}

		results, err := st.ListMatchResults(ctx, run.ID)
		if err != nil {
			return eris.Wrap(err, "list match results")
		}
		venues, err := st.ListVenues(ctx)
		if err != nil {
			return eris.Wrap(err, "list venues")
		}

		set, err := loadBoundaries()
		if err != nil {
			return err
		}

		if reportCSVPath != "" {
			f, err := os.Create(reportCSVPath)
			if err != nil {
				return eris.Wrapf(err, "create %s", reportCSVPath)
			}
			if err := report.WriteCSV(f, venues, results, set); err != nil {
				f.Close() //nolint:errcheck
				return err
			}
			if err := f.Close(); err != nil {
				return eris.Wrapf(err, "close %s", reportCSVPath)
			}
			zap.L().Info("csv export written", zap.String("path", reportCSVPath))
		}
		if reportXLSXPath != "" {
			if err := report.WriteXLSX(reportXLSXPath, venues, results, set); err != nil {
				return err
			}
			zap.L().Info("xlsx export written", zap.String("path", reportXLSXPath))
		}

		// A completed run carries its summary; recompute only for runs
		// that never completed.
		var summary model.RunSummary
		if run.Summary != nil {
			summary = *run.Summary
		} else {
			summary = report.Summarize(results, 0, cfg.Report.HighConfidence)
		}
		var boroughs []report.BoroughStat
		if set != nil {
			boroughs = report.ByBorough(venues, results, set)
		}
		return report.WriteYAML(cmd.OutOrStdout(), summary, boroughs)
	},
}

// loadBoundaries loads the borough set when a shapefile was given.
func loadBoundaries() (*districts.Set, error) {
	if reportShapefile == "" {
		return nil, nil
	}
	if strings.EqualFold(filepath.Ext(reportShapefile), ".zip") {
		return districts.LoadArchive(reportShapefile, cfg.Districts.NameField)
	}
	return districts.LoadShapefile(reportShapefile, cfg.Districts.NameField)
}

func init() {
	reportCmd.Flags().StringVar(&reportRunID, "run", "", "match run id (default: most recent)")
	reportCmd.Flags().StringVar(&reportCSVPath, "csv", "", "write joined rows to a CSV file")
	reportCmd.Flags().StringVar(&reportXLSXPath, "xlsx", "", "write joined rows to an XLSX file")
	reportCmd.Flags().StringVar(&reportShapefile, "shapefile", "", "borough boundary shapefile or zip for the breakdown")
	rootCmd.AddCommand(reportCmd)
}
