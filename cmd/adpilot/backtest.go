package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/harunaga/adpilot/internal/backtest"
	"github.com/harunaga/adpilot/internal/domain"
)

func newBacktestCmd(configPath *string) *cobra.Command {
	var (
		from    string
		to      string
		asin    string
		margin  float64
		weekly  bool
		dryRun  bool
		csvPath string
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay stored recommendations against stored outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			fromDate, err := time.Parse("2006-01-02", from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			toDate, err := time.Parse("2006-01-02", to)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}

			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			gran := domain.GranularityDaily
			if weekly {
				gran = domain.GranularityWeekly
			}
			res, err := a.orc.RunBacktest(cmd.Context(), backtest.Params{
				From:        fromDate,
				To:          toDate,
				ASIN:        asin,
				Granularity: gran,
				MarginRate:  margin,
			}, dryRun)
			if err != nil {
				return err
			}

			a.log.Info().
				Str("execution_id", res.Meta.ExecutionID).
				Int("matched", res.Meta.MatchedCount).
				Float64("acos_points", res.Improvement.AcosPoints).
				Float64("accuracy", res.Accuracy.AccuracyRate).
				Msg("backtest finished")

			if csvPath != "" {
				f, err := os.Create(csvPath)
				if err != nil {
					return err
				}
				defer f.Close()
				if err := res.WriteCSV(f); err != nil {
					return err
				}
				a.log.Info().Str("path", csvPath).Msg("series exported")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "start date, 2006-01-02 (required)")
	cmd.Flags().StringVar(&to, "to", "", "end date, 2006-01-02 (required)")
	cmd.Flags().StringVar(&asin, "asin", "", "restrict the replay to one product")
	cmd.Flags().Float64Var(&margin, "margin", 0.3, "margin rate for the profit estimate")
	cmd.Flags().BoolVar(&weekly, "weekly", false, "aggregate the series by ISO week")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "do not persist the result")
	cmd.Flags().StringVar(&csvPath, "csv", "", "also write the series to this CSV file")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	return cmd
}
