package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harunaga/adpilot/internal/domain"
	"github.com/harunaga/adpilot/internal/orchestrator"
)

func newRunCmd(configPath *string) *cobra.Command {
	var (
		dryRun bool
		doApply bool
		asin   string
		mode   string
	)

	cmd := &cobra.Command{
		Use:       "run [engine]",
		Short:     "Run one engine immediately",
		Long:      "Run one engine over the current warehouse snapshot: bid, budget, placement, lifecycle, negative, auto-exact or discovery.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bid", "budget", "placement", "lifecycle", "negative", "auto-exact", "discovery"},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			opts := orchestrator.Options{
				DryRun: dryRun,
				Apply:  doApply,
				ASIN:   asin,
				Mode:   domain.EngineMode(mode),
			}

			records, err := runEngine(cmd.Context(), a.orc, args[0], opts)
			if err != nil {
				return err
			}
			a.log.Info().Str("engine", args[0]).Int("records", records).Bool("dry_run", dryRun).Msg("run finished")
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "evaluate only, persist nothing")
	cmd.Flags().BoolVar(&doApply, "apply", false, "stream decisions to the apply sink (still gated by execution-mode flags)")
	cmd.Flags().StringVar(&asin, "asin", "", "restrict the run to one product")
	cmd.Flags().StringVar(&mode, "mode", "", "bid engine mode override: NORMAL or S_MODE")
	return cmd
}

func runEngine(ctx context.Context, orc *orchestrator.Orchestrator, engine string, opts orchestrator.Options) (int, error) {
	switch engine {
	case "bid":
		recs, err := orc.RunBid(ctx, opts)
		return len(recs), err
	case "budget":
		recs, err := orc.RunBudget(ctx, opts)
		return len(recs), err
	case "placement":
		recs, err := orc.RunPlacement(ctx, opts)
		return len(recs), err
	case "lifecycle":
		recs, err := orc.RunLifecycle(ctx, opts)
		return len(recs), err
	case "negative":
		recs, err := orc.RunNegative(ctx, opts)
		return len(recs), err
	case "auto-exact":
		recs, err := orc.RunAutoExact(ctx, opts)
		return len(recs), err
	case "discovery":
		recs, err := orc.RunKeywordDiscovery(ctx, opts)
		return len(recs), err
	default:
		return 0, fmt.Errorf("unknown engine %q", engine)
	}
}
