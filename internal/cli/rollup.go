package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mnemod/mnemod/internal/rollup"
	"github.com/mnemod/mnemod/internal/summarizer"
	"github.com/mnemod/mnemod/pkg/types"
)

var (
	rollupLevel  string
	rollupPeriod string
)

func init() {
	cmd := &cobra.Command{
		Use:   "rollup",
		Short: "Run due rollups, or one specific period with --level and --period",
		Run:   runRollup,
	}
	cmd.Flags().StringVar(&rollupLevel, "level", "", "Source level: daily, weekly, monthly")
	cmd.Flags().StringVar(&rollupPeriod, "period", "", "Source period key, e.g. 2026-02-09")
	cmd.MarkFlagsRequiredTogether("level", "period")
	RootCmd.AddCommand(cmd)
}

func runRollup(cmd *cobra.Command, args []string) {
	a, err := buildApp()
	if err != nil {
		exitErr("startup", err)
	}
	defer a.close()

	ctx := cmd.Context()
	if rollupLevel == "" {
		if err := runCatchUpPass(ctx, a); err != nil {
			exitErr("catch-up pass", err)
		}
		return
	}

	level := types.Level(rollupLevel)
	if !types.IsValidLevel(level) {
		exitErr("rollup", fmt.Errorf("unknown level %q", rollupLevel))
	}
	res, err := a.executor.Run(ctx, level, rollupPeriod)
	if err != nil {
		exitErr("rollup", err)
	}
	printJSON(res)
}

// runCatchUpPass computes due rollups and executes them in order. A
// period with no source document is logged and skipped; any other
// failure stops the pass.
func runCatchUpPass(ctx context.Context, a *app) error {
	state, err := a.states.Load(ctx)
	if err != nil {
		return err
	}
	due := a.sched.DuePeriods(ctx, state, time.Now().UTC())
	for _, d := range due {
		res, err := a.executor.Run(ctx, d.Level, d.Period)
		if errors.Is(err, rollup.ErrSourceMissing) {
			a.logger.Info("no source document for due rollup",
				zap.String("level", string(d.Level)), zap.String("period", d.Period))
			continue
		}
		if errors.Is(err, summarizer.ErrUnavailable) {
			a.logger.Warn("rollup deferred, summarizer unavailable",
				zap.String("level", string(d.Level)), zap.String("period", d.Period))
			continue
		}
		if err != nil {
			return err
		}
		printJSON(res)
	}
	return nil
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}
