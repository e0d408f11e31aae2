package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	sweepDryRun bool
	sweepMinAge time.Duration
)

// sweepCmd removes temporary rasters left behind by killed runs
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove temporary rasters of runs that never cleaned up",
	Long: `Looks up runs in the ledger whose temporary rasters were never removed,
for example because the process was killed, and removes them.

Requires the ledger (ledger.enabled in the config or R3SLICE_LEDGER).`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

func init() {
	sweepCmd.Flags().BoolVar(&sweepDryRun, "dry-run", false, "Only list what would be removed")
	sweepCmd.Flags().DurationVar(&sweepMinAge, "min-age", 30*time.Minute, "Skip runs that started more recently than this")
}

func runSweep(cmd *cobra.Command, args []string) error {
	if !cfg.Ledger.Enabled {
		return fmt.Errorf("sweep needs the run ledger; enable ledger.enabled or set R3SLICE_LEDGER")
	}

	ctx, stop := signalContext()
	defer stop()

	rt, err := newApp(cfg, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	results, err := rt.ledger.Sweep(ctx, rt.engine.WithSession("sweep"), sweepMinAge, sweepDryRun)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "Nothing to sweep.")
		return nil
	}

	var failed int
	for _, r := range results {
		switch {
		case sweepDryRun:
			fmt.Fprintf(out, "would remove %s (run %s, %s)\n", r.Pattern, r.Run.ID, r.Run.Status)
		case r.Err != nil:
			failed++
			fmt.Fprintf(out, "failed %s: %v\n", r.Pattern, r.Err)
		default:
			fmt.Fprintf(out, "removed %s (run %s)\n", r.Pattern, r.Run.ID)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d runs could not be swept", failed, len(results))
	}
	return nil
}
