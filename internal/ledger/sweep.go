package ledger

import (
	"context"
	"fmt"
	"time"

	"r3slice/internal/logging"
)

// Remover deletes rasters by wildcard pattern.
type Remover interface {
	RemoveRasters(ctx context.Context, pattern string) error
}

// SweepResult reports one swept run.
type SweepResult struct {
	Run     Run
	Pattern string
	Err     error
}

// Sweep removes temporary rasters of runs that never cleaned up, such as
// runs killed with SIGKILL. Only runs that started at least minAge ago are
// touched so live runs keep their layers. With dryRun nothing is removed.
func (l *Ledger) Sweep(ctx context.Context, remover Remover, minAge time.Duration, dryRun bool) ([]SweepResult, error) {
	runs, err := l.Uncleaned(ctx, time.Now().Add(-minAge))
	if err != nil {
		return nil, err
	}

	results := make([]SweepResult, 0, len(runs))
	for _, run := range runs {
		res := SweepResult{Run: run, Pattern: run.Prefix + "*"}
		if dryRun {
			results = append(results, res)
			continue
		}

		if err := remover.RemoveRasters(ctx, res.Pattern); err != nil {
			res.Err = fmt.Errorf("remove %s: %w", res.Pattern, err)
			logging.LedgerWarn("sweep of run %s failed: %v", run.ID, err)
			results = append(results, res)
			continue
		}
		if err := l.MarkCleaned(ctx, run.ID); err != nil {
			res.Err = err
		} else {
			logging.Ledger("swept run %s (%s)", run.ID, res.Pattern)
		}
		results = append(results, res)
	}
	return results, nil
}
