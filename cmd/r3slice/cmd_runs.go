package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"r3slice/internal/ledger"
)

var runsLimit int

// runsCmd lists ledger entries
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded slice runs",
	Args:  cobra.NoArgs,
	RunE:  listRuns,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "Maximum number of runs to show (0 = all)")
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	failedStyle  = cellStyle.Foreground(lipgloss.Color("9"))
	pendingStyle = cellStyle.Foreground(lipgloss.Color("11"))
)

func listRuns(cmd *cobra.Command, args []string) error {
	if !cfg.Ledger.Enabled {
		fmt.Fprintln(cmd.OutOrStdout(), "Run ledger is disabled; enable ledger.enabled or set R3SLICE_LEDGER.")
		return nil
	}

	l, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return err
	}
	defer l.Close()

	runs, err := l.Runs(context.Background(), runsLimit)
	if err != nil {
		return err
	}
	renderRuns(cmd.OutOrStdout(), runs)
	return nil
}

// renderRuns prints runs as a table. Failed runs are red, runs that still
// own temporary rasters yellow.
func renderRuns(w io.Writer, runs []ledger.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		cleaned := "no"
		if r.Cleaned() {
			cleaned = "yes"
		}
		rows = append(rows, []string{
			r.ID,
			r.Volume,
			r.Output,
			string(r.Status),
			cleaned,
			r.StartedAt.Local().Format(time.DateTime),
			formatDuration(r),
			r.Error,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("RUN", "INPUT", "OUTPUT", "STATUS", "CLEANED", "STARTED", "DURATION", "ERROR").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row < 0 || row >= len(runs) {
				return cellStyle
			}
			switch {
			case runs[row].Status == ledger.StatusFailed:
				return failedStyle
			case !runs[row].Cleaned():
				return pendingStyle
			}
			return cellStyle
		})

	fmt.Fprintln(w, t.Render())
}

func formatDuration(r ledger.Run) string {
	if r.FinishedAt.IsZero() {
		return "-"
	}
	return r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
}
