package ledger

import (
	"context"

	"r3slice/internal/logging"
	"r3slice/internal/slice"
	"r3slice/internal/tactile"
)

// Observer adapts the ledger to slice.Observer. Ledger write failures are
// logged and never interrupt the run.
func (l *Ledger) Observer() slice.Observer {
	return runObserver{l: l}
}

type runObserver struct {
	l *Ledger
}

func (o runObserver) RunStarted(ctx context.Context, run slice.Run) {
	err := o.l.StartRun(context.WithoutCancel(ctx), Run{
		ID:     run.ID,
		Prefix: run.Prefix,
		Volume: run.Volume,
		Output: run.Output,
	})
	if err != nil {
		logging.LedgerWarn("%v", err)
	}
}

func (o runObserver) RunImported(ctx context.Context, run slice.Run) {
	if err := o.l.SetStatus(context.WithoutCancel(ctx), run.ID, StatusImported, nil); err != nil {
		logging.LedgerWarn("%v", err)
	}
}

func (o runObserver) RunFailed(ctx context.Context, run slice.Run, runErr error) {
	if err := o.l.SetStatus(context.WithoutCancel(ctx), run.ID, StatusFailed, runErr); err != nil {
		logging.LedgerWarn("%v", err)
	}
}

func (o runObserver) RunCleaned(ctx context.Context, run slice.Run) {
	if err := o.l.MarkCleaned(context.WithoutCancel(ctx), run.ID); err != nil {
		logging.LedgerWarn("%v", err)
	}
}

// AuditCallback returns a tactile audit callback that records every
// finished command under its session id.
func (l *Ledger) AuditCallback() func(tactile.AuditEvent) {
	return func(event tactile.AuditEvent) {
		if event.Type == tactile.AuditEventStart || event.SessionID == "" {
			return
		}

		cmd := Command{
			RunID:    event.SessionID,
			Event:    string(event.Type),
			Command:  event.Command.CommandString(),
			ExitCode: -1,
			At:       event.Timestamp,
		}
		if event.Result != nil {
			cmd.ExitCode = event.Result.ExitCode
			cmd.Duration = event.Result.Duration
		}

		if err := l.RecordCommand(context.Background(), cmd); err != nil {
			logging.LedgerWarn("%v", err)
			return
		}
		logging.LedgerDebug("recorded %s for run %s", event.Command.Binary, event.SessionID)
	}
}
