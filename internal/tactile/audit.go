package tactile

import (
	"sync"
	"time"
)

// Auditor fans audit events out to subscribers and keeps totals.
type Auditor struct {
	mu          sync.RWMutex
	subscribers []func(AuditEvent)
	stats       Stats
}

// Stats totals the executions an Auditor has seen.
type Stats struct {
	Commands int
	Failed   int
	Killed   int

	// Elapsed is the summed wall time of finished commands.
	Elapsed time.Duration

	// CPU is the summed user and system time, where reported.
	CPU time.Duration
}

// NewAuditor creates an Auditor with no subscribers.
func NewAuditor() *Auditor {
	return &Auditor{}
}

// Subscribe adds fn to the receivers of every event.
func (a *Auditor) Subscribe(fn func(AuditEvent)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.subscribers = append(a.subscribers, fn)
}

// Log records event and hands it to the subscribers.
func (a *Auditor) Log(event AuditEvent) {
	a.mu.Lock()
	a.stats.record(event)
	subscribers := a.subscribers
	a.mu.Unlock()

	for _, fn := range subscribers {
		fn(event)
	}
}

// Stats returns the totals so far.
func (a *Auditor) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stats
}

func (s *Stats) record(event AuditEvent) {
	switch event.Type {
	case AuditEventStart:
		s.Commands++
		return
	case AuditEventKilled:
		s.Killed++
	case AuditEventError:
		s.Failed++
	case AuditEventComplete:
		if event.Result != nil && event.Result.Failed() {
			s.Failed++
		}
	}

	if r := event.Result; r != nil {
		s.Elapsed += r.Duration
		if r.ResourceUsage != nil {
			s.CPU += time.Duration(r.ResourceUsage.TotalCPUTimeMs()) * time.Millisecond
		}
	}
}

// Audited is an Executor whose events go to an Auditor.
type Audited struct {
	Executor
	auditor *Auditor
}

// NewAudited routes the audit events of executor to a new Auditor.
// Executors that emit no events still run, with empty stats.
func NewAudited(executor Executor) *Audited {
	auditor := NewAuditor()
	if src, ok := executor.(auditSource); ok {
		src.SetAuditCallback(auditor.Log)
	}
	return &Audited{Executor: executor, auditor: auditor}
}

// Auditor returns the auditor receiving the executor's events.
func (a *Audited) Auditor() *Auditor { return a.auditor }
