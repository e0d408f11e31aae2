package slice

import (
	"context"
	"fmt"
	"sync"
	"time"

	"r3slice/internal/logging"
)

// DefaultCleanupTimeout bounds the removal of temporary rasters once the
// run context has been canceled.
const DefaultCleanupTimeout = 2 * time.Minute

// Scratch owns the temporary rasters of one run. Every raster whose name
// starts with Prefix is removed by Close.
type Scratch struct {
	engine  Engine
	prefix  string
	timeout time.Duration

	once sync.Once
	err  error
}

// NewScratch creates a guard for rasters named prefix*. Create it before the
// first temporary raster is written and defer Close. A timeout <= 0 means
// DefaultCleanupTimeout.
func NewScratch(engine Engine, prefix string, timeout time.Duration) *Scratch {
	if timeout <= 0 {
		timeout = DefaultCleanupTimeout
	}
	return &Scratch{engine: engine, prefix: prefix, timeout: timeout}
}

// Prefix returns the name prefix of the run's temporary rasters.
func (s *Scratch) Prefix() string { return s.prefix }

// Pattern returns the wildcard matching every temporary raster of the run.
func (s *Scratch) Pattern() string { return s.prefix + "*" }

// Close removes the temporary rasters. It runs at most once and ignores
// cancellation of ctx, so it still cleans up after an interrupt.
func (s *Scratch) Close(ctx context.Context) error {
	s.once.Do(func() {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		logging.SliceDebug("removing temporary rasters %s", s.Pattern())
		if err := s.engine.RemoveRasters(cleanupCtx, s.Pattern()); err != nil {
			s.err = fmt.Errorf("remove temporary rasters %s: %w", s.Pattern(), err)
		}
	})
	return s.err
}
