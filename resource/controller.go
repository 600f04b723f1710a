// Package resource bounds the I/O footprint of index persistence so that
// background index builds do not starve foreground query traffic.
package resource

import (
	"context"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// MaxConcurrentPersists is the maximum number of persist operations
	// running at once. If 0, defaults to 1.
	MaxConcurrentPersists int64

	// IOLimitBytesPerSec is the maximum write throughput for persist
	// operations. If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller manages persist concurrency and I/O throughput.
// A nil *Controller is valid and enforces nothing.
type Controller struct {
	persistSem *semaphore.Weighted
	ioLimiter  *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxConcurrentPersists <= 0 {
		cfg.MaxConcurrentPersists = 1
	}

	c := &Controller{
		persistSem: semaphore.NewWeighted(cfg.MaxConcurrentPersists),
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// AcquirePersist reserves a persist slot, blocking until one is available
// or ctx is canceled.
func (c *Controller) AcquirePersist(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.persistSem.Acquire(ctx, 1)
}

// ReleasePersist releases a persist slot.
func (c *Controller) ReleasePersist() {
	if c == nil {
		return
	}
	c.persistSem.Release(1)
}

// AcquireIO waits until the I/O limit allows the specified number of bytes.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	return c.ioLimiter.WaitN(ctx, bytes)
}
