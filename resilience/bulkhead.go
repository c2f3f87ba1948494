package resilience

import (
	"context"
	"time"

	"github.com/kbukum/llmx/errors"
)

// BulkheadConfig configures a bulkhead.
type BulkheadConfig struct {
	// Name identifies this bulkhead in errors.
	Name string
	// MaxConcurrent is the maximum number of concurrent calls.
	MaxConcurrent int
	// MaxWait is how long to wait for a slot. 0 means fail immediately.
	MaxWait time.Duration
}

// Bulkhead caps the number of concurrent generations a process issues.
type Bulkhead struct {
	config BulkheadConfig
	sem    chan struct{}
}

// NewBulkhead creates a new bulkhead.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}
	return &Bulkhead{
		config: config,
		sem:    make(chan struct{}, config.MaxConcurrent),
	}
}

// Acquire takes a slot. The returned release func must be called exactly once.
// A full bulkhead yields a retryable rate-limit error.
func (b *Bulkhead) Acquire(ctx context.Context) (release func(), err error) {
	select {
	case b.sem <- struct{}{}:
		return b.release, nil
	default:
	}

	if b.config.MaxWait <= 0 {
		return nil, b.rejected()
	}

	timer := time.NewTimer(b.config.MaxWait)
	defer timer.Stop()
	select {
	case b.sem <- struct{}{}:
		return b.release, nil
	case <-timer.C:
		return nil, b.rejected()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *Bulkhead) rejected() error {
	appErr := errors.New(errors.ErrCodeRateLimited, "Too many concurrent generations")
	return appErr.WithDetail("bulkhead", b.config.Name)
}

func (b *Bulkhead) release() {
	<-b.sem
}

// Available returns the number of available slots.
func (b *Bulkhead) Available() int {
	return b.config.MaxConcurrent - len(b.sem)
}

// InUse returns the number of slots currently in use.
func (b *Bulkhead) InUse() int {
	return len(b.sem)
}
