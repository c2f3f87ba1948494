package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/kbukum/llmx/errors"
)

func TestBulkhead_AcquireRelease(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{Name: "server", MaxConcurrent: 2})
	ctx := context.Background()

	r1, err := b.Acquire(ctx)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := b.Acquire(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if b.InUse() != 2 || b.Available() != 0 {
		t.Errorf("expected full bulkhead, in use %d", b.InUse())
	}

	if _, err := b.Acquire(ctx); !errors.IsKind(err, errors.ErrCodeRateLimited) {
		t.Errorf("expected rate limit rejection, got %v", err)
	}

	r1()
	r2()
	if b.Available() != 2 {
		t.Errorf("expected 2 free slots, got %d", b.Available())
	}
}

func TestBulkhead_WaitsForSlot(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: time.Second})
	release, err := b.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	go func() {
		time.Sleep(5 * time.Millisecond)
		release()
	}()

	r, err := b.Acquire(context.Background())
	if err != nil {
		t.Fatalf("expected slot after release, got %v", err)
	}
	r()
}

func TestBulkhead_WaitTimeout(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: 5 * time.Millisecond})
	release, _ := b.Acquire(context.Background())
	defer release()

	if _, err := b.Acquire(context.Background()); err == nil {
		t.Error("expected timeout rejection")
	}
}
