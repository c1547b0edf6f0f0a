package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestDomainLimiterIndependentHosts(t *testing.T) {
	// Burst 1 at a very low rate: the second request on the same host
	// would block, but a different host has its own bucket.
	dl := NewDomainLimiter(0.001, 1)
	ctx := context.Background()

	if err := dl.Wait(ctx, "https://a.test/page"); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	if err := dl.Wait(ctx, "https://b.test/page"); err != nil {
		t.Fatalf("other host wait: %v", err)
	}
}

func TestDomainLimiterBlocksUntilCancel(t *testing.T) {
	dl := NewDomainLimiter(0.001, 1)

	if err := dl.Wait(context.Background(), "https://a.test/1"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := dl.Wait(ctx, "https://a.test/2"); err == nil {
		t.Error("second wait returned before the bucket refilled")
	}
}

func TestDomainLimiterUnparseableURL(t *testing.T) {
	dl := NewDomainLimiter(0.001, 1)
	if err := dl.Wait(context.Background(), "::bad::"); err != nil {
		t.Errorf("Wait on hostless input: %v", err)
	}
}
