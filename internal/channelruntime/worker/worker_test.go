package worker

import (
	"context"
	"testing"
)

func TestTryEnqueueDropsWhenFull(t *testing.T) {
	ctx := context.Background()
	jobs := make(chan int, 2)
	if !TryEnqueue(ctx, jobs, 1) || !TryEnqueue(ctx, jobs, 2) {
		t.Fatalf("TryEnqueue() = false with buffer space left")
	}
	if TryEnqueue(ctx, jobs, 3) {
		t.Fatalf("TryEnqueue() = true on a full buffer, want drop")
	}
	if len(jobs) != 2 {
		t.Fatalf("queue len = %d, want 2", len(jobs))
	}
}

func TestTryEnqueueRefusesAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	jobs := make(chan int, 1)
	if TryEnqueue(ctx, jobs, 1) {
		t.Fatalf("TryEnqueue() accepted a job after shutdown")
	}
}
