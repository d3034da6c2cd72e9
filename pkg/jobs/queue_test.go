package jobs

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueDeliversJobs(t *testing.T) {
	delivered := make(chan Job, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		delivered <- job
		return nil
	}, QueueConfig{Workers: 1})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1", Type: "schedules"}))

	select {
	case job := <-delivered:
		assert.Equal(t, "job-1", job.ID)
		assert.False(t, job.EnqueuedAt.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("job was not delivered")
	}
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{ID: "job-1"}))
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	attempts := make(chan int, 4)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		attempts <- job.Attempt
		if job.Attempt == 0 {
			return fmt.Errorf("transient failure")
		}
		return nil
	}, QueueConfig{Workers: 1, MaxRetries: 2, RetryDelay: 10 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1"}))

	var seen []int
	for len(seen) < 2 {
		select {
		case attempt := <-attempts:
			seen = append(seen, attempt)
		case <-time.After(2 * time.Second):
			t.Fatalf("expected 2 deliveries, saw %v", seen)
		}
	}
	assert.Equal(t, []int{0, 1}, seen)
}

func TestQueueDropsJobAfterRetryBudget(t *testing.T) {
	attempts := make(chan int, 8)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		attempts <- job.Attempt
		return fmt.Errorf("permanent failure")
	}, QueueConfig{Workers: 1, MaxRetries: 1, RetryDelay: 10 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1"}))

	// Initial delivery plus one retry, then the job is dropped.
	for i := 0; i < 2; i++ {
		select {
		case <-attempts:
		case <-time.After(2 * time.Second):
			t.Fatalf("expected delivery %d", i+1)
		}
	}
	select {
	case attempt := <-attempts:
		t.Fatalf("unexpected extra delivery with attempt %d", attempt)
	case <-time.After(100 * time.Millisecond):
	}
}
