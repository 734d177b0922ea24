package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type stubResult struct {
	err error
}

func (r *stubResult) GetError() error { return r.err }

// stubJob counts executions and optionally sleeps or fails
type stubJob struct {
	sleep    time.Duration
	fail     bool
	executed *int32
}

func (j *stubJob) Execute(ctx context.Context) Result {
	if j.executed != nil {
		atomic.AddInt32(j.executed, 1)
	}
	if j.sleep > 0 {
		select {
		case <-time.After(j.sleep):
		case <-ctx.Done():
			return &stubResult{err: ctx.Err()}
		}
	}
	if j.fail {
		return &stubResult{err: errors.New("job error")}
	}
	return &stubResult{}
}

func TestNewPool_WorkerFloor(t *testing.T) {
	tests := []struct {
		requested int
		want      int
	}{
		{5, 5},
		{1, 1},
		{0, 1},
		{-3, 1},
	}

	for _, tt := range tests {
		if p := NewPool(tt.requested); p.workers != tt.want {
			t.Errorf("NewPool(%d): expected %d workers, got %d", tt.requested, tt.want, p.workers)
		}
	}
}

func TestPool_RunsEveryJob(t *testing.T) {
	pool := NewPool(2)
	pool.Start()

	var executed int32
	const jobs = 10
	for i := 0; i < jobs; i++ {
		pool.Submit(&stubJob{executed: &executed})
	}

	results := pool.Wait()
	if len(results) != jobs {
		t.Errorf("expected %d results, got %d", jobs, len(results))
	}
	if n := atomic.LoadInt32(&executed); n != jobs {
		t.Errorf("expected %d executions, got %d", jobs, n)
	}
}

func TestPool_BoundedConcurrency(t *testing.T) {
	const workers = 10
	const jobs = 50

	pool := NewPool(workers)
	pool.Start()

	var inFlight, peak, completed int32
	var mu sync.Mutex

	for i := 0; i < jobs; i++ {
		pool.Submit(&gaugeJob{
			enter: func() {
				n := atomic.AddInt32(&inFlight, 1)
				mu.Lock()
				if n > peak {
					peak = n
				}
				mu.Unlock()
			},
			leave: func() {
				atomic.AddInt32(&inFlight, -1)
				atomic.AddInt32(&completed, 1)
			},
			hold: 10 * time.Millisecond,
		})
	}

	pool.Wait()

	if n := atomic.LoadInt32(&completed); n != jobs {
		t.Errorf("expected %d completed jobs, got %d", jobs, n)
	}

	mu.Lock()
	max := peak
	mu.Unlock()
	if max > workers {
		t.Errorf("peak concurrency %d exceeded %d workers", max, workers)
	}
	if max <= 1 {
		t.Logf("peak concurrency was %d, expected > 1", max)
	}
}

// gaugeJob reports entry and exit so tests can watch concurrency
type gaugeJob struct {
	enter func()
	leave func()
	hold  time.Duration
}

func (j *gaugeJob) Execute(ctx context.Context) Result {
	if j.enter != nil {
		j.enter()
	}
	time.Sleep(j.hold)
	if j.leave != nil {
		j.leave()
	}
	return &stubResult{}
}

func TestPool_FailuresSurfaceAsResults(t *testing.T) {
	pool := NewPool(2)
	pool.Start()

	pool.Submit(&stubJob{fail: true})
	pool.Submit(&stubJob{})

	results := pool.Wait()
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	failed := 0
	for _, res := range results {
		if res.GetError() != nil {
			failed++
		}
	}
	if failed != 1 {
		t.Errorf("expected 1 failed result, got %d", failed)
	}
}

func TestPool_SubmitAfterShutdownDoesNotBlock(t *testing.T) {
	pool := NewPool(2)
	pool.Start()
	pool.Shutdown()

	done := make(chan struct{})
	go func() {
		pool.Submit(&stubJob{})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Submit after shutdown blocked")
	}
}

func TestPool_ShutdownStopsRunningJobs(t *testing.T) {
	pool := NewPool(2)
	pool.Start()

	started := make(chan struct{})
	pool.Submit(&gaugeJob{
		enter: func() { close(started) },
		hold:  200 * time.Millisecond,
	})
	<-started

	pool.Shutdown()

	// results must be closed so readers drain and exit
	done := make(chan struct{})
	go func() {
		for range pool.results {
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Shutdown left the results channel open")
	}
}
