package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDispatcherRunsTasks(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{MinWorkers: 1, MaxWorkers: 3, QueueSize: 10})
	defer d.Close()

	var count atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func(client string) {
			defer wg.Done()
			err := d.Do(context.Background(), client, func(ctx context.Context) error {
				count.Add(1)
				return nil
			})
			if err != nil && !errors.Is(err, ErrDispatcherBusy) {
				t.Errorf("do: %v", err)
			}
		}([]string{"a", "b"}[i%2])
	}
	wg.Wait()
	if count.Load() == 0 {
		t.Fatalf("expected tasks to run")
	}
}

func TestDispatcherReturnsTaskError(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{MinWorkers: 1, MaxWorkers: 1, QueueSize: 1})
	defer d.Close()

	want := errors.New("provider down")
	if err := d.Do(context.Background(), "a", func(context.Context) error { return want }); !errors.Is(err, want) {
		t.Fatalf("expected task error, got %v", err)
	}
	err := d.Do(context.Background(), "a", func(context.Context) error { panic("boom") })
	if err == nil {
		t.Fatalf("expected panic to surface as error")
	}
}

func TestDispatcherBusyWhenQueueFull(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{MinWorkers: 1, MaxWorkers: 1, QueueSize: 1})
	defer d.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	firstDone := make(chan error, 1)
	go func() {
		firstDone <- d.Do(context.Background(), "a", func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	results := make(chan error, 9)
	for i := 0; i < 9; i++ {
		go func() {
			results <- d.Do(context.Background(), "b", func(context.Context) error { return nil })
		}()
	}

	busy := 0
	deadline := time.After(2 * time.Second)
	for busy < 7 {
		select {
		case err := <-results:
			if !errors.Is(err, ErrDispatcherBusy) {
				t.Fatalf("expected busy error while worker blocked, got %v", err)
			}
			busy++
		case <-deadline:
			t.Fatalf("expected at least 7 busy rejections, got %d", busy)
		}
	}

	close(release)
	if err := <-firstDone; err != nil {
		t.Fatalf("first job: %v", err)
	}
	for i := busy; i < 9; i++ {
		select {
		case err := <-results:
			if err != nil && !errors.Is(err, ErrDispatcherBusy) {
				t.Fatalf("queued job: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("queued jobs did not finish")
		}
	}
}

func TestDispatcherContextCancel(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{MinWorkers: 1, MaxWorkers: 1, QueueSize: 4})
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := d.Do(ctx, "a", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestDispatcherClose(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{MinWorkers: 2, MaxWorkers: 2, QueueSize: 4})
	if err := d.Do(context.Background(), "a", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("do: %v", err)
	}
	d.Close()
	d.Close()

	if err := d.Do(context.Background(), "a", func(context.Context) error { return nil }); !errors.Is(err, ErrDispatcherClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}
	deadline := time.Now().Add(time.Second)
	for {
		running, _ := d.pool.size()
		if running == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("workers still running after close: %d", running)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPoolRetiresIdleWorkersAboveMin(t *testing.T) {
	p := newJobChannelPool(1, 3, 10*time.Millisecond)
	defer p.close()
	chans := make([]chan Job, 0, 3)
	for i := 0; i < 3; i++ {
		ch, _ := p.acquire()
		chans = append(chans, ch)
	}
	for _, ch := range chans {
		p.Release(ch)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		running, _ := p.size()
		if running == 1 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected pool to shrink to min, running=%d", running)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
