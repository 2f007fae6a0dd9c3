package render

import (
	"context"
	"sync"
	"time"
)

// ClockInterval is how often a live preview refreshes its clock
const ClockInterval = time.Second

// Ticker runs fn on a fixed interval between Start and Stop
type Ticker struct {
	interval time.Duration
	fn       func(time.Time)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTicker creates a stopped ticker
func NewTicker(interval time.Duration, fn func(time.Time)) *Ticker {
	return &Ticker{interval: interval, fn: fn}
}

// Start begins ticking until ctx is cancelled or Stop is called. Starting a
// running ticker does nothing.
func (t *Ticker) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	t.cancel = cancel
	t.done = done

	go func() {
		defer close(done)
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		for {
			select {
			case now := <-ticker.C:
				t.fn(now)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels the ticker and waits for the tick goroutine to exit
func (t *Ticker) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the ticker has been started and not stopped
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}
