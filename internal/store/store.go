// Package store owns a single LockScreenConfig and serializes every mutation
// through one update channel drained by one goroutine.
package store

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/koios/lockscreenr/pkg/models"
	"go.uber.org/zap"
)

// Change describes an applied action
type Change struct {
	Revision uint64
	Action   string
	Replaced bool
	Previous models.LockScreenConfig
	Current  models.LockScreenConfig
}

// Observer is called from the store goroutine after every applied change.
// Observers must not call Dispatch.
type Observer func(Change)

type request struct {
	action Action
	reply  chan result
}

type result struct {
	config models.LockScreenConfig
	err    error
}

// Store holds the config aggregate
type Store struct {
	updates chan request
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
	env     Env
	logger  *zap.Logger

	// written only by the loop goroutine
	current models.LockScreenConfig

	mu          sync.RWMutex
	snapshot    models.LockScreenConfig
	revision    uint64
	observers   []Observer
	subscribers map[chan uint64]struct{}
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the time source used for ids and display times
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.env.Now = now
		s.env.IDs = models.NewIDGenerator(now)
	}
}

// New starts a store holding initial
func New(initial models.LockScreenConfig, logger *zap.Logger, opts ...Option) *Store {
	s := &Store{
		updates:     make(chan request),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
		env:         Env{IDs: models.NewIDGenerator(nil), Now: time.Now},
		logger:      logger,
		current:     initial.Clone(),
		subscribers: make(map[chan uint64]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.snapshot = s.current.Clone()

	go s.loop()
	return s
}

// Dispatch applies action and returns the resulting config. A rejected action
// returns the error and leaves the config unchanged.
func (s *Store) Dispatch(ctx context.Context, action Action) (models.LockScreenConfig, error) {
	req := request{action: action, reply: make(chan result, 1)}

	select {
	case s.updates <- req:
	case <-ctx.Done():
		return models.LockScreenConfig{}, ctx.Err()
	case <-s.done:
		return models.LockScreenConfig{}, ErrClosed
	}

	select {
	case res := <-req.reply:
		return res.config, res.err
	case <-ctx.Done():
		return models.LockScreenConfig{}, ctx.Err()
	}
}

// Snapshot returns a copy of the current config
func (s *Store) Snapshot() models.LockScreenConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Clone()
}

// Revision returns the number of applied changes
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Observe registers a synchronous observer
func (s *Store) Observe(fn Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Subscribe returns a channel receiving the latest revision after changes.
// Notifications coalesce: a slow reader only sees the newest revision.
func (s *Store) Subscribe() (<-chan uint64, func()) {
	ch := make(chan uint64, 1)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, ch)
			s.mu.Unlock()
		})
	}
	return ch, cancel
}

// Close stops the update loop. Pending and later Dispatch calls fail with ErrClosed.
func (s *Store) Close() {
	s.once.Do(func() {
		close(s.done)
		<-s.stopped
	})
}

func (s *Store) loop() {
	defer close(s.stopped)

	for {
		select {
		case req := <-s.updates:
			req.reply <- s.apply(req.action)
		case <-s.done:
			return
		}
	}
}

func (s *Store) apply(action Action) result {
	next := s.current.Clone()
	if err := action.Apply(&next, s.env); err != nil {
		s.logger.Debug("Rejected config action",
			zap.String("action", action.Name()),
			zap.Error(err))
		return result{config: s.current.Clone(), err: err}
	}

	if reflect.DeepEqual(next, s.current) {
		return result{config: next.Clone()}
	}

	change := Change{
		Action:   action.Name(),
		Replaced: replaces(action),
		Previous: s.current,
		Current:  next.Clone(),
	}
	s.current = next

	s.mu.Lock()
	s.revision++
	change.Revision = s.revision
	s.snapshot = next.Clone()
	observers := append([]Observer(nil), s.observers...)
	for ch := range s.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- s.revision
	}
	s.mu.Unlock()

	s.logger.Debug("Applied config action",
		zap.String("action", change.Action),
		zap.Uint64("revision", change.Revision))

	for _, fn := range observers {
		fn(change)
	}

	return result{config: next.Clone()}
}
