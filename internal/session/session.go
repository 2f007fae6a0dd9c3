// Package session ties one config store to its passcode lock, generative
// bridge and live subscribers.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/koios/lockscreenr/internal/generative"
	"github.com/koios/lockscreenr/internal/passcode"
	"github.com/koios/lockscreenr/internal/render"
	"github.com/koios/lockscreenr/internal/store"
	"github.com/koios/lockscreenr/pkg/models"
	"go.uber.org/zap"
)

// Session is one simulated lock screen
type Session struct {
	ID      string
	Created time.Time

	store  *store.Store
	bridge *generative.Bridge
	logger *zap.Logger

	mu        sync.RWMutex
	lock      *passcode.Lock
	draftIcon string
	watchers  map[chan struct{}]struct{}
	closed    bool

	stopPersist func()
}

func newSession(id string, initial models.LockScreenConfig, gen generative.Generator, logger *zap.Logger, opts ...store.Option) *Session {
	s := &Session{
		ID:       id,
		Created:  time.Now(),
		logger:   logger.With(zap.String("session_id", id)),
		watchers: make(map[chan struct{}]struct{}),
	}
	s.store = store.New(initial, s.logger, opts...)
	s.bridge = generative.NewBridge(gen, s.store, s.logger)
	s.lock = s.newLock(initial.Passcode)
	s.store.Observe(s.onChange)
	return s
}

// Store returns the session's config store
func (s *Session) Store() *store.Store { return s.store }

// Bridge returns the session's generative bridge
func (s *Session) Bridge() *generative.Bridge { return s.bridge }

// Config returns a copy of the current config
func (s *Session) Config() models.LockScreenConfig { return s.store.Snapshot() }

// Dispatch applies one action to the session's config
func (s *Session) Dispatch(ctx context.Context, action store.Action) (models.LockScreenConfig, error) {
	return s.store.Dispatch(ctx, action)
}

// LockState returns the passcode overlay state
func (s *Session) LockState() passcode.State {
	return s.currentLock().State()
}

// PressDigit feeds one keypad digit to the passcode overlay
func (s *Session) PressDigit(digit string) (passcode.State, error) {
	return s.currentLock().Press(digit)
}

// DeleteDigit removes the last keypad digit
func (s *Session) DeleteDigit() passcode.State {
	return s.currentLock().Delete()
}

// View projects the current config at now
func (s *Session) View(now time.Time) render.View {
	return render.Build(s.store.Snapshot(), s.LockState(), now)
}

// GenerateIcon runs icon generation and keeps the result as the pending draft icon
func (s *Session) GenerateIcon(ctx context.Context, description string) (generative.IconResult, error) {
	result, err := s.bridge.GenerateIcon(ctx, description)
	if err != nil {
		return generative.IconResult{}, err
	}

	s.mu.Lock()
	s.draftIcon = result.IconDataURI
	s.mu.Unlock()
	return result, nil
}

// DraftIcon returns the last generated icon, or ""
func (s *Session) DraftIcon() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.draftIcon
}

// AddNotification appends a notification. A draft without an icon uses the
// pending generated icon, which is consumed on success.
func (s *Session) AddNotification(ctx context.Context, draft store.NotificationDraft) (models.LockScreenConfig, error) {
	s.mu.RLock()
	pending := s.draftIcon
	s.mu.RUnlock()

	usedDraft := draft.Icon == "" && pending != ""
	if usedDraft {
		draft.Icon = pending
	}

	cfg, err := s.store.Dispatch(ctx, store.AddNotification{Draft: draft})
	if err != nil {
		return cfg, err
	}

	if usedDraft {
		s.mu.Lock()
		if s.draftIcon == pending {
			s.draftIcon = ""
		}
		s.mu.Unlock()
	}
	return cfg, nil
}

// Watch returns a channel signalled after config or passcode changes.
// Signals coalesce; call cancel when done.
func (s *Session) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, ch)
			s.mu.Unlock()
		})
	}
}

// Close stops the store and any pending passcode timer
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	lock := s.lock
	stopPersist := s.stopPersist
	s.mu.Unlock()

	lock.Stop()
	if stopPersist != nil {
		stopPersist()
	}
	s.store.Close()
}

func (s *Session) currentLock() *passcode.Lock {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lock
}

func (s *Session) newLock(p models.Passcode) *passcode.Lock {
	return passcode.New(p.Value, p.Enabled, s.unlock, passcode.WithOnChange(func(passcode.State) {
		s.notify()
	}))
}

// unlock runs outside the lock's mutex, on the goroutine that pressed the last digit
func (s *Session) unlock() {
	s.logger.Info("Passcode accepted")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.store.Dispatch(ctx, store.SetPasscodeEnabled{Enabled: false}); err != nil {
		s.logger.Warn("Failed to disable passcode after unlock", zap.Error(err))
	}
}

// onChange runs on the store goroutine and must not dispatch
func (s *Session) onChange(change store.Change) {
	prev, cur := change.Previous.Passcode, change.Current.Passcode
	relock := change.Replaced ||
		(cur.Enabled && !prev.Enabled) ||
		(cur.Enabled && cur.Value != prev.Value)

	if relock {
		next := s.newLock(cur)
		s.mu.Lock()
		old := s.lock
		s.lock = next
		s.mu.Unlock()
		old.Stop()
	}

	s.notify()
}

func (s *Session) notify() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
