// Package passcode implements the passcode overlay state machine.
//
// A lock starts Locked when the passcode is enabled. Digits are buffered; when
// the buffer reaches four digits it is compared with the passcode. A match
// unlocks exactly once. A mismatch shakes the overlay and clears the buffer
// after ShakeDelay. There is no transition back to Locked.
package passcode

import (
	"errors"
	"sync"
	"time"
)

// Length is the number of digits in a passcode
const Length = 4

// ShakeDelay is how long a wrong entry stays visible before the buffer clears
const ShakeDelay = 500 * time.Millisecond

// ErrInvalidDigit is returned for input other than 0-9
var ErrInvalidDigit = errors.New("digit must be 0-9")

// State is a snapshot of the lock
type State struct {
	Locked  bool `json:"locked"`
	Entered int  `json:"entered"`
	Shaking bool `json:"shaking"`
}

// Lock is safe for concurrent use
type Lock struct {
	mu       sync.Mutex
	value    string
	locked   bool
	buffer   []byte
	shaking  bool
	delay    time.Duration
	timer    *time.Timer
	onUnlock func()
	onChange func(State)
}

// Option configures a Lock
type Option func(*Lock)

// WithShakeDelay overrides ShakeDelay
func WithShakeDelay(d time.Duration) Option {
	return func(l *Lock) { l.delay = d }
}

// WithOnChange registers a callback fired after every state change
func WithOnChange(fn func(State)) Option {
	return func(l *Lock) { l.onChange = fn }
}

// New creates a lock. It starts Locked iff enabled. onUnlock runs once, outside
// the lock's mutex, when the correct passcode is entered.
func New(value string, enabled bool, onUnlock func(), opts ...Option) *Lock {
	l := &Lock{
		value:    value,
		locked:   enabled,
		delay:    ShakeDelay,
		onUnlock: onUnlock,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Press appends a digit. Input is ignored while unlocked, shaking, or full.
func (l *Lock) Press(digit string) (State, error) {
	if len(digit) != 1 || digit[0] < '0' || digit[0] > '9' {
		return l.State(), ErrInvalidDigit
	}

	l.mu.Lock()
	if !l.locked || l.shaking || len(l.buffer) >= Length {
		state := l.stateLocked()
		l.mu.Unlock()
		return state, nil
	}

	l.buffer = append(l.buffer, digit[0])
	unlocked := false
	if len(l.buffer) == Length {
		if string(l.buffer) == l.value {
			l.locked = false
			l.buffer = l.buffer[:0]
			unlocked = true
		} else {
			l.shaking = true
			l.timer = time.AfterFunc(l.delay, l.reset)
		}
	}
	state := l.stateLocked()
	l.mu.Unlock()

	if unlocked && l.onUnlock != nil {
		l.onUnlock()
	}
	l.notify(state)
	return state, nil
}

// Delete removes the last buffered digit
func (l *Lock) Delete() State {
	l.mu.Lock()
	if !l.locked || l.shaking || len(l.buffer) == 0 {
		state := l.stateLocked()
		l.mu.Unlock()
		return state
	}
	l.buffer = l.buffer[:len(l.buffer)-1]
	state := l.stateLocked()
	l.mu.Unlock()

	l.notify(state)
	return state
}

// State returns the current state
func (l *Lock) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stateLocked()
}

// Stop cancels a pending buffer reset
func (l *Lock) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}

func (l *Lock) reset() {
	l.mu.Lock()
	l.shaking = false
	l.buffer = l.buffer[:0]
	l.timer = nil
	state := l.stateLocked()
	l.mu.Unlock()

	l.notify(state)
}

func (l *Lock) notify(state State) {
	if l.onChange != nil {
		l.onChange(state)
	}
}

func (l *Lock) stateLocked() State {
	return State{Locked: l.locked, Entered: len(l.buffer), Shaking: l.shaking}
}
