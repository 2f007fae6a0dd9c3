package passcode

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func press(t *testing.T, l *Lock, digits string) State {
	t.Helper()
	var state State
	for _, d := range digits {
		var err error
		state, err = l.Press(string(d))
		require.NoError(t, err)
	}
	return state
}

func TestInitialState(t *testing.T) {
	assert.True(t, New("1234", true, nil).State().Locked)
	assert.False(t, New("1234", false, nil).State().Locked)
}

func TestCorrectPasscodeUnlocksOnce(t *testing.T) {
	var unlocks int32
	l := New("1234", true, func() { atomic.AddInt32(&unlocks, 1) })

	state := press(t, l, "123")
	assert.True(t, state.Locked)
	assert.Equal(t, 3, state.Entered)

	state = press(t, l, "4")
	assert.False(t, state.Locked)
	assert.Equal(t, 0, state.Entered)
	assert.Equal(t, int32(1), atomic.LoadInt32(&unlocks))

	// further input is ignored and never re-fires the callback
	state = press(t, l, "1234")
	assert.False(t, state.Locked)
	assert.Equal(t, int32(1), atomic.LoadInt32(&unlocks))
}

func TestWrongPasscodeShakesAndClears(t *testing.T) {
	var unlocks int32
	cleared := make(chan State, 1)
	l := New("1234", true, func() { atomic.AddInt32(&unlocks, 1) },
		WithShakeDelay(20*time.Millisecond),
		WithOnChange(func(s State) {
			if !s.Shaking && s.Entered == 0 {
				select {
				case cleared <- s:
				default:
				}
			}
		}))

	state := press(t, l, "4321")
	assert.True(t, state.Locked)
	assert.True(t, state.Shaking)
	assert.Equal(t, 4, state.Entered)

	// input during the shake is dropped
	state = press(t, l, "1")
	assert.Equal(t, 4, state.Entered)

	select {
	case s := <-cleared:
		assert.True(t, s.Locked)
	case <-time.After(time.Second):
		t.Fatal("buffer was not cleared")
	}

	assert.Equal(t, State{Locked: true}, l.State())
	assert.Equal(t, int32(0), atomic.LoadInt32(&unlocks))

	// a correct attempt after the reset still works
	state = press(t, l, "1234")
	assert.False(t, state.Locked)
	assert.Equal(t, int32(1), atomic.LoadInt32(&unlocks))
}

func TestDelete(t *testing.T) {
	l := New("1234", true, nil)
	press(t, l, "12")
	assert.Equal(t, 1, l.Delete().Entered)
	assert.Equal(t, 0, l.Delete().Entered)
	assert.Equal(t, 0, l.Delete().Entered)

	state := press(t, l, "1234")
	assert.False(t, state.Locked)
}

func TestInvalidDigit(t *testing.T) {
	l := New("1234", true, nil)
	for _, input := range []string{"", "a", "12", "-"} {
		_, err := l.Press(input)
		assert.ErrorIs(t, err, ErrInvalidDigit, "input %q", input)
	}
	assert.Equal(t, 0, l.State().Entered)
}

func TestUnlockedLockIgnoresInput(t *testing.T) {
	l := New("1234", false, func() { t.Fatal("unlock should not fire") })
	state := press(t, l, "1234")
	assert.Equal(t, State{}, state)
}

func TestStopCancelsReset(t *testing.T) {
	l := New("1234", true, nil, WithShakeDelay(10*time.Millisecond))
	press(t, l, "0000")
	l.Stop()
	time.Sleep(30 * time.Millisecond)
	assert.True(t, l.State().Shaking)
}
