package audio

import (
	"context"
	"sync"
	"time"

	"github.com/dgnsrekt/drill/internal/tts"
)

// MockPlayer implements tts.Player without producing sound. Play blocks for
// the clip's duration scaled by the delay factor.
type MockPlayer struct {
	mu          sync.Mutex
	played      []tts.Audio
	stopCount   int
	failure     error
	delayFactor float64
	stop        chan struct{}
	closed      bool

	callbacks MockCallbacks
}

// MockCallbacks provides hooks for testing.
type MockCallbacks struct {
	OnPlay func(audio tts.Audio)
	OnStop func()
}

// NewMockPlayer creates a mock player that plays in real time.
func NewMockPlayer() *MockPlayer {
	return &MockPlayer{delayFactor: 1.0}
}

// NewMockPlayerWithCallbacks creates a mock player that reports to callbacks.
func NewMockPlayerWithCallbacks(callbacks MockCallbacks) *MockPlayer {
	mp := NewMockPlayer()
	mp.callbacks = callbacks
	return mp
}

// SetDelayFactor scales simulated playback time; 0 returns immediately.
func (m *MockPlayer) SetDelayFactor(factor float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delayFactor = factor
}

// SetFailure makes every Play return err until cleared with nil.
func (m *MockPlayer) SetFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failure = err
}

// Play records the clip and waits out its duration.
func (m *MockPlayer) Play(ctx context.Context, audio tts.Audio) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return tts.ErrAudioDeviceUnavailable
	}
	if m.failure != nil {
		err := m.failure
		m.mu.Unlock()
		return err
	}
	m.played = append(m.played, audio)
	stop := make(chan struct{})
	m.stop = stop
	wait := time.Duration(float64(audio.Duration()) * m.delayFactor)
	onPlay := m.callbacks.OnPlay
	m.mu.Unlock()

	if onPlay != nil {
		onPlay(audio)
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-stop:
		return tts.ErrCanceled
	}
}

// Stop interrupts the current Play.
func (m *MockPlayer) Stop() error {
	m.mu.Lock()
	m.stopCount++
	if m.stop != nil {
		close(m.stop)
		m.stop = nil
	}
	onStop := m.callbacks.OnStop
	m.mu.Unlock()

	if onStop != nil {
		onStop()
	}
	return nil
}

// Close marks the player closed.
func (m *MockPlayer) Close() error {
	m.Stop() //nolint:errcheck
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Played returns every clip passed to Play, including ones cut short.
func (m *MockPlayer) Played() []tts.Audio {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]tts.Audio(nil), m.played...)
}

// PlayCount returns the number of Play calls that started playback.
func (m *MockPlayer) PlayCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.played)
}

// StopCount returns how many times Stop was called.
func (m *MockPlayer) StopCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopCount
}

var _ tts.Player = (*MockPlayer)(nil)
