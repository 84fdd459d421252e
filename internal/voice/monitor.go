package voice

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrCaptureUnavailable wraps any failure to acquire the microphone stream.
var ErrCaptureUnavailable = errors.New("capture unavailable")

// AudioLevelMonitor owns the capture lifecycle and forwards level samples
// to a single sink. Stop is idempotent and safe from any goroutine.
type AudioLevelMonitor struct {
	capture Capture

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewAudioLevelMonitor(capture Capture) *AudioLevelMonitor {
	return &AudioLevelMonitor{capture: capture}
}

// Start acquires the capture stream and pumps samples into onSample until
// the stream closes or Stop is called. A second Start while running is a
// no-op.
func (m *AudioLevelMonitor) Start(ctx context.Context, onSample func(EnergySample)) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	samples, err := m.capture.Start(runCtx)
	if err != nil {
		cancel()
		m.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}

	done := make(chan struct{})
	m.running = true
	m.cancel = cancel
	m.done = done
	m.mu.Unlock()

	go func() {
		defer close(done)
		for {
			select {
			case <-runCtx.Done():
				return
			case sample, ok := <-samples:
				if !ok {
					return
				}
				onSample(sample)
			}
		}
	}()
	return nil
}

// Stop releases the capture stream and waits for the pump to drain.
func (m *AudioLevelMonitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	done := m.done
	m.running = false
	m.cancel = nil
	m.done = nil
	m.mu.Unlock()

	cancel()
	_ = m.capture.Stop()
	<-done
}

func (m *AudioLevelMonitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
