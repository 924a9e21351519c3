package audio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/voicebridge/liveaudio/shared"
	"go.uber.org/zap"
)

const (
	// CaptureSampleRate is the fixed microphone rate the remote model expects.
	CaptureSampleRate = 16000
	// CaptureFrameSamples is the number of samples pulled per device tick.
	CaptureFrameSamples = 1024
	// CaptureMimeType describes outbound frame payloads.
	CaptureMimeType = "audio/pcm;rate=16000"
)

// Frame is one outbound encoded audio frame. It is produced and consumed
// within a single capture tick and never buffered.
type Frame struct {
	Data       string
	SampleRate int
	MimeType   string
}

// Source delivers fixed-size frames of normalized mono samples from an input
// device. The callback runs on the device's own execution context.
type Source interface {
	Start(onFrame func(samples []float32)) error
	Stop() error
	Close() error
}

// Capture converts live microphone frames into outbound encoded frames, one
// per device tick, fire-and-forget.
type Capture struct {
	logger shared.LoggerAdapter

	mu      sync.Mutex
	src     Source
	running bool
}

func NewCapture(logger shared.LoggerAdapter) (*Capture, error) {
	if logger == nil {
		return nil, shared.ErrNoLogger
	}
	return &Capture{logger: logger}, nil
}

// Start begins pulling frames from src. Each tick is converted through the
// PCM codec and handed to emit as exactly one Frame.
func (c *Capture) Start(src Source, emit func(Frame)) error {
	if src == nil {
		return shared.ErrNoInputDevice
	}
	if emit == nil {
		return errors.New("emit callback is required")
	}
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return shared.ErrCaptureAlreadyRunning
	}
	c.running = true
	c.src = src
	c.mu.Unlock()

	if err := src.Start(func(samples []float32) {
		c.tick(samples, emit)
	}); err != nil {
		c.mu.Lock()
		c.running = false
		c.src = nil
		c.mu.Unlock()
		return fmt.Errorf("starting capture source: %w", err)
	}
	c.logger.Info("capture started",
		zap.Int("sampleRate", CaptureSampleRate),
		zap.Int("frameSamples", CaptureFrameSamples),
	)
	return nil
}

// tick emits under the mutex so a device tick racing Stop is discarded, never
// queued: once Stop flips running, no frame can leave.
func (c *Capture) tick(samples []float32, emit func(Frame)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	emit(Frame{
		Data:       EncodeBinary(Int16ToBytes(FloatToInt16(samples))),
		SampleRate: CaptureSampleRate,
		MimeType:   CaptureMimeType,
	})
}

// Stop disconnects the device tap. After Stop returns no further frame is
// emitted, even if the device delivers one more tick concurrently.
func (c *Capture) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	src := c.src
	c.src = nil
	c.mu.Unlock()

	if err := src.Stop(); err != nil {
		return fmt.Errorf("stopping capture source: %w", err)
	}
	c.logger.Info("capture stopped")
	return nil
}
