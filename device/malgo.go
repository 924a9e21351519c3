package device

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/voicebridge/liveaudio/audio"
)

// Microphone captures normalized mono samples from the default input device
// at the fixed capture rate and re-frames them into exact fixed-size frames.
type Microphone struct {
	ctx *malgo.AllocatedContext

	mu      sync.Mutex
	device  *malgo.Device
	onFrame func(samples []float32)
	pending []float32

	sampleRate int
	frameSize  int
}

var _ audio.Source = (*Microphone)(nil)

// NewMicrophone acquires the audio context. The device itself opens on Start.
func NewMicrophone() (*Microphone, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("initializing audio context: %w", err)
	}
	return &Microphone{
		ctx:        ctx,
		sampleRate: audio.CaptureSampleRate,
		frameSize:  audio.CaptureFrameSamples,
	}, nil
}

// Start opens the default capture device and begins delivering frames to
// onFrame from the device's callback context.
func (m *Microphone) Start(onFrame func(samples []float32)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device != nil {
		return errors.New("microphone already started")
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = 1
	cfg.SampleRate = uint32(m.sampleRate)
	cfg.PeriodSizeInFrames = uint32(m.frameSize)

	m.onFrame = onFrame
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			m.push(decodeF32LE(input, int(frameCount)))
		},
	}
	device, err := malgo.InitDevice(m.ctx.Context, cfg, callbacks)
	if err != nil {
		m.onFrame = nil
		return fmt.Errorf("opening capture device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		m.onFrame = nil
		return fmt.Errorf("starting capture device: %w", err)
	}
	m.device = device
	return nil
}

// push accumulates device callbacks and hands out exact frameSize frames.
// miniaudio does not guarantee the requested period size on every backend.
func (m *Microphone) push(samples []float32) {
	m.mu.Lock()
	onFrame := m.onFrame
	m.pending = append(m.pending, samples...)
	var frames [][]float32
	for len(m.pending) >= m.frameSize {
		frame := make([]float32, m.frameSize)
		copy(frame, m.pending)
		m.pending = m.pending[m.frameSize:]
		frames = append(frames, frame)
	}
	m.mu.Unlock()

	if onFrame == nil {
		return
	}
	for _, frame := range frames {
		onFrame(frame)
	}
}

// Stop disconnects the device tap and releases the device handle.
func (m *Microphone) Stop() error {
	m.mu.Lock()
	device := m.device
	m.device = nil
	m.onFrame = nil
	m.pending = nil
	m.mu.Unlock()

	if device != nil {
		device.Uninit()
	}
	return nil
}

// Close releases the audio context.
func (m *Microphone) Close() error {
	if err := m.Stop(); err != nil {
		return err
	}
	if m.ctx != nil {
		if err := m.ctx.Uninit(); err != nil {
			return fmt.Errorf("releasing audio context: %w", err)
		}
		m.ctx.Free()
		m.ctx = nil
	}
	return nil
}

func decodeF32LE(b []byte, frameCount int) []float32 {
	n := min(frameCount, len(b)/4)
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
