package device

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/voicebridge/liveaudio/audio"
)

// pcmBuffer is a bounded PCM byte queue between the scheduling timers and the
// oto player. Reads block until data arrives; writes past capacity drop the
// oldest bytes.
type pcmBuffer struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buffer []byte
	cap    int
	closed bool
}

func newPCMBuffer(fixedCap int) *pcmBuffer {
	b := &pcmBuffer{
		buffer: make([]byte, 0, fixedCap),
		cap:    fixedCap,
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *pcmBuffer) Write(data []byte) (dropped int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return len(data)
	}
	if len(b.buffer)+len(data) > b.cap {
		dropped = len(b.buffer) + len(data) - b.cap
		b.buffer = b.buffer[dropped:]
	}
	b.buffer = append(b.buffer, data...)
	b.cond.Signal()
	return dropped
}

func (b *pcmBuffer) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for len(b.buffer) == 0 && !b.closed {
		b.cond.Wait()
	}
	if b.closed {
		return 0, fmt.Errorf("buffer closed")
	}
	n := copy(p, b.buffer)
	b.buffer = b.buffer[n:]
	return n, nil
}

// Flush discards everything queued but not yet read by the player.
func (b *pcmBuffer) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buffer = b.buffer[:0]
}

func (b *pcmBuffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.cond.Broadcast()
}

// Speaker is the real audio.Sink: a continuously running oto player fed by
// wall-clock timers, one pair per scheduled clip. The sink timeline starts at
// zero when the speaker opens.
//
// The oto context is process-wide; only one Speaker may exist per process.
type Speaker struct {
	player *oto.Player
	buf    *pcmBuffer
	start  time.Time

	mu     sync.Mutex
	closed bool
}

var _ audio.Sink = (*Speaker)(nil)

// NewSpeaker opens the default output device at the playback rate and starts
// the player.
func NewSpeaker() (*Speaker, error) {
	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   audio.PlaybackSampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   20 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("opening audio output: %w", err)
	}
	<-ready

	// Four seconds of PCM16 mono; writes beyond that drop the oldest audio.
	buf := newPCMBuffer(4 * audio.PlaybackSampleRate * 2)
	s := &Speaker{
		player: otoCtx.NewPlayer(buf),
		buf:    buf,
		start:  time.Now(),
	}
	s.player.Play()
	return s, nil
}

func (s *Speaker) Now() time.Duration {
	return time.Since(s.start)
}

// Schedule arms two timers: one writes the clip's PCM into the player buffer
// at its start instant, the other reports natural completion. The returned
// stop cancels both and flushes whatever the player has not consumed yet.
func (s *Speaker) Schedule(clip audio.Clip, at time.Duration, done func()) (stop func()) {
	pcm := audio.Int16ToBytes(audio.FloatToInt16(clip.Samples))

	var mu sync.Mutex
	stopped := false

	delay := at - s.Now()
	if delay < 0 {
		delay = 0
	}
	writeTimer := time.AfterFunc(delay, func() {
		mu.Lock()
		cancelled := stopped
		mu.Unlock()
		if cancelled {
			return
		}
		s.buf.Write(pcm)
	})
	doneTimer := time.AfterFunc(delay+clip.Duration(), func() {
		mu.Lock()
		cancelled := stopped
		mu.Unlock()
		if cancelled || done == nil {
			return
		}
		done()
	})

	return func() {
		mu.Lock()
		stopped = true
		mu.Unlock()
		writeTimer.Stop()
		doneTimer.Stop()
		s.buf.Flush()
	}
}

func (s *Speaker) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.buf.Close()
	if err := s.player.Close(); err != nil {
		return fmt.Errorf("closing audio player: %w", err)
	}
	return nil
}
