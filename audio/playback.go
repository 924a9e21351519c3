package audio

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/voicebridge/liveaudio/shared"
	"go.uber.org/zap"
)

// PlaybackSampleRate is the fixed rate of inbound model speech.
const PlaybackSampleRate = 24000

// SchedulerState distinguishes an idle scheduler from one with clips
// scheduled or playing.
type SchedulerState int

const (
	SchedulerStateIdle SchedulerState = iota
	SchedulerStateStreaming
)

// Sink is the output half of an audio device, addressed on a monotonic
// timeline that starts at zero when the sink opens.
//
// Schedule queues clip to begin at the given instant and returns a stop
// function that silences the clip immediately. done runs exactly once when
// the clip finishes naturally and never runs after stop. Implementations must
// invoke done asynchronously, never from inside Schedule.
type Sink interface {
	Now() time.Duration
	Schedule(clip Clip, at time.Duration, done func()) (stop func())
	Close() error
}

// Handle represents one scheduled, not-yet-finished clip.
type Handle struct {
	ID      uuid.UUID
	Clip    Clip
	StartAt time.Duration

	stop func()
}

// Scheduler turns independently sized, arbitrarily timed inbound frames into
// one continuous utterance. The single nextStart scalar is the whole
// synchronization mechanism: clips queue back to back while the device clock
// lags it, and snap forward to now when the network has stalled past it, so
// late audio never piles up and plays at once.
type Scheduler struct {
	logger shared.LoggerAdapter
	sink   Sink

	mu         sync.Mutex
	nextStart  time.Duration
	active     map[uuid.UUID]*Handle
	speaking   bool
	closed     bool
	onSpeaking func(bool)
	onError    func(error)

	// Speaking transitions queue under the mutex and drain in order outside
	// it, so observers see them in the exact order they occurred even when a
	// sink completion races a fresh Enqueue.
	notifying       bool
	pendingSpeaking []bool
}

func NewScheduler(logger shared.LoggerAdapter, sink Sink) (*Scheduler, error) {
	if logger == nil {
		return nil, shared.ErrNoLogger
	}
	if sink == nil {
		return nil, shared.ErrNoOutputDevice
	}
	return &Scheduler{
		logger: logger,
		sink:   sink,
		active: make(map[uuid.UUID]*Handle),
	}, nil
}

// OnSpeaking registers the observer for the active set transitioning to and
// from empty. Fires exactly once per actual transition.
func (s *Scheduler) OnSpeaking(fn func(isSpeaking bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSpeaking = fn
}

// OnError registers the observer for decode failures on inbound frames.
func (s *Scheduler) OnError(fn func(err error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = fn
}

// State reports whether any clip is scheduled or playing.
func (s *Scheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.active) == 0 {
		return SchedulerStateIdle
	}
	return SchedulerStateStreaming
}

// Enqueue decodes one inbound encoded frame and schedules it for gap-free
// playback. A frame that fails to decode is reported and skipped; the clock
// is left untouched so later frames still line up with whatever has already
// been committed to play.
func (s *Scheduler) Enqueue(encoded string) error {
	raw, err := DecodeBinary(encoded)
	if err != nil {
		s.report(err)
		return err
	}
	clip, err := Int16BytesToFloat(raw, PlaybackSampleRate, 1)
	if err != nil {
		s.report(err)
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return shared.ErrPlaybackStopped
	}
	startAt := s.nextStart
	if now := s.sink.Now(); now > startAt {
		// The device clock ran past the committed timeline; snap to now
		// instead of scheduling into the past.
		startAt = now
	}
	h := &Handle{ID: uuid.New(), Clip: clip, StartAt: startAt}
	h.stop = s.sink.Schedule(clip, startAt, func() { s.complete(h.ID) })
	s.active[h.ID] = h
	s.nextStart = startAt + clip.Duration()
	if !s.speaking {
		s.speaking = true
		s.pendingSpeaking = append(s.pendingSpeaking, true)
	}
	s.logger.Trace("clip scheduled",
		zap.Duration("startAt", startAt),
		zap.Duration("duration", clip.Duration()),
		zap.Int("active", len(s.active)),
	)
	s.mu.Unlock()

	s.drainSpeaking()
	return nil
}

// complete runs on natural completion of one clip's playback.
func (s *Scheduler) complete(id uuid.UUID) {
	s.mu.Lock()
	if _, ok := s.active[id]; !ok {
		// Interrupted before it could finish.
		s.mu.Unlock()
		return
	}
	delete(s.active, id)
	if len(s.active) == 0 && s.speaking {
		s.speaking = false
		s.pendingSpeaking = append(s.pendingSpeaking, false)
	}
	s.mu.Unlock()

	s.drainSpeaking()
}

// drainSpeaking delivers queued speaking transitions to the observer, in
// order, with the mutex released around each callback. Only one goroutine
// drains at a time; the rest just enqueue, so delivery order always matches
// transition order.
func (s *Scheduler) drainSpeaking() {
	s.mu.Lock()
	if s.notifying {
		s.mu.Unlock()
		return
	}
	s.notifying = true
	for len(s.pendingSpeaking) > 0 {
		event := s.pendingSpeaking[0]
		s.pendingSpeaking = s.pendingSpeaking[1:]
		notify := s.onSpeaking
		s.mu.Unlock()
		if notify != nil {
			notify(event)
		}
		s.mu.Lock()
	}
	s.notifying = false
	s.mu.Unlock()
}

// Interrupt forcibly stops every scheduled clip, clears the active set and
// resets the clock to zero. Used on server-side barge-in. Idempotent: on an
// empty set it is a no-op and "speaking ended" is not re-signalled.
func (s *Scheduler) Interrupt() {
	s.mu.Lock()
	stops := make([]func(), 0, len(s.active))
	for id, h := range s.active {
		if h.stop != nil {
			stops = append(stops, h.stop)
		}
		delete(s.active, id)
	}
	s.nextStart = 0
	ended := s.speaking
	if ended {
		s.speaking = false
		s.pendingSpeaking = append(s.pendingSpeaking, false)
	}
	s.mu.Unlock()

	for _, stop := range stops {
		stop()
	}
	if ended {
		s.logger.Debug("playback interrupted", zap.Int("stoppedClips", len(stops)))
	}
	s.drainSpeaking()
}

// Reset interrupts playback and releases the output device. Used on session
// teardown; safe to call more than once.
func (s *Scheduler) Reset() error {
	s.Interrupt()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	if err := s.sink.Close(); err != nil {
		return err
	}
	return nil
}

func (s *Scheduler) report(err error) {
	s.mu.Lock()
	notify := s.onError
	s.mu.Unlock()
	s.logger.Error("dropping inbound audio frame", err)
	if notify != nil {
		notify(err)
	}
}
