package liveaudio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/voicebridge/liveaudio/audio"
	"github.com/voicebridge/liveaudio/shared"
	"github.com/voicebridge/liveaudio/transcript"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// messageQueueSize bounds the inbound queue between channel delivery and the
// session's serialized message loop.
const messageQueueSize = 256

// Observers receive the session's outward-facing side effects. All callbacks
// are invoked from the session's message loop, one at a time.
type Observers struct {
	// OnSpeaking fires when synthesized speech output starts or stops,
	// derived from the playback scheduler's active set.
	OnSpeaking func(isSpeaking bool)
	// OnTranscript fires with the finalized entries of each completed turn.
	OnTranscript func(entries []transcript.Entry)
	// OnError fires for every reported error, recoverable or terminal.
	OnError func(err error)
}

// Config wires a session together. The three openers are called in order
// during Open; whatever they return is owned by the session afterwards.
type Config struct {
	Logger      shared.LoggerAdapter
	OpenInput   func() (audio.Source, error)
	OpenOutput  func() (audio.Sink, error)
	OpenChannel func() (Channel, error)
	Observers   Observers
}

// Session owns the channel handle, the input and output devices, and the
// capture/playback/transcript components for exactly one conversation. All
// inbound channel traffic is funneled through a single serialized message
// loop, so the playback clock and the turn buffer are never mutated
// reentrantly.
type Session struct {
	id      uuid.UUID
	logger  shared.LoggerAdapter
	obs     Observers
	metrics *MetricsCollector

	input   audio.Source
	channel Channel
	capture *audio.Capture
	sched   *audio.Scheduler
	turns   *transcript.Accumulator

	msgs   chan Message
	ctx    context.Context
	cancel context.CancelCauseFunc
	group  *errgroup.Group

	mu     sync.Mutex
	closed bool
}

// Open acquires the input device, the output device and the channel, in that
// order, and starts the duplex stream. Acquisition is atomic: if any step
// fails, everything acquired before it is released before the error returns.
func Open(ctx context.Context, cfg Config) (*Session, error) {
	if cfg.Logger == nil {
		return nil, shared.ErrNoLogger
	}
	if cfg.OpenInput == nil {
		return nil, shared.ErrNoInputDevice
	}
	if cfg.OpenOutput == nil {
		return nil, shared.ErrNoOutputDevice
	}
	if cfg.OpenChannel == nil {
		return nil, shared.ErrNoChannel
	}

	id := uuid.New()
	sctx, cancel := context.WithCancelCause(ctx)
	s := &Session{
		id:      id,
		logger:  cfg.Logger.With(zap.String("session", id.String())),
		obs:     cfg.Observers,
		metrics: NewMetricsCollector(),
		turns:   transcript.NewAccumulator(),
		msgs:    make(chan Message, messageQueueSize),
		ctx:     sctx,
		cancel:  cancel,
	}

	input, err := cfg.OpenInput()
	if err != nil {
		cancel(err)
		return nil, &shared.DeviceAccessError{Device: "input", Err: err}
	}
	s.input = input

	output, err := cfg.OpenOutput()
	if err != nil {
		werr := &shared.DeviceAccessError{Device: "output", Err: err}
		s.abortOpen(werr)
		return nil, werr
	}
	s.sched, err = audio.NewScheduler(s.logger, output)
	if err != nil {
		_ = output.Close()
		s.abortOpen(err)
		return nil, err
	}
	s.sched.OnSpeaking(func(isSpeaking bool) {
		if s.obs.OnSpeaking != nil {
			s.obs.OnSpeaking(isSpeaking)
		}
	})
	s.sched.OnError(func(err error) {
		s.metrics.IncDecodeFailures()
		s.reportError(err)
	})

	channel, err := cfg.OpenChannel()
	if err != nil {
		werr := &shared.ChannelError{Err: err}
		s.abortOpen(werr)
		return nil, werr
	}
	s.channel = channel

	if err := channel.OnMessage(s.receive); err != nil {
		werr := &shared.ChannelError{Err: fmt.Errorf("registering message handler: %w", err)}
		s.abortOpen(werr)
		return nil, werr
	}

	s.capture, err = audio.NewCapture(s.logger)
	if err != nil {
		s.abortOpen(err)
		return nil, err
	}

	s.group, _ = errgroup.WithContext(sctx)
	s.group.Go(func() error {
		return s.run()
	})

	// Opens the remote audio lane before real audio arrives.
	if err := channel.Send(NewKeepaliveFrame()); err != nil {
		s.logger.Warn("sending keepalive frame failed", zap.Error(err))
	}

	if err := s.capture.Start(input, s.emit); err != nil {
		s.abortOpen(err)
		return nil, err
	}

	s.logger.Info("session opened")
	return s, nil
}

// abortOpen rolls a partially opened session back. Close tolerates whatever
// subset of resources has been acquired so far.
func (s *Session) abortOpen(cause error) {
	s.cancel(cause)
	if err := s.Close(); err != nil {
		s.logger.Error("rolling back partially opened session", err)
	}
}

func (s *Session) ID() uuid.UUID { return s.id }

// Done is closed once the session is shutting down.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// Speaking reports whether synthesized speech is scheduled or playing.
func (s *Session) Speaking() bool {
	return s.sched != nil && s.sched.State() == audio.SchedulerStateStreaming
}

// Metrics returns a snapshot of the session's traffic counters.
func (s *Session) Metrics() Metrics { return s.metrics.Current() }

// receive is invoked by the channel for each inbound message. It preserves
// arrival order by handing messages to the single loop goroutine; teardown
// unblocks it via the session context.
func (s *Session) receive(msg Message) {
	select {
	case s.msgs <- msg:
	case <-s.ctx.Done():
	}
}

// emit is invoked once per capture tick, fire-and-forget. A frame the channel
// refuses is dropped, not queued.
func (s *Session) emit(frame audio.Frame) {
	if err := s.channel.Send(NewAudioAppend(frame)); err != nil {
		s.logger.Warn("dropping outbound audio frame", zap.Error(err))
		return
	}
	s.metrics.IncFramesSent()
}

// run is the serialized message loop: one message at a time, arrival order,
// never reentrant.
func (s *Session) run() error {
	for {
		select {
		case <-s.ctx.Done():
			return s.ctx.Err()
		case msg := <-s.msgs:
			s.handle(msg)
		}
	}
}

func (s *Session) handle(msg Message) {
	switch msg.Type {
	case MessageTypeAudioDelta:
		s.metrics.IncFramesReceived()
		// Failures are reported through the scheduler's error observer;
		// the clock is untouched and the stream goes on.
		_ = s.sched.Enqueue(msg.Audio)
	case MessageTypeInputTranscriptionDelta:
		s.turns.AppendUser(msg.Text)
	case MessageTypeOutputTranscriptionDelta:
		s.turns.AppendAgent(msg.Text)
	case MessageTypeTurnComplete:
		s.flushTurn()
	case MessageTypeInterrupted:
		s.metrics.IncInterrupts()
		s.sched.Interrupt()
	case MessageTypeError:
		err := &shared.ChannelError{Err: fmt.Errorf("remote error %s: %s", msg.Code, msg.Detail)}
		s.reportError(err)
		// Teardown must not run on the loop goroutine: Close joins the loop.
		go func() {
			if cerr := s.Close(); cerr != nil {
				s.logger.Error("tearing down after remote error", cerr)
			}
		}()
	default:
		s.logger.Warn("ignoring unknown inbound message", zap.String("type", string(msg.Type)))
	}
}

// flushTurn emits the finalized entries of the open turn, if any.
func (s *Session) flushTurn() {
	entries := s.turns.Flush()
	if len(entries) == 0 {
		return
	}
	s.metrics.AddTurnFlushed(len(entries))
	if s.obs.OnTranscript != nil {
		s.obs.OnTranscript(entries)
	}
}

func (s *Session) reportError(err error) {
	if s.obs.OnError != nil {
		s.obs.OnError(err)
	}
}

// Close tears the session down in strict reverse order of acquisition:
// channel first so no further inbound or outbound delivery occurs, then
// capture, then the playback scheduler (which releases the output device),
// then the input device. An open turn is flushed before observers go quiet.
// Safe to call multiple times and safe on a session that failed to fully
// open.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel(shared.ErrSessionClosed)

	var errs error
	if s.channel != nil {
		if err := s.channel.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("closing channel: %w", err))
		}
	}
	if s.capture != nil {
		if err := s.capture.Stop(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("stopping capture: %w", err))
		}
	}
	if s.group != nil {
		if err := s.group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			errs = multierr.Append(errs, err)
		}
	}
	// A turn the remote never terminated is flushed rather than discarded.
	s.flushTurn()
	if s.sched != nil {
		if err := s.sched.Reset(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("resetting playback: %w", err))
		}
	}
	if s.input != nil {
		if err := s.input.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("releasing input device: %w", err))
		}
	}
	s.logger.Info("session closed")
	return errs
}
