package agents

import (
	"context"
	"errors"
	"fmt"
	"sync"

	pkg "github.com/voicebridge/liveaudio"
	"github.com/voicebridge/liveaudio/audio"
	"github.com/voicebridge/liveaudio/device"
	"github.com/voicebridge/liveaudio/shared"
	"github.com/voicebridge/liveaudio/transcript"
	"go.uber.org/zap"
)

// ConsoleAgent runs one voice conversation on the local default devices and
// renders the live transcript to the console.
type ConsoleAgent struct {
	mu      sync.Mutex
	logger  shared.LoggerAdapter
	printer *shared.Printer
	session *pkg.Session
}

// Spawn opens a session on the default microphone and speaker, speaking
// through the channel returned by openChannel. The returned channel is closed
// when the session shuts down.
func (a *ConsoleAgent) Spawn(
	ctx context.Context,
	logger shared.LoggerAdapter,
	printer *shared.Printer,
	openChannel func() (pkg.Channel, error),
) (<-chan struct{}, error) {
	if logger == nil {
		return nil, shared.ErrNoLogger
	}
	if printer == nil {
		return nil, errors.New("no printer provided")
	}
	if openChannel == nil {
		return nil, shared.ErrNoChannel
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session != nil {
		return nil, errors.New("agent already spawned")
	}
	a.logger = logger
	a.printer = printer

	a.logger.Info("spawning console agent")
	if err := a.printer.Writeln("🤖 Spawning console agent...\n", 0); err != nil {
		a.logger.Error("printing spawn message", err)
	}

	session, err := pkg.Open(ctx, pkg.Config{
		Logger: logger,
		OpenInput: func() (audio.Source, error) {
			return device.NewMicrophone()
		},
		OpenOutput: func() (audio.Sink, error) {
			return device.NewSpeaker()
		},
		OpenChannel: openChannel,
		Observers: pkg.Observers{
			OnSpeaking:   a.onSpeaking,
			OnTranscript: a.onTranscript,
			OnError:      a.onError,
		},
	})
	if err != nil {
		a.logger.Error("opening session", err)
		if perr := a.printer.Writeln("❌ Unable to open the session. Check that your microphone and speakers are connected and permitted.\n", 0); perr != nil {
			a.logger.Error("printing open failure message", perr)
		}
		return nil, fmt.Errorf("opening session: %w", err)
	}
	a.session = session
	a.logger.Info("session opened", zap.String("session", session.ID().String()))
	if err := a.printer.Writeln("✅ Session opened. Start talking.\n", 0); err != nil {
		a.logger.Error("printing session opened message", err)
	}
	return session.Done(), nil
}

func (a *ConsoleAgent) onSpeaking(isSpeaking bool) {
	msg := "🔈 ..."
	if !isSpeaking {
		msg = "🔇"
	}
	if err := a.printer.Writeln(msg, 1); err != nil {
		a.logger.Error("printing speaking state", err)
	}
}

func (a *ConsoleAgent) onTranscript(entries []transcript.Entry) {
	for _, entry := range entries {
		prefix := "🧑"
		if entry.Role == transcript.RoleAgent {
			prefix = "🤖"
		}
		if err := a.printer.Writeln(fmt.Sprintf("%s %s", prefix, entry.Text), 0); err != nil {
			a.logger.Error("printing transcript entry", err)
		}
	}
}

func (a *ConsoleAgent) onError(err error) {
	a.logger.Error("session error", err)
	if perr := a.printer.Writeln(fmt.Sprintf("⚠️  %v", err), 0); perr != nil {
		a.logger.Error("printing session error", perr)
	}
}

// Close tears the agent's session down. Safe to call more than once.
func (a *ConsoleAgent) Close() error {
	a.mu.Lock()
	session := a.session
	a.session = nil
	a.mu.Unlock()
	if session == nil {
		return nil
	}
	return session.Close()
}

// Metrics reports the underlying session's counters, or zeroes after Close.
func (a *ConsoleAgent) Metrics() pkg.Metrics {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return pkg.Metrics{}
	}
	return a.session.Metrics()
}
