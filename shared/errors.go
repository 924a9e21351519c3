package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNoLogger              = errors.New("no logger provided")
	ErrNoChannel             = errors.New("no channel provided")
	ErrNoInputDevice         = errors.New("no input device provided")
	ErrNoOutputDevice        = errors.New("no output device provided")
	ErrSessionClosed         = errors.New("session closed")
	ErrCaptureAlreadyRunning = errors.New("capture already running")
	ErrPlaybackStopped       = errors.New("playback scheduler stopped")
	ErrHandlerAlreadySet     = errors.New("message handler already set")
)

// DeviceAccessError reports a microphone or speaker that could not be
// acquired. Fatal to session open; the session never retries on its own.
type DeviceAccessError struct {
	Device string // "input" or "output"
	Err    error
}

func (e *DeviceAccessError) Error() string {
	return fmt.Sprintf("accessing %s device: %v", e.Device, e.Err)
}

func (e *DeviceAccessError) Unwrap() error { return e.Err }

// ChannelError reports a transport-level failure. Terminal to the session;
// the caller may reopen a fresh session to retry.
type ChannelError struct {
	Err error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("channel failure: %v", e.Err)
}

func (e *ChannelError) Unwrap() error { return e.Err }
