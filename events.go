package liveaudio

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/voicebridge/liveaudio/audio"
)

type MessageType string

// Server message types
const (
	MessageTypeInputTranscriptionDelta  MessageType = "input_transcription.delta"
	MessageTypeOutputTranscriptionDelta MessageType = "output_transcription.delta"
	MessageTypeTurnComplete             MessageType = "turn.complete"
	MessageTypeAudioDelta               MessageType = "audio.delta"
	MessageTypeInterrupted              MessageType = "interrupted"
	MessageTypeError                    MessageType = "error"
)

// Client message types
const (
	MessageTypeAudioAppend MessageType = "audio.append"
)

// Message is one unit of traffic on the duplex channel, in either direction.
// Which fields are meaningful depends on Type; Validate enforces the pairing.
type Message struct {
	Type MessageType `json:"type"`

	// Audio holds the transport-encoded payload of audio.delta and
	// audio.append messages.
	Audio string `json:"audio,omitempty"`

	// MimeType describes the Audio payload of audio.append messages.
	MimeType string `json:"mime_type,omitempty"`

	// Text holds the fragment of transcription delta messages.
	Text string `json:"text,omitempty"`

	// Code and Detail describe error messages.
	Code   string `json:"code,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func (m Message) IsServerMessage() bool {
	switch m.Type {
	case MessageTypeInputTranscriptionDelta,
		MessageTypeOutputTranscriptionDelta,
		MessageTypeTurnComplete,
		MessageTypeAudioDelta,
		MessageTypeInterrupted,
		MessageTypeError:
		return true
	}
	return false
}

func (m Message) IsClientMessage() bool {
	return m.Type == MessageTypeAudioAppend
}

func (m Message) Validate() error {
	switch m.Type {
	case MessageTypeInputTranscriptionDelta, MessageTypeOutputTranscriptionDelta:
		if m.Text == "" {
			return fmt.Errorf("%s message without text", m.Type)
		}
	case MessageTypeAudioDelta:
		if m.Audio == "" {
			return errors.New("audio.delta message without audio payload")
		}
	case MessageTypeAudioAppend:
		if m.MimeType == "" {
			return errors.New("audio.append message without mime_type")
		}
	case MessageTypeTurnComplete, MessageTypeInterrupted:
		// No payload.
	case MessageTypeError:
		if m.Detail == "" {
			return errors.New("error message without detail")
		}
	case "":
		return errors.New("message without type")
	default:
		return fmt.Errorf("unknown message type %q", m.Type)
	}
	return nil
}

// Encode marshals the message for the wire.
func (m Message) Encode() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return sonic.Marshal(m)
}

// YAML renders the message for human-readable logs and console output.
func (m Message) YAML() ([]byte, error) {
	return yaml.MarshalWithOptions(m, yaml.UseJSONMarshaler())
}

// DecodeMessage parses and validates one wire message.
func DecodeMessage(data []byte) (Message, error) {
	var m Message
	if err := sonic.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("unmarshaling message: %w", err)
	}
	if err := m.Validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}

// NewAudioAppend wraps one captured frame as an outbound message.
func NewAudioAppend(frame audio.Frame) Message {
	return Message{
		Type:     MessageTypeAudioAppend,
		Audio:    frame.Data,
		MimeType: frame.MimeType,
	}
}

// NewKeepaliveFrame builds the zero-length audio.append sent once at stream
// start to open the remote audio lane before real audio arrives.
func NewKeepaliveFrame() Message {
	return Message{
		Type:     MessageTypeAudioAppend,
		MimeType: audio.CaptureMimeType,
	}
}
