package liveaudio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voicebridge/liveaudio/audio"
)

func TestMessageValidate(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		wantErr bool
	}{
		{name: "input delta", msg: Message{Type: MessageTypeInputTranscriptionDelta, Text: "hi"}},
		{name: "input delta without text", msg: Message{Type: MessageTypeInputTranscriptionDelta}, wantErr: true},
		{name: "output delta", msg: Message{Type: MessageTypeOutputTranscriptionDelta, Text: "hi"}},
		{name: "audio delta", msg: Message{Type: MessageTypeAudioDelta, Audio: "AAAA"}},
		{name: "audio delta without payload", msg: Message{Type: MessageTypeAudioDelta}, wantErr: true},
		{name: "turn complete", msg: Message{Type: MessageTypeTurnComplete}},
		{name: "interrupted", msg: Message{Type: MessageTypeInterrupted}},
		{name: "error", msg: Message{Type: MessageTypeError, Code: "500", Detail: "boom"}},
		{name: "error without detail", msg: Message{Type: MessageTypeError}, wantErr: true},
		{name: "audio append", msg: Message{Type: MessageTypeAudioAppend, Audio: "AAAA", MimeType: audio.CaptureMimeType}},
		{name: "audio append without mime type", msg: Message{Type: MessageTypeAudioAppend, Audio: "AAAA"}, wantErr: true},
		{name: "missing type", msg: Message{}, wantErr: true},
		{name: "unknown type", msg: Message{Type: "session.update"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMessageDirection(t *testing.T) {
	server := []MessageType{
		MessageTypeInputTranscriptionDelta,
		MessageTypeOutputTranscriptionDelta,
		MessageTypeTurnComplete,
		MessageTypeAudioDelta,
		MessageTypeInterrupted,
		MessageTypeError,
	}
	for _, mt := range server {
		assert.True(t, Message{Type: mt}.IsServerMessage(), "%s", mt)
		assert.False(t, Message{Type: mt}.IsClientMessage(), "%s", mt)
	}
	assert.True(t, Message{Type: MessageTypeAudioAppend}.IsClientMessage())
	assert.False(t, Message{Type: MessageTypeAudioAppend}.IsServerMessage())
}

func TestMessageEncodeDecode(t *testing.T) {
	original := Message{
		Type:     MessageTypeAudioAppend,
		Audio:    audio.EncodeBinary([]byte{1, 2, 3, 4}),
		MimeType: audio.CaptureMimeType,
	}

	data, err := original.Encode()
	require.NoError(t, err)

	decoded, err := DecodeMessage(data)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestMessageEncodeRejectsInvalid(t *testing.T) {
	_, err := Message{Type: MessageTypeAudioDelta}.Encode()
	assert.Error(t, err)
}

func TestDecodeMessageRejectsGarbage(t *testing.T) {
	_, err := DecodeMessage([]byte("{not json"))
	assert.Error(t, err)

	// Well-formed JSON that fails validation is rejected too.
	_, err = DecodeMessage([]byte(`{"type":"audio.delta"}`))
	assert.Error(t, err)
}

func TestDecodeMessageOmitsEmptyFields(t *testing.T) {
	data, err := Message{Type: MessageTypeTurnComplete}.Encode()
	require.NoError(t, err)
	assert.Equal(t, `{"type":"turn.complete"}`, string(data))
}

func TestNewAudioAppend(t *testing.T) {
	frame := audio.Frame{
		Data:       audio.EncodeBinary([]byte{0, 1}),
		SampleRate: audio.CaptureSampleRate,
		MimeType:   audio.CaptureMimeType,
	}
	msg := NewAudioAppend(frame)
	assert.Equal(t, MessageTypeAudioAppend, msg.Type)
	assert.Equal(t, frame.Data, msg.Audio)
	assert.Equal(t, audio.CaptureMimeType, msg.MimeType)
	assert.NoError(t, msg.Validate())
}

func TestNewKeepaliveFrame(t *testing.T) {
	msg := NewKeepaliveFrame()
	assert.Equal(t, MessageTypeAudioAppend, msg.Type)
	assert.Empty(t, msg.Audio)
	assert.Equal(t, audio.CaptureMimeType, msg.MimeType)
	assert.NoError(t, msg.Validate())
}

func TestMessageYAML(t *testing.T) {
	out, err := Message{Type: MessageTypeError, Code: "429", Detail: "quota exhausted"}.YAML()
	require.NoError(t, err)
	assert.Contains(t, string(out), "type: error")
	assert.Contains(t, string(out), "detail: quota exhausted")
}
