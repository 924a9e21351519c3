package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// Clip is one decoded, playable buffer of normalized audio. A clip is owned
// by the playback scheduler from decode until its scheduled playback ends.
type Clip struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// Duration reports the playable length of the clip.
func (c Clip) Duration() time.Duration {
	if c.SampleRate <= 0 || c.Channels <= 0 {
		return 0
	}
	frames := len(c.Samples) / c.Channels
	return time.Duration(float64(frames) / float64(c.SampleRate) * float64(time.Second))
}

// MalformedAudioError reports a byte payload whose length is not a whole
// number of PCM16 frames. The offending frame is dropped; the stream goes on.
type MalformedAudioError struct {
	Length   int
	Channels int
}

func (e *MalformedAudioError) Error() string {
	return fmt.Sprintf("malformed audio payload: %d bytes is not a multiple of %d", e.Length, 2*e.Channels)
}

// DecodeError reports transport text that could not be decoded back to bytes.
// Same recovery as MalformedAudioError: report, drop, continue.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding audio payload: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeBinary converts raw bytes to the transport-safe text form.
func EncodeBinary(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeBinary is the exact inverse of EncodeBinary.
func DecodeBinary(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return b, nil
}

// FloatToInt16 maps normalized samples onto the 16-bit signed range. Values
// outside [-1, 1] clamp instead of wrapping.
func FloatToInt16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		v := math.Round(float64(s) * 32768)
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < math.MinInt16 {
			v = math.MinInt16
		}
		out[i] = int16(v)
	}
	return out
}

// Int16ToBytes packs samples as little-endian PCM16.
func Int16ToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// Int16BytesToFloat interprets b as little-endian PCM16 and normalizes each
// sample to [-1, 1), packing the result into a Clip tagged with the given
// rate and channel count.
func Int16BytesToFloat(b []byte, sampleRate, channels int) (Clip, error) {
	if channels <= 0 || len(b)%(2*channels) != 0 {
		return Clip{}, &MalformedAudioError{Length: len(b), Channels: channels}
	}
	samples := make([]float32, len(b)/2)
	for i := range samples {
		samples[i] = float32(int16(binary.LittleEndian.Uint16(b[i*2:]))) / 32768
	}
	return Clip{Samples: samples, SampleRate: sampleRate, Channels: channels}, nil
}
