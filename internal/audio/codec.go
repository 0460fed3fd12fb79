package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// Frame is one encoded outbound microphone block ready for the transport's
// media envelope.
type Frame struct {
	Data     []byte
	MimeType string
}

// Buffer is a decoded inbound audio chunk ready for playback scheduling.
type Buffer struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// Duration reports the playback length of the buffer.
func (b Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 || b.Channels <= 0 {
		return 0
	}
	frames := len(b.Samples) / b.Channels
	return time.Duration(frames) * time.Second / time.Duration(b.SampleRate)
}

// PCM16LE renders the buffer back to interleaved 16-bit little-endian bytes
// for delivery to the output device.
func (b Buffer) PCM16LE() []byte {
	out := make([]byte, len(b.Samples)*2)
	for i, s := range b.Samples {
		binary.LittleEndian.PutUint16(out[i*2:(i+1)*2], uint16(quantize(s)))
	}
	return out
}

// RMS computes the root-mean-square amplitude of the buffer in [0,1].
func (b Buffer) RMS() float64 {
	return RMS(b.Samples)
}

// Encode quantizes float samples in [-1,1] to PCM16LE and wraps them with the
// rate tag the transport expects. Out-of-range samples are clamped, not
// wrapped.
func Encode(samples []float32, sampleRate int) Frame {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:(i+1)*2], uint16(quantize(s)))
	}
	return Frame{Data: data, MimeType: fmt.Sprintf("audio/pcm;rate=%d", sampleRate)}
}

// DecodeBase64 decodes a base64 PCM16LE payload into a playable buffer at the
// given output rate and channel count. It is pure: a malformed payload yields
// an error and no partial state.
func DecodeBase64(payload string, sampleRate, channels int) (Buffer, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Buffer{}, fmt.Errorf("decode audio payload: %w", err)
	}
	return Decode(raw, sampleRate, channels)
}

// Decode converts raw PCM16LE bytes into a playable buffer.
func Decode(raw []byte, sampleRate, channels int) (Buffer, error) {
	if sampleRate <= 0 || channels <= 0 {
		return Buffer{}, fmt.Errorf("invalid output format: rate=%d channels=%d", sampleRate, channels)
	}
	if len(raw)%2 != 0 {
		return Buffer{}, fmt.Errorf("odd pcm payload length %d", len(raw))
	}
	samples := make([]float32, len(raw)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(raw[i*2 : (i+1)*2]))
		samples[i] = float32(v) / 32768.0
	}
	return Buffer{Samples: samples, SampleRate: sampleRate, Channels: channels}, nil
}

// RMS computes the root-mean-square amplitude of float samples.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func quantize(s float32) int16 {
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	v := s * 32767
	if v > 32767 {
		v = 32767
	} else if v < -32768 {
		v = -32768
	}
	return int16(v)
}
