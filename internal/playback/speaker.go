package playback

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Speaker is the real output pipeline: a pull-mode oto player draining an
// internal PCM16LE buffer. When the buffer is empty it feeds silence, so the
// player never blocks and a barge-in reset cannot strand a reader. It
// implements Sink.
type Speaker struct {
	otoCtx *oto.Context
	player *oto.Player
	mu     sync.Mutex
	buf    []byte
	closed bool
}

// OpenSpeaker initializes the output device at the given rate, 16-bit PCM.
func OpenSpeaker(sampleRate, channels int) (*Speaker, error) {
	opts := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
		// low latency without underruns on typical hosts
		BufferSize: 100 * time.Millisecond,
	}
	ctx, ready, err := oto.NewContext(opts)
	if err != nil {
		return nil, fmt.Errorf("open speaker: %w", err)
	}
	<-ready
	s := &Speaker{otoCtx: ctx}
	s.player = ctx.NewPlayer(pumpReader{s})
	s.player.Play()
	return s, nil
}

// Write queues PCM for playback.
func (s *Speaker) Write(pcm []byte) {
	s.mu.Lock()
	if !s.closed {
		s.buf = append(s.buf, pcm...)
	}
	s.mu.Unlock()
}

// Reset drops all queued audio immediately (barge-in).
func (s *Speaker) Reset() {
	s.mu.Lock()
	s.buf = s.buf[:0]
	s.mu.Unlock()
}

// Close releases the output pipeline. Subsequent writes are discarded.
func (s *Speaker) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.buf = nil
	player := s.player
	s.player = nil
	s.mu.Unlock()
	if player != nil {
		player.Close()
	}
}

// pumpReader adapts the speaker buffer to oto's pull model, substituting
// silence when no audio is queued.
type pumpReader struct{ s *Speaker }

func (r pumpReader) Read(p []byte) (int, error) {
	s := r.s
	s.mu.Lock()
	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	s.mu.Unlock()
	for i := n; i < len(p); i++ {
		p[i] = 0
	}
	return len(p), nil
}
