package playback

import (
	"log"
	"sync"
	"time"

	"github.com/omartood/Interview-Tools/internal/audio"
)

// Clock reports elapsed time on the output timeline. The real implementation
// is monotonic time since the pipeline opened; tests drive a manual clock.
type Clock interface {
	Now() time.Duration
}

// Sink consumes PCM16LE for immediate playback. Implementations buffer
// internally; Reset drops any queued audio (barge-in).
type Sink interface {
	Write(pcm []byte)
	Reset()
	Close()
}

type realClock struct{ start time.Time }

func (c realClock) Now() time.Duration { return time.Since(c.start) }

// unit is one scheduled playback buffer. The deliver timer fires at startAt
// and writes the PCM to the sink; the finish timer removes the unit from the
// live set when it has played out.
type unit struct {
	pcm      []byte
	startAt  time.Duration
	duration time.Duration
	rms      float64
	deliver  *time.Timer
	finish   *time.Timer
}

// Scheduler renders inbound audio chunks back-to-back on a virtual timeline
// with no gap or overlap, and supports immediate full-stop on interruption.
type Scheduler struct {
	sampleRate int
	channels   int
	gain       float64

	mu        sync.Mutex
	clock     Clock
	sink      Sink
	nextStart time.Duration
	units     map[*unit]struct{}
	level     float64
	volume    float64
	closed    bool

	tapStop chan struct{}
}

// Config tunes a Scheduler. Gain scales the advisory amplitude readout only;
// it never affects scheduling.
type Config struct {
	SampleRate int
	Channels   int
	Gain       float64
	Clock      Clock
	TapPeriod  time.Duration
}

// New creates a scheduler over the given sink. The cursor starts at zero.
func New(sink Sink, cfg Config) *Scheduler {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 24000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.Gain <= 0 {
		cfg.Gain = 3
	}
	if cfg.Clock == nil {
		cfg.Clock = realClock{start: time.Now()}
	}
	if cfg.TapPeriod <= 0 {
		cfg.TapPeriod = 100 * time.Millisecond
	}
	s := &Scheduler{
		sampleRate: cfg.SampleRate,
		channels:   cfg.Channels,
		gain:       cfg.Gain,
		clock:      cfg.Clock,
		sink:       sink,
		units:      make(map[*unit]struct{}),
		tapStop:    make(chan struct{}),
	}
	go s.tap(cfg.TapPeriod)
	return s
}

// Enqueue decodes a base64 PCM payload and schedules it contiguously after
// the previously scheduled audio. A chunk arriving after the cursor drifted
// into the past (stall) is clamped to start now rather than in the past.
// Decode failures are local: the chunk is dropped and scheduling continues.
func (s *Scheduler) Enqueue(payload string) error {
	buf, err := audio.DecodeBase64(payload, s.sampleRate, s.channels)
	if err != nil {
		log.Printf("playback: dropping undecodable chunk: %v", err)
		return err
	}
	s.schedule(buf)
	return nil
}

func (s *Scheduler) schedule(buf audio.Buffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	now := s.clock.Now()
	startAt := s.nextStart
	if now > startAt {
		startAt = now
	}
	u := &unit{
		pcm:      buf.PCM16LE(),
		startAt:  startAt,
		duration: buf.Duration(),
		rms:      buf.RMS(),
	}
	s.units[u] = struct{}{}
	s.nextStart = startAt + u.duration
	u.deliver = time.AfterFunc(startAt-now, func() { s.deliverUnit(u) })
}

func (s *Scheduler) deliverUnit(u *unit) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if _, live := s.units[u]; !live {
		// Flushed between timer fire and lock acquisition.
		s.mu.Unlock()
		return
	}
	s.level = u.rms
	u.finish = time.AfterFunc(u.duration, func() { s.completeUnit(u) })
	sink := s.sink
	s.mu.Unlock()
	sink.Write(u.pcm)
}

func (s *Scheduler) completeUnit(u *unit) {
	s.mu.Lock()
	delete(s.units, u)
	if len(s.units) == 0 {
		s.level = 0
	}
	s.mu.Unlock()
}

// Flush is the barge-in path: every pending or playing unit is stopped and
// discarded, the live set cleared, and the cursor reset to zero so the next
// chunk schedules at the current output time. Queued-but-unplayed audio is
// abandoned, not faded.
func (s *Scheduler) Flush() {
	s.mu.Lock()
	for u := range s.units {
		stopUnit(u)
		delete(s.units, u)
	}
	s.nextStart = 0
	s.level = 0
	s.volume = 0
	sink := s.sink
	s.mu.Unlock()
	if sink != nil {
		sink.Reset()
	}
}

// Close tears down the output side: all units stopped (stopping an already
// finished unit is a no-op), cursor reset, amplitude tap stopped, sink
// released. Safe to call more than once.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for u := range s.units {
		stopUnit(u)
		delete(s.units, u)
	}
	s.nextStart = 0
	s.level = 0
	s.volume = 0
	sink := s.sink
	s.sink = nil
	s.mu.Unlock()
	close(s.tapStop)
	if sink != nil {
		sink.Reset()
		sink.Close()
	}
}

// Volume reports the latest sampled output amplitude in [0,1]. Advisory only.
func (s *Scheduler) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// Pending reports how many units are scheduled or playing.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.units)
}

// tap samples the output amplitude on a fixed cadence for the UI readout.
func (s *Scheduler) tap(period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-s.tapStop:
			return
		case <-ticker.C:
			s.mu.Lock()
			v := s.level * s.gain
			if v > 1 {
				v = 1
			}
			s.volume = v
			s.mu.Unlock()
		}
	}
}

func stopUnit(u *unit) {
	if u.deliver != nil {
		u.deliver.Stop()
	}
	if u.finish != nil {
		u.finish.Stop()
	}
}
