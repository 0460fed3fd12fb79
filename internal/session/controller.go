package session

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/omartood/Interview-Tools/internal/audio"
	"github.com/omartood/Interview-Tools/internal/live"
	"github.com/omartood/Interview-Tools/internal/metrics"
	"github.com/omartood/Interview-Tools/internal/transcript"
)

// Deps are the collaborators a Controller drives. NewPlayer is called per
// connect so a fresh playback pipeline backs every session.
type Deps struct {
	Dialer    LiveDialer
	Capture   Capture
	NewPlayer func() (Player, error)
	Metrics   *metrics.Metrics
}

// Controller owns the single live interview session: the lifecycle state
// machine, the capture-to-outbound wiring, the inbound event fan-out, and the
// committed transcript log. At most one remote session is open at a time.
type Controller struct {
	dialer    LiveDialer
	capture   Capture
	newPlayer func() (Player, error)
	metrics   *metrics.Metrics

	mu        sync.Mutex
	state     State
	lastError string
	// gen increments on every connect and disconnect. Async work captures
	// the value it started under and re-checks it before touching session
	// resources, so a stale callback can never act on a newer session.
	gen        uint64
	sess       LiveSession
	player     Player
	aggregator *transcript.Aggregator
	items      []transcript.Item
}

func NewController(d Deps) *Controller {
	return &Controller{
		dialer:     d.Dialer,
		capture:    d.Capture,
		newPlayer:  d.NewPlayer,
		metrics:    d.Metrics,
		state:      StateDisconnected,
		aggregator: transcript.NewAggregator(),
	}
}

// Connect opens the interview session. A call while Connecting or Connected
// is ignored. On any failure the partially acquired devices are released and
// the controller lands in the Error state with the failure surfaced.
func (c *Controller) Connect(ctx context.Context, cfg InterviewConfig) error {
	c.mu.Lock()
	if c.state == StateConnecting || c.state == StateConnected {
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	c.lastError = ""
	c.gen++
	gen := c.gen
	c.aggregator.Reset()
	c.items = nil
	c.mu.Unlock()

	instruction := BuildInstruction(cfg)

	if err := c.capture.Open(); err != nil {
		err = fmt.Errorf("acquire microphone: %w", err)
		c.fail(gen, err)
		return err
	}
	player, err := c.newPlayer()
	if err != nil {
		c.capture.Close()
		err = fmt.Errorf("open playback: %w", err)
		c.fail(gen, err)
		return err
	}
	sess, err := c.dialer.Dial(ctx, instruction)
	if err != nil {
		player.Close()
		c.capture.Close()
		c.fail(gen, err)
		return err
	}

	c.mu.Lock()
	if c.gen != gen || c.state != StateConnecting {
		// Caller disconnected while we were negotiating. Release what we
		// just acquired and leave the state alone.
		c.mu.Unlock()
		_ = sess.Close()
		player.Close()
		c.capture.Close()
		return nil
	}
	c.sess = sess
	c.player = player
	c.state = StateConnected
	c.mu.Unlock()

	// Bind the microphone only now that the remote session is confirmed
	// open. Frames never flow into an unopened channel.
	c.capture.Deliver(func(f audio.Frame) error {
		if c.metrics != nil {
			c.metrics.AudioFramesSent.Inc()
		}
		return sess.SendAudioFrame(f)
	})
	go c.eventLoop(gen, sess, player)

	if c.metrics != nil {
		c.metrics.RecordSessionStarted()
	}
	log.Printf("Interview session connected: role=%q seniority=%q", cfg.Role, cfg.Seniority)
	return nil
}

// fail moves a still-connecting session into the Error state. A stale
// generation means the caller already moved on, in which case the state is
// left untouched.
func (c *Controller) fail(gen uint64, err error) {
	log.Printf("Session connect failed: %v", err)
	c.mu.Lock()
	if c.gen == gen && c.state == StateConnecting {
		c.state = StateError
		c.lastError = err.Error()
	}
	c.mu.Unlock()
	if c.metrics != nil {
		c.metrics.RecordSessionEnded(true)
	}
}

// Disconnect tears the session down. Idempotent and safe from any state,
// including before any connect.
func (c *Controller) Disconnect() {
	c.mu.Lock()
	c.gen++
	sess := c.sess
	player := c.player
	c.sess = nil
	c.player = nil
	alreadyDown := c.state == StateDisconnected
	c.state = StateDisconnected
	c.mu.Unlock()

	if sess != nil {
		_ = sess.Close()
	}
	if player != nil {
		player.Flush()
		player.Close()
	}
	c.capture.Close()
	if !alreadyDown {
		if c.metrics != nil {
			c.metrics.RecordSessionEnded(false)
		}
		log.Println("Interview session disconnected")
	}
}

// PushImageFrame forwards a JPEG still through the open session. Frames
// pushed while not Connected are dropped, not queued.
func (c *Controller) PushImageFrame(jpeg []byte) {
	c.mu.Lock()
	sess := c.sess
	connected := c.state == StateConnected
	c.mu.Unlock()
	if !connected || sess == nil {
		return
	}
	if err := sess.SendImageFrame(jpeg); err != nil {
		log.Printf("Image frame send failed: %v", err)
		return
	}
	if c.metrics != nil {
		c.metrics.ImageFramesSent.Inc()
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Transcript returns a copy of the committed transcript log.
func (c *Controller) Transcript() []transcript.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]transcript.Item, len(c.items))
	copy(items, c.items)
	return items
}

// Snapshot returns the observable session state for the UI.
func (c *Controller) Snapshot() Status {
	c.mu.Lock()
	state := c.state
	lastError := c.lastError
	player := c.player
	items := make([]transcript.Item, len(c.items))
	copy(items, c.items)
	c.mu.Unlock()

	st := Status{
		State:      state,
		LastError:  lastError,
		MicVolume:  c.capture.Volume(),
		Transcript: items,
	}
	if player != nil {
		st.RemoteVolume = player.Volume()
	}
	return st
}

// eventLoop fans inbound session events out to the player and the transcript
// aggregator until the event stream closes. Every branch re-checks the
// generation so a loop outliving its session becomes inert.
func (c *Controller) eventLoop(gen uint64, sess LiveSession, player Player) {
	for ev := range sess.Events() {
		switch ev := ev.(type) {
		case live.AudioChunk:
			if !c.alive(gen) {
				continue
			}
			if err := player.Enqueue(ev.Data); err != nil {
				if c.metrics != nil {
					c.metrics.ChunkDropErrors.Inc()
				}
				continue
			}
			if c.metrics != nil {
				c.metrics.ChunksScheduled.Inc()
			}
		case live.Transcription:
			role := transcript.RoleInterviewer
			if ev.Speaker == live.SpeakerUser {
				role = transcript.RoleUser
			}
			c.mu.Lock()
			if c.gen == gen {
				c.aggregator.Append(role, ev.Text)
			}
			c.mu.Unlock()
		case live.TurnComplete:
			c.mu.Lock()
			var committed int
			if c.gen == gen {
				items := c.aggregator.Commit()
				c.items = append(c.items, items...)
				committed = len(items)
			}
			c.mu.Unlock()
			if c.metrics != nil {
				c.metrics.RecordTurnCommitted(committed)
			}
		case live.Interrupted:
			if !c.alive(gen) {
				continue
			}
			player.Flush()
			if c.metrics != nil {
				c.metrics.Interruptions.Inc()
			}
		case live.Closed:
			c.onSessionClosed(gen, ev.Err)
		}
	}
}

func (c *Controller) alive(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen == gen
}

// onSessionClosed handles the remote end going away. A close arriving after
// an explicit disconnect must not move the state the caller has already set.
func (c *Controller) onSessionClosed(gen uint64, err error) {
	c.mu.Lock()
	if c.gen != gen || (c.state != StateConnecting && c.state != StateConnected) {
		c.mu.Unlock()
		return
	}
	failed := err != nil
	if failed {
		c.state = StateError
		c.lastError = err.Error()
		log.Printf("Live session ended with error: %v", err)
	} else {
		c.state = StateDisconnected
		log.Println("Live session closed by remote")
	}
	c.gen++
	sess := c.sess
	player := c.player
	c.sess = nil
	c.player = nil
	c.mu.Unlock()

	if sess != nil {
		_ = sess.Close()
	}
	if player != nil {
		player.Flush()
		player.Close()
	}
	c.capture.Close()
	if c.metrics != nil {
		c.metrics.RecordSessionEnded(failed)
	}
}
