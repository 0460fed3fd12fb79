package session

import (
	"context"

	"github.com/omartood/Interview-Tools/internal/audio"
	"github.com/omartood/Interview-Tools/internal/live"
	"github.com/omartood/Interview-Tools/internal/transcript"
)

// State is the connection lifecycle of the single interview session.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateError        State = "error"
)

// InterviewConfig is the immutable per-session input. It is consumed once at
// connect time to synthesize the system instruction and never mutated after.
type InterviewConfig struct {
	Role           string `json:"role"`
	Seniority      string `json:"seniority"`
	CompanyType    string `json:"companyType"`
	JobDescription string `json:"jobDescription,omitempty"`
	Resume         string `json:"resume,omitempty"`
	Persona        string `json:"persona,omitempty"`
}

// LiveSession is one open remote conversation. The controller is its sole
// owner.
type LiveSession interface {
	Events() <-chan live.Event
	SendAudioFrame(frame audio.Frame) error
	SendImageFrame(jpeg []byte) error
	Close() error
}

// LiveDialer opens remote sessions with a given system instruction.
type LiveDialer interface {
	Dial(ctx context.Context, instruction string) (LiveSession, error)
}

// Capture owns the microphone device. Deliver must be called only after the
// remote session confirms open.
type Capture interface {
	Open() error
	Deliver(sink func(audio.Frame) error)
	Volume() float64
	Close()
}

// Player schedules inbound model audio for gapless playback. Flush drops
// everything queued or playing.
type Player interface {
	Enqueue(payload string) error
	Flush()
	Volume() float64
	Close()
}

// Status is the observable snapshot the UI polls.
type Status struct {
	State        State             `json:"state"`
	LastError    string            `json:"lastError,omitempty"`
	MicVolume    float64           `json:"micVolume"`
	RemoteVolume float64           `json:"remoteVolume"`
	Transcript   []transcript.Item `json:"transcript"`
}
