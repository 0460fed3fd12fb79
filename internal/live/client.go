package live

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/omartood/Interview-Tools/internal/audio"
)

// DefaultEndpoint is the bidirectional streaming endpoint of the Gemini Live
// API.
const DefaultEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

// setupTimeout bounds the wait for the server's setup acknowledgement.
const setupTimeout = 10 * time.Second

// Speaker identifies which side of the conversation a transcription belongs
// to.
type Speaker string

const (
	SpeakerUser  Speaker = "user"
	SpeakerModel Speaker = "model"
)

// Event is a decoded server message. The session layer consumes these from
// Events and never touches the wire format.
type Event interface{ isLiveEvent() }

// AudioChunk carries one base64-encoded slice of model speech.
type AudioChunk struct {
	Data     string
	MimeType string
}

// Transcription carries a partial text fragment for one speaker. Fragments
// arrive incrementally and must be concatenated by the consumer.
type Transcription struct {
	Speaker Speaker
	Text    string
}

// TurnComplete marks the end of a model response turn.
type TurnComplete struct{}

// Interrupted signals that the user spoke over the model and all queued
// model audio is now stale.
type Interrupted struct{}

// Closed is the final event on the stream. Err is nil on a clean shutdown.
type Closed struct {
	Err error
}

func (AudioChunk) isLiveEvent()    {}
func (Transcription) isLiveEvent() {}
func (TurnComplete) isLiveEvent()  {}
func (Interrupted) isLiveEvent()   {}
func (Closed) isLiveEvent()        {}

// Dialer opens live sessions against the Gemini Live API.
type Dialer struct {
	APIKey   string
	Model    string
	Endpoint string
}

// Client is one open live session. Events are delivered on a buffered channel;
// outbound media goes through a send pump so the audio callback never blocks
// on the socket.
type Client struct {
	conn     *websocket.Conn
	events   chan Event
	outbound chan any
	stopCh   chan struct{}

	mu     sync.Mutex
	closed bool

	closeEvents sync.Once
}

// wire format

type setupMessage struct {
	Setup setupPayload `json:"setup"`
}

type setupPayload struct {
	Model                    string            `json:"model"`
	GenerationConfig         *generationConfig `json:"generationConfig,omitempty"`
	SystemInstruction        *content          `json:"systemInstruction,omitempty"`
	InputAudioTranscription  *struct{}         `json:"inputAudioTranscription,omitempty"`
	OutputAudioTranscription *struct{}         `json:"outputAudioTranscription,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type content struct {
	Parts []part `json:"parts,omitempty"`
}

type part struct {
	Text       string `json:"text,omitempty"`
	InlineData *blob  `json:"inlineData,omitempty"`
}

type blob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type realtimeInputMessage struct {
	RealtimeInput realtimeInput `json:"realtimeInput"`
}

type realtimeInput struct {
	Audio *blob `json:"audio,omitempty"`
	Video *blob `json:"video,omitempty"`
}

type serverMessage struct {
	SetupComplete *struct{}      `json:"setupComplete,omitempty"`
	ServerContent *serverContent `json:"serverContent,omitempty"`
	GoAway        *struct{}      `json:"goAway,omitempty"`
}

type serverContent struct {
	ModelTurn           *content       `json:"modelTurn,omitempty"`
	InputTranscription  *transcription `json:"inputTranscription,omitempty"`
	OutputTranscription *transcription `json:"outputTranscription,omitempty"`
	TurnComplete        bool           `json:"turnComplete,omitempty"`
	Interrupted         bool           `json:"interrupted,omitempty"`
}

type transcription struct {
	Text string `json:"text"`
}

// Dial connects, sends the session setup, and waits for the server's
// acknowledgement before returning. The instruction becomes the system prompt
// for the whole session.
func (d *Dialer) Dial(ctx context.Context, instruction string) (*Client, error) {
	if d.APIKey == "" {
		return nil, fmt.Errorf("live API key is empty")
	}
	endpoint := d.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse live endpoint: %w", err)
	}
	q := u.Query()
	q.Set("key", d.APIKey)
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			log.Printf("Live connection failed with status: %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("connect live session: %w", err)
	}

	setup := setupMessage{Setup: setupPayload{
		Model:                    "models/" + d.Model,
		GenerationConfig:         &generationConfig{ResponseModalities: []string{"AUDIO"}},
		InputAudioTranscription:  &struct{}{},
		OutputAudioTranscription: &struct{}{},
	}}
	if instruction != "" {
		setup.Setup.SystemInstruction = &content{Parts: []part{{Text: instruction}}}
	}
	if err := conn.WriteJSON(setup); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send setup: %w", err)
	}

	// The server must acknowledge the setup before any media flows.
	_ = conn.SetReadDeadline(time.Now().Add(setupTimeout))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("await setup ack: %w", err)
	}
	var ack serverMessage
	if err := json.Unmarshal(raw, &ack); err != nil || ack.SetupComplete == nil {
		_ = conn.Close()
		return nil, fmt.Errorf("unexpected setup response: %s", raw)
	}
	_ = conn.SetReadDeadline(time.Time{})

	c := &Client{
		conn:     conn,
		events:   make(chan Event, 256),
		outbound: make(chan any, 1000),
		stopCh:   make(chan struct{}),
	}
	go c.handleMessages()
	go c.sendOutbound()
	log.Printf("Live session open: model=%s", d.Model)
	return c, nil
}

// Events returns the inbound event stream. The channel is closed after a
// Closed event once the session ends.
func (c *Client) Events() <-chan Event { return c.events }

// SendAudioFrame queues one microphone frame for delivery. Frames are dropped
// when the outbound buffer is full rather than blocking the capture path.
func (c *Client) SendAudioFrame(frame audio.Frame) error {
	msg := realtimeInputMessage{RealtimeInput: realtimeInput{
		Audio: &blob{
			MimeType: frame.MimeType,
			Data:     base64.StdEncoding.EncodeToString(frame.Data),
		},
	}}
	return c.enqueue(msg)
}

// SendImageFrame queues one JPEG still for delivery.
func (c *Client) SendImageFrame(jpeg []byte) error {
	msg := realtimeInputMessage{RealtimeInput: realtimeInput{
		Video: &blob{
			MimeType: "image/jpeg",
			Data:     base64.StdEncoding.EncodeToString(jpeg),
		},
	}}
	return c.enqueue(msg)
}

func (c *Client) enqueue(msg any) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return fmt.Errorf("live session is closed")
	}
	select {
	case c.outbound <- msg:
		return nil
	default:
		log.Println("Live outbound buffer full, dropping frame")
		return nil
	}
}

// Close shuts the session down. Safe to call more than once; later calls are
// no-ops.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	close(c.stopCh)
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	err := c.conn.Close()
	c.finishEvents(nil)
	log.Println("Live session closed")
	return err
}

// finishEvents emits the terminal Closed event exactly once and closes the
// event channel.
func (c *Client) finishEvents(err error) {
	c.closeEvents.Do(func() {
		select {
		case c.events <- Closed{Err: err}:
		default:
		}
		close(c.events)
	})
}

// handleMessages reads server frames until the socket dies or Close is
// called.
func (c *Client) handleMessages() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in live read loop: %v", r)
		}
	}()
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.stopCh:
				// local Close already reported a clean shutdown
			default:
				log.Printf("Live read error: %v", err)
				c.finishEvents(err)
			}
			return
		}
		c.processMessage(raw)
	}
}

// processMessage decodes one server frame into events. Order matters for
// server content: interruption first so stale audio is flushed before any new
// chunk lands, then media, then transcriptions, then turn completion.
func (c *Client) processMessage(raw []byte) {
	var msg serverMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Printf("Error unmarshaling live message: %v", err)
		return
	}
	if msg.GoAway != nil {
		log.Println("Live server requested shutdown")
		return
	}
	sc := msg.ServerContent
	if sc == nil {
		return
	}
	if sc.Interrupted {
		c.emit(Interrupted{})
	}
	if sc.ModelTurn != nil {
		for _, p := range sc.ModelTurn.Parts {
			if p.InlineData == nil || p.InlineData.Data == "" {
				continue
			}
			c.emit(AudioChunk{Data: p.InlineData.Data, MimeType: p.InlineData.MimeType})
		}
	}
	if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
		c.emit(Transcription{Speaker: SpeakerUser, Text: sc.InputTranscription.Text})
	}
	if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
		c.emit(Transcription{Speaker: SpeakerModel, Text: sc.OutputTranscription.Text})
	}
	if sc.TurnComplete {
		c.emit(TurnComplete{})
	}
}

// emit delivers without ever blocking the read loop. A full buffer drops the
// event; turn boundaries are small and the buffer is deep, so drops only
// happen when the consumer is gone.
func (c *Client) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		log.Printf("Live event buffer full, dropping %T", ev)
	}
}

// sendOutbound writes queued media frames to the socket.
func (c *Client) sendOutbound() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in live send loop: %v", r)
		}
	}()
	for {
		select {
		case <-c.stopCh:
			return
		case msg := <-c.outbound:
			if err := c.conn.WriteJSON(msg); err != nil {
				log.Printf("Error sending live frame: %v", err)
				return
			}
		}
	}
}
