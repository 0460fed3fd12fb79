package live

import (
	"testing"
)

func newDecodeClient() *Client {
	return &Client{
		events:   make(chan Event, 16),
		outbound: make(chan any, 16),
		stopCh:   make(chan struct{}),
	}
}

func drain(c *Client) []Event {
	var events []Event
	for {
		select {
		case ev := <-c.events:
			events = append(events, ev)
		default:
			return events
		}
	}
}

func TestProcessMessage_AudioChunk(t *testing.T) {
	c := newDecodeClient()
	c.processMessage([]byte(`{"serverContent":{"modelTurn":{"parts":[{"inlineData":{"mimeType":"audio/pcm;rate=24000","data":"AAD//w=="}}]}}}`))
	events := drain(c)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	chunk, ok := events[0].(AudioChunk)
	if !ok {
		t.Fatalf("expected AudioChunk, got %T", events[0])
	}
	if chunk.Data != "AAD//w==" || chunk.MimeType != "audio/pcm;rate=24000" {
		t.Fatalf("unexpected chunk: %+v", chunk)
	}
}

func TestProcessMessage_Transcriptions(t *testing.T) {
	c := newDecodeClient()
	c.processMessage([]byte(`{"serverContent":{"inputTranscription":{"text":"I wor"}}}`))
	c.processMessage([]byte(`{"serverContent":{"outputTranscription":{"text":"Tell me"}}}`))
	events := drain(c)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	in := events[0].(Transcription)
	if in.Speaker != SpeakerUser || in.Text != "I wor" {
		t.Fatalf("unexpected input transcription: %+v", in)
	}
	out := events[1].(Transcription)
	if out.Speaker != SpeakerModel || out.Text != "Tell me" {
		t.Fatalf("unexpected output transcription: %+v", out)
	}
}

func TestProcessMessage_InterruptedBeforeAudio(t *testing.T) {
	c := newDecodeClient()
	// A single frame can carry both an interruption and fresh audio. The
	// interruption must come out first so the player flushes before the new
	// chunk is scheduled.
	c.processMessage([]byte(`{"serverContent":{"interrupted":true,"modelTurn":{"parts":[{"inlineData":{"mimeType":"audio/pcm;rate=24000","data":"AAA="}}]}}}`))
	events := drain(c)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if _, ok := events[0].(Interrupted); !ok {
		t.Fatalf("expected Interrupted first, got %T", events[0])
	}
	if _, ok := events[1].(AudioChunk); !ok {
		t.Fatalf("expected AudioChunk second, got %T", events[1])
	}
}

func TestProcessMessage_TurnComplete(t *testing.T) {
	c := newDecodeClient()
	c.processMessage([]byte(`{"serverContent":{"turnComplete":true}}`))
	events := drain(c)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if _, ok := events[0].(TurnComplete); !ok {
		t.Fatalf("expected TurnComplete, got %T", events[0])
	}
}

func TestProcessMessage_IgnoresNoise(t *testing.T) {
	c := newDecodeClient()
	c.processMessage([]byte(`not json`))
	c.processMessage([]byte(`{"setupComplete":{}}`))
	c.processMessage([]byte(`{"serverContent":{"modelTurn":{"parts":[{"text":"thinking"}]}}}`))
	c.processMessage([]byte(`{"serverContent":{"inputTranscription":{"text":""}}}`))
	if events := drain(c); len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
}

func TestFinishEvents_Once(t *testing.T) {
	c := newDecodeClient()
	c.finishEvents(nil)
	c.finishEvents(nil) // second call must not panic or double-close
	ev, ok := <-c.events
	if !ok {
		t.Fatalf("expected terminal Closed event")
	}
	if _, isClosed := ev.(Closed); !isClosed {
		t.Fatalf("expected Closed, got %T", ev)
	}
	if _, ok := <-c.events; ok {
		t.Fatalf("expected channel to be closed")
	}
}
