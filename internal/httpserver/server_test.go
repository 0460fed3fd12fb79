package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/omartood/Interview-Tools/internal/feedback"
	"github.com/omartood/Interview-Tools/internal/session"
	"github.com/omartood/Interview-Tools/internal/transcript"
)

type fakeController struct {
	mu          sync.Mutex
	connectErr  error
	connects    int
	disconnects int
	images      int
	lastConfig  session.InterviewConfig
	items       []transcript.Item
	state       session.State
}

func (f *fakeController) Connect(_ context.Context, cfg session.InterviewConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connects++
	f.lastConfig = cfg
	f.state = session.StateConnected
	return nil
}

func (f *fakeController) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	f.state = session.StateDisconnected
}

func (f *fakeController) Snapshot() session.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return session.Status{State: f.state, Transcript: f.items}
}

func (f *fakeController) Transcript() []transcript.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items
}

func (f *fakeController) PushImageFrame([]byte) {
	f.mu.Lock()
	f.images++
	f.mu.Unlock()
}

type fakeFeedback struct{ report feedback.Report }

func (f *fakeFeedback) Generate(context.Context, session.InterviewConfig, []transcript.Item) feedback.Report {
	return f.report
}

func newTestServer(ctrl *fakeController) *Server {
	return New(Deps{
		Controller: ctrl,
		Feedback:   &fakeFeedback{report: feedback.Report{Score: 70, Summary: "fine"}},
	})
}

func TestServer_Healthz(t *testing.T) {
	srv := newTestServer(&fakeController{state: session.StateDisconnected})
	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestStart_OK(t *testing.T) {
	ctrl := &fakeController{state: session.StateDisconnected}
	srv := newTestServer(ctrl)
	r := httptest.NewRequest(http.MethodPost, "/session/start", strings.NewReader(`{"role":"Backend Engineer","seniority":"Senior"}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ctrl.lastConfig.Role != "Backend Engineer" {
		t.Fatalf("config not forwarded: %+v", ctrl.lastConfig)
	}
}

func TestStart_BadJSON(t *testing.T) {
	srv := newTestServer(&fakeController{})
	r := httptest.NewRequest(http.MethodPost, "/session/start", strings.NewReader("not-json"))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestStart_ConnectFailure(t *testing.T) {
	srv := newTestServer(&fakeController{connectErr: errors.New("no microphone")})
	r := httptest.NewRequest(http.MethodPost, "/session/start", strings.NewReader(`{}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, r)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "no microphone") {
		t.Fatalf("error not surfaced: %s", w.Body.String())
	}
}

func TestStop_DisconnectsAndReturnsTranscript(t *testing.T) {
	ctrl := &fakeController{state: session.StateConnected, items: []transcript.Item{{Role: transcript.RoleUser, Text: "hello"}}}
	srv := newTestServer(ctrl)
	r := httptest.NewRequest(http.MethodPost, "/session/stop", nil)
	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ctrl.disconnects != 1 {
		t.Fatalf("expected 1 disconnect, got %d", ctrl.disconnects)
	}
	if !strings.Contains(w.Body.String(), "hello") {
		t.Fatalf("transcript missing from response: %s", w.Body.String())
	}
}

func TestState_ReturnsSnapshot(t *testing.T) {
	ctrl := &fakeController{state: session.StateConnected}
	srv := newTestServer(ctrl)
	r := httptest.NewRequest(http.MethodGet, "/session/state", nil)
	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"connected"`) {
		t.Fatalf("state missing from response: %s", w.Body.String())
	}
}

func TestImage_ForwardedAndValidated(t *testing.T) {
	ctrl := &fakeController{state: session.StateConnected}
	srv := newTestServer(ctrl)

	r := httptest.NewRequest(http.MethodPost, "/session/image", strings.NewReader("\xff\xd8jpegdata"))
	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, r)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
	if ctrl.images != 1 {
		t.Fatalf("expected 1 forwarded image, got %d", ctrl.images)
	}

	r2 := httptest.NewRequest(http.MethodPost, "/session/image", nil)
	w2 := httptest.NewRecorder()
	srv.Router.ServeHTTP(w2, r2)
	if w2.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty body, got %d", w2.Code)
	}
}

func TestFeedback_ReturnsReport(t *testing.T) {
	ctrl := &fakeController{items: []transcript.Item{{Role: transcript.RoleUser, Text: "answer"}}}
	srv := newTestServer(ctrl)
	r := httptest.NewRequest(http.MethodPost, "/feedback", nil)
	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"score":70`) {
		t.Fatalf("report missing from response: %s", w.Body.String())
	}
}
