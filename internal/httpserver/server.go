package httpserver

import (
	"context"
	"io"
	"log"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/omartood/Interview-Tools/internal/feedback"
	"github.com/omartood/Interview-Tools/internal/session"
	"github.com/omartood/Interview-Tools/internal/store"
	"github.com/omartood/Interview-Tools/internal/transcript"
)

// maxImageBytes bounds a single camera still upload.
const maxImageBytes = 5 << 20

// SessionController is the surface of the live session the HTTP layer drives.
type SessionController interface {
	Connect(ctx context.Context, cfg session.InterviewConfig) error
	Disconnect()
	Snapshot() session.Status
	Transcript() []transcript.Item
	PushImageFrame(jpeg []byte)
}

// FeedbackGenerator produces the post-interview report.
type FeedbackGenerator interface {
	Generate(ctx context.Context, cfg session.InterviewConfig, items []transcript.Item) feedback.Report
}

// Server bundles HTTP router and dependencies. It owns exactly one
// SessionController, so at most one interview runs per process.
type Server struct {
	Router http.Handler

	controller SessionController
	feedback   FeedbackGenerator
	store      *store.Storage

	mu      sync.Mutex
	current session.InterviewConfig
}

type Deps struct {
	Controller SessionController
	Feedback   FeedbackGenerator
	Store      *store.Storage
}

// New constructs the HTTP server with routes.
func New(deps Deps) *Server {
	s := &Server{
		controller: deps.Controller,
		feedback:   deps.Feedback,
		store:      deps.Store,
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.POST("/session/start", s.handleStart)
	e.POST("/session/stop", s.handleStop)
	e.GET("/session/state", s.handleState)
	e.POST("/session/image", s.handleImage)
	e.POST("/feedback", s.handleFeedback)

	s.Router = e
	return s
}

func (s *Server) handleStart(c echo.Context) error {
	var cfg session.InterviewConfig
	if err := c.Bind(&cfg); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid interview config"})
	}
	if err := s.controller.Connect(c.Request().Context(), cfg); err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
	s.mu.Lock()
	s.current = cfg
	s.mu.Unlock()
	return c.JSON(http.StatusOK, s.controller.Snapshot())
}

func (s *Server) handleStop(c echo.Context) error {
	s.mu.Lock()
	cfg := s.current
	s.mu.Unlock()
	items := s.controller.Transcript()
	s.controller.Disconnect()

	// Feedback and persistence run in the background so the stop response is
	// immediate.
	if len(items) > 0 && s.feedback != nil {
		go func() {
			report := s.feedback.Generate(context.Background(), cfg, items)
			if _, err := s.store.SaveSession(cfg, items, &report); err != nil {
				log.Printf("Session persistence failed: %v", err)
			}
		}()
	}
	return c.JSON(http.StatusOK, map[string]any{"transcript": items})
}

func (s *Server) handleState(c echo.Context) error {
	return c.JSON(http.StatusOK, s.controller.Snapshot())
}

func (s *Server) handleImage(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxImageBytes))
	if err != nil || len(body) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "empty image body"})
	}
	s.controller.PushImageFrame(body)
	return c.NoContent(http.StatusAccepted)
}

func (s *Server) handleFeedback(c echo.Context) error {
	if s.feedback == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "feedback not configured"})
	}
	s.mu.Lock()
	cfg := s.current
	s.mu.Unlock()
	report := s.feedback.Generate(c.Request().Context(), cfg, s.controller.Transcript())
	return c.JSON(http.StatusOK, report)
}
