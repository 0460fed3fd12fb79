package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/omartood/Interview-Tools/internal/capture"
	"github.com/omartood/Interview-Tools/internal/config"
	"github.com/omartood/Interview-Tools/internal/feedback"
	"github.com/omartood/Interview-Tools/internal/httpserver"
	"github.com/omartood/Interview-Tools/internal/live"
	"github.com/omartood/Interview-Tools/internal/metrics"
	"github.com/omartood/Interview-Tools/internal/playback"
	"github.com/omartood/Interview-Tools/internal/session"
	"github.com/omartood/Interview-Tools/internal/store"
)

// liveDialer adapts the concrete websocket dialer to the controller's
// interface.
type liveDialer struct {
	d *live.Dialer
}

func (l liveDialer) Dial(ctx context.Context, instruction string) (session.LiveSession, error) {
	client, err := l.d.Dial(ctx, instruction)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func main() {
	// Include sub-second precision in all log timestamps
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	cfg := config.Load()
	m := metrics.NewMetrics()

	storage, err := store.New(store.Config{
		URL:    cfg.SupabaseURL,
		Key:    cfg.SupabaseKey,
		Bucket: cfg.SupabaseBucket,
	})
	if err != nil {
		log.Printf("storage disabled: %v", err)
	}

	graph := capture.NewGraph(capture.Config{
		SampleRate: cfg.CaptureSampleRate,
		BlockSize:  cfg.CaptureBlockSize,
		Gain:       cfg.MicVolumeGain,
	})

	newPlayer := func() (session.Player, error) {
		speaker, err := playback.OpenSpeaker(cfg.PlaybackSampleRate, 1)
		if err != nil {
			return nil, err
		}
		return playback.New(speaker, playback.Config{
			SampleRate: cfg.PlaybackSampleRate,
			Channels:   1,
			Gain:       cfg.PlaybackVolumeGain,
		}), nil
	}

	controller := session.NewController(session.Deps{
		Dialer:    liveDialer{d: &live.Dialer{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiLiveModel}},
		Capture:   graph,
		NewPlayer: newPlayer,
		Metrics:   m,
	})

	srv := httpserver.New(httpserver.Deps{
		Controller: controller,
		Feedback:   feedback.NewGenerator(cfg.GeminiAPIKey, cfg.GeminiFeedbackModel),
		Store:      storage,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           srv.Router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in background
	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("server listening on %s", cfg.HTTPAddress)
		serverErrors <- server.ListenAndServe()
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	case sig := <-sigChan:
		log.Printf("shutdown signal received: %v", sig)
	}

	controller.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = server.Close()
	}
}
