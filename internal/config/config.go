package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	HTTPAddress string

	GeminiAPIKey        string
	GeminiLiveModel     string
	GeminiFeedbackModel string

	SupabaseURL    string
	SupabaseKey    string
	SupabaseBucket string

	// Audio tuning. The gains scale raw RMS into the [0,1] UI volume readout.
	CaptureSampleRate  int
	CaptureBlockSize   int
	PlaybackSampleRate int
	MicVolumeGain      float64
	PlaybackVolumeGain float64
}

// Load reads environment variables and returns Config with sane defaults.
func Load() Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file")
	}

	addr := os.Getenv("HTTP_ADDRESS")
	if addr == "" {
		addr = ":8080"
	}

	geminiKey := os.Getenv("GEMINI_API_KEY")
	if geminiKey == "" {
		log.Println("Warning: GEMINI_API_KEY not set - live sessions and feedback will not work")
	}

	liveModel := os.Getenv("GEMINI_LIVE_MODEL")
	if liveModel == "" {
		liveModel = "gemini-2.0-flash-live-001"
	}
	feedbackModel := os.Getenv("GEMINI_FEEDBACK_MODEL")
	if feedbackModel == "" {
		feedbackModel = "gemini-2.0-flash"
	}

	supabaseURL := os.Getenv("SUPABASE_URL")
	supabaseKey := os.Getenv("SUPABASE_KEY")
	if supabaseURL == "" || supabaseKey == "" {
		log.Println("Warning: SUPABASE_URL/SUPABASE_KEY not set - transcripts will not be persisted")
	}
	supabaseBucket := os.Getenv("SUPABASE_BUCKET")
	if supabaseBucket == "" {
		supabaseBucket = "interviews"
	}

	log.Printf("config: HTTP_ADDRESS=%s live_model=%s", addr, liveModel)
	return Config{
		HTTPAddress:         addr,
		GeminiAPIKey:        geminiKey,
		GeminiLiveModel:     liveModel,
		GeminiFeedbackModel: feedbackModel,
		SupabaseURL:         supabaseURL,
		SupabaseKey:         supabaseKey,
		SupabaseBucket:      supabaseBucket,
		CaptureSampleRate:   envInt("CAPTURE_SAMPLE_RATE", 16000),
		CaptureBlockSize:    envInt("CAPTURE_BLOCK_SIZE", 4096),
		PlaybackSampleRate:  envInt("PLAYBACK_SAMPLE_RATE", 24000),
		MicVolumeGain:       envFloat("MIC_VOLUME_GAIN", 5),
		PlaybackVolumeGain:  envFloat("PLAYBACK_VOLUME_GAIN", 3),
	}
}

func envInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Warning: %s=%q is not an integer, using %d", key, raw, def)
		return def
	}
	return v
}

func envFloat(key string, def float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("Warning: %s=%q is not a number, using %g", key, raw, def)
		return def
	}
	return v
}
