package config

import (
	"os"
	"testing"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	os.Setenv("HTTP_ADDRESS", "")
	os.Setenv("GEMINI_LIVE_MODEL", "")
	os.Setenv("PLAYBACK_SAMPLE_RATE", "")
	cfg := Load()
	if cfg.HTTPAddress == "" {
		t.Fatalf("expected default http address")
	}
	if cfg.GeminiLiveModel == "" {
		t.Fatalf("expected default live model")
	}
	if cfg.PlaybackSampleRate != 24000 {
		t.Fatalf("expected default playback sample rate, got %d", cfg.PlaybackSampleRate)
	}
	if cfg.MicVolumeGain != 5 || cfg.PlaybackVolumeGain != 3 {
		t.Fatalf("expected default volume gains, got %g/%g", cfg.MicVolumeGain, cfg.PlaybackVolumeGain)
	}
}

func TestLoad_BadNumbersFallBack(t *testing.T) {
	os.Setenv("CAPTURE_BLOCK_SIZE", "not-a-number")
	os.Setenv("MIC_VOLUME_GAIN", "loud")
	defer os.Unsetenv("CAPTURE_BLOCK_SIZE")
	defer os.Unsetenv("MIC_VOLUME_GAIN")
	cfg := Load()
	if cfg.CaptureBlockSize != 4096 {
		t.Fatalf("expected fallback block size, got %d", cfg.CaptureBlockSize)
	}
	if cfg.MicVolumeGain != 5 {
		t.Fatalf("expected fallback mic gain, got %g", cfg.MicVolumeGain)
	}
}
