package audio

import (
	"encoding/base64"
	"encoding/binary"
	"testing"
	"time"
)

func TestEncode_QuantizesAndClamps(t *testing.T) {
	f := Encode([]float32{0, 1, -1, 2, -2, 0.5}, 16000)
	if f.MimeType != "audio/pcm;rate=16000" {
		t.Fatalf("mime mismatch: %s", f.MimeType)
	}
	if len(f.Data) != 12 {
		t.Fatalf("expected 12 bytes, got %d", len(f.Data))
	}
	got := make([]int16, 6)
	for i := range got {
		got[i] = int16(binary.LittleEndian.Uint16(f.Data[i*2 : (i+1)*2]))
	}
	if got[0] != 0 {
		t.Fatalf("zero sample: %d", got[0])
	}
	if got[1] != 32767 || got[3] != 32767 {
		t.Fatalf("positive clamp: %d %d", got[1], got[3])
	}
	if got[2] != -32767 || got[4] != -32767 {
		t.Fatalf("negative clamp: %d %d", got[2], got[4])
	}
	if got[5] < 16000 || got[5] > 16500 {
		t.Fatalf("half-scale sample out of range: %d", got[5])
	}
}

func TestDecodeBase64_MalformedPayload(t *testing.T) {
	if _, err := DecodeBase64("not base64!!", 24000, 1); err == nil {
		t.Fatalf("expected error for malformed base64")
	}
	// valid base64 but odd byte count
	odd := base64.StdEncoding.EncodeToString([]byte{1, 2, 3})
	if _, err := DecodeBase64(odd, 24000, 1); err == nil {
		t.Fatalf("expected error for odd pcm length")
	}
}

func TestDecode_DurationAndRoundtrip(t *testing.T) {
	// 24000 samples at 24kHz mono = exactly one second
	raw := make([]byte, 24000*2)
	binary.LittleEndian.PutUint16(raw[0:2], uint16(int16(16384)))
	buf, err := Decode(raw, 24000, 1)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if buf.Duration() != time.Second {
		t.Fatalf("duration: got %v", buf.Duration())
	}
	if buf.Samples[0] < 0.49 || buf.Samples[0] > 0.51 {
		t.Fatalf("sample scale: got %f", buf.Samples[0])
	}
	pcm := buf.PCM16LE()
	if len(pcm) != len(raw) {
		t.Fatalf("pcm length: got %d want %d", len(pcm), len(raw))
	}
	back := int16(binary.LittleEndian.Uint16(pcm[0:2]))
	if back < 16350 || back > 16400 {
		t.Fatalf("roundtrip sample drifted: %d", back)
	}
}

func TestRMS(t *testing.T) {
	if RMS(nil) != 0 {
		t.Fatalf("empty rms should be 0")
	}
	v := RMS([]float32{0.5, -0.5, 0.5, -0.5})
	if v < 0.49 || v > 0.51 {
		t.Fatalf("rms of constant-magnitude signal: got %f", v)
	}
}
