package capture

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"github.com/omartood/Interview-Tools/internal/audio"
)

// FrameSink receives one encoded microphone frame per full block. Delivery is
// fire-and-forget: errors are swallowed so the audio callback can never be
// disturbed by a channel mid-teardown.
type FrameSink func(audio.Frame) error

// Graph owns the microphone input device. It pulls float samples from the
// device callback, cuts them into fixed-size blocks, computes a UI volume per
// block, and forwards encoded frames to the bound sink while delivery is
// enabled.
type Graph struct {
	sampleRate int
	blockSize  int
	gain       float64

	mu     sync.Mutex
	open   bool
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	block  []float32

	delivering atomic.Bool
	sink       atomic.Value // FrameSink
	volume     atomic.Uint64
}

// Config tunes a capture graph. Gain scales raw RMS into the UI volume
// readout; it does not change the audio sent upstream.
type Config struct {
	SampleRate int
	BlockSize  int
	Gain       float64
}

func NewGraph(cfg Config) *Graph {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = 4096
	}
	if cfg.Gain <= 0 {
		cfg.Gain = 5
	}
	return &Graph{
		sampleRate: cfg.SampleRate,
		blockSize:  cfg.BlockSize,
		gain:       cfg.Gain,
		block:      make([]float32, 0, cfg.BlockSize),
	}
}

// Open acquires the microphone device. The device starts producing callbacks
// immediately, but nothing is forwarded until Deliver is called.
func (g *Graph) Open() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.open {
		return nil
	}
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(g.sampleRate)

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			g.onDeviceData(input)
		},
	}
	device, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("acquire microphone: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		_ = ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("start microphone: %w", err)
	}
	g.ctx = ctx
	g.device = device
	g.open = true
	return nil
}

// Deliver binds the outbound sink and enables frame forwarding. Called only
// once the remote session has confirmed open.
func (g *Graph) Deliver(sink func(audio.Frame) error) {
	g.sink.Store(FrameSink(sink))
	g.delivering.Store(true)
}

// Close tears the graph down: delivery stops first, then the device is
// stopped and released. A block finishing mid-teardown must not be sent on a
// freed handle.
func (g *Graph) Close() {
	g.delivering.Store(false)
	g.mu.Lock()
	device := g.device
	ctx := g.ctx
	g.open = false
	g.device = nil
	g.ctx = nil
	g.block = g.block[:0]
	g.mu.Unlock()
	if device != nil {
		_ = device.Stop()
		device.Uninit()
	}
	if ctx != nil {
		_ = ctx.Uninit()
		ctx.Free()
	}
	g.setVolume(0)
}

// Volume reports the latest per-block microphone level in [0,1].
func (g *Graph) Volume() float64 {
	return math.Float64frombits(g.volume.Load())
}

// onDeviceData accumulates device samples and emits full fixed-size blocks.
func (g *Graph) onDeviceData(input []byte) {
	if len(input) < 4 {
		return
	}
	g.mu.Lock()
	if !g.open {
		g.mu.Unlock()
		return
	}
	for i := 0; i+3 < len(input); i += 4 {
		g.block = append(g.block, math.Float32frombits(binary.LittleEndian.Uint32(input[i:i+4])))
		if len(g.block) == g.blockSize {
			block := make([]float32, g.blockSize)
			copy(block, g.block)
			g.block = g.block[:0]
			g.mu.Unlock()
			g.processBlock(block)
			g.mu.Lock()
			if !g.open {
				g.mu.Unlock()
				return
			}
		}
	}
	g.mu.Unlock()
}

// processBlock computes the block volume and forwards the encoded frame.
// Sink errors are swallowed: a capture tick never throws into the callback.
func (g *Graph) processBlock(block []float32) {
	v := audio.RMS(block) * g.gain
	if v > 1 {
		v = 1
	}
	g.setVolume(v)
	if !g.delivering.Load() {
		return
	}
	sink, _ := g.sink.Load().(FrameSink)
	if sink == nil {
		return
	}
	_ = sink(audio.Encode(block, g.sampleRate))
}

func (g *Graph) setVolume(v float64) {
	g.volume.Store(math.Float64bits(v))
}
