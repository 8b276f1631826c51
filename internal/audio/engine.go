// SPDX-License-Identifier: MIT
/*
Package audio captures audio mixes with PortAudio and fans them out to
analysis subscribers.

Each configured mix maps to one input stream. A stream is opened when its
mix gains the first subscriber and closed when the last one disconnects.

Thread Safety:
  - Subscriber lists are copy-on-write and read without locks on the audio thread
  - Deinterleave buffers are pre-allocated per stream
  - Gate and recording state are atomics
*/
package audio

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"shaderfx/internal/config"
	"shaderfx/internal/fft"
	"shaderfx/internal/log"

	"github.com/gordonklaus/portaudio"
)

// ErrUnknownMix is returned when subscribing to a mix that is not configured.
var ErrUnknownMix = errors.New("audio mix is not configured")

// inputStream is the part of *portaudio.Stream the engine drives.
type inputStream interface {
	Start() error
	Stop() error
	Close() error
}

var openInputStream = func(params portaudio.StreamParameters, process func(in []float32)) (inputStream, error) {
	stream, err := portaudio.OpenStream(params, process)
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// Engine is the live audio host. It implements fft.Host.
type Engine struct {
	config *config.Config

	frameRate atomic.Uint64 // math.Float64bits of the video frame rate
	gate      gate

	mu    sync.Mutex
	mixes map[uint]*mixStream

	recorder recorder
}

var _ fft.Host = (*Engine)(nil)

func NewEngine(cfg *config.Config) *Engine {
	e := &Engine{
		config: cfg,
		mixes:  make(map[uint]*mixStream),
	}
	e.SetFrameRate(cfg.Video.FPS)
	e.SetGateThreshold(cfg.Audio.GateThreshold)
	if cfg.Audio.GateThreshold > 0 {
		e.EnableGate()
	}
	return e
}

func (e *Engine) SampleRate() float64 {
	return e.config.Audio.SampleRate
}

func (e *Engine) FrameRate() float64 {
	return math.Float64frombits(e.frameRate.Load())
}

// SetFrameRate changes the video frame rate reported to analysis.
func (e *Engine) SetFrameRate(fps float64) {
	e.frameRate.Store(math.Float64bits(fps))
}

// ConnectOutput subscribes cb to mix, opening the mix's input stream if this
// is its first subscriber.
func (e *Engine) ConnectOutput(mix uint, cb fft.AudioCallback) (fft.Output, error) {
	if mix >= uint(len(e.config.Audio.Mixes)) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMix, mix)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ms, ok := e.mixes[mix]
	if !ok {
		ms = newMixStream(e, mix, e.config.Audio.Mixes[mix])
		e.mixes[mix] = ms
	}

	sub := &subscription{mix: ms, cb: cb}
	ms.add(sub)

	if ms.stream == nil {
		if err := ms.start(); err != nil {
			ms.remove(sub)
			delete(e.mixes, mix)
			return nil, fmt.Errorf("failed to open input for mix %d: %w", mix, err)
		}
		log.Infof("audio: mix %d capturing %d channel(s) from '%s'", mix, ms.cfg.Channels, ms.device.Name)
	}
	return sub, nil
}

// Subscribers returns the number of live subscriptions on mix.
func (e *Engine) Subscribers(mix uint) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ms, ok := e.mixes[mix]; ok {
		return len(*ms.subs.Load())
	}
	return 0
}

func (e *Engine) unsubscribe(sub *subscription) error {
	ms := sub.mix
	ms.remove(sub)

	// Wait out a delivery that may still hold the old subscriber list.
	ms.deliverMu.Lock()
	ms.deliverMu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if len(*ms.subs.Load()) > 0 || e.mixes[ms.index] != ms {
		return nil
	}
	delete(e.mixes, ms.index)
	return ms.stop()
}

// Close stops recording and every open input stream.
func (e *Engine) Close() error {
	var errs []error
	if err := e.StopRecording(); err != nil {
		errs = append(errs, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for idx, ms := range e.mixes {
		if err := ms.stop(); err != nil {
			errs = append(errs, err)
		}
		delete(e.mixes, idx)
	}
	return errors.Join(errs...)
}

type subscription struct {
	mix  *mixStream
	cb   fft.AudioCallback
	once sync.Once
	err  error
}

// Disconnect must not be called from inside the subscription's callback.
func (s *subscription) Disconnect() error {
	s.once.Do(func() {
		s.err = s.mix.engine.unsubscribe(s)
	})
	return s.err
}

// mixStream owns the PortAudio stream of one mix.
type mixStream struct {
	engine *Engine
	index  uint
	cfg    config.MixConfig

	device *portaudio.DeviceInfo
	stream inputStream

	planes    [][]float32 // deinterleave buffers, one per channel
	deliverMu sync.Mutex
	subs      atomic.Pointer[[]*subscription]
}

func newMixStream(e *Engine, index uint, cfg config.MixConfig) *mixStream {
	ms := &mixStream{engine: e, index: index, cfg: cfg}
	ms.planes = make([][]float32, cfg.Channels)
	for i := range ms.planes {
		ms.planes[i] = make([]float32, e.config.Audio.FramesPerBuffer)
	}
	empty := []*subscription{}
	ms.subs.Store(&empty)
	return ms
}

func (m *mixStream) add(sub *subscription) {
	old := *m.subs.Load()
	next := make([]*subscription, len(old), len(old)+1)
	copy(next, old)
	next = append(next, sub)
	m.subs.Store(&next)
}

func (m *mixStream) remove(sub *subscription) {
	old := *m.subs.Load()
	next := make([]*subscription, 0, len(old))
	for _, s := range old {
		if s != sub {
			next = append(next, s)
		}
	}
	m.subs.Store(&next)
}

func (m *mixStream) start() error {
	device, err := InputDevice(m.cfg)
	if err != nil {
		return err
	}
	m.device = device

	latency := device.DefaultHighInputLatency
	if m.engine.config.Audio.LowLatency {
		latency = device.DefaultLowInputLatency
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: m.cfg.Channels,
			Device:   device,
			Latency:  latency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: m.engine.config.Audio.FramesPerBuffer,
		SampleRate:      m.engine.config.Audio.SampleRate,
	}

	stream, err := openInputStream(params, m.process)
	if err != nil {
		return err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return err
	}
	m.stream = stream
	return nil
}

func (m *mixStream) stop() error {
	if m.stream == nil {
		return nil
	}
	stream := m.stream
	m.stream = nil
	if err := stream.Stop(); err != nil {
		stream.Close()
		return err
	}
	return stream.Close()
}

// process is the PortAudio callback: in holds interleaved samples.
// Performance Critical:
// - Uses pre-allocated buffers only
// - No dynamic allocations in the hot path
func (m *mixStream) process(in []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	m.engine.recorder.write(m.index, in)

	if !m.engine.gate.open(in) {
		clear(in)
	}

	channels := len(m.planes)
	frames := len(in) / channels
	for c := range m.planes {
		if cap(m.planes[c]) < frames {
			m.planes[c] = make([]float32, frames)
		}
		plane := m.planes[c][:frames]
		for i := range plane {
			plane[i] = in[i*channels+c]
		}
		m.planes[c] = plane
	}

	m.deliver(fft.AudioData{Format: fft.FormatPlanarF32, Planes: m.planes})
}

func (m *mixStream) deliver(data fft.AudioData) {
	m.deliverMu.Lock()
	defer m.deliverMu.Unlock()
	for _, sub := range *m.subs.Load() {
		sub.cb(data)
	}
}

// Latency returns the configured input latency of mix, or 0 if it is not open.
func (e *Engine) Latency(mix uint) time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	ms, ok := e.mixes[mix]
	if !ok || ms.device == nil {
		return 0
	}
	if e.config.Audio.LowLatency {
		return ms.device.DefaultLowInputLatency
	}
	return ms.device.DefaultHighInputLatency
}
