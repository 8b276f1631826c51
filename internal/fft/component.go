// SPDX-License-Identifier: MIT
package fft

import (
	"sync"
	"sync/atomic"
	"time"

	"shaderfx/internal/analysis"
	"shaderfx/internal/log"
)

// minFrameSize is the smallest frame that yields a non-empty spectrum.
const minFrameSize = 2

// Stats is a snapshot of a component's internal counters.
type Stats struct {
	Buffered      int    // Samples waiting in the buffer.
	FrameSize     int    // Frame size used by the last callback.
	DroppedFrames uint64 // Frames discarded by the backlog policy.
	Batches       uint64 // Analyses completed since creation.
	Pending       bool   // A consumer asked for the next batch.
}

// Component buffers one audio channel and turns it into dampened spectra on
// demand. Analysis runs on the host's audio thread inside the callback;
// consumers pull results from the video thread with RetrieveResult.
//
// A Component is shared through the Registry and lives as long as at least
// one Handle to it is held.
type Component struct {
	descriptor Descriptor
	host       Host
	clock      func() time.Time
	metrics    *Metrics

	refs atomic.Int64

	mu                 sync.RWMutex
	buffer             SampleBuffer
	frame              []float32 // Scratch for the frame being analyzed.
	window             []float64
	analyzer           analysis.Analyzer
	frameSize          int
	nextBatchRequested bool
	latest             *analysis.Result
	droppedFrames      uint64
	batches            uint64
	output             Output
	closed             bool

	formatWarning sync.Once
}

func newComponent(d Descriptor, host Host, clock func() time.Time, metrics *Metrics) *Component {
	c := &Component{
		descriptor:         d,
		host:               host,
		clock:              clock,
		metrics:            metrics,
		nextBatchRequested: true,
	}
	c.refs.Store(1)
	return c
}

// connect subscribes to the host. Failures leave the component alive but
// silent; consumers simply never receive a result.
func (c *Component) connect() {
	out, err := c.host.ConnectOutput(c.descriptor.Mix, c.consume)
	if err != nil {
		log.Errorf("FFT: failed to connect audio output for %s: %v", c.descriptor, err)
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		disconnect(out, c.descriptor)
		return
	}
	c.output = out
	c.mu.Unlock()
}

// Descriptor returns the configuration this component was created for.
func (c *Component) Descriptor() Descriptor {
	return c.descriptor
}

// RetrieveResult requests the next batch and returns the latest completed
// one. ok is false until the first analysis completes.
func (c *Component) RetrieveResult() (analysis.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextBatchRequested = true
	if c.latest == nil {
		return analysis.Result{}, false
	}
	return *c.latest, true
}

// Stats returns a snapshot of the component's counters.
func (c *Component) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Stats{
		Buffered:      c.buffer.Len(),
		FrameSize:     c.frameSize,
		DroppedFrames: c.droppedFrames,
		Batches:       c.batches,
		Pending:       c.nextBatchRequested,
	}
}

// consume is the audio callback.
func (c *Component) consume(data AudioData) {
	samples := c.extract(data)
	frameSize := FrameSampleCount(c.host.SampleRate(), c.host.FrameRate())

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	// --- 1. Buffer ---
	c.buffer.Append(samples)
	c.frameSize = frameSize
	if frameSize < minFrameSize {
		return
	}

	// --- 2. Backlog: keep only the newest complete frame ---
	frames := c.buffer.Len() / frameSize
	if frames > 1 {
		c.buffer.Discard((frames - 1) * frameSize)
		c.droppedFrames += uint64(frames - 1)
		c.metrics.dropped(c.descriptor, frames-1)
		frames = 1
	}

	// --- 3. Demand-driven analysis ---
	if frames < 1 || !c.nextBatchRequested {
		return
	}
	c.analyze(frameSize)
}

// analyze runs one batch. Callers hold c.mu.
func (c *Component) analyze(frameSize int) {
	start := time.Now()

	if len(c.window) != frameSize {
		c.window = analysis.Generate(c.descriptor.Window, frameSize)
	}
	c.frame = c.buffer.Drain(frameSize, c.frame)

	spectrum := c.analyzer.Analyze(c.frame, c.window)

	now := c.clock()
	prev := c.latest
	var elapsedFrames float64
	if prev != nil {
		elapsedFrames = now.Sub(prev.Timestamp).Seconds() * c.host.FrameRate()
	}
	spectrum = analysis.Dampen(spectrum, prev, elapsedFrames, c.descriptor.Attack, c.descriptor.Release)

	var batch uint64
	if prev != nil {
		batch = prev.BatchNumber + 1
	}
	c.latest = &analysis.Result{
		BatchNumber: batch,
		Spectrum:    spectrum,
		Timestamp:   now,
	}
	c.nextBatchRequested = false
	c.batches++
	c.metrics.batch(c.descriptor, time.Since(start))
}

// extract pulls the configured channel out of data. Missing channels and
// unsupported formats contribute no samples.
func (c *Component) extract(data AudioData) []float32 {
	if data.Format != FormatPlanarF32 {
		c.metrics.unsupported(data.Format)
		c.formatWarning.Do(func() {
			log.Warnf("FFT: unsupported audio format %s for %s, ignoring", data.Format, c.descriptor)
		})
		return nil
	}
	samples, ok := data.Channel(c.descriptor.Channel)
	if !ok {
		return nil
	}
	return samples
}

// acquire adds a reference unless the component has already been torn down.
func (c *Component) acquire() bool {
	for {
		n := c.refs.Load()
		if n <= 0 {
			return false
		}
		if c.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (c *Component) alive() bool {
	return c.refs.Load() > 0
}

// release drops a reference and tears the component down on the last one.
func (c *Component) release() {
	if c.refs.Add(-1) != 0 {
		return
	}

	c.mu.Lock()
	c.closed = true
	out := c.output
	c.output = nil
	c.buffer.Reset()
	c.latest = nil
	c.mu.Unlock()

	// Outside the lock: the host may be blocked delivering to consume.
	if out != nil {
		disconnect(out, c.descriptor)
	}
	c.metrics.componentReleased()
	log.Debugf("FFT: released component %s", c.descriptor)
}

func disconnect(out Output, d Descriptor) {
	if err := out.Disconnect(); err != nil {
		log.Warnf("FFT: failed to disconnect audio output for %s: %v", d, err)
	}
}

// Handle is one consumer's reference to a shared Component.
type Handle struct {
	c    *Component
	once sync.Once
}

// RetrieveResult requests the next batch and returns the latest one.
func (h *Handle) RetrieveResult() (analysis.Result, bool) {
	return h.c.RetrieveResult()
}

// Descriptor returns the configuration of the shared component.
func (h *Handle) Descriptor() Descriptor {
	return h.c.descriptor
}

// Stats returns a snapshot of the shared component's counters.
func (h *Handle) Stats() Stats {
	return h.c.Stats()
}

// Component returns the shared component behind h.
func (h *Handle) Component() *Component {
	return h.c
}

// Release gives up this reference. Further calls are no-ops. The handle must
// not be used for retrieval afterwards.
func (h *Handle) Release() {
	h.once.Do(h.c.release)
}

var _ analysis.ResultProvider = (*Handle)(nil)
