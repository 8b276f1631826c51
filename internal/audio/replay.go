// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"shaderfx/internal/fft"
	"shaderfx/internal/log"

	"github.com/go-audio/wav"
)

// ReplayEpoch is the virtual clock reading at the start of every replay.
var ReplayEpoch = time.Unix(0, 0).UTC()

// Replay is an fft.Host that plays a decoded WAV file instead of capturing.
// Every mix receives the same audio. Chunks are pushed either in real time
// by Run or one at a time by Advance, and Now reports the position in the
// file as a clock so damping follows the audio rather than the wall.
type Replay struct {
	sampleRate float64
	frameRate  float64
	chunk      int
	loop       bool
	planes     [][]float32

	played atomic.Int64 // samples delivered, read by Now from inside callbacks

	mu       sync.Mutex
	pos      int
	subs     map[uint64]fft.AudioCallback
	nextID   uint64
	chunkBuf [][]float32
}

var _ fft.Host = (*Replay)(nil)

// OpenReplay decodes the WAV file at path and plays it.
func OpenReplay(path string, frameRate float64, chunk int, loop bool) (*Replay, error) {
	planes, sampleRate, err := DecodeWAV(path)
	if err != nil {
		return nil, err
	}
	return NewReplay(planes, sampleRate, frameRate, chunk, loop), nil
}

// DecodeWAV reads the WAV file at path into one plane per channel. Integer
// PCM of any bit depth is normalized to [-1, 1]; 8-bit PCM is unsigned and
// centered on 128.
func DecodeWAV(path string) ([][]float32, float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open replay file: %w", err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, 0, fmt.Errorf("replay file %s is not a valid WAV file", path)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode replay file: %w", err)
	}

	channels := int(d.NumChans)
	if channels == 0 || d.BitDepth == 0 {
		return nil, 0, errors.New("replay file has no channels")
	}
	scale := float32(math.Ldexp(1, int(d.BitDepth)-1))
	var offset int
	if d.BitDepth == 8 {
		offset = 128
	}
	frames := len(buf.Data) / channels

	planes := make([][]float32, channels)
	for c := range planes {
		planes[c] = make([]float32, frames)
		for i := range frames {
			planes[c][i] = float32(buf.Data[i*channels+c]-offset) / scale
		}
	}

	log.Infof("audio: decoded %s (%d channel(s), %d Hz, %s)",
		path, channels, d.SampleRate, time.Duration(float64(frames)/float64(d.SampleRate)*float64(time.Second)))
	return planes, float64(d.SampleRate), nil
}

// NewReplay plays planes, one slice per channel, in chunks of chunk samples.
func NewReplay(planes [][]float32, sampleRate, frameRate float64, chunk int, loop bool) *Replay {
	if chunk <= 0 {
		chunk = 512
	}
	chunkBuf := make([][]float32, len(planes))
	for i := range chunkBuf {
		chunkBuf[i] = make([]float32, chunk)
	}
	return &Replay{
		sampleRate: sampleRate,
		frameRate:  frameRate,
		chunk:      chunk,
		loop:       loop,
		planes:     planes,
		subs:       make(map[uint64]fft.AudioCallback),
		chunkBuf:   chunkBuf,
	}
}

func (r *Replay) SampleRate() float64 { return r.sampleRate }
func (r *Replay) FrameRate() float64  { return r.frameRate }

func (r *Replay) ConnectOutput(mix uint, cb fft.AudioCallback) (fft.Output, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.subs[id] = cb
	return replayOutput{r: r, id: id}, nil
}

type replayOutput struct {
	r  *Replay
	id uint64
}

func (o replayOutput) Disconnect() error {
	o.r.mu.Lock()
	defer o.r.mu.Unlock()
	delete(o.r.subs, o.id)
	return nil
}

// Len returns the number of samples per channel in the file.
func (r *Replay) Len() int {
	if len(r.planes) == 0 {
		return 0
	}
	return len(r.planes[0])
}

// Now returns the virtual time at the end of the last delivered chunk.
func (r *Replay) Now() time.Time {
	played := r.played.Load()
	return ReplayEpoch.Add(time.Duration(float64(played) / r.sampleRate * float64(time.Second)))
}

// Advance delivers the next chunk to every subscriber. It returns false once
// the file is exhausted and looping is off.
func (r *Replay) Advance() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := r.Len()
	if total == 0 {
		return false
	}
	if r.pos >= total {
		if !r.loop {
			return false
		}
		r.pos = 0
	}

	n := min(r.chunk, total-r.pos)
	for c, plane := range r.planes {
		r.chunkBuf[c] = r.chunkBuf[c][:n]
		copy(r.chunkBuf[c], plane[r.pos:r.pos+n])
	}
	r.pos += n
	r.played.Add(int64(n))

	data := fft.AudioData{Format: fft.FormatPlanarF32, Planes: r.chunkBuf}
	for _, cb := range r.subs {
		cb(data)
	}
	return true
}

// Run paces Advance in real time until ctx is done or the file ends.
func (r *Replay) Run(ctx context.Context) error {
	interval := time.Duration(float64(r.chunk) / r.sampleRate * float64(time.Second))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !r.Advance() {
				log.Infof("audio: replay finished")
				return nil
			}
		}
	}
}
