// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"math"
	"os"
	"sync"
	"sync/atomic"

	"shaderfx/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const recordBitDepth = 32

// recorder writes one mix to a 32-bit PCM WAV file.
type recorder struct {
	active atomic.Bool
	mu     sync.Mutex

	mix        uint
	outputFile *os.File
	wavEncoder *wav.Encoder
	sampleBuf  *audio.IntBuffer // Reusable buffer for format conversion
}

// StartRecording records mix to filename until StopRecording or Close.
func (e *Engine) StartRecording(filename string, mix uint) error {
	if mix >= uint(len(e.config.Audio.Mixes)) {
		return ErrUnknownMix
	}
	r := &e.recorder
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active.Load() {
		return errors.New("already recording")
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}

	channels := e.config.Audio.Mixes[mix].Channels
	r.mix = mix
	r.outputFile = file
	r.wavEncoder = wav.NewEncoder(file, int(e.config.Audio.SampleRate), recordBitDepth, channels, 1)
	r.sampleBuf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: channels,
			SampleRate:  int(e.config.Audio.SampleRate),
		},
		Data:           make([]int, e.config.Audio.FramesPerBuffer*channels),
		SourceBitDepth: recordBitDepth,
	}

	r.active.Store(true)
	log.Infof("audio: recording mix %d to %s", mix, filename)
	return nil
}

// Recording reports whether a recording is in progress.
func (e *Engine) Recording() bool {
	return e.recorder.active.Load()
}

func (e *Engine) StopRecording() error {
	r := &e.recorder
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active.Load() {
		return nil
	}
	r.active.Store(false)

	var errs []error
	if r.wavEncoder != nil {
		errs = append(errs, r.wavEncoder.Close())
		r.wavEncoder = nil
	}
	if r.outputFile != nil {
		errs = append(errs, r.outputFile.Close())
		r.outputFile = nil
	}
	return errors.Join(errs...)
}

// write converts interleaved float samples to 32-bit integers and appends
// them to the file.
func (r *recorder) write(mix uint, in []float32) {
	if !r.active.Load() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.wavEncoder == nil || r.mix != mix {
		return
	}

	if cap(r.sampleBuf.Data) < len(in) {
		r.sampleBuf.Data = make([]int, len(in))
	}
	r.sampleBuf.Data = r.sampleBuf.Data[:len(in)]
	for i, sample := range in {
		r.sampleBuf.Data[i] = floatToPCM32(sample)
	}

	if err := r.wavEncoder.Write(r.sampleBuf); err != nil {
		log.Errorf("audio: error writing to WAV file: %v", err)
	}
}

func floatToPCM32(s float32) int {
	v := float64(s)
	if math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return int(v * math.MaxInt32)
}
