// SPDX-License-Identifier: MIT
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"shaderfx/internal/analysis"
	"shaderfx/internal/audio"
	"shaderfx/internal/fft"
)

type analyzeOptions struct {
	fps      float64
	channel  uint
	window   string
	attack   float64
	release  float64
	every    int
	asJSON   bool
	onset    float64
	onsetMin float64
}

// FrameReport is one analyzed frame of the analyze command.
type FrameReport struct {
	Time     float64            `json:"time"`
	Batch    uint64             `json:"batch"`
	PeakHz   float64            `json:"peak_hz"`
	Bands    map[string]float64 `json:"bands"`
	Onset    bool               `json:"onset"`
	Spectrum int                `json:"bins"`
}

// AnalysisSummary aggregates a whole file.
type AnalysisSummary struct {
	Frames      int
	Onsets      int
	DominantHz  float64
	MeanBands   []float64
	Bands       []analysis.FrequencyBand
	Dropped     uint64
	DurationSec float64
}

func newAnalyzeCommand(opts *globalOptions) *cobra.Command {
	o := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze <file.wav>",
		Short: "Run the spectrum pipeline over a WAV file and print per-frame results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("fps") {
				o.fps = cfg.Video.FPS
			}
			if !cmd.Flags().Changed("window") {
				o.window = cfg.FFT.Window
			}
			summary, err := analyzeFile(cmd.OutOrStdout(), args[0], cfg.FrequencyBands(), o)
			if err != nil {
				return err
			}
			if !o.asJSON {
				printSummary(cmd.OutOrStdout(), summary)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.Float64Var(&o.fps, "fps", 0, "Analysis frame rate (default: video.fps)")
	flags.UintVar(&o.channel, "channel", 1, "Channel to analyze, starting at 1")
	flags.StringVar(&o.window, "window", "", "Window function (default: fft.window)")
	flags.Float64Var(&o.attack, "attack", 0, "Attack dampening in percent")
	flags.Float64Var(&o.release, "release", 0, "Release dampening in percent")
	flags.IntVar(&o.every, "every", 1, "Print every n-th frame")
	flags.BoolVar(&o.asJSON, "json", false, "Print one JSON object per frame")
	flags.Float64Var(&o.onset, "onset-threshold", 0.02, "Minimum RMS level for an onset")
	flags.Float64Var(&o.onsetMin, "onset-ratio", 1.5, "Minimum energy increase over the previous frame for an onset")
	return cmd
}

// analyzeFile replays path through one analysis component on the replay's
// sample clock, so the output does not depend on machine speed.
func analyzeFile(w io.Writer, path string, bands []analysis.FrequencyBand, o *analyzeOptions) (AnalysisSummary, error) {
	summary := AnalysisSummary{Bands: bands, MeanBands: make([]float64, len(bands))}
	if o.channel == 0 {
		return summary, fmt.Errorf("channel must start at 1")
	}
	if o.fps <= 0 {
		return summary, fmt.Errorf("invalid frame rate %v", o.fps)
	}
	window, err := analysis.ParseWindowKind(o.window)
	if err != nil {
		return summary, err
	}

	planes, sampleRate, err := audio.DecodeWAV(path)
	if err != nil {
		return summary, err
	}
	frameSize := fft.FrameSampleCount(sampleRate, o.fps)
	if frameSize < 2 {
		return summary, fmt.Errorf("frame rate %v leaves fewer than 2 samples per frame", o.fps)
	}
	// One video frame per chunk: every Advance completes exactly one frame.
	replay := audio.NewReplay(planes, sampleRate, o.fps, frameSize, false)

	registry := fft.NewRegistry(replay, fft.WithClock(replay.Now))
	handle := registry.Request(fft.NewDescriptor(0, o.channel-1, o.attack, o.release, window))
	defer handle.Release()

	onsets := analysis.NewOnsetDetector(o.onset, o.onsetMin)
	var onset bool
	tap, err := replay.ConnectOutput(0, func(data fft.AudioData) {
		if samples, ok := data.Channel(o.channel - 1); ok {
			onset = onsets.Detect(samples) || onset
		}
	})
	if err != nil {
		return summary, err
	}
	defer tap.Disconnect()

	var tw *tabwriter.Writer
	enc := json.NewEncoder(w)
	if !o.asJSON {
		tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
		header := []string{"time", "batch", "peak Hz"}
		for _, b := range bands {
			header = append(header, b.Name)
		}
		fmt.Fprintln(tw, strings.Join(header, "\t")+"\tonset\t")
	}

	peaks := make(map[int]int)
	var lastBatch uint64
	var have bool
	for replay.Advance() {
		res, ok := handle.RetrieveResult()
		if !ok || (have && res.BatchNumber == lastBatch) {
			continue
		}
		lastBatch, have = res.BatchNumber, true

		energies := analysis.BandEnergies(res.Spectrum, frameSize, replay.SampleRate(), bands)
		peak, _ := analysis.PeakBin(res.Spectrum)
		peaks[peak]++
		for i, e := range energies {
			summary.MeanBands[i] += e
		}
		if onset {
			summary.Onsets++
		}
		summary.Frames++

		report := FrameReport{
			Time:     res.Timestamp.Sub(audio.ReplayEpoch).Seconds(),
			Batch:    res.BatchNumber,
			PeakHz:   analysis.BinFrequency(peak, frameSize, replay.SampleRate()),
			Onset:    onset,
			Spectrum: len(res.Spectrum),
		}
		onset = false

		if o.every > 1 && (summary.Frames-1)%o.every != 0 {
			continue
		}
		if o.asJSON {
			report.Bands = make(map[string]float64, len(bands))
			for i, b := range bands {
				report.Bands[b.Name] = energies[i]
			}
			if err := enc.Encode(report); err != nil {
				return summary, err
			}
			continue
		}
		row := []string{
			strconv.FormatFloat(report.Time, 'f', 3, 64),
			strconv.FormatUint(report.Batch, 10),
			strconv.FormatFloat(report.PeakHz, 'f', 0, 64),
		}
		for _, e := range energies {
			row = append(row, strconv.FormatFloat(e, 'f', 4, 64))
		}
		mark := ""
		if report.Onset {
			mark = "*"
		}
		fmt.Fprintln(tw, strings.Join(row, "\t")+"\t"+mark+"\t")
	}
	if tw != nil {
		if err := tw.Flush(); err != nil {
			return summary, err
		}
	}

	if summary.Frames > 0 {
		for i := range summary.MeanBands {
			summary.MeanBands[i] /= float64(summary.Frames)
		}
		best, count := 0, -1
		for bin, n := range peaks {
			if n > count || (n == count && bin < best) {
				best, count = bin, n
			}
		}
		summary.DominantHz = analysis.BinFrequency(best, frameSize, replay.SampleRate())
	}
	summary.Dropped = handle.Stats().DroppedFrames
	summary.DurationSec = replay.Now().Sub(audio.ReplayEpoch).Seconds()
	return summary, nil
}

func printSummary(w io.Writer, s AnalysisSummary) {
	t := table.New().Headers("band", "range", "mean")
	for i, b := range s.Bands {
		high := "nyquist"
		if !math.IsInf(b.HighHz, 1) {
			high = strconv.FormatFloat(b.HighHz, 'f', 0, 64)
		}
		t.Row(b.Name, strconv.FormatFloat(b.LowHz, 'f', 0, 64)+"-"+high+" Hz", strconv.FormatFloat(s.MeanBands[i], 'f', 4, 64))
	}
	fmt.Fprintf(w, "\n%d frame(s) over %.2fs, %d onset(s), dominant %.0f Hz, %d dropped\n",
		s.Frames, s.DurationSec, s.Onsets, s.DominantHz, s.Dropped)
	fmt.Fprintln(w, t.Render())
}
