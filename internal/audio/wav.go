package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	pcmChannels = 1
	pcmBitDepth = 16
	pcmFormat   = 1
)

// Utterance is a normalized, trimmed recording ready to be written.
type Utterance struct {
	Samples     []int16
	SampleRate  int
	SampleWidth int
	Channels    int
}

// Duration returns the utterance length in seconds.
func (u Utterance) Duration() float64 {
	if u.SampleRate <= 0 {
		return 0
	}
	return float64(len(u.Samples)) / float64(u.SampleRate)
}

// WriteWAV stores u as mono 16-bit PCM. The file is written next to path and
// renamed into place, so a failed write never leaves a partial file at path.
func WriteWAV(path string, u Utterance) (err error) {
	if u.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", u.SampleRate)
	}
	if u.Channels != 0 && u.Channels != pcmChannels {
		return fmt.Errorf("unsupported channel count %d", u.Channels)
	}
	if u.SampleWidth != 0 && u.SampleWidth != SampleWidth {
		return fmt.Errorf("unsupported sample width %d", u.SampleWidth)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create wav directory: %w", err)
	}

	tmpPath := path + ".tmp"
	out, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open wav output: %w", err)
	}
	defer func() {
		if err != nil {
			_ = out.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	data := make([]int, len(u.Samples))
	for i, s := range u.Samples {
		data[i] = int(s)
	}

	enc := wav.NewEncoder(out, u.SampleRate, pcmBitDepth, pcmChannels, pcmFormat)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: pcmChannels, SampleRate: u.SampleRate},
		Data:           data,
		SourceBitDepth: pcmBitDepth,
	}
	if err = enc.Write(buf); err != nil {
		return fmt.Errorf("write wav payload: %w", err)
	}
	if err = enc.Close(); err != nil {
		return fmt.Errorf("finalize wav header: %w", err)
	}
	if err = out.Close(); err != nil {
		return fmt.Errorf("close wav output: %w", err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename wav output: %w", err)
	}
	return nil
}

// ReadWAV loads a mono 16-bit PCM file written by WriteWAV.
func ReadWAV(path string) (Utterance, error) {
	f, err := os.Open(path)
	if err != nil {
		return Utterance{}, fmt.Errorf("open wav: %w", err)
	}
	defer func() { _ = f.Close() }()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return Utterance{}, errors.New("not a valid wav file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Utterance{}, fmt.Errorf("decode wav payload: %w", err)
	}
	if dec.BitDepth != pcmBitDepth {
		return Utterance{}, fmt.Errorf("unsupported bit depth %d", dec.BitDepth)
	}

	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = int16(v)
	}

	return Utterance{
		Samples:     samples,
		SampleRate:  int(dec.SampleRate),
		SampleWidth: int(dec.BitDepth) / 8,
		Channels:    int(dec.NumChans),
	}, nil
}
