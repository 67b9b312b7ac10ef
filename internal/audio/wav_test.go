package audio

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hello", "take1.wav")
	u := Utterance{
		Samples:     []int16{16384, -16384, 0, 1, -1, 8192},
		SampleRate:  44100,
		SampleWidth: SampleWidth,
		Channels:    1,
	}

	if err := WriteWAV(path, u); err != nil {
		t.Fatalf("WriteWAV failed: %v", err)
	}

	got, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV failed: %v", err)
	}
	if !reflect.DeepEqual(got.Samples, u.Samples) {
		t.Fatalf("samples mismatch: got=%v want=%v", got.Samples, u.Samples)
	}
	if got.SampleRate != 44100 {
		t.Fatalf("expected sample rate 44100, got %d", got.SampleRate)
	}
	if got.Channels != 1 {
		t.Fatalf("expected mono, got %d channels", got.Channels)
	}
	if got.SampleWidth != SampleWidth {
		t.Fatalf("expected sample width %d, got %d", SampleWidth, got.SampleWidth)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("expected temp file to be renamed away, stat err=%v", err)
	}
}

func TestWriteWAVHeaderLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	if err := WriteWAV(path, Utterance{Samples: []int16{1, 2, 3}, SampleRate: 16000}); err != nil {
		t.Fatalf("WriteWAV failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read wav failed: %v", err)
	}
	if len(data) != 44+6 {
		t.Fatalf("expected 50 byte file, got %d", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" || string(data[36:40]) != "data" {
		t.Fatalf("unexpected header: %q", data[:44])
	}
	if data[22] != 1 || data[23] != 0 {
		t.Fatalf("expected mono channel count, got %v", data[22:24])
	}
	if data[44] != 1 || data[45] != 0 {
		t.Fatalf("expected little-endian first sample, got %v", data[44:46])
	}
}

func TestWriteWAVRejectsInvalidUtterance(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.wav")

	cases := []Utterance{
		{Samples: []int16{1}, SampleRate: 0},
		{Samples: []int16{1}, SampleRate: 16000, Channels: 2},
		{Samples: []int16{1}, SampleRate: 16000, SampleWidth: 1},
	}
	for _, u := range cases {
		if err := WriteWAV(path, u); err == nil {
			t.Fatalf("expected error for %+v", u)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no files after rejected writes, found %d", len(entries))
	}
}

func TestUtteranceDuration(t *testing.T) {
	u := Utterance{Samples: make([]int16, 8000), SampleRate: 16000}
	if u.Duration() != 0.5 {
		t.Fatalf("expected 0.5s, got %v", u.Duration())
	}
	if (Utterance{}).Duration() != 0 {
		t.Fatal("expected zero duration without sample rate")
	}
}
