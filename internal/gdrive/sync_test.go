package gdrive

import (
	"context"
	"path/filepath"
	"testing"
)

func TestRemoteName(t *testing.T) {
	cases := []struct {
		path, label, want string
	}{
		{filepath.Join("data", "audio", "hello", "abc.wav"), "hello", "hello-abc.wav"},
		{"take.wav", "", "take.wav"},
	}
	for _, tc := range cases {
		if got := RemoteName(tc.path, tc.label); got != tc.want {
			t.Fatalf("RemoteName(%q, %q) = %q, want %q", tc.path, tc.label, got, tc.want)
		}
	}
}

func TestNewUploaderMissingCredentials(t *testing.T) {
	_, err := NewUploader(context.Background(), filepath.Join(t.TempDir(), "missing.json"), "folder")
	if err == nil {
		t.Fatal("expected error for missing credentials file")
	}
}
