package media

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDetectType(t *testing.T) {
	tests := []struct {
		name, declared string
		wantType       string
		wantAudio      bool
		wantErr        bool
	}{
		{"talk.mp3", "audio/mpeg", "audio/mpeg", true, false},
		{"clip.bin", "video/mp4; codecs=avc1", "video/mp4", false, false},
		{"talk.MP3", "", "audio/mpeg", true, false},
		{"movie.mkv", "application/octet-stream", "video/x-matroska", false, false},
		{"notes.txt", "text/plain", "", false, true},
		{"noext", "", "", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mt, audio, err := DetectType(tt.name, tt.declared)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupported) {
					t.Fatalf("err = %v, want ErrUnsupported", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if mt != tt.wantType || audio != tt.wantAudio {
				t.Errorf("got (%q, %v), want (%q, %v)", mt, audio, tt.wantType, tt.wantAudio)
			}
		})
	}
}

func TestReadLimit(t *testing.T) {
	data := bytes.Repeat([]byte{0xAB}, 1024)

	f, err := Read(bytes.NewReader(data), "dir/a.wav", "", 1024)
	if err != nil {
		t.Fatal(err)
	}
	if f.Size != 1024 || f.Name != "a.wav" || !f.Audio || f.MimeType != "audio/wav" {
		t.Errorf("file = %+v", f)
	}

	_, err = Read(bytes.NewReader(append(data, 0)), "a.wav", "", 1024)
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}
}

func TestReadRejectsBeforeReading(t *testing.T) {
	r := strings.NewReader("hello")
	if _, err := Read(r, "a.pdf", "application/pdf", 0); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err = %v", err)
	}
	if r.Len() != 5 {
		t.Error("unsupported upload should not be consumed")
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.webm")
	if err := os.WriteFile(path, []byte("webm"), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := ReadFile(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	if f.Audio || f.MimeType != "video/webm" || string(f.Data) != "webm" {
		t.Errorf("file = %+v", f)
	}
	if !IsMediaFile("x.flac") || IsMediaFile("x.srt") {
		t.Error("IsMediaFile")
	}
}
