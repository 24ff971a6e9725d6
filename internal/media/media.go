// Package media accepts uploaded audio and video files for transcription.
package media

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// DefaultMaxBytes is the largest file the model accepts inline.
const DefaultMaxBytes = 60 << 20

var (
	ErrTooLarge    = errors.New("file too large")
	ErrUnsupported = errors.New("not an audio or video file")
)

var videoExtensions = map[string]string{
	".mp4": "video/mp4", ".mkv": "video/x-matroska", ".avi": "video/x-msvideo",
	".mov": "video/quicktime", ".wmv": "video/x-ms-wmv", ".flv": "video/x-flv",
	".webm": "video/webm", ".m4v": "video/x-m4v", ".mpg": "video/mpeg",
	".mpeg": "video/mpeg", ".3gp": "video/3gpp",
}

var audioExtensions = map[string]string{
	".mp3": "audio/mpeg", ".wav": "audio/wav", ".m4a": "audio/mp4",
	".aac": "audio/aac", ".ogg": "audio/ogg", ".oga": "audio/ogg",
	".flac": "audio/flac", ".opus": "audio/opus", ".weba": "audio/webm",
	".aiff": "audio/aiff",
}

// File is an accepted upload held in memory.
type File struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
	Audio    bool   `json:"audio"`
	Data     []byte `json:"-"`
}

// DetectType returns the MIME type for a file named name whose client-declared
// type is declared. The declared type wins when it is audio/* or video/*;
// otherwise the extension decides.
func DetectType(name, declared string) (mimeType string, audio bool, err error) {
	if declared != "" {
		if mt, _, perr := mime.ParseMediaType(declared); perr == nil {
			switch {
			case strings.HasPrefix(mt, "audio/"):
				return mt, true, nil
			case strings.HasPrefix(mt, "video/"):
				return mt, false, nil
			}
		}
	}

	ext := strings.ToLower(filepath.Ext(name))
	if mt, ok := audioExtensions[ext]; ok {
		return mt, true, nil
	}
	if mt, ok := videoExtensions[ext]; ok {
		return mt, false, nil
	}
	return "", false, fmt.Errorf("%s: %w", name, ErrUnsupported)
}

// IsMediaFile reports whether name has a known audio or video extension.
func IsMediaFile(name string) bool {
	_, _, err := DetectType(name, "")
	return err == nil
}

// Read accepts r as an upload named name. It reads at most maxBytes+1 bytes
// so oversized uploads are rejected without buffering them whole.
func Read(r io.Reader, name, declared string, maxBytes int64) (*File, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	mt, audio, err := DetectType(name, declared)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%s exceeds %d MB: %w", name, maxBytes>>20, ErrTooLarge)
	}

	return &File{
		Name:     filepath.Base(name),
		MimeType: mt,
		Size:     int64(len(data)),
		Audio:    audio,
		Data:     data,
	}, nil
}

// ReadFile reads an upload from disk. Used by the CLI.
func ReadFile(path string, maxBytes int64) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, path, "", maxBytes)
}
