package generate

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a generation failure for display.
type Kind string

const (
	KindNoKey    Kind = "no_key"
	KindTooLarge Kind = "too_large"
	KindSafety   Kind = "safety"
	KindServer   Kind = "server"
	KindNetwork  Kind = "network"
	KindEmpty    Kind = "empty"
	KindGeneral  Kind = "general"
)

var kindMessages = map[Kind]string{
	KindNoKey:    "Gemini API key is not configured. Add one in settings first.",
	KindTooLarge: "File too large (>60MB).\nTip: Download as Audio (MP3) for long videos to save space and speed up processing!",
	KindSafety:   "The content was blocked by the AI safety filter or the request was rejected.",
	KindServer:   "The AI service is temporarily unavailable. Please try again later.",
	KindNetwork:  "Network error detected. Please check your internet connection and try again.",
	KindEmpty:    "Failed to generate content. Please ensure the file has audio.",
	KindGeneral:  "An unexpected error occurred. Please try again.",
}

// Error is a classified generation failure.
type Error struct {
	Kind   Kind
	Status int // HTTP status from the API, 0 if none
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Message returns the user-facing text for the failure. General errors
// carry a short excerpt of the underlying cause.
func (e *Error) Message() string {
	msg := kindMessages[e.Kind]
	if e.Kind == KindGeneral && e.Err != nil {
		msg += "\n(" + truncate(e.Err.Error(), 100) + ")"
	}
	return msg
}

// Classify returns the Kind of err. Errors that were not produced by this
// package are classified by their text the same way API errors are.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "400") || strings.Contains(msg, "SAFETY"):
		return KindSafety
	case strings.Contains(msg, "503") || strings.Contains(msg, "500"):
		return KindServer
	case strings.Contains(msg, "fetch") || strings.Contains(msg, "network"):
		return KindNetwork
	}
	return KindGeneral
}

// AsError wraps err as an *Error, classifying it if needed.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var ge *Error
	if errors.As(err, &ge) {
		return ge
	}
	return &Error{Kind: Classify(err), Err: err}
}

// statusKind maps an API status code. Only 500 and 503 count as the
// service being unavailable; other 5xx codes get the general message.
func statusKind(status int) Kind {
	switch status {
	case 400:
		return KindSafety
	case 500, 503:
		return KindServer
	}
	return KindGeneral
}
