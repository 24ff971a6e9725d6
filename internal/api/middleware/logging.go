package middleware

import (
	"log"
	"net/http"
	"strings"
	"time"
)

type wrappedWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *wrappedWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// silentPaths are high-frequency polling endpoints that are only logged on errors (status >= 400).
var silentPaths = map[string]bool{
	"/api/health": true,
	"/api/jobs":   true,
}

// silentSuffixes cover per-session polling and the browser's timeupdate stream.
var silentSuffixes = []string{"/playback", "/playback/events"}

func isSilent(r *http.Request) bool {
	if silentPaths[r.URL.Path] {
		return true
	}
	if !strings.HasPrefix(r.URL.Path, "/api/sessions/") {
		return false
	}
	if r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/media") {
		return true // range requests while playing
	}
	for _, s := range silentSuffixes {
		if strings.HasSuffix(r.URL.Path, s) {
			return true
		}
	}
	return false
}

func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &wrappedWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		if isSilent(r) && wrapped.statusCode < 400 {
			return
		}
		log.Printf("[api] %s %s %d %s", r.Method, r.URL.Path, wrapped.statusCode, time.Since(start))
	})
}
