package generate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, key string, h http.HandlerFunc) *GeminiClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewGeminiClient(StaticKey(key), func() string { return "" }, WithBaseURL(srv.URL))
}

func TestGeminiTranscribe(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any
	c := newTestClient(t, "k-123", func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"[00:01] hi\n"},{"text":"[00:04] there"}]},"finishReason":"STOP"}]}`))
	})

	out, err := c.Transcribe(context.Background(), Media{Data: []byte("RIFF"), MimeType: "audio/wav"}, "English")
	if err != nil {
		t.Fatal(err)
	}
	if out != "[00:01] hi\n[00:04] there" {
		t.Errorf("out = %q", out)
	}
	if gotPath != "/models/"+DefaultGeminiModel+":generateContent" {
		t.Errorf("path = %s", gotPath)
	}
	if gotKey != "k-123" {
		t.Errorf("key header = %q", gotKey)
	}

	raw, _ := json.Marshal(gotBody)
	if !strings.Contains(string(raw), `"mime_type":"audio/wav"`) || !strings.Contains(string(raw), `"data":"UklGRg=="`) {
		t.Errorf("request body missing inline data: %s", raw)
	}
	if !strings.Contains(string(raw), "[MM:SS]") {
		t.Errorf("request body missing prompt: %s", raw)
	}
}

func TestGeminiUsesResolvedModel(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"# Title"}]}}]}`))
	}))
	defer srv.Close()

	c := NewGeminiClient(StaticKey("k"), func() string { return "gemini-2.0-pro" }, WithBaseURL(srv.URL))
	if _, err := c.Refine(context.Background(), "[00:01] a", "English"); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/models/gemini-2.0-pro:generateContent" {
		t.Errorf("path = %s", gotPath)
	}
}

func TestGeminiErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   Kind
	}{
		{"bad request", 400, `{"error":{"message":"invalid"}}`, KindSafety},
		{"server", 503, `{"error":{"message":"overloaded"}}`, KindServer},
		{"internal", 500, `{}`, KindServer},
		{"bad gateway", 502, `{}`, KindGeneral},
		{"gateway timeout", 504, `{}`, KindGeneral},
		{"forbidden", 403, `{"error":{"message":"denied"}}`, KindGeneral},
		{"blocked prompt", 200, `{"promptFeedback":{"blockReason":"SAFETY"}}`, KindSafety},
		{"safety finish", 200, `{"candidates":[{"finishReason":"SAFETY"}]}`, KindSafety},
		{"no candidates", 200, `{"candidates":[]}`, KindEmpty},
		{"blank text", 200, `{"candidates":[{"content":{"parts":[{"text":"  "}]}}]}`, KindEmpty},
		{"garbage", 200, `not json`, KindGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, "k", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := c.Summarize(context.Background(), "[00:01] a", "English")
			if got := Classify(err); got != tt.want {
				t.Errorf("Classify(%v) = %q, want %q", err, got, tt.want)
			}
		})
	}
}

func TestGeminiNoKey(t *testing.T) {
	called := false
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	_, err := c.Transcribe(context.Background(), Media{Data: []byte{1}, MimeType: "audio/mpeg"}, "English")
	if Classify(err) != KindNoKey {
		t.Errorf("err = %v", err)
	}
	if called {
		t.Error("request sent without a key")
	}
}

func TestGeminiNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewGeminiClient(StaticKey("k"), nil, WithBaseURL(url))
	_, err := c.Refine(context.Background(), "x", "English")
	if Classify(err) != KindNetwork {
		t.Errorf("err = %v, kind %q", err, Classify(err))
	}
}

func TestGeminiListModels(t *testing.T) {
	c := newTestClient(t, "k", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[
			{"name":"models/gemini-2.0-flash","displayName":"Gemini 2.0 Flash","supportedGenerationMethods":["generateContent"]},
			{"name":"models/gemini-2.5-flash","displayName":"Gemini 2.5 Flash","supportedGenerationMethods":["generateContent","countTokens"]},
			{"name":"models/text-embedding-004","supportedGenerationMethods":["embedContent"]},
			{"name":"models/gemini-embedding-001","supportedGenerationMethods":["generateContent"]},
			{"name":"models/gemini-2.5-flash","supportedGenerationMethods":["generateContent"]}
		]}`))
	})

	models, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(models) != 2 {
		t.Fatalf("models = %+v", models)
	}
	if models[0].ID != "gemini-2.5-flash" || models[1].ID != "gemini-2.0-flash" {
		t.Errorf("order = %s, %s", models[0].ID, models[1].ID)
	}
}
