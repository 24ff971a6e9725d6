package generate

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGeminiModel   = "gemini-2.5-flash"
)

// KeyResolver returns the current Gemini API key from settings
type KeyResolver func() string

// ModelResolver returns the current Gemini model from settings
type ModelResolver func() string

// GeminiClient talks to the Gemini generateContent API.
type GeminiClient struct {
	keyResolver   KeyResolver
	modelResolver ModelResolver
	baseURL       string
	httpClient    *http.Client
}

// Option configures a GeminiClient.
type Option func(*GeminiClient)

// WithBaseURL points the client at another API root (used by tests).
func WithBaseURL(u string) Option {
	return func(g *GeminiClient) { g.baseURL = strings.TrimSuffix(u, "/") }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *GeminiClient) { g.httpClient = c }
}

func NewGeminiClient(keys KeyResolver, models ModelResolver, opts ...Option) *GeminiClient {
	g := &GeminiClient{
		keyResolver:   keys,
		modelResolver: models,
		baseURL:       DefaultGeminiBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Minute,
		},
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// StaticKey adapts a fixed key to a KeyResolver.
func StaticKey(key string) KeyResolver {
	return func() string { return key }
}

func (g *GeminiClient) Name() string {
	return "gemini"
}

func (g *GeminiClient) apiKey() string {
	if g.keyResolver == nil {
		return ""
	}
	return g.keyResolver()
}

func (g *GeminiClient) currentModel() string {
	if g.modelResolver != nil {
		if m := g.modelResolver(); m != "" {
			return m
		}
	}
	return DefaultGeminiModel
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

func (g *GeminiClient) Transcribe(ctx context.Context, media Media, targetLanguage string) (string, error) {
	if len(media.Data) == 0 {
		return "", &Error{Kind: KindEmpty, Err: errors.New("no media data")}
	}
	log.Printf("[gemini] transcribing %d bytes (%s) into %s", len(media.Data), media.MimeType, targetLanguage)
	parts := []geminiPart{
		{InlineData: &geminiInlineData{
			MimeType: media.MimeType,
			Data:     base64.StdEncoding.EncodeToString(media.Data),
		}},
		{Text: TranscriptPrompt(targetLanguage)},
	}
	return g.generate(ctx, parts)
}

func (g *GeminiClient) Refine(ctx context.Context, transcript, targetLanguage string) (string, error) {
	log.Printf("[gemini] refining %d chars into %s", len(transcript), targetLanguage)
	return g.generate(ctx, []geminiPart{{Text: RefinePrompt(transcript, targetLanguage)}})
}

func (g *GeminiClient) Summarize(ctx context.Context, transcript, targetLanguage string) (string, error) {
	log.Printf("[gemini] summarizing %d chars into %s", len(transcript), targetLanguage)
	return g.generate(ctx, []geminiPart{{Text: SummaryPrompt(transcript, targetLanguage)}})
}

// generate sends one generateContent request and returns the text of the
// first candidate. All failures come back as *Error.
func (g *GeminiClient) generate(ctx context.Context, parts []geminiPart) (string, error) {
	key := g.apiKey()
	if key == "" {
		return "", &Error{Kind: KindNoKey, Err: errors.New("Gemini API key not configured")}
	}

	model := g.currentModel()
	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": parts},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", &Error{Kind: KindGeneral, Err: err}
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return "", &Error{Kind: KindGeneral, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", key)

	start := time.Now()
	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", &Error{Kind: KindGeneral, Err: ctx.Err()}
		}
		return "", &Error{Kind: KindNetwork, Err: fmt.Errorf("Gemini API request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Kind: KindNetwork, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		kind := statusKind(resp.StatusCode)
		if strings.Contains(string(body), "SAFETY") {
			kind = KindSafety
		}
		return "", &Error{
			Kind:   kind,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("Gemini API error (status %d): %s", resp.StatusCode, truncate(string(body), 300)),
		}
	}

	var geminiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason"`
		} `json:"candidates"`
		PromptFeedback struct {
			BlockReason string `json:"blockReason"`
		} `json:"promptFeedback"`
	}

	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", &Error{Kind: KindGeneral, Err: fmt.Errorf("parse response: %w", err)}
	}

	if geminiResp.PromptFeedback.BlockReason != "" {
		return "", &Error{Kind: KindSafety, Err: fmt.Errorf("Gemini blocked: %s", geminiResp.PromptFeedback.BlockReason)}
	}
	if len(geminiResp.Candidates) == 0 {
		log.Printf("[gemini] empty response body: %s", truncate(string(body), 300))
		return "", &Error{Kind: KindEmpty, Err: errors.New("empty Gemini response")}
	}

	cand := geminiResp.Candidates[0]
	if cand.FinishReason == "SAFETY" {
		return "", &Error{Kind: KindSafety, Err: errors.New("Gemini finishReason=SAFETY")}
	}
	if fr := cand.FinishReason; fr != "" && fr != "STOP" {
		log.Printf("[gemini] WARNING: finishReason=%s", fr)
	}

	var text strings.Builder
	for _, p := range cand.Content.Parts {
		text.WriteString(p.Text)
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", &Error{Kind: KindEmpty, Err: errors.New("Gemini returned no text")}
	}

	log.Printf("[gemini] model=%s returned %d chars in %s", model, text.Len(), time.Since(start).Round(time.Millisecond))
	return text.String(), nil
}

// Model is the frontend-friendly model info
type Model struct {
	ID          string `json:"id"`           // e.g. "gemini-2.5-flash"
	DisplayName string `json:"display_name"` // e.g. "Gemini 2.5 Flash"
	Description string `json:"description"`
}

// ListModels fetches the Gemini models that support generateContent,
// newest first.
func (g *GeminiClient) ListModels(ctx context.Context) ([]Model, error) {
	key := g.apiKey()
	if key == "" {
		return nil, &Error{Kind: KindNoKey}
	}

	url := fmt.Sprintf("%s/models?pageSize=100", g.baseURL)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-goog-api-key", key)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Err: fmt.Errorf("Google API: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Kind: statusKind(resp.StatusCode), Status: resp.StatusCode,
			Err: fmt.Errorf("Google API: status %d", resp.StatusCode)}
	}

	var apiResp struct {
		Models []struct {
			Name                       string   `json:"name"`        // "models/gemini-2.5-flash"
			DisplayName                string   `json:"displayName"` // "Gemini 2.5 Flash"
			Description                string   `json:"description"`
			SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("parse Google API response: %w", err)
	}

	var models []Model
	seen := make(map[string]bool)
	for _, m := range apiResp.Models {
		supportsGenerate := false
		for _, method := range m.SupportedGenerationMethods {
			if method == "generateContent" {
				supportsGenerate = true
				break
			}
		}
		if !supportsGenerate {
			continue
		}

		id := strings.TrimPrefix(m.Name, "models/")
		if !strings.HasPrefix(id, "gemini-") || strings.Contains(id, "embedding") {
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true

		models = append(models, Model{
			ID:          id,
			DisplayName: m.DisplayName,
			Description: m.Description,
		})
	}

	// Sort: newer models first (higher version numbers)
	sort.Slice(models, func(i, j int) bool {
		return models[i].ID > models[j].ID
	})
	if models == nil {
		models = []Model{}
	}
	return models, nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
