package generate

import "context"

// Media is an uploaded file sent inline to the model.
type Media struct {
	Data     []byte
	MimeType string
}

// Generator produces transcript text and derived articles. Transcribe must
// return lines of the form "[MM:SS] text"; anything else in the reply is
// tolerated and ignored by the timeline parser.
type Generator interface {
	// Transcribe listens to media and returns a timestamped translation.
	Transcribe(ctx context.Context, media Media, targetLanguage string) (string, error)
	// Refine rewrites a raw transcript as a readable Markdown article.
	Refine(ctx context.Context, transcript, targetLanguage string) (string, error)
	// Summarize writes a Markdown news summary of a raw transcript.
	Summarize(ctx context.Context, transcript, targetLanguage string) (string, error)
	// Name returns the engine name
	Name() string
}

// Language is a target language offered to the user. Code is what the
// model is asked to translate into.
type Language struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// TargetLanguages lists the selectable output languages.
var TargetLanguages = []Language{
	{Code: "English", Label: "English"},
	{Code: "Traditional Chinese (Taiwan usage)", Label: "繁體中文 (台灣)"},
	{Code: "Simplified Chinese", Label: "简体中文"},
	{Code: "Japanese", Label: "日本語"},
	{Code: "Korean", Label: "한국어"},
	{Code: "Spanish", Label: "Español"},
	{Code: "French", Label: "Français"},
	{Code: "German", Label: "Deutsch"},
}

// DefaultTargetLanguage is used when neither the session nor settings name one.
var DefaultTargetLanguage = TargetLanguages[1].Code

// LanguageLabel returns the display label for code, or code itself.
func LanguageLabel(code string) string {
	for _, l := range TargetLanguages {
		if l.Code == code {
			return l.Label
		}
	}
	return code
}
