package handlers

import (
	"net/http"
	"strings"

	"github.com/lazvid/backend/internal/db"
	"github.com/lazvid/backend/internal/generate"
)

// Setting keys stored in the settings table.
const (
	SettingGeminiAPIKey   = "gemini_api_key"
	SettingGeminiModel    = "gemini_model"
	SettingTargetLanguage = "default_target_language"
	secretMask            = "••••••••"
)

// settingsKeys defines which keys are allowed and their display metadata
var settingsKeys = []SettingDef{
	{Key: SettingGeminiAPIKey, Label: "Gemini API Key", Group: "gemini", Placeholder: "AIza...", Secret: true},
	{Key: SettingGeminiModel, Label: "Gemini Model", Group: "gemini", Placeholder: generate.DefaultGeminiModel},
	{Key: SettingTargetLanguage, Label: "Default Target Language", Group: "transcript", Placeholder: generate.DefaultTargetLanguage},
}

type SettingDef struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Group       string `json:"group"`
	Placeholder string `json:"placeholder"`
	Secret      bool   `json:"secret"`
}

type SettingsHandler struct {
	database *db.Database
}

func NewSettingsHandler(database *db.Database) *SettingsHandler {
	return &SettingsHandler{database: database}
}

// GetSettings returns all settings (secrets are masked)
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	all, err := h.database.GetAllSettings()
	if err != nil {
		jsonError(w, "failed to load settings", http.StatusInternalServerError)
		return
	}

	type SettingResponse struct {
		SettingDef
		Value    string `json:"value"`
		HasValue bool   `json:"has_value"`
	}

	result := make([]SettingResponse, 0, len(settingsKeys))
	for _, def := range settingsKeys {
		val := all[def.Key]
		masked := val
		hasValue := val != ""
		if def.Secret && hasValue {
			// Show only last 4 chars
			if len(val) > 4 {
				masked = secretMask + val[len(val)-4:]
			} else {
				masked = secretMask
			}
		}
		result = append(result, SettingResponse{
			SettingDef: def,
			Value:      masked,
			HasValue:   hasValue,
		})
	}

	jsonResponse(w, result, http.StatusOK)
}

// UpdateSettings saves settings from the request body. Masked secrets are
// left untouched; an empty string clears a value.
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var updates map[string]string
	if !decodeJSON(w, r, &updates) {
		return
	}

	allowed := make(map[string]bool)
	for _, def := range settingsKeys {
		allowed[def.Key] = true
	}

	for key, value := range updates {
		if !allowed[key] {
			continue
		}
		if strings.HasPrefix(value, secretMask) {
			continue
		}
		if key == SettingTargetLanguage && value != "" && !validLanguage(value) {
			jsonError(w, "unsupported target language: "+value, http.StatusBadRequest)
			return
		}
		if err := h.database.SetSetting(key, strings.TrimSpace(value)); err != nil {
			jsonError(w, "failed to save setting: "+key, http.StatusInternalServerError)
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

func validLanguage(code string) bool {
	for _, l := range generate.TargetLanguages {
		if l.Code == code {
			return true
		}
	}
	return false
}

// Resolver reads live settings, falling back to the configured defaults.
type Resolver struct {
	DB             *db.Database
	GeminiKey      string
	Model          string
	TargetLanguage string
}

func (s *Resolver) GeminiAPIKey() string {
	return s.DB.GetSetting(SettingGeminiAPIKey, s.GeminiKey)
}

func (s *Resolver) GeminiModel() string {
	return s.DB.GetSetting(SettingGeminiModel, s.Model)
}

func (s *Resolver) DefaultTargetLanguage() string {
	return s.DB.GetSetting(SettingTargetLanguage, s.TargetLanguage)
}

func (s *Resolver) HasGeminiKey() bool {
	return s.GeminiAPIKey() != ""
}
