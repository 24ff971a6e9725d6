package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lazvid.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("DATA_PATH", "/tmp/lv")

	cfg, err := LoadFile("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 8080 || cfg.MaxUploadMB != 60 || cfg.GeminiModel != "gemini-2.5-flash" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.DBPath != filepath.Join("/tmp/lv", "lazvid.db") {
		t.Errorf("DBPath = %s", cfg.DBPath)
	}
	if cfg.MaxUploadBytes() != 60<<20 {
		t.Errorf("MaxUploadBytes = %d", cfg.MaxUploadBytes())
	}
}

func TestLoadFileEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
port: 9000
jwt_secret: from-file
gemini_model: gemini-2.0-flash
cors_origins: ["https://a.example", " https://b.example "]
session_ttl: 30m
max_upload_mb: 20
`)
	t.Setenv("JWT_SECRET", "")
	t.Setenv("GEMINI_MODEL", "gemini-2.5-pro")
	t.Setenv("PORT", "9100")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 9100 {
		t.Errorf("Port = %d, env should win", cfg.Port)
	}
	if cfg.GeminiModel != "gemini-2.5-pro" {
		t.Errorf("GeminiModel = %s", cfg.GeminiModel)
	}
	if cfg.JWTSecret != "from-file" || cfg.MaxUploadMB != 20 || cfg.SessionTTL != 30*time.Minute {
		t.Errorf("file values lost: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %q", cfg.CORSOrigins)
	}
}

func TestLoadFileErrors(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}
	if _, err := LoadFile(writeConfig(t, "port: [")); err == nil {
		t.Error("bad yaml should fail")
	}
	t.Setenv("SESSION_TTL", "soon")
	if _, err := LoadFile(""); err == nil {
		t.Error("bad SESSION_TTL should fail")
	}
}

func TestRandomSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.JWTSecret) != 64 {
		t.Errorf("secret = %q", cfg.JWTSecret)
	}
}
