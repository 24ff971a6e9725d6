package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port           int           `yaml:"port"`
	DataPath       string        `yaml:"data_path"`
	DBPath         string        `yaml:"db_path"`
	JWTSecret      string        `yaml:"jwt_secret"`
	AdminUsername  string        `yaml:"admin_username"`
	AdminPassword  string        `yaml:"admin_password"`
	CORSOrigins    []string      `yaml:"cors_origins"`
	GeminiAPIKey   string        `yaml:"gemini_api_key"`
	GeminiModel    string        `yaml:"gemini_model"`
	TargetLanguage string        `yaml:"default_target_language"`
	MaxUploadMB    int           `yaml:"max_upload_mb"`
	SessionTTL     time.Duration `yaml:"session_ttl"`
	LoginRateLimit int           `yaml:"login_rate_limit"` // failed logins per minute per IP
}

func defaultConfig() *Config {
	return &Config{
		Port:           8080,
		DataPath:       "/data",
		AdminUsername:  "admin",
		AdminPassword:  "admin",
		CORSOrigins:    []string{"*"},
		GeminiModel:    "gemini-2.5-flash",
		TargetLanguage: "Traditional Chinese (Taiwan usage)",
		MaxUploadMB:    60,
		SessionTTL:     2 * time.Hour,
		LoginRateLimit: 10,
	}
}

// Load reads CONFIG_FILE (if set) and the environment. It exits on a broken
// config file.
func Load() *Config {
	cfg, err := LoadFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

// LoadFile applies the YAML file at path over the defaults, then lets
// environment variables override it. An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Port = port
	}
	if v := os.Getenv("MAX_UPLOAD_MB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MAX_UPLOAD_MB: %w", err)
		}
		c.MaxUploadMB = n
	}
	if v := os.Getenv("LOGIN_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LOGIN_RATE_LIMIT: %w", err)
		}
		c.LoginRateLimit = n
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SESSION_TTL: %w", err)
		}
		c.SessionTTL = d
	}

	c.DataPath = getEnv("DATA_PATH", c.DataPath)
	c.DBPath = getEnv("DB_PATH", c.DBPath)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.AdminUsername = getEnv("ADMIN_USERNAME", c.AdminUsername)
	c.AdminPassword = getEnv("ADMIN_PASSWORD", c.AdminPassword)
	c.GeminiAPIKey = getEnv("GEMINI_API_KEY", c.GeminiAPIKey)
	c.GeminiModel = getEnv("GEMINI_MODEL", c.GeminiModel)
	c.TargetLanguage = getEnv("DEFAULT_TARGET_LANGUAGE", c.TargetLanguage)

	// CORS origins: comma-separated list or "*"
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = strings.Split(v, ",")
	}
	return nil
}

func (c *Config) normalize() {
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataPath, "lazvid.db")
	}

	origins := make([]string, 0, len(c.CORSOrigins))
	for _, o := range c.CORSOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c.CORSOrigins = origins

	if c.MaxUploadMB <= 0 {
		c.MaxUploadMB = 60
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = 2 * time.Hour
	}

	// JWT secret: require explicit setting or generate random
	if c.JWTSecret == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			log.Fatalf("Failed to generate random JWT secret: %v", err)
		}
		c.JWTSecret = hex.EncodeToString(b)
		log.Println("WARNING: JWT_SECRET not set, using random secret. Sessions will not survive restarts. Set JWT_SECRET env var for persistent sessions.")
	}
}

// MaxUploadBytes is MaxUploadMB in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
