package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// AppEnv represents the application environment
type AppEnv string

const (
	AppEnvLocal       AppEnv = "local"
	AppEnvProduction  AppEnv = "production"
	AppEnvDevelopment AppEnv = "development"
	AppEnvTesting     AppEnv = "testing"
)

// ParseAppEnv matches an environment name case-insensitively.
func ParseAppEnv(s string) (AppEnv, error) {
	switch env := AppEnv(strings.ToLower(s)); env {
	case AppEnvLocal, AppEnvProduction, AppEnvDevelopment, AppEnvTesting:
		return env, nil
	default:
		return "", oops.Errorf("invalid app env: %s", s)
	}
}

type Config struct {
	TelegramBotToken string   `koanf:"telegram_bot_token"`
	TelegramAPIURL   string   `koanf:"telegram_api_url"`
	SourceChannels   []string `koanf:"source_channels"`
	DatabasePath     string   `koanf:"database_path"`
	SiteDir          string   `koanf:"site_dir"`
	StaticDir        string   `koanf:"static_dir"`
	TemplatePath     string   `koanf:"template_path"`
	CountriesPath    string   `koanf:"countries_path"`
	HTTPPort         string   `koanf:"http_port"`
	FlushInterval    int      `koanf:"flush_interval"`
	BuildInterval    int      `koanf:"build_interval"`
	AllowedUsers     []int64  `koanf:"allowed_users"`
	AppEnv           AppEnv   `koanf:"app_env"`
}

func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	// Try to load config file from various formats
	configFiles := []string{
		"config.yaml",
		"config.yml",
		"config.json",
		"config.toml",
	}

	// Use lo.Find to find the first existing config file
	configFile, found := lo.Find(configFiles, func(file string) bool {
		_, err := os.Stat(file)
		return err == nil
	})

	if found {
		var parser koanf.Parser
		ext := filepath.Ext(configFile)

		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		case ".toml":
			parser = toml.Parser()
		default:
			return nil, oops.Errorf("unsupported config file extension: %s", ext)
		}

		if err := k.Load(file.Provider(configFile), parser); err != nil {
			return nil, oops.With("config_file", configFile).Wrap(err)
		}
	}

	// Load environment variables (they override config file values)
	// Convert TELEGRAM_BOT_TOKEN -> telegram_bot_token
	if err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(s)
	}), nil); err != nil {
		return nil, oops.With("context", "loading environment variables").Wrap(err)
	}

	// Set defaults
	if !k.Exists("telegram_api_url") {
		k.Set("telegram_api_url", "https://api.telegram.org")
	}
	if !k.Exists("database_path") {
		k.Set("database_path", "./data/osint.db")
	}
	if !k.Exists("site_dir") {
		k.Set("site_dir", "./site")
	}
	if !k.Exists("static_dir") {
		k.Set("static_dir", "./static")
	}
	if !k.Exists("template_path") {
		k.Set("template_path", "./templates/dashboard.html")
	}
	if !k.Exists("countries_path") {
		k.Set("countries_path", "./static/data/countries.json")
	}
	if !k.Exists("http_port") {
		k.Set("http_port", "8080")
	}
	if !k.Exists("flush_interval") {
		k.Set("flush_interval", 30)
	}
	if !k.Exists("build_interval") {
		k.Set("build_interval", 900)
	}
	if !k.Exists("app_env") {
		k.Set("app_env", "production")
	}

	// Unmarshal into struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.With("context", "unmarshaling config").Wrap(err)
	}

	// Parse SourceChannels from a comma-separated string if needed
	// koanf might return it as a string from env vars or as a slice from config files
	if sources := k.Get("source_channels"); sources != nil {
		switch v := sources.(type) {
		case string:
			cfg.SourceChannels = ParseSourceChannels(v)
		case []interface{}:
			cfg.SourceChannels = lo.FilterMap(v, func(item interface{}, _ int) (string, bool) {
				s, ok := item.(string)
				if !ok {
					return "", false
				}
				s = strings.TrimSpace(s)
				return s, s != ""
			})
		}
	}

	// Parse AllowedUsers from comma-separated string if it's a string
	if allowedUsers := k.Get("allowed_users"); allowedUsers != nil {
		switch v := allowedUsers.(type) {
		case string:
			cfg.AllowedUsers = ParseAllowedUsers(v)
		case []interface{}:
			cfg.AllowedUsers = lo.FilterMap(v, func(item interface{}, _ int) (int64, bool) {
				switch val := item.(type) {
				case int64:
					return val, true
				case int:
					return int64(val), true
				case float64:
					return int64(val), true
				default:
					return 0, false
				}
			})
		}
	}

	if appEnvStr := k.String("app_env"); appEnvStr != "" {
		if env, err := ParseAppEnv(appEnvStr); err == nil {
			cfg.AppEnv = env
		} else {
			cfg.AppEnv = AppEnvProduction
		}
	} else {
		cfg.AppEnv = AppEnvProduction
	}

	// Validate required fields
	if cfg.TelegramBotToken == "" {
		return nil, ErrMissingBotToken
	}

	return &cfg, nil
}

// ParseSourceChannels parses a comma-separated channel list into usernames
func ParseSourceChannels(s string) []string {
	if s == "" {
		return []string{}
	}
	return lo.FilterMap(strings.Split(s, ","), func(part string, _ int) (string, bool) {
		part = strings.TrimSpace(part)
		return part, part != ""
	})
}

// ParseAllowedUsers parses comma-separated user IDs string into []int64 using lo
func ParseAllowedUsers(s string) []int64 {
	if s == "" {
		return []int64{}
	}
	parts := strings.Split(s, ",")
	return lo.FilterMap(parts, func(part string, _ int) (int64, bool) {
		part = strings.TrimSpace(part)
		if part == "" {
			return 0, false
		}
		var id int64
		if _, err := fmt.Sscanf(part, "%d", &id); err == nil {
			return id, true
		}
		return 0, false
	})
}
