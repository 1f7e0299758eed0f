package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds pipeline configuration.
type Config struct {
	LLM    LLMConfig
	Locale LocaleConfig
	Log    LogConfig
}

// LLMConfig holds external-capability settings.
type LLMConfig struct {
	Provider  string // "gemini" or "none"
	APIKeyEnv string
	APIKey    string
	Model     string
	OCRModel  string
}

// LocaleConfig holds locale defaults for parsing and presentation.
type LocaleConfig struct {
	Timezone string
	Currency string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string
}

// Load reads configuration from file and env. Env var overrides use prefix
// NIAGASCORE_.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.api_key_env", "GEMINI_API_KEY")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gemini-2.0-flash")
	v.SetDefault("llm.ocr_model", "gemini-2.0-flash")
	v.SetDefault("locale.timezone", "Asia/Kuala_Lumpur")
	v.SetDefault("locale.currency", "MYR")
	v.SetDefault("log.level", "info")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("NIAGASCORE_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "niagascore"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("NIAGASCORE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// ResolveAPIKey prefers the explicit key, then the configured env var.
func (c Config) ResolveAPIKey() string {
	if key := strings.TrimSpace(c.LLM.APIKey); key != "" {
		return key
	}
	if c.LLM.APIKeyEnv != "" {
		return strings.TrimSpace(os.Getenv(c.LLM.APIKeyEnv))
	}
	return ""
}
