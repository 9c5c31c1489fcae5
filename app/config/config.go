package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath    = "config.yaml"
	DefaultTrigger = "patent"
)

type Config struct {
	Log     Log     `yaml:"log"`
	Persona Persona `yaml:"persona" validate:"required"`
	OpenAI  OpenAI  `yaml:"openai" validate:"required"`
	Gemini  Gemini  `yaml:"gemini" validate:"required"`
	HTTP    HTTP    `yaml:"http"`
}

type Persona struct {
	// Display name substituted into every instruction
	Name string `yaml:"name" example:"Jane Doe" validate:"required"`
	// Free-text summary of the person
	SummaryPath string `yaml:"summary_path" example:"me/summary.txt" validate:"required"`
	// Exported profile document (PDF or plain text)
	ProfilePath string `yaml:"profile_path" example:"me/linkedin.pdf" validate:"required"`
	// Substring that switches replies to the obfuscated register, empty disables it
	Trigger string `yaml:"trigger" example:"patent"`
}

type OpenAI struct {
	Reply ModelConfig `yaml:"reply" validate:"required"`
}

type ModelConfig struct {
	// OpenAI base url
	BaseURL string `yaml:"base_url" example:"https://api.openai.com/v1" validate:"required,url"`
	// OpenAI token
	Token string `yaml:"token" example:"${OPENAI_API_KEY}" validate:"required"`
	// OpenAI model
	Model string `yaml:"model" example:"gpt-4o-mini" validate:"required"`
}

type Gemini struct {
	Evaluator GeminiModelConfig `yaml:"evaluator" validate:"required"`
}

type GeminiModelConfig struct {
	// Gemini API key
	APIKey string `yaml:"api_key" example:"${GOOGLE_API_KEY}" validate:"required"`
	// Gemini model
	Model string `yaml:"model" example:"gemini-2.0-flash" validate:"required"`
	// Optional endpoint override
	BaseURL string `yaml:"base_url" example:"https://generativelanguage.googleapis.com/" validate:"omitempty,url"`
}

type HTTP struct {
	// Listen address of the chat API
	Addr string `yaml:"addr" example:":8080" validate:"required"`
	// Timeout of a single provider request
	Timeout time.Duration `yaml:"timeout" example:"60s" validate:"gt=0"`
}

type Log struct {
	// Console log level
	Level string `yaml:"level" example:"info" validate:"omitempty,oneof=debug info warn error"`
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"${TELEGRAM_BOT_TOKEN}"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890" validate:"required_with=Token"`
}

// Load reads the YAML config at path. ${VAR} references are expanded from the
// environment, which is first populated from an optional .env file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, oops.Errorf("failed to load .env file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var result Config

	// an explicit empty trigger must survive, so it is preset rather than defaulted
	result.Persona.Trigger = DefaultTrigger

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &result); err != nil {
		return nil, oops.Errorf("failed to parse YAML config: %w", err)
	}

	result.applyDefaults()

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}

func (c *Config) applyDefaults() {
	if c.OpenAI.Reply.BaseURL == "" {
		c.OpenAI.Reply.BaseURL = "https://api.openai.com/v1"
	}
	if c.OpenAI.Reply.Model == "" {
		c.OpenAI.Reply.Model = "gpt-4o-mini"
	}
	if c.Gemini.Evaluator.Model == "" {
		c.Gemini.Evaluator.Model = "gemini-2.0-flash"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = 60 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
