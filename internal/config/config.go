package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type LLMProvider string

const (
	ProviderGroq   LLMProvider = "groq"
	ProviderGemini LLMProvider = "gemini"
	ProviderOpenAI LLMProvider = "openai"
	ProviderYandex LLMProvider = "yandex"
)

// Providers lists every text-generation backend the assistant can talk to.
var Providers = []LLMProvider{ProviderGroq, ProviderGemini, ProviderOpenAI, ProviderYandex}

type StoreBackend string

const (
	StoreFile   StoreBackend = "file"
	StoreSQLite StoreBackend = "sqlite"
)

type Config struct {
	TelegramBotToken string  `env:"TELEGRAM_BOT_TOKEN"`
	AllowedUsers     []int64 `env:"ALLOWED_USERS" envSeparator:":"`
	AdminUserID      int64   `env:"ADMIN_USER"`

	// LLM settings
	LLMProvider    LLMProvider `env:"LLM_PROVIDER" envDefault:"groq"`
	LLMAPIKey      string      `env:"LLM_API_KEY"`
	OpenAIBaseURL  string      `env:"OPENAI_BASE_URL"`
	OpenAIModel    string      `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	GroqBaseURL    string      `env:"GROQ_BASE_URL" envDefault:"https://api.groq.com/openai/v1"`
	GroqModel      string      `env:"GROQ_MODEL" envDefault:"llama-3.3-70b-versatile"`
	GeminiModel    string      `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash"`
	YandexFolderID string      `env:"YANDEX_FOLDER_ID"`
	Temperature    float32     `env:"LLM_TEMPERATURE" envDefault:"0.8"`

	// GitHub
	GitHubToken   string `env:"GITHUB_TOKEN"`
	GitHubAccount string `env:"GITHUB_ACCOUNT"`
	GitHubBaseURL string `env:"GITHUB_BASE_URL"`

	// Storage
	StoreBackend StoreBackend `env:"STORE_BACKEND" envDefault:"file"`
	StorePath    string       `env:"STORE_PATH" envDefault:"data/settings.json"`
	JournalPath  string       `env:"JOURNAL_PATH" envDefault:"logs/journal.jsonl"`

	// Prompts
	PromptsPath string `env:"PROMPTS_PATH"`

	// Repository cache refresh, cron syntax. Empty disables it.
	RefreshSchedule string        `env:"REFRESH_SCHEDULE" envDefault:"@every 30m"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// Formatting
	MessageParseMode string `env:"MESSAGE_PARSE_MODE" envDefault:"HTML"`
}

// New parses the environment into a Config and validates it.
func New() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	providers := make([]interface{}, 0, len(Providers))
	for _, p := range Providers {
		providers = append(providers, p)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.LLMProvider, validation.Required, validation.In(providers...)),
		validation.Field(&c.StoreBackend, validation.Required, validation.In(StoreFile, StoreSQLite)),
		validation.Field(&c.StorePath, validation.Required),
		validation.Field(&c.RequestTimeout, validation.Min(time.Second)),
		validation.Field(&c.LogFormat, validation.In("text", "json")),
		validation.Field(&c.MessageParseMode, validation.In("", "HTML", "Markdown", "MarkdownV2")),
	)
}

// RequireTelegram reports whether the bot front end can start.
func (c *Config) RequireTelegram() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TelegramBotToken, validation.Required.Error("TELEGRAM_BOT_TOKEN is required for the bot")),
	)
}

// IsProvider reports whether name is a known text-generation backend.
func IsProvider(name string) bool {
	for _, p := range Providers {
		if string(p) == name {
			return true
		}
	}
	return false
}
