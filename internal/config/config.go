// Package config holds inboxlens configuration, loaded from a TOML file
// with environment overrides for credentials.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all inboxlens configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Mail      MailConfig      `toml:"mail"`
	SMTP      SMTPConfig      `toml:"smtp"`
	LLM       LLMConfig       `toml:"llm"`
	Twilio    TwilioConfig    `toml:"twilio"`
	Retrieval RetrievalConfig `toml:"retrieval"`
}

type ServerConfig struct {
	Bind string `toml:"bind"`
	Port int    `toml:"port"`
}

type MailConfig struct {
	IMAPServer string `toml:"imap_server"` // host:port, e.g. imap.gmail.com:993
	User       string `toml:"user"`
	Password   string `toml:"password"` // app password
	MaxFetch   int    `toml:"max_fetch"`
}

type SMTPConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	From     string `toml:"from"`
}

type LLMConfig struct {
	Provider       string `toml:"provider"` // "anthropic", "gemini", "ollama"
	Model          string `toml:"model"`
	AnthropicKey   string `toml:"anthropic_key"`
	GeminiKey      string `toml:"gemini_key"`
	OllamaURL      string `toml:"ollama_url"`
	OllamaModel    string `toml:"ollama_model"`
	EmbeddingModel string `toml:"embedding_model"` // e.g. "all-minilm"
}

type TwilioConfig struct {
	AccountSID string `toml:"account_sid"`
	AuthToken  string `toml:"auth_token"`
	From       string `toml:"from"` // whatsapp:+14155238886
}

type RetrievalConfig struct {
	ChunkSize int `toml:"chunk_size"`
	TopK      int `toml:"top_k"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 8787,
		},
		Mail: MailConfig{
			IMAPServer: "imap.gmail.com:993",
			MaxFetch:   20,
		},
		SMTP: SMTPConfig{
			Host: "smtp.gmail.com",
			Port: 587,
		},
		LLM: LLMConfig{
			Provider:       "gemini",
			OllamaURL:      "http://localhost:11434",
			OllamaModel:    "llama3.2",
			EmbeddingModel: "all-minilm",
		},
		Retrieval: RetrievalConfig{
			ChunkSize: 3000,
			TopK:      3,
		},
	}
}

// DefaultPath returns ~/.inboxlens/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".inboxlens", "config.toml"), nil
}

// Load reads the TOML file at path over the defaults, then applies
// environment overrides. A missing file is not an error; the defaults and
// environment still apply.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	envStr("ANTHROPIC_API_KEY", &c.LLM.AnthropicKey)
	envStr("GEMINI_API_KEY", &c.LLM.GeminiKey)
	envStr("INBOXLENS_IMAP_SERVER", &c.Mail.IMAPServer)
	envStr("INBOXLENS_MAIL_USER", &c.Mail.User)
	envStr("INBOXLENS_MAIL_PASSWORD", &c.Mail.Password)
	envStr("INBOXLENS_SMTP_HOST", &c.SMTP.Host)
	envStr("INBOXLENS_SMTP_USER", &c.SMTP.User)
	envStr("INBOXLENS_SMTP_PASSWORD", &c.SMTP.Password)
	envStr("INBOXLENS_SMTP_FROM", &c.SMTP.From)
	envStr("TWILIO_ACCOUNT_SID", &c.Twilio.AccountSID)
	envStr("TWILIO_AUTH_TOKEN", &c.Twilio.AuthToken)
	envStr("TWILIO_FROM", &c.Twilio.From)

	if v := os.Getenv("INBOXLENS_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
