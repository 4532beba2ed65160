// Package config loads agent configuration from an optional YAML file,
// with environment variables taking precedence. A .env file in the
// working directory is loaded first for local development.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultMaxRounds   = 10
	defaultServeAddr   = ":8765"
	defaultCodeTimeout = 30
)

// Config holds all agent settings.
type Config struct {
	// Model API.
	APIKey        string `yaml:"api_key"`
	APIURL        string `yaml:"api_url"`
	Model         string `yaml:"model"`
	FallbackModel string `yaml:"fallback_model"`
	MaxTokens     int    `yaml:"max_tokens"`

	// Conversation loop.
	MaxRounds int `yaml:"max_rounds"`

	// Workspace for tool file operations and uploads.
	Workspace string `yaml:"workspace"`

	// Telegram gateway.
	TelegramToken string  `yaml:"telegram_token"`
	AllowedUsers  []int64 `yaml:"allowed_users"`

	// MCP / health / metrics HTTP server.
	ServeAddr string `yaml:"serve_addr"`

	// Code execution sandbox. When set, execute_code runs inside this
	// long-running container instead of a local subprocess.
	SandboxContainer string `yaml:"sandbox_container"`
	CodeTimeoutSec   int    `yaml:"code_timeout_sec"`

	// GitHub tool.
	GitHubToken string `yaml:"github_token"`
	GitHubUser  string `yaml:"github_user"`
}

// Load reads the config file at path (if it exists), applies environment
// overrides, and fills in defaults. An empty path checks apex.yaml in the
// working directory.
func Load(path string) (*Config, error) {
	LoadDotenv(".env")

	cfg := &Config{}

	if path == "" {
		path = "apex.yaml"
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Config file is optional; env vars carry everything.
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	envStr(&c.APIKey, "APEX_API_KEY")
	envStr(&c.APIURL, "APEX_API_URL")
	envStr(&c.Model, "APEX_MODEL")
	envStr(&c.FallbackModel, "APEX_FALLBACK_MODEL")
	envInt(&c.MaxTokens, "APEX_MAX_TOKENS")
	envInt(&c.MaxRounds, "APEX_MAX_ROUNDS")
	envStr(&c.Workspace, "APEX_WORKSPACE")
	envStr(&c.TelegramToken, "TELEGRAM_BOT_TOKEN")
	envStr(&c.ServeAddr, "APEX_SERVE_ADDR")
	envStr(&c.SandboxContainer, "APEX_SANDBOX_CONTAINER")
	envInt(&c.CodeTimeoutSec, "APEX_CODE_TIMEOUT_SEC")
	envStr(&c.GitHubToken, "GITHUB_TOKEN")
	envStr(&c.GitHubUser, "GITHUB_USER")

	if v := os.Getenv("APEX_ALLOWED_USERS"); v != "" {
		var ids []int64
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if id, err := strconv.ParseInt(part, 10, 64); err == nil {
				ids = append(ids, id)
			}
		}
		if len(ids) > 0 {
			c.AllowedUsers = ids
		}
	}
}

func (c *Config) applyDefaults() {
	if c.MaxRounds <= 0 {
		c.MaxRounds = defaultMaxRounds
	}
	if c.Workspace == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		c.Workspace = filepath.Join(home, "apex_workspace")
	}
	if c.ServeAddr == "" {
		c.ServeAddr = defaultServeAddr
	}
	if c.CodeTimeoutSec <= 0 {
		c.CodeTimeoutSec = defaultCodeTimeout
	}
}

// UserAllowed reports whether a Telegram user may talk to the agent.
// An empty allowlist permits everyone.
func (c *Config) UserAllowed(id int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, allowed := range c.AllowedUsers {
		if allowed == id {
			return true
		}
	}
	return false
}

func envStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// LoadDotenv loads a .env file into the environment if it exists.
// Existing variables are never overridden.
func LoadDotenv(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
}
