package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/apex-agent/apex/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load(getFlagValue("--config"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	exportProviderEnv(cfg)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(),
	}))
	slog.SetDefault(logger)

	switch os.Args[1] {
	case "chat":
		runChat(cfg, logger)
	case "serve":
		runServe(cfg, logger)
	case "ask":
		runAsk(cfg, logger)
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `apex - conversational agent with tools

Usage:
  apex chat [--config apex.yaml]          Telegram gateway
  apex serve [--stdio] [--config ...]     MCP tool server (HTTP or stdio)
  apex ask <prompt> | apex ask -          One-shot question (- reads stdin)

Common flags:
  --config PATH   Config file (default apex.yaml, optional)
  --verbose       Debug logging
`)
}

func logLevel() slog.Level {
	if hasFlag("--verbose") {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// exportProviderEnv pushes file-config values into the environment so the
// env-driven provider constructors see them. Existing env vars win.
func exportProviderEnv(cfg *config.Config) {
	setIfEmpty("APEX_API_KEY", cfg.APIKey)
	setIfEmpty("APEX_API_URL", cfg.APIURL)
	setIfEmpty("APEX_MODEL", cfg.Model)
	setIfEmpty("APEX_FALLBACK_MODEL", cfg.FallbackModel)
	if cfg.MaxTokens > 0 {
		setIfEmpty("APEX_MAX_TOKENS", fmt.Sprintf("%d", cfg.MaxTokens))
	}
}

func setIfEmpty(key, value string) {
	if value != "" && os.Getenv(key) == "" {
		os.Setenv(key, value)
	}
}

// hasFlag checks if a flag exists in os.Args.
func hasFlag(flag string) bool {
	for _, a := range os.Args[2:] {
		if a == flag {
			return true
		}
	}
	return false
}

// getFlagValue returns the value after a flag (--flag value or --flag=value).
func getFlagValue(flag string) string {
	if len(os.Args) < 2 {
		return ""
	}
	args := os.Args[2:]
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(a, flag+"=") {
			return strings.TrimPrefix(a, flag+"=")
		}
	}
	return ""
}
