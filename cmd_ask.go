package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/apex-agent/apex/internal/agent"
	"github.com/apex-agent/apex/internal/config"
	"github.com/apex-agent/apex/internal/files"
	"github.com/apex-agent/apex/internal/provider"
	"github.com/apex-agent/apex/internal/registry"
	"github.com/apex-agent/apex/internal/tools"
)

// runAsk answers a single prompt on the command line and exits.
func runAsk(cfg *config.Config, log *slog.Logger) {
	prompt, err := readPrompt()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ask: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := files.NewStore(cfg.Workspace)
	if err != nil {
		log.Error("workspace init failed", "error", err)
		os.Exit(1)
	}

	reg := registry.NewRegistry()
	tools.RegisterAll(ctx, reg, tools.Deps{Cfg: cfg, Workspace: store}, log)

	orc := agent.New(provider.NewFromEnv(), reg,
		agent.WithMaxRounds(cfg.MaxRounds),
		agent.WithSystemPrompt(agent.BuildSystemPrompt(store.Root())),
		agent.WithLogger(log),
	)

	reply, err := orc.SubmitTurn(ctx, prompt, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "ask: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(reply)
}

// readPrompt joins the non-flag arguments, or reads stdin when the prompt
// is "-".
func readPrompt() (string, error) {
	var parts []string
	args := os.Args[2:]
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--config" {
			i++ // skip the flag's value too
			continue
		}
		if strings.HasPrefix(a, "--") {
			continue
		}
		parts = append(parts, a)
	}
	prompt := strings.TrimSpace(strings.Join(parts, " "))

	if prompt == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		prompt = strings.TrimSpace(string(data))
	}
	if prompt == "" {
		return "", fmt.Errorf("empty prompt (usage: apex ask <prompt>)")
	}
	return prompt, nil
}
