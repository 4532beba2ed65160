package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/apex-agent/apex/internal/registry"
)

// RegisterAll constructs every tool and registers it. The code runner uses
// the configured sandbox container when the Docker daemon is reachable and
// falls back to a host subprocess otherwise.
func RegisterAll(ctx context.Context, reg *registry.Registry, deps Deps, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	ws := deps.Workspace
	client := deps.httpClient()
	search := newSearcher(client)

	var runner CodeRunner = subprocessRunner{}
	if name := deps.Cfg.SandboxContainer; name != "" {
		sandbox, err := newSandboxRunner(ctx, name)
		if err != nil {
			log.Warn("sandbox unavailable, code runs in a host subprocess",
				"container", name, "error", err)
		} else {
			log.Info("code execution sandboxed", "container", name)
			runner = sandbox
		}
	}

	all := []registry.Tool{
		&shellTool{ws: ws},
		&codeTool{
			runner:         runner,
			defaultTimeout: time.Duration(deps.Cfg.CodeTimeoutSec) * time.Second,
		},
		&pdfTool{ws: ws},
		&documentTool{ws: ws},
		&imageTool{ws: ws},
		&webSearchTool{search: search, client: client},
		&forumSearchTool{search: search},
		&deepResearchTool{search: search},
		&fetchURLTool{client: client},
		&githubTool{gh: &ghClient{
			http:    client,
			apiBase: defaultGitHubAPI,
			token:   deps.Cfg.GitHubToken,
			user:    deps.Cfg.GitHubUser,
		}},
		&videoTool{},
	}

	for _, t := range all {
		reg.Register(t)
	}
	log.Debug("tools registered", "count", len(all))
}
