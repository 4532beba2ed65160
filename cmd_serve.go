package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/apex-agent/apex/internal/config"
	"github.com/apex-agent/apex/internal/files"
	"github.com/apex-agent/apex/internal/metrics"
	"github.com/apex-agent/apex/internal/registry"
	"github.com/apex-agent/apex/internal/tools"
)

// runServe exposes the agent's tools as an MCP server, over stdio or
// streamable HTTP with health and metrics endpoints.
func runServe(cfg *config.Config, log *slog.Logger) {
	stdio := hasFlag("--stdio")
	if stdio {
		// Keep stdout clean for the MCP transport.
		log = slog.New(slog.NewTextHandler(os.Stderr, nil))
		slog.SetDefault(log)
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

	server, err := buildMCPServer(reg, log)
	if err != nil {
		log.Error("MCP server init failed", "error", err)
		os.Exit(1)
	}
	log.Info("apex MCP server", "tools", reg.Len())

	if stdio {
		if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
			log.Error("stdio server failed", "error", err)
			os.Exit(1)
		}
		return
	}

	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, &mcp.StreamableHTTPOptions{Stateless: true})

	mx := http.NewServeMux()
	mx.Handle("/mcp", handler)
	mx.Handle("/mcp/", handler)
	mx.Handle("/metrics", metrics.Handler())
	mx.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"apex"}`))
	})

	srv := &http.Server{
		Addr:         cfg.ServeAddr,
		Handler:      mx,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	go func() {
		log.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
}
