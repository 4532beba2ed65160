package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/apex-agent/apex/internal/agent"
	"github.com/apex-agent/apex/internal/bus"
	"github.com/apex-agent/apex/internal/config"
	"github.com/apex-agent/apex/internal/files"
	"github.com/apex-agent/apex/internal/metrics"
	"github.com/apex-agent/apex/internal/provider"
	"github.com/apex-agent/apex/internal/registry"
	"github.com/apex-agent/apex/internal/telegram"
	"github.com/apex-agent/apex/internal/tools"
)

const resetConfirmation = "🔄 Conversation reset. Starting fresh."

// runChat starts the Telegram gateway: inbound messages become agent
// turns, replies go back through the bus.
func runChat(cfg *config.Config, log *slog.Logger) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := files.NewStore(cfg.Workspace)
	if err != nil {
		log.Error("workspace init failed", "error", err)
		os.Exit(1)
	}

	reg := registry.NewRegistry()
	tools.RegisterAll(ctx, reg, tools.Deps{Cfg: cfg, Workspace: store}, log)

	mgr := agent.NewManager(provider.NewFromEnv(), reg,
		agent.WithMaxRounds(cfg.MaxRounds),
		agent.WithSystemPrompt(agent.BuildSystemPrompt(store.Root())),
		agent.WithLogger(log),
	)

	msgBus := bus.New()
	defer msgBus.Close()

	gateway, err := telegram.New(cfg, msgBus, store, log)
	if err != nil {
		log.Error("telegram init failed", "error", err)
		os.Exit(1)
	}
	gateway.Start(ctx)

	go serveOps(ctx, cfg.ServeAddr, log)

	log.Info("chat gateway running",
		"tools", reg.Len(),
		"workspace", store.Root(),
		"max_rounds", cfg.MaxRounds)

	for {
		msg, ok := msgBus.ConsumeInbound(ctx)
		if !ok {
			log.Info("gateway stopped")
			return
		}
		go handleTurn(ctx, mgr, msgBus, msg, log)
	}
}

func handleTurn(ctx context.Context, mgr *agent.Manager, msgBus *bus.Bus, msg bus.Message, log *slog.Logger) {
	metrics.TurnsTotal.WithLabelValues(msg.Channel).Inc()

	reply := dispatchTurn(ctx, mgr, msg, log)
	msgBus.PublishOutbound(bus.Message{
		ID:        msg.ID + "-reply",
		Channel:   msg.Channel,
		ChatID:    msg.ChatID,
		Text:      reply,
		Timestamp: time.Now(),
	})
}

func dispatchTurn(ctx context.Context, mgr *agent.Manager, msg bus.Message, log *slog.Logger) string {
	switch strings.TrimSpace(msg.Text) {
	case "/start":
		return "👋 Hi! I'm APEX. Send me a task — I can run code, edit documents and images, " +
			"search the web, work with GitHub, and more. Use /reset to start over."
	case "/reset":
		mgr.Reset(msg.ChatID)
		return resetConfirmation
	}

	reply, err := mgr.Get(msg.ChatID).SubmitTurn(ctx, msg.Text, msg.FilePath)
	if err != nil {
		metrics.TurnErrors.WithLabelValues(msg.Channel).Inc()
		log.Error("turn failed", "chat_id", msg.ChatID, "error", err)
		return "⚠️ Something went wrong while processing your request. Please try again."
	}
	return reply
}

// serveOps exposes health and Prometheus metrics while the gateway runs.
func serveOps(ctx context.Context, addr string, log *slog.Logger) {
	mx := http.NewServeMux()
	mx.Handle("/metrics", metrics.Handler())
	mx.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"apex"}`))
	})

	srv := &http.Server{
		Addr:         addr,
		Handler:      mx,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info("ops endpoint listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("ops endpoint failed", "error", err)
	}
}
