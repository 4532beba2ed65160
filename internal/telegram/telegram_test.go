package telegram

import (
	"strings"
	"testing"

	"github.com/apex-agent/apex/internal/bus"
	"github.com/apex-agent/apex/internal/config"
)

func TestNewRequiresToken(t *testing.T) {
	cfg := &config.Config{}
	_, err := New(cfg, bus.New(), nil, nil)
	if err == nil || !strings.Contains(err.Error(), "TELEGRAM_BOT_TOKEN") {
		t.Errorf("err = %v, want token guidance", err)
	}
}
