package agent

import (
	"context"
	"testing"

	"github.com/apex-agent/apex/internal/registry"
)

func TestManager_PerChatIsolation(t *testing.T) {
	p := &mockProvider{responses: []mockResponse{
		textResp("answer for alice"),
		textResp("answer for bob"),
	}}
	m := NewManager(p, registry.NewRegistry())

	alice := m.Get("alice")
	bob := m.Get("bob")
	if alice == bob {
		t.Fatal("distinct chat IDs must get distinct orchestrators")
	}

	if _, err := alice.SubmitTurn(context.Background(), "hi from alice", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := bob.SubmitTurn(context.Background(), "hi from bob", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if alice.Len() != 2 || bob.Len() != 2 {
		t.Errorf("history lengths: alice=%d bob=%d, want 2 each", alice.Len(), bob.Len())
	}
	if alice.History()[0].Content[0].Text != "hi from alice" {
		t.Error("alice's history holds someone else's turn")
	}
}

func TestManager_GetReturnsSameInstance(t *testing.T) {
	m := NewManager(&mockProvider{}, registry.NewRegistry())
	if m.Get("chat1") != m.Get("chat1") {
		t.Error("Get must return the same orchestrator for the same chat ID")
	}
	if m.Len() != 1 {
		t.Errorf("Len = %d, want 1", m.Len())
	}
}

func TestManager_Reset(t *testing.T) {
	p := &mockProvider{responses: []mockResponse{textResp("hi")}}
	m := NewManager(p, registry.NewRegistry())

	o := m.Get("chat1")
	if _, err := o.SubmitTurn(context.Background(), "hello", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.Reset("chat1")
	if o.Len() != 0 {
		t.Errorf("history length %d after reset, want 0", o.Len())
	}
	// Resetting an unknown chat is a no-op.
	m.Reset("ghost")
}

func TestManager_Delete(t *testing.T) {
	m := NewManager(&mockProvider{}, registry.NewRegistry())
	m.Get("chat1")
	m.Delete("chat1")
	if m.Len() != 0 {
		t.Errorf("Len = %d after delete, want 0", m.Len())
	}
}
