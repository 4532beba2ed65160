package bus

import (
	"context"
	"testing"
	"time"
)

func TestPublishInbound_ConsumeInbound(t *testing.T) {
	b := New()
	defer b.Close()

	msg := Message{
		ID:        "msg-1",
		Channel:   "telegram",
		SenderID:  "user-42",
		ChatID:    "chat-99",
		Text:      "convert this to pdf",
		FilePath:  "/tmp/uploads/report.docx",
		FileName:  "report.docx",
		Timestamp: time.Now(),
	}

	b.PublishInbound(msg)

	got, ok := b.ConsumeInbound(context.Background())
	if !ok {
		t.Fatal("ConsumeInbound returned ok=false, want true")
	}
	if got.ID != msg.ID {
		t.Errorf("ID: got %q, want %q", got.ID, msg.ID)
	}
	if got.Text != msg.Text {
		t.Errorf("Text: got %q, want %q", got.Text, msg.Text)
	}
	if got.FilePath != msg.FilePath {
		t.Errorf("FilePath: got %q, want %q", got.FilePath, msg.FilePath)
	}
}

func TestPublishOutbound_SubscribeOutbound(t *testing.T) {
	b := New()
	defer b.Close()

	b.PublishOutbound(Message{ID: "out-1", Channel: "telegram", ChatID: "chat-99", Text: "done, saved to report.pdf"})

	got, ok := b.SubscribeOutbound(context.Background())
	if !ok {
		t.Fatal("SubscribeOutbound returned ok=false, want true")
	}
	if got.ID != "out-1" || got.ChatID != "chat-99" {
		t.Errorf("got %+v", got)
	}
}

func TestConsume_ContextCancellation(t *testing.T) {
	b := New()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, ok := b.ConsumeInbound(ctx); ok {
		t.Error("ConsumeInbound returned ok=true on cancelled context")
	}
	if _, ok := b.SubscribeOutbound(ctx); ok {
		t.Error("SubscribeOutbound returned ok=true on cancelled context")
	}
}

func TestConsumeInbound_TimeoutWhileBlocking(t *testing.T) {
	b := New()
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, ok := b.ConsumeInbound(ctx)
	if ok {
		t.Error("ConsumeInbound returned ok=true, want false after context timeout")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Errorf("ConsumeInbound blocked too long: %v", time.Since(start))
	}
}

func TestMessageOrdering(t *testing.T) {
	b := New()
	defer b.Close()

	texts := []string{"first", "second", "third", "fourth"}
	for _, text := range texts {
		b.PublishInbound(Message{Text: text})
	}

	for i, want := range texts {
		got, ok := b.ConsumeInbound(context.Background())
		if !ok {
			t.Fatalf("message %d: ConsumeInbound returned ok=false", i)
		}
		if got.Text != want {
			t.Errorf("message %d: got %q, want %q", i, got.Text, want)
		}
	}
}

func TestPublish_AfterClose_DoesNotBlock(t *testing.T) {
	b := New()
	b.Close()

	done := make(chan struct{})
	go func() {
		b.PublishInbound(Message{Text: "dropped"})
		b.PublishOutbound(Message{Text: "dropped"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("publish blocked after Close")
	}
}

func TestConsume_AfterClose(t *testing.T) {
	b := New()
	b.Close()

	if _, ok := b.ConsumeInbound(context.Background()); ok {
		t.Error("ConsumeInbound returned ok=true after Close")
	}
	if _, ok := b.SubscribeOutbound(context.Background()); ok {
		t.Error("SubscribeOutbound returned ok=true after Close")
	}
}

func TestClose_Idempotent(t *testing.T) {
	b := New()
	b.Close()
	b.Close()
}
