// Package telegram bridges Telegram chats to the message bus: inbound
// text and file uploads become bus messages, outbound replies are
// converted to Telegram HTML and chunked under the message size limit.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/apex-agent/apex/internal/bus"
	"github.com/apex-agent/apex/internal/config"
	"github.com/apex-agent/apex/internal/files"
)

const maxMessageLen = 4096

// Channel is the Telegram gateway.
type Channel struct {
	bot   *tgbotapi.BotAPI
	bus   *bus.Bus
	cfg   *config.Config
	store *files.Store
	log   *slog.Logger
	http  *http.Client
	ctx   context.Context

	// typing indicator cancellation per chat
	stopTyping sync.Map // chatID string → chan struct{}
}

// New connects to the Telegram Bot API using the configured token.
func New(cfg *config.Config, msgBus *bus.Bus, store *files.Store, log *slog.Logger) (*Channel, error) {
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("telegram token is not configured (TELEGRAM_BOT_TOKEN)")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Channel{
		bot:   bot,
		bus:   msgBus,
		cfg:   cfg,
		store: store,
		log:   log,
		http:  &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Start begins polling for updates and dispatching outbound replies.
func (c *Channel) Start(ctx context.Context) {
	c.ctx = ctx

	c.log.Info("telegram gateway started",
		"username", c.bot.Self.UserName,
		"allowed_users", len(c.cfg.AllowedUsers))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil {
					c.handleMessage(update.Message)
				}
			}
		}
	}()

	go func() {
		for {
			msg, ok := c.bus.SubscribeOutbound(ctx)
			if !ok {
				return
			}
			if msg.Channel != "telegram" {
				continue
			}
			c.sendReply(msg)
		}
	}()
}

func (c *Channel) handleMessage(msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	if !c.cfg.UserAllowed(msg.From.ID) {
		c.log.Warn("unauthorized telegram user", "user_id", msg.From.ID)
		return
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	filePath, fileName := c.saveAttachment(msg)
	if text == "" && filePath == "" {
		return // nothing usable in this update
	}
	if text == "" {
		text = "I uploaded a file."
	}

	chatID := strconv.FormatInt(msg.Chat.ID, 10)

	c.bot.Send(tgbotapi.NewChatAction(msg.Chat.ID, tgbotapi.ChatTyping))
	stopChan := make(chan struct{})
	c.stopTyping.Store(chatID, stopChan)
	go c.typingLoop(msg.Chat.ID, stopChan)

	c.bus.PublishInbound(bus.Message{
		ID:        fmt.Sprintf("tg-%d", msg.MessageID),
		Channel:   "telegram",
		SenderID:  strconv.FormatInt(msg.From.ID, 10),
		ChatID:    chatID,
		Text:      text,
		FilePath:  filePath,
		FileName:  fileName,
		Timestamp: time.Now(),
	})
}

// saveAttachment downloads a document or photo into the workspace and
// returns its stored path and original name, or empty strings.
func (c *Channel) saveAttachment(msg *tgbotapi.Message) (string, string) {
	var fileID, name string
	switch {
	case msg.Document != nil:
		fileID = msg.Document.FileID
		name = msg.Document.FileName
	case len(msg.Photo) > 0:
		// Telegram sends several sizes; the last is the largest.
		fileID = msg.Photo[len(msg.Photo)-1].FileID
		name = "photo.jpg"
	default:
		return "", ""
	}

	url, err := c.bot.GetFileDirectURL(fileID)
	if err != nil {
		c.log.Error("resolve telegram file", "error", err)
		return "", ""
	}
	resp, err := c.http.Get(url)
	if err != nil {
		c.log.Error("download telegram file", "error", err)
		return "", ""
	}
	defer resp.Body.Close()

	path, err := c.store.SaveUpload(name, resp.Body)
	if err != nil {
		c.log.Error("store telegram upload", "error", err)
		return "", ""
	}
	c.log.Info("stored upload", "name", name, "path", path)
	return path, name
}

func (c *Channel) sendReply(msg bus.Message) {
	chatID, err := strconv.ParseInt(msg.ChatID, 10, 64)
	if err != nil {
		c.log.Error("invalid chat ID", "chat_id", msg.ChatID)
		return
	}

	if stop, ok := c.stopTyping.LoadAndDelete(msg.ChatID); ok {
		if ch, ok := stop.(chan struct{}); ok {
			close(ch)
		}
	}

	text := sanitizeUTF8(msg.Text)
	if text == "" {
		return
	}

	// HTML first, plain text when Telegram rejects the markup.
	if err := c.sendChunked(chatID, renderHTML(text), tgbotapi.ModeHTML); err != nil {
		c.log.Warn("HTML send failed, retrying as plain text", "error", err)
		if err := c.sendChunked(chatID, renderPlain(text), ""); err != nil {
			c.log.Error("telegram send failed", "error", err)
		}
	}
}

func (c *Channel) sendChunked(chatID int64, text, parseMode string) error {
	for _, chunk := range splitMessage(text, maxMessageLen) {
		if chunk == "" {
			continue
		}
		tgMsg := tgbotapi.NewMessage(chatID, chunk)
		if parseMode != "" {
			tgMsg.ParseMode = parseMode
		}
		if _, err := c.bot.Send(tgMsg); err != nil {
			return err
		}
	}
	return nil
}

func (c *Channel) typingLoop(chatID int64, stop <-chan struct{}) {
	ticker := time.NewTicker(4 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.bot.Send(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
		}
	}
}
