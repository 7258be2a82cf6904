package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"squadflow/pkg/api"
	"squadflow/pkg/convo"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramConfig encapsulates the credentials required to authenticate with
// the Telegram Bot API.
type TelegramConfig struct {
	Token string `json:"token"` // The secret BOT API string provided by @BotFather
}

// TelegramChannel is the gateway.Channel implementation for Telegram.
// Text only: incoming updates become user messages, conversation turns
// are rendered as formatted message bubbles, long replies are split.
type TelegramChannel struct {
	config       TelegramConfig
	bot          *tgbotapi.BotAPI
	messageLimit int
	stopCtx      context.Context    // Context used to abort the long-polling HTTP request
	stopCancel   context.CancelFunc // Function to trigger the abort
}

func NewTelegramChannel(cfg TelegramConfig, msgLimit int) (api.Channel, error) {
	ctx, cancel := context.WithCancel(context.Background())

	// Tie the dialer to stopCtx so an active long-poll request aborts
	// immediately on Stop(), preventing a 409 Conflict on restart.
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	botHttpClient := &http.Client{
		Timeout: 90 * time.Second,
		Transport: &http.Transport{
			DialContext: func(dialCtx context.Context, network, addr string) (net.Conn, error) {
				mergedCtx, mergedCancel := context.WithCancel(dialCtx)
				go func() {
					select {
					case <-ctx.Done():
						mergedCancel()
					case <-mergedCtx.Done():
					}
				}()
				return dialer.DialContext(mergedCtx, network, addr)
			},
			ForceAttemptHTTP2:   true,
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint, botHttpClient)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	slog.Info("Telegram bot authorized", "username", bot.Self.UserName)

	return &TelegramChannel{
		config:       cfg,
		bot:          bot,
		messageLimit: msgLimit,
		stopCtx:      ctx,
		stopCancel:   cancel,
	}, nil
}

// ID returns the unique platform identifier "telegram".
func (t *TelegramChannel) ID() string {
	return "telegram"
}

// Start initiates the long-polling update loop in a background goroutine.
func (t *TelegramChannel) Start(ctx api.ChannelContext) error {
	offset := 0

	go func() {
		for {
			select {
			case <-t.stopCtx.Done():
				return
			default:
			}

			reqConfig := tgbotapi.NewUpdate(offset)
			reqConfig.Timeout = 60

			updates, err := t.bot.GetUpdates(reqConfig)
			if err != nil {
				select {
				case <-t.stopCtx.Done():
					return
				default:
					slog.Debug("Failed to get telegram updates", "error", err)
					time.Sleep(3 * time.Second)
					continue
				}
			}

			for _, update := range updates {
				if update.UpdateID < offset {
					continue
				}
				offset = update.UpdateID + 1

				if update.Message == nil || update.Message.Text == "" {
					continue
				}

				session := api.SessionContext{
					ChannelID: "telegram",
					UserID:    strconv.FormatInt(update.Message.From.ID, 10),
					ChatID:    strconv.FormatInt(update.Message.Chat.ID, 10),
					Username:  update.Message.From.UserName,
				}

				msg := &api.UnifiedMessage{
					Session: session,
					Content: update.Message.Text,
				}
				if update.Message.Text == "/reset" {
					msg.Reset = true
					msg.Content = ""
				}

				ctx.OnMessage(t.ID(), msg)
			}
		}
	}()

	return nil
}

func (t *TelegramChannel) Stop() error {
	t.stopCancel()

	if httpClient, ok := t.bot.Client.(*http.Client); ok && httpClient != nil {
		if transport, ok := httpClient.Transport.(*http.Transport); ok {
			transport.CloseIdleConnections()
		}
	}
	return nil
}

// SendSignal implements the gateway.SignalingChannel interface
func (t *TelegramChannel) SendSignal(session api.SessionContext, signal string) error {
	switch {
	case signal == "working":
		chatID, err := strconv.ParseInt(session.ChatID, 10, 64)
		if err != nil {
			return err
		}
		action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
		_, err = t.bot.Send(action)
		return err
	case signal == "reset":
		return t.Send(session, "Conversation restarted.")
	case strings.HasPrefix(signal, "error:"):
		return t.Send(session, "❌ "+strings.TrimPrefix(signal, "error:"))
	}
	return nil
}

// SendTurn renders a conversation turn as a Telegram message. User
// turns echo back from the same chat and are skipped.
func (t *TelegramChannel) SendTurn(session api.SessionContext, turn convo.Turn) error {
	switch turn.Role {
	case convo.RoleUser:
		return nil
	case convo.RoleTransfer:
		if turn.Transfer == nil {
			return nil
		}
		return t.Send(session, fmt.Sprintf("🔀 Handing off to %s: %s", turn.Transfer.Target, turn.Transfer.Reason))
	case convo.RoleTool:
		if turn.ToolCall == nil {
			return nil
		}
		return t.Send(session, fmt.Sprintf("🛠️ Calling %s…", turn.ToolCall.Name))
	case convo.RoleToolResult:
		if turn.ToolResult == nil {
			return nil
		}
		return t.Send(session, fmt.Sprintf("🛠️ %s → %s", turn.ToolResult.Name, turn.ToolResult.Output))
	case convo.RolePlan:
		return t.Send(session, "📋 Plan:\n"+turn.Text)
	default:
		return t.Send(session, turn.Text)
	}
}

func (t *TelegramChannel) Send(session api.SessionContext, message string) error {
	// Telegram Chat ID must be int64
	chatID, err := strconv.ParseInt(session.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id for telegram: %s", session.ChatID)
	}

	for i, chunk := range splitMessage(message, t.messageLimit) {
		msg := tgbotapi.NewMessage(chatID, chunk)
		if _, err := t.bot.Send(msg); err != nil {
			return fmt.Errorf("telegram send failed at chunk %d: %w", i, err)
		}
	}

	return nil
}

// splitMessage chunks a message at the platform character limit. The
// split is rune-based so multi-byte text never tears mid-character.
func splitMessage(message string, limit int) []string {
	runes := []rune(message)
	if len(runes) <= limit {
		return []string{message}
	}

	var chunks []string
	for i := 0; i < len(runes); i += limit {
		end := i + limit
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}
