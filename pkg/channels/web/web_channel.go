package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"squadflow/pkg/api"
	"squadflow/pkg/convo"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for decoupled UI
	},
}

type WebConfig struct {
	Port int `json:"port"` // Default: 8080
}

// incomingMessage is the JSON frame sent by the browser UI.
type incomingMessage struct {
	Text  string `json:"text"`
	Reset bool   `json:"reset,omitempty"`
}

// SafeConn serializes writes to one websocket connection.
type SafeConn struct {
	*websocket.Conn
	mu sync.Mutex
}

func (sc *SafeConn) WriteMessage(messageType int, data []byte) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.Conn.WriteMessage(messageType, data)
}

// WebChannel serves the browser UI over websockets. Every conversation
// turn is pushed as a structured JSON event so the UI can render
// transfers and tool calls distinctly from plain replies.
type WebChannel struct {
	config      WebConfig
	server      *http.Server
	log         *convo.Log           // Conversation log replayed to new connections
	connections map[string]*SafeConn // Map UserID -> WS Connection
	mu          sync.RWMutex
}

func NewWebChannel(cfg WebConfig, log *convo.Log) *WebChannel {
	return &WebChannel{
		config:      cfg,
		log:         log,
		connections: make(map[string]*SafeConn),
	}
}

func (c *WebChannel) ID() string {
	return "web"
}

func (c *WebChannel) Start(ctx api.ChannelContext) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		c.handleWebSocket(w, r, ctx)
	})

	addr := fmt.Sprintf(":%d", c.config.Port)
	c.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	slog.Info("Web API listening", "port", c.config.Port)

	go func() {
		if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Web API server error", "error", err)
		}
	}()

	return nil
}

func (c *WebChannel) Stop() error {
	if c.server != nil {
		return c.server.Close()
	}
	return nil
}

func (c *WebChannel) conn(userID string) (*SafeConn, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	conn, ok := c.connections[userID]
	return conn, ok
}

func (c *WebChannel) writeEvent(userID string, event map[string]any) error {
	conn, ok := c.conn(userID)
	if !ok {
		return fmt.Errorf("web user %s not connected", userID)
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (c *WebChannel) Send(session api.SessionContext, message string) error {
	return c.writeEvent(session.UserID, map[string]any{
		"type": "text",
		"text": message,
	})
}

// SendTurn implements gateway.Channel.SendTurn
func (c *WebChannel) SendTurn(session api.SessionContext, turn convo.Turn) error {
	return c.writeEvent(session.UserID, map[string]any{
		"type": "turn",
		"turn": turn,
	})
}

// SendSignal implements the gateway.SignalingChannel interface
func (c *WebChannel) SendSignal(session api.SessionContext, signal string) error {
	return c.writeEvent(session.UserID, map[string]any{
		"type":  "signal",
		"value": signal,
	})
}

func (c *WebChannel) handleWebSocket(w http.ResponseWriter, r *http.Request, ctx api.ChannelContext) {
	rawConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WS Upgrade failed", "error", err)
		return
	}

	conn := &SafeConn{Conn: rawConn}
	userID := r.RemoteAddr

	c.mu.Lock()
	c.connections[userID] = conn
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.connections, userID)
		c.mu.Unlock()
		conn.Close()
	}()

	// Replay the conversation so a reconnecting UI catches up.
	if turns := c.log.Turns(); len(turns) > 0 {
		if err := c.writeEvent(userID, map[string]any{
			"type": "history",
			"data": turns,
		}); err != nil {
			slog.Error("Failed to replay history", "error", err)
		}
	}

	session := api.SessionContext{
		ChannelID: "web",
		UserID:    userID,
		ChatID:    "global",
		Username:  "WebUser",
	}

	for {
		_, msgBytes, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var incoming incomingMessage
		if err := json.Unmarshal(msgBytes, &incoming); err != nil {
			// Plain text fallback for simple clients.
			incoming = incomingMessage{Text: string(msgBytes)}
		}

		ctx.OnMessage(c.ID(), &api.UnifiedMessage{
			Session: session,
			Content: incoming.Text,
			Reset:   incoming.Reset,
		})
	}
}
