package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Gateway intents the bot subscribes to.
const (
	IntentGuilds         = 1 << 0
	IntentGuildMessages  = 1 << 9
	IntentDirectMessages = 1 << 12
	IntentMessageContent = 1 << 15
)

// Gateway opcodes (subset).
const (
	opDispatch       = 0
	opHeartbeat      = 1
	opIdentify       = 2
	opReconnect      = 7
	opInvalidSession = 9
	opHello          = 10
	opHeartbeatACK   = 11
)

const reconnectDelay = 5 * time.Second

type gatewayPayload struct {
	Op int             `json:"op"`
	T  string          `json:"t,omitempty"`
	S  *int64          `json:"s,omitempty"`
	D  json.RawMessage `json:"d,omitempty"`
}

type readyEvent struct {
	User User `json:"user"`
}

// Handlers receives dispatched gateway events. Handlers run on the gateway
// read goroutine and must hand long work off immediately.
type Handlers struct {
	OnReady             func(botUser User)
	OnMessageCreate     func(msg Message)
	OnInteractionCreate func(inter Interaction)
}

// Gateway maintains the websocket session: identify, heartbeat, dispatch,
// reconnect. The connection handshake details stay inside this type; the
// rest of the bot only sees decoded events.
type Gateway struct {
	api      *API
	token    string
	intents  int
	logger   *slog.Logger
	handlers Handlers

	seq atomic.Int64
}

func NewGateway(api *API, token string, intents int, logger *slog.Logger, handlers Handlers) *Gateway {
	return &Gateway{
		api:      api,
		token:    token,
		intents:  intents,
		logger:   logger,
		handlers: handlers,
	}
}

// Run connects and processes events until ctx is canceled. Connection
// drops reconnect after a fixed delay; only context cancellation ends the
// loop.
func (g *Gateway) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := g.runSession(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			g.logger.Warn("gateway_session_error", "error", err.Error())
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

func (g *Gateway) runSession(ctx context.Context) error {
	gatewayURL, err := g.api.GetGatewayURL(ctx)
	if err != nil {
		return fmt.Errorf("resolve gateway url: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, gatewayURL+"?v=10&encoding=json", nil)
	if err != nil {
		return fmt.Errorf("dial gateway: %w", err)
	}
	defer conn.Close()

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// First frame must be hello with the heartbeat interval.
	var hello gatewayPayload
	if err := conn.ReadJSON(&hello); err != nil {
		return fmt.Errorf("read hello: %w", err)
	}
	if hello.Op != opHello {
		return fmt.Errorf("unexpected first opcode %d", hello.Op)
	}
	var helloData struct {
		HeartbeatInterval int64 `json:"heartbeat_interval"`
	}
	if err := json.Unmarshal(hello.D, &helloData); err != nil {
		return fmt.Errorf("parse hello: %w", err)
	}
	interval := time.Duration(helloData.HeartbeatInterval) * time.Millisecond
	if interval <= 0 {
		interval = 41250 * time.Millisecond
	}

	if err := g.identify(conn); err != nil {
		return fmt.Errorf("identify: %w", err)
	}

	go g.heartbeatLoop(sessionCtx, conn, interval)

	for {
		var payload gatewayPayload
		if err := conn.ReadJSON(&payload); err != nil {
			return fmt.Errorf("read frame: %w", err)
		}
		if payload.S != nil {
			g.seq.Store(*payload.S)
		}
		switch payload.Op {
		case opDispatch:
			g.dispatch(payload)
		case opHeartbeat:
			_ = g.sendHeartbeat(conn)
		case opHeartbeatACK:
			// nothing to track; a dead connection surfaces as a read error
		case opReconnect, opInvalidSession:
			g.logger.Info("gateway_reconnect_requested", "op", payload.Op)
			return nil
		}
	}
}

func (g *Gateway) identify(conn *websocket.Conn) error {
	identify := map[string]any{
		"op": opIdentify,
		"d": map[string]any{
			"token":   g.token,
			"intents": g.intents,
			"properties": map[string]string{
				"os":      "linux",
				"browser": "dcbot",
				"device":  "dcbot",
			},
		},
	}
	return conn.WriteJSON(identify)
}

func (g *Gateway) heartbeatLoop(ctx context.Context, conn *websocket.Conn, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := g.sendHeartbeat(conn); err != nil {
				g.logger.Warn("gateway_heartbeat_error", "error", err.Error())
				return
			}
		}
	}
}

func (g *Gateway) sendHeartbeat(conn *websocket.Conn) error {
	seq := g.seq.Load()
	var d any
	if seq > 0 {
		d = seq
	}
	return conn.WriteJSON(map[string]any{"op": opHeartbeat, "d": d})
}

func (g *Gateway) dispatch(payload gatewayPayload) {
	switch payload.T {
	case "READY":
		var ready readyEvent
		if err := json.Unmarshal(payload.D, &ready); err != nil {
			g.logger.Warn("gateway_ready_parse_error", "error", err.Error())
			return
		}
		g.logger.Info("gateway_ready", "bot_id", ready.User.ID, "bot_username", ready.User.Username)
		if g.handlers.OnReady != nil {
			g.handlers.OnReady(ready.User)
		}
	case "MESSAGE_CREATE":
		var msg Message
		if err := json.Unmarshal(payload.D, &msg); err != nil {
			g.logger.Warn("gateway_message_parse_error", "error", err.Error())
			return
		}
		if g.handlers.OnMessageCreate != nil {
			g.handlers.OnMessageCreate(msg)
		}
	case "INTERACTION_CREATE":
		var inter Interaction
		if err := json.Unmarshal(payload.D, &inter); err != nil {
			g.logger.Warn("gateway_interaction_parse_error", "error", err.Error())
			return
		}
		if g.handlers.OnInteractionCreate != nil {
			g.handlers.OnInteractionCreate(inter)
		}
	}
}
