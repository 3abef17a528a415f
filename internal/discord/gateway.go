package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"nhooyr.io/websocket" //nolint:staticcheck // TODO: migrate to github.com/coder/websocket

	"github.com/copilotbot/copilot/internal/bot"
)

// EventHandler receives one pipeline event per inbound message. The
// gateway calls it on its own goroutine per event.
type EventHandler interface {
	HandleEvent(ctx context.Context, event bot.Event)
}

// Gateway maintains the Discord websocket session: identify, heartbeat,
// dispatch, and reconnect with backoff. Resuming and sharding are not
// implemented; a dropped session is replaced by a fresh identify.
type Gateway struct {
	token   string
	url     string
	handler EventHandler

	mu        sync.RWMutex
	botUserID string
}

// NewGateway creates a gateway client. url is the websocket endpoint,
// normally wss://gateway.discord.gg.
func NewGateway(token, url string, handler EventHandler) *Gateway {
	return &Gateway{token: token, url: url, handler: handler}
}

// BotUserID returns the connected bot's user ID, or "" before READY.
func (g *Gateway) BotUserID() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.botUserID
}

// Run connects and processes events until ctx is cancelled. Dropped
// connections are re-established with exponential backoff capped at one
// minute; the backoff resets after a session that reached READY.
func (g *Gateway) Run(ctx context.Context) error {
	backoff := time.Second
	const maxBackoff = time.Minute

	for {
		ready, err := g.runSession(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			log.Printf("gateway: session ended: %v", err)
		}
		if ready {
			backoff = time.Second
		}

		log.Printf("gateway: reconnecting in %s", backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < maxBackoff {
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
}

// runSession drives one websocket connection from dial to close. It
// returns whether the session reached READY.
func (g *Gateway) runSession(ctx context.Context) (bool, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	conn, _, err := websocket.Dial(dialCtx, g.url+"/?v=10&encoding=json", nil) //nolint:staticcheck
	cancel()
	if err != nil {
		return false, fmt.Errorf("dial gateway: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "") //nolint:staticcheck
	conn.SetReadLimit(1 << 22)

	// The server speaks first with Hello.
	hello, err := g.readPayload(ctx, conn)
	if err != nil {
		return false, fmt.Errorf("read hello: %w", err)
	}
	if hello.Op != opHello {
		return false, fmt.Errorf("expected hello opcode, got %d", hello.Op)
	}
	var helloBody helloData
	if err := json.Unmarshal(hello.Data, &helloBody); err != nil {
		return false, fmt.Errorf("decode hello: %w", err)
	}

	if err := g.writePayload(ctx, conn, payload{
		Op: opIdentify,
		Data: mustMarshal(identifyData{
			Token:   g.token,
			Intents: identifyIntents,
			Properties: identifyProperties{
				OS:      "linux",
				Browser: "copilot",
				Device:  "copilot",
			},
		}),
	}); err != nil {
		return false, fmt.Errorf("send identify: %w", err)
	}

	sessionCtx, stop := context.WithCancel(ctx)
	defer stop()

	var lastSequence int64
	var seqMu sync.Mutex

	heartbeatErr := make(chan error, 1)
	go func() {
		interval := time.Duration(helloBody.HeartbeatInterval) * time.Millisecond
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-sessionCtx.Done():
				return
			case <-ticker.C:
				seqMu.Lock()
				seq := lastSequence
				seqMu.Unlock()
				beat := payload{Op: opHeartbeat}
				if seq > 0 {
					beat.Data = mustMarshal(seq)
				}
				if err := g.writePayload(sessionCtx, conn, beat); err != nil {
					heartbeatErr <- fmt.Errorf("send heartbeat: %w", err)
					return
				}
			}
		}
	}()

	ready := false
	for {
		select {
		case err := <-heartbeatErr:
			return ready, err
		default:
		}

		msg, err := g.readPayload(sessionCtx, conn)
		if err != nil {
			return ready, fmt.Errorf("read payload: %w", err)
		}
		if msg.Sequence != nil {
			seqMu.Lock()
			lastSequence = *msg.Sequence
			seqMu.Unlock()
		}

		switch msg.Op {
		case opDispatch:
			if msg.Type == "READY" {
				ready = true
			}
			g.handleDispatch(ctx, msg)
		case opHeartbeat:
			// Server asked for an immediate heartbeat.
			seqMu.Lock()
			seq := lastSequence
			seqMu.Unlock()
			beat := payload{Op: opHeartbeat}
			if seq > 0 {
				beat.Data = mustMarshal(seq)
			}
			if err := g.writePayload(sessionCtx, conn, beat); err != nil {
				return ready, fmt.Errorf("send requested heartbeat: %w", err)
			}
		case opReconnect, opInvalidSession:
			return ready, errors.New("server requested reconnect")
		case opHeartbeatACK:
			// nothing to do
		}
	}
}

// handleDispatch routes one dispatch event. Unknown event types are
// ignored.
func (g *Gateway) handleDispatch(ctx context.Context, msg payload) {
	switch msg.Type {
	case "READY":
		var body readyData
		if err := json.Unmarshal(msg.Data, &body); err != nil {
			log.Printf("gateway: decode READY: %v", err)
			return
		}
		g.mu.Lock()
		g.botUserID = body.User.ID
		g.mu.Unlock()
		log.Printf("gateway: connected as user %s", body.User.ID)

	case "MESSAGE_CREATE":
		var message Message
		if err := json.Unmarshal(msg.Data, &message); err != nil {
			log.Printf("gateway: decode MESSAGE_CREATE: %v", err)
			return
		}
		event := g.toEvent(message)
		go g.handler.HandleEvent(ctx, event)
	}
}

// toEvent reduces a Discord message to the pipeline's event shape. The
// bot's own messages are marked as bot-authored even if Discord ever
// omits the author bot flag.
func (g *Gateway) toEvent(message Message) bot.Event {
	botID := g.BotUserID()
	return bot.Event{
		AuthorIsBot: message.Author.Bot || (botID != "" && message.Author.ID == botID),
		ChannelID:   message.ChannelID,
		GuildID:     message.GuildID,
		MentionsBot: botID != "" && message.MentionsUser(botID),
		Content:     message.Content,
	}
}

func (g *Gateway) readPayload(ctx context.Context, conn *websocket.Conn) (payload, error) { //nolint:staticcheck
	var msg payload
	_, data, err := conn.Read(ctx)
	if err != nil {
		return msg, err
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("decode frame: %w", err)
	}
	return msg, nil
}

func (g *Gateway) writePayload(ctx context.Context, conn *websocket.Conn, msg payload) error { //nolint:staticcheck
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
