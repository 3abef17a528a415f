// Package discord is the platform connector: a gateway client that
// receives message events over the Discord websocket and a REST client
// that sends replies and typing indicators back.
package discord

import "encoding/json"

// Gateway opcodes used by the client. Discord defines more; the client
// only sends Identify and Heartbeat and reacts to the ones below.
const (
	opDispatch       = 0
	opHeartbeat      = 1
	opIdentify       = 2
	opReconnect      = 7
	opInvalidSession = 9
	opHello          = 10
	opHeartbeatACK   = 11
)

// Gateway intents requested at identify time. The bot needs guild and DM
// message streams plus message content.
const (
	intentGuilds         = 1 << 0
	intentGuildMessages  = 1 << 9
	intentDirectMessages = 1 << 12
	intentMessageContent = 1 << 15

	identifyIntents = intentGuilds | intentGuildMessages | intentDirectMessages | intentMessageContent
)

// payload is the envelope every gateway frame uses.
type payload struct {
	Op       int             `json:"op"`
	Data     json.RawMessage `json:"d,omitempty"`
	Sequence *int64          `json:"s,omitempty"`
	Type     string          `json:"t,omitempty"`
}

type helloData struct {
	HeartbeatInterval int `json:"heartbeat_interval"`
}

type identifyData struct {
	Token      string             `json:"token"`
	Intents    int                `json:"intents"`
	Properties identifyProperties `json:"properties"`
}

type identifyProperties struct {
	OS      string `json:"os"`
	Browser string `json:"browser"`
	Device  string `json:"device"`
}

type readyData struct {
	User User `json:"user"`
}

// User is a Discord user as it appears in gateway payloads.
type User struct {
	ID  string `json:"id"`
	Bot bool   `json:"bot"`
}

// Message is a MESSAGE_CREATE dispatch payload reduced to the fields the
// pipeline needs.
type Message struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	GuildID   string `json:"guild_id"`
	Content   string `json:"content"`
	Author    User   `json:"author"`
	Mentions  []User `json:"mentions"`
}

// MentionsUser reports whether the message explicitly mentions the given
// user ID.
func (m Message) MentionsUser(userID string) bool {
	for _, u := range m.Mentions {
		if u.ID == userID {
			return true
		}
	}
	return false
}
