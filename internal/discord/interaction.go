// Package discord serves chat commands as Discord interactions.
package discord

import (
	"bytes"
	"encoding/json"

	"l2-tipbot/internal/command"
)

// InteractionType is the kind of an incoming interaction.
type InteractionType int

const (
	InteractionPing               InteractionType = 1
	InteractionApplicationCommand InteractionType = 2
)

// ResponseType is the kind of an interaction acknowledgement.
type ResponseType int

const (
	ResponsePong ResponseType = 1
	// ResponseDeferredMessage shows a loading state until the original
	// response is edited through the webhook API.
	ResponseDeferredMessage ResponseType = 5
)

// Interaction is the subset of an interaction payload the bot reads.
type Interaction struct {
	ID            string          `json:"id"`
	ApplicationID string          `json:"application_id"`
	Type          InteractionType `json:"type"`
	Token         string          `json:"token"`
	GuildID       string          `json:"guild_id,omitempty"`
	ChannelID     string          `json:"channel_id,omitempty"`
	Data          *CommandData    `json:"data,omitempty"`
	Member        *Member         `json:"member,omitempty"`
	User          *User           `json:"user,omitempty"`
}

// CommandData is the invoked command and its options.
type CommandData struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Options []CommandOption `json:"options,omitempty"`
}

// CommandOption holds the raw JSON value so numbers keep the exact text
// the user typed.
type CommandOption struct {
	Name  string          `json:"name"`
	Type  int             `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Member is a guild member; User is set on it for guild interactions.
type Member struct {
	User *User `json:"user,omitempty"`
}

// User is a Discord user.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
}

// InteractionResponse acknowledges an interaction.
type InteractionResponse struct {
	Type ResponseType `json:"type"`
}

// ActorID returns the invoking user: the member in guilds, the user in DMs.
func (i Interaction) ActorID() string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// Command converts the interaction into a transport-neutral command.
// A boolean option set to false counts as absent.
func (i Interaction) Command() command.Raw {
	raw := command.Raw{ActorID: i.ActorID()}
	if i.Data == nil {
		return raw
	}
	raw.Name = i.Data.Name
	for _, opt := range i.Data.Options {
		value, ok := optionText(opt.Value)
		if !ok {
			continue
		}
		raw.Options = append(raw.Options, command.Option{Name: opt.Name, Value: value})
	}
	return raw
}

func optionText(v json.RawMessage) (string, bool) {
	v = bytes.TrimSpace(v)
	switch {
	case len(v) == 0, bytes.Equal(v, []byte("null")), bytes.Equal(v, []byte("false")):
		return "", false
	case v[0] == '"':
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return "", false
		}
		return s, true
	}
	return string(v), true
}
