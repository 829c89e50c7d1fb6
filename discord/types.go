package discord

import (
	"strconv"
	"time"
)

// Channel types (subset the bot cares about).
const (
	ChannelTypeGuildText     = 0
	ChannelTypeDM            = 1
	ChannelTypePublicThread  = 11
	ChannelTypePrivateThread = 12
)

// Interaction types.
const (
	InteractionTypePing             = 1
	InteractionTypeCommand          = 2
	InteractionTypeMessageComponent = 3
)

// Interaction callback types.
const (
	ResponseTypePong           = 1
	ResponseTypeChannelMessage = 4
	ResponseTypeDeferredUpdate = 6
	ResponseTypeUpdateMessage  = 7
)

// Component types and button styles.
const (
	ComponentTypeActionRow = 1
	ComponentTypeButton    = 2

	ButtonStylePrimary   = 1
	ButtonStyleSecondary = 2
	ButtonStyleDanger    = 4
)

const MessageFlagEphemeral = 1 << 6

// Permission bits (subset).
const PermissionManageMessages int64 = 1 << 13

type User struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
	Bot      bool   `json:"bot,omitempty"`
	System   bool   `json:"system,omitempty"`
}

type Member struct {
	User *User `json:"user,omitempty"`
	// Permissions is the member's resolved permission bitfield, serialized
	// as a decimal string by the platform.
	Permissions string `json:"permissions,omitempty"`
}

// HasPermission reports whether the member's resolved permissions include
// the given bit. Unparseable bitfields count as no permission.
func (m *Member) HasPermission(bit int64) bool {
	if m == nil || m.Permissions == "" {
		return false
	}
	perms, err := strconv.ParseInt(m.Permissions, 10, 64)
	if err != nil {
		return false
	}
	return perms&bit != 0
}

type Message struct {
	ID          string    `json:"id"`
	ChannelID   string    `json:"channel_id"`
	GuildID     string    `json:"guild_id,omitempty"`
	Author      *User     `json:"author,omitempty"`
	Content     string    `json:"content,omitempty"`
	Timestamp   time.Time `json:"timestamp,omitempty"`
	Mentions    []User    `json:"mentions,omitempty"`
	ChannelType int       `json:"-"`
}

type MessageReference struct {
	MessageID string `json:"message_id,omitempty"`
	ChannelID string `json:"channel_id,omitempty"`
}

type Component struct {
	Type       int         `json:"type"`
	Style      int         `json:"style,omitempty"`
	Label      string      `json:"label,omitempty"`
	CustomID   string      `json:"custom_id,omitempty"`
	Disabled   bool        `json:"disabled,omitempty"`
	Components []Component `json:"components,omitempty"`
}

func ActionRow(buttons ...Component) Component {
	return Component{Type: ComponentTypeActionRow, Components: buttons}
}

func Button(style int, customID, label string, disabled bool) Component {
	return Component{
		Type:     ComponentTypeButton,
		Style:    style,
		CustomID: customID,
		Label:    label,
		Disabled: disabled,
	}
}

type CreateMessageParams struct {
	Content          string            `json:"content,omitempty"`
	MessageReference *MessageReference `json:"message_reference,omitempty"`
	Components       []Component       `json:"components,omitempty"`
}

type InteractionOption struct {
	Name  string      `json:"name"`
	Type  int         `json:"type,omitempty"`
	Value interface{} `json:"value,omitempty"`
}

// IntValue coerces the option value to an int64; JSON numbers arrive as
// float64.
func (o InteractionOption) IntValue() (int64, bool) {
	switch v := o.Value.(type) {
	case float64:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

type InteractionData struct {
	Name          string              `json:"name,omitempty"`
	CustomID      string              `json:"custom_id,omitempty"`
	ComponentType int                 `json:"component_type,omitempty"`
	Options       []InteractionOption `json:"options,omitempty"`
}

type Interaction struct {
	ID        string           `json:"id"`
	Type      int              `json:"type"`
	Token     string           `json:"token"`
	Data      *InteractionData `json:"data,omitempty"`
	GuildID   string           `json:"guild_id,omitempty"`
	ChannelID string           `json:"channel_id,omitempty"`
	Member    *Member          `json:"member,omitempty"`
	User      *User            `json:"user,omitempty"`
	Message   *Message         `json:"message,omitempty"`
}

// UserID returns the invoking user's id regardless of whether the
// interaction arrived from a guild (Member) or a DM (User).
func (i *Interaction) UserID() string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// Option returns the named command option.
func (i *Interaction) Option(name string) (InteractionOption, bool) {
	if i.Data == nil {
		return InteractionOption{}, false
	}
	for _, opt := range i.Data.Options {
		if opt.Name == name {
			return opt, true
		}
	}
	return InteractionOption{}, false
}

type InteractionResponseData struct {
	Content    string      `json:"content,omitempty"`
	Flags      int         `json:"flags,omitempty"`
	Components []Component `json:"components,omitempty"`
}

type InteractionResponse struct {
	Type int                      `json:"type"`
	Data *InteractionResponseData `json:"data,omitempty"`
}

// EphemeralReply builds a channel-message response only the invoking user
// can see.
func EphemeralReply(content string, components ...Component) InteractionResponse {
	return InteractionResponse{
		Type: ResponseTypeChannelMessage,
		Data: &InteractionResponseData{
			Content:    content,
			Flags:      MessageFlagEphemeral,
			Components: components,
		},
	}
}

// UpdateMessage builds a response that edits the message the pressed
// component lives on.
func UpdateMessage(content string, components ...Component) InteractionResponse {
	return InteractionResponse{
		Type: ResponseTypeUpdateMessage,
		Data: &InteractionResponseData{
			Content:    content,
			Components: components,
		},
	}
}
