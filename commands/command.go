// Package commands defines the slash-command and button-handler contracts
// and the registry that routes inbound interactions to them.
package commands

import (
	"context"
	"log/slog"

	"github.com/iiimabbie/dcbot/boterr"
	"github.com/iiimabbie/dcbot/discord"
)

// Replier answers interactions. Satisfied by *discord.API.
type Replier interface {
	Respond(ctx context.Context, interactionID, token string, resp discord.InteractionResponse) error
}

// ChannelAPI is the platform surface commands need beyond replying.
type ChannelAPI interface {
	Replier
	CreateMessage(ctx context.Context, channelID string, params discord.CreateMessageParams) (*discord.Message, error)
	GetChannelMessages(ctx context.Context, channelID string, limit int, beforeID string) ([]discord.Message, error)
	BulkDeleteMessages(ctx context.Context, channelID string, messageIDs []string) error
}

type SlashCommand interface {
	Name() string
	Description() string
	Execute(ctx context.Context, inter discord.Interaction) error
}

// ButtonHandler handles component interactions. Handlers that do not own a
// component id report handled=false so the next handler in the chain gets
// a chance; they never treat a foreign id as an error.
type ButtonHandler interface {
	HandleButton(ctx context.Context, inter discord.Interaction) (bool, error)
}

// Registry routes interactions: commands by name, button presses through
// the handler chain.
type Registry struct {
	logger   *slog.Logger
	replier  Replier
	commands []SlashCommand
	byName   map[string]SlashCommand
	buttons  []ButtonHandler
}

func NewRegistry(logger *slog.Logger, replier Replier) *Registry {
	return &Registry{
		logger:  logger,
		replier: replier,
		byName:  make(map[string]SlashCommand),
	}
}

func (r *Registry) Register(cmd SlashCommand) {
	r.commands = append(r.commands, cmd)
	r.byName[cmd.Name()] = cmd
	if h, ok := cmd.(ButtonHandler); ok {
		r.buttons = append(r.buttons, h)
	}
}

// Commands returns the registered commands in registration order.
func (r *Registry) Commands() []SlashCommand {
	return append([]SlashCommand(nil), r.commands...)
}

// Dispatch routes one interaction. Failures are resolved to a fixed
// user-legible reply; nothing thrown by a handler escapes to the caller.
func (r *Registry) Dispatch(ctx context.Context, inter discord.Interaction) {
	switch inter.Type {
	case discord.InteractionTypeCommand:
		r.dispatchCommand(ctx, inter)
	case discord.InteractionTypeMessageComponent:
		r.dispatchButton(ctx, inter)
	default:
		r.logger.Debug("interaction_ignored", "type", inter.Type)
	}
}

func (r *Registry) dispatchCommand(ctx context.Context, inter discord.Interaction) {
	name := ""
	if inter.Data != nil {
		name = inter.Data.Name
	}
	cmd, ok := r.byName[name]
	if !ok {
		r.logger.Warn("command_unknown", "name", name, "user_id", inter.UserID())
		r.reply(ctx, inter, "I don't know that command.")
		return
	}
	r.logger.Info("command_received", "name", name, "user_id", inter.UserID(), "channel_id", inter.ChannelID)
	if err := cmd.Execute(ctx, inter); err != nil {
		kind := boterr.KindOf(err)
		r.logger.Error("command_error", "name", name, "kind", string(kind), "error", err.Error())
		r.reply(ctx, inter, boterr.UserMessage(kind))
	}
}

func (r *Registry) dispatchButton(ctx context.Context, inter discord.Interaction) {
	customID := ""
	if inter.Data != nil {
		customID = inter.Data.CustomID
	}
	r.logger.Info("button_received", "custom_id", customID, "user_id", inter.UserID())
	for _, h := range r.buttons {
		handled, err := h.HandleButton(ctx, inter)
		if !handled {
			continue
		}
		if err != nil {
			kind := boterr.KindOf(err)
			r.logger.Error("button_error", "custom_id", customID, "kind", string(kind), "error", err.Error())
			r.reply(ctx, inter, boterr.UserMessage(kind))
		}
		return
	}
	r.logger.Warn("button_unhandled", "custom_id", customID)
	r.reply(ctx, inter, "This button isn't available right now.")
}

func (r *Registry) reply(ctx context.Context, inter discord.Interaction, content string) {
	if err := r.replier.Respond(ctx, inter.ID, inter.Token, discord.EphemeralReply(content)); err != nil {
		r.logger.Warn("interaction_reply_error", "error", err.Error())
	}
}
