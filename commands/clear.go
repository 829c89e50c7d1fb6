package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/iiimabbie/dcbot/boterr"
	"github.com/iiimabbie/dcbot/discord"
	"github.com/iiimabbie/dcbot/flows"
)

const (
	buttonConfirmClear = "confirm_clear"
	buttonCancelClear  = "cancel_clear"

	maxClearAmount = 100
)

// ClearCommand bulk-deletes recent channel messages behind a confirmation
// gate: /clear stores the requested count per user and presents
// confirm/cancel buttons; only the confirm press performs the deletion.
type ClearCommand struct {
	api    ChannelAPI
	flows  *flows.Registry
	logger *slog.Logger
}

func NewClearCommand(api ChannelAPI, registry *flows.Registry, logger *slog.Logger) *ClearCommand {
	return &ClearCommand{api: api, flows: registry, logger: logger}
}

func (c *ClearCommand) Name() string { return "clear" }

func (c *ClearCommand) Description() string {
	return "Delete a number of recent messages from this channel"
}

func (c *ClearCommand) Execute(ctx context.Context, inter discord.Interaction) error {
	if !inter.Member.HasPermission(discord.PermissionManageMessages) {
		return boterr.New(boterr.KindPermissionDenied, "clear.execute", fmt.Errorf("user %s lacks manage messages", inter.UserID()))
	}

	opt, ok := inter.Option("amount")
	if !ok {
		return boterr.New(boterr.KindInvalidInput, "clear.execute", fmt.Errorf("missing amount option"))
	}
	amount, ok := opt.IntValue()
	if !ok || amount < 1 || amount > maxClearAmount {
		return boterr.New(boterr.KindInvalidInput, "clear.execute", fmt.Errorf("amount out of range: %v", opt.Value))
	}

	c.flows.Put(flows.Pending{
		OwnerUserID: inter.UserID(),
		Kind:        flows.KindConfirmDelete,
		ChannelID:   inter.ChannelID,
		Count:       int(amount),
	})

	prompt := fmt.Sprintf("Delete the last %d messages from this channel?", amount)
	return c.api.Respond(ctx, inter.ID, inter.Token, discord.EphemeralReply(prompt,
		discord.ActionRow(
			discord.Button(discord.ButtonStyleDanger, buttonConfirmClear, "Delete", false),
			discord.Button(discord.ButtonStyleSecondary, buttonCancelClear, "Cancel", false),
		),
	))
}

func (c *ClearCommand) HandleButton(ctx context.Context, inter discord.Interaction) (bool, error) {
	customID := ""
	if inter.Data != nil {
		customID = inter.Data.CustomID
	}
	switch customID {
	case buttonCancelClear:
		c.flows.Remove(inter.UserID(), flows.KindConfirmDelete)
		return true, c.api.Respond(ctx, inter.ID, inter.Token, discord.UpdateMessage("Okay, nothing was deleted."))
	case buttonConfirmClear:
		return true, c.confirm(ctx, inter)
	default:
		return false, nil
	}
}

func (c *ClearCommand) confirm(ctx context.Context, inter discord.Interaction) error {
	pending, ok := c.flows.Take(inter.UserID(), flows.KindConfirmDelete)
	if !ok {
		return c.api.Respond(ctx, inter.ID, inter.Token,
			discord.EphemeralReply("I couldn't find a pending clear request for you. Run /clear again."))
	}

	// Acknowledge within the callback deadline before the slow part.
	if err := c.api.Respond(ctx, inter.ID, inter.Token,
		discord.UpdateMessage(fmt.Sprintf("Deleting %d messages...", pending.Count))); err != nil {
		c.logger.Warn("clear_ack_error", "error", err.Error())
	}

	// The interaction is already acknowledged, so failures from here on are
	// reported as channel messages, not interaction replies.
	msgs, err := c.api.GetChannelMessages(ctx, pending.ChannelID, pending.Count, "")
	if err != nil {
		c.logger.Error("clear_fetch_error", "channel_id", pending.ChannelID, "error", err.Error())
		c.notify(ctx, pending.ChannelID, boterr.UserMessage(boterr.KindPlatform))
		return nil
	}
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	if err := c.api.BulkDeleteMessages(ctx, pending.ChannelID, ids); err != nil {
		c.logger.Error("clear_delete_error", "channel_id", pending.ChannelID, "error", err.Error())
		c.notify(ctx, pending.ChannelID, boterr.UserMessage(boterr.KindPlatform))
		return nil
	}

	c.logger.Info("clear_done", "user_id", inter.UserID(), "channel_id", pending.ChannelID, "deleted", len(ids))
	c.notify(ctx, pending.ChannelID, fmt.Sprintf("Deleted %d messages.", len(ids)))
	return nil
}

func (c *ClearCommand) notify(ctx context.Context, channelID, content string) {
	if _, err := c.api.CreateMessage(ctx, channelID, discord.CreateMessageParams{Content: content}); err != nil {
		c.logger.Warn("clear_notify_error", "channel_id", channelID, "error", err.Error())
	}
}
