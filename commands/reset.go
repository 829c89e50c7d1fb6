package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/iiimabbie/dcbot/boterr"
	"github.com/iiimabbie/dcbot/chathistory"
	"github.com/iiimabbie/dcbot/discord"
)

// ResetCommand clears the conversation window for the channel it runs in.
type ResetCommand struct {
	replier Replier
	store   *chathistory.Store
	logger  *slog.Logger
}

func NewResetCommand(replier Replier, store *chathistory.Store, logger *slog.Logger) *ResetCommand {
	return &ResetCommand{replier: replier, store: store, logger: logger}
}

func (r *ResetCommand) Name() string { return "reset" }

func (r *ResetCommand) Description() string { return "Forget the conversation in this channel" }

func (r *ResetCommand) Execute(ctx context.Context, inter discord.Interaction) error {
	key, err := chathistory.ConversationKey(inter.ChannelID)
	if err != nil {
		return boterr.New(boterr.KindInvalidInput, "reset.execute", fmt.Errorf("bad channel id: %w", err))
	}
	r.store.Clear(key)
	r.logger.Info("history_reset", "channel_id", inter.ChannelID, "user_id", inter.UserID())
	return r.replier.Respond(ctx, inter.ID, inter.Token,
		discord.EphemeralReply("Done. I've forgotten everything said in this channel."))
}
