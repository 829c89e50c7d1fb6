package commands

import (
	"context"

	"github.com/iiimabbie/dcbot/discord"
)

type PingCommand struct {
	replier Replier
}

func NewPingCommand(replier Replier) *PingCommand {
	return &PingCommand{replier: replier}
}

func (p *PingCommand) Name() string { return "ping" }

func (p *PingCommand) Description() string { return "Check whether the bot is alive" }

func (p *PingCommand) Execute(ctx context.Context, inter discord.Interaction) error {
	return p.replier.Respond(ctx, inter.ID, inter.Token, discord.EphemeralReply("Pong! Still here."))
}
