package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/iiimabbie/dcbot/chathistory"
	"github.com/iiimabbie/dcbot/discord"
)

// StatusCommand reports process uptime and how many conversations the bot
// is currently holding in memory.
type StatusCommand struct {
	replier Replier
	store   *chathistory.Store
	version string
	started time.Time
}

func NewStatusCommand(replier Replier, store *chathistory.Store, version string) *StatusCommand {
	return &StatusCommand{
		replier: replier,
		store:   store,
		version: version,
		started: time.Now(),
	}
}

func (s *StatusCommand) Name() string { return "status" }

func (s *StatusCommand) Description() string { return "Show uptime and conversation stats" }

func (s *StatusCommand) Execute(ctx context.Context, inter discord.Interaction) error {
	uptime := time.Since(s.started).Round(time.Second)
	content := fmt.Sprintf("Version: %s\nUptime: %s\nActive conversations: %d",
		s.version, uptime, s.store.Size())
	return s.replier.Respond(ctx, inter.ID, inter.Token, discord.EphemeralReply(content))
}
