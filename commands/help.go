package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/iiimabbie/dcbot/discord"
	"github.com/iiimabbie/dcbot/flows"
)

const (
	buttonHelpPrev = "help_prev"
	buttonHelpNext = "help_next"

	commandsPerPage = 5
)

// HelpCommand lists the registered commands a page at a time, with the
// user's cursor kept in the flow registry so prev/next re-render the same
// message instead of spawning a second pager.
type HelpCommand struct {
	registry *Registry
	flows    *flows.Registry
}

func NewHelpCommand(registry *Registry, flowRegistry *flows.Registry) *HelpCommand {
	return &HelpCommand{registry: registry, flows: flowRegistry}
}

func (h *HelpCommand) Name() string { return "help" }

func (h *HelpCommand) Description() string { return "List every command the bot understands" }

func (h *HelpCommand) Execute(ctx context.Context, inter discord.Interaction) error {
	total := h.totalPages()
	content := h.renderPage(1)

	if total <= 1 {
		return h.registry.replier.Respond(ctx, inter.ID, inter.Token, discord.EphemeralReply(content))
	}

	h.flows.Put(flows.Pending{
		OwnerUserID: inter.UserID(),
		Kind:        flows.KindPaginate,
		Page:        1,
		TotalPages:  total,
	})
	return h.registry.replier.Respond(ctx, inter.ID, inter.Token,
		discord.EphemeralReply(content, h.navRow(1, total)))
}

func (h *HelpCommand) HandleButton(ctx context.Context, inter discord.Interaction) (bool, error) {
	customID := ""
	if inter.Data != nil {
		customID = inter.Data.CustomID
	}
	if customID != buttonHelpPrev && customID != buttonHelpNext {
		return false, nil
	}

	pending, ok := h.flows.Get(inter.UserID(), flows.KindPaginate)
	if !ok {
		return true, h.registry.replier.Respond(ctx, inter.ID, inter.Token,
			discord.EphemeralReply("There's no open help session for you. Run /help again."))
	}

	page := pending.Page
	if customID == buttonHelpNext {
		page++
	} else {
		page--
	}
	total := h.totalPages()
	page = flows.ClampPage(page, total)

	pending.Page = page
	pending.TotalPages = total
	h.flows.Put(pending)

	return true, h.registry.replier.Respond(ctx, inter.ID, inter.Token,
		discord.UpdateMessage(h.renderPage(page), h.navRow(page, total)))
}

func (h *HelpCommand) navRow(page, total int) discord.Component {
	return discord.ActionRow(
		discord.Button(discord.ButtonStylePrimary, buttonHelpPrev, "Previous", page <= 1),
		discord.Button(discord.ButtonStylePrimary, buttonHelpNext, "Next", page >= total),
	)
}

func (h *HelpCommand) renderPage(page int) string {
	cmds := h.registry.Commands()
	total := h.totalPages()
	page = flows.ClampPage(page, total)

	start := (page - 1) * commandsPerPage
	end := start + commandsPerPage
	if end > len(cmds) {
		end = len(cmds)
	}

	var b strings.Builder
	b.WriteString("Here's what I can do:\n")
	for _, cmd := range cmds[start:end] {
		fmt.Fprintf(&b, "/%s - %s\n", cmd.Name(), cmd.Description())
	}
	if total > 1 {
		fmt.Fprintf(&b, "\nPage %d/%d", page, total)
	}
	return b.String()
}

func (h *HelpCommand) totalPages() int {
	n := len(h.registry.Commands())
	if n == 0 {
		return 1
	}
	return (n + commandsPerPage - 1) / commandsPerPage
}
