// Package prompt assembles the ordered turn list for a generation request:
// persona preamble, conversation history, then the current turn.
package prompt

import (
	"fmt"
	"strings"

	"github.com/iiimabbie/dcbot/chathistory"
	"github.com/iiimabbie/dcbot/gemini"
)

const (
	roleUser  = "user"
	roleModel = "model"

	defaultAckTemplate = "Got it. I'm %s and I'll stay in character while we chat."
)

// Assembler builds request contents. The upstream API has no separate
// system-role channel, so a non-empty persona is injected as a user turn
// plus a synthetic model acknowledgement; that pair keeps the role-play
// stable across requests.
type Assembler struct {
	Persona string
	BotName string
	// Ack overrides the synthetic model acknowledgement. Empty uses a
	// fixed template around BotName.
	Ack string
}

// Build returns the ordered contents: persona pair (when configured),
// the history snapshot in chronological order, then the current turn.
// Service-authored and empty turns are skipped. User turns are prefixed
// with the author's display name so the model can tell speakers apart in
// a shared channel; model turns pass through unprefixed.
//
// When the current turn's cleaned text is empty the history-only list is
// returned; the caller decides whether to short-circuit with a canned
// reply instead of calling the API.
func (a Assembler) Build(history []chathistory.Turn, current chathistory.Turn) []gemini.Content {
	contents := make([]gemini.Content, 0, len(history)+3)

	if persona := strings.TrimSpace(a.Persona); persona != "" {
		contents = append(contents,
			textContent(roleUser, "System: "+persona),
			textContent(roleModel, a.ackText()),
		)
	}

	for _, turn := range history {
		if c, ok := a.turnContent(turn); ok {
			contents = append(contents, c)
		}
	}

	if c, ok := a.turnContent(current); ok {
		contents = append(contents, c)
	}
	return contents
}

func (a Assembler) turnContent(turn chathistory.Turn) (gemini.Content, bool) {
	if turn.Service {
		return gemini.Content{}, false
	}
	text := strings.TrimSpace(turn.Text)
	if text == "" {
		return gemini.Content{}, false
	}
	switch turn.Role {
	case chathistory.RoleModel:
		return textContent(roleModel, text), true
	default:
		if name := strings.TrimSpace(turn.AuthorName); name != "" {
			text = name + ": " + text
		}
		return textContent(roleUser, text), true
	}
}

func (a Assembler) ackText() string {
	if ack := strings.TrimSpace(a.Ack); ack != "" {
		return ack
	}
	name := strings.TrimSpace(a.BotName)
	if name == "" {
		name = "your assistant"
	}
	return fmt.Sprintf(defaultAckTemplate, name)
}

func textContent(role, text string) gemini.Content {
	return gemini.Content{Role: role, Parts: []gemini.Part{{Text: text}}}
}
