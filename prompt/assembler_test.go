package prompt

import (
	"testing"

	"github.com/iiimabbie/dcbot/chathistory"
)

func userTurn(name, text string) chathistory.Turn {
	return chathistory.Turn{Role: chathistory.RoleUser, Text: text, AuthorID: "u-" + name, AuthorName: name}
}

func modelTurn(text string) chathistory.Turn {
	return chathistory.Turn{Role: chathistory.RoleModel, Text: text, AuthorID: "bot", AuthorName: "Felix"}
}

func TestBuildWithoutPersonaHasNoPreamble(t *testing.T) {
	a := Assembler{BotName: "Felix"}
	history := []chathistory.Turn{
		userTurn("abbie", "hi"),
		modelTurn("hello!"),
		userTurn("abbie", "how are you"),
	}
	got := a.Build(history, userTurn("abbie", "tell me a joke"))
	if len(got) != 4 {
		t.Fatalf("Build() returned %d contents, want 4", len(got))
	}
	if got[0].Role != "user" || got[0].Parts[0].Text != "abbie: hi" {
		t.Fatalf("first content = %+v, want prefixed user turn", got[0])
	}
	if got[1].Role != "model" || got[1].Parts[0].Text != "hello!" {
		t.Fatalf("model turn was altered: %+v", got[1])
	}
}

func TestBuildWithPersonaAndEmptyHistory(t *testing.T) {
	a := Assembler{Persona: "You are Felix, a sarcastic cat.", BotName: "Felix"}
	got := a.Build(nil, userTurn("abbie", "hello"))
	if len(got) != 3 {
		t.Fatalf("Build() returned %d contents, want 3", len(got))
	}
	if got[0].Role != "user" || got[0].Parts[0].Text != "System: You are Felix, a sarcastic cat." {
		t.Fatalf("persona turn = %+v", got[0])
	}
	if got[1].Role != "model" || got[1].Parts[0].Text == "" {
		t.Fatalf("ack turn = %+v", got[1])
	}
	if got[2].Role != "user" || got[2].Parts[0].Text != "abbie: hello" {
		t.Fatalf("current turn = %+v", got[2])
	}
}

func TestBuildSkipsServiceAndEmptyTurns(t *testing.T) {
	a := Assembler{}
	history := []chathistory.Turn{
		{Role: chathistory.RoleUser, Text: "announcement", AuthorName: "system", Service: true},
		userTurn("abbie", "   "),
		userTurn("abbie", "real message"),
	}
	got := a.Build(history, userTurn("abbie", "current"))
	if len(got) != 2 {
		t.Fatalf("Build() returned %d contents, want 2", len(got))
	}
	if got[0].Parts[0].Text != "abbie: real message" {
		t.Fatalf("unexpected first content: %+v", got[0])
	}
}

func TestBuildWithEmptyCurrentReturnsHistoryOnly(t *testing.T) {
	a := Assembler{}
	history := []chathistory.Turn{userTurn("abbie", "hi")}
	got := a.Build(history, userTurn("abbie", ""))
	if len(got) != 1 {
		t.Fatalf("Build() returned %d contents, want 1", len(got))
	}
}

func TestBuildCustomAck(t *testing.T) {
	a := Assembler{Persona: "persona", BotName: "Felix", Ack: "Understood, nya."}
	got := a.Build(nil, userTurn("abbie", "hello"))
	if got[1].Parts[0].Text != "Understood, nya." {
		t.Fatalf("ack = %q, want custom ack", got[1].Parts[0].Text)
	}
}
