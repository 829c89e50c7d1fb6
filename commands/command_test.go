package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/iiimabbie/dcbot/boterr"
	"github.com/iiimabbie/dcbot/discord"
)

type fakeAPI struct {
	mu        sync.Mutex
	responses []discord.InteractionResponse
	sent      []string
	fetched   []discord.Message
	fetchErr  error
	deleteErr error
	deleted   [][]string
}

func (f *fakeAPI) Respond(ctx context.Context, interactionID, token string, resp discord.InteractionResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeAPI) CreateMessage(ctx context.Context, channelID string, params discord.CreateMessageParams) (*discord.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, params.Content)
	return &discord.Message{ID: "m1", ChannelID: channelID, Content: params.Content}, nil
}

func (f *fakeAPI) GetChannelMessages(ctx context.Context, channelID string, limit int, beforeID string) ([]discord.Message, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.fetched, nil
}

func (f *fakeAPI) BulkDeleteMessages(ctx context.Context, channelID string, messageIDs []string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageIDs)
	return nil
}

func (f *fakeAPI) lastResponse(t *testing.T) discord.InteractionResponse {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.responses) == 0 {
		t.Fatalf("no interaction responses recorded")
	}
	return f.responses[len(f.responses)-1]
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func commandInteraction(name, userID string, opts ...discord.InteractionOption) discord.Interaction {
	return discord.Interaction{
		ID:        "i1",
		Type:      discord.InteractionTypeCommand,
		Token:     "tok",
		ChannelID: "chan1",
		Member: &discord.Member{
			User:        &discord.User{ID: userID},
			Permissions: fmt.Sprintf("%d", discord.PermissionManageMessages),
		},
		Data: &discord.InteractionData{Name: name, Options: opts},
	}
}

func buttonInteraction(customID, userID string) discord.Interaction {
	return discord.Interaction{
		ID:        "i2",
		Type:      discord.InteractionTypeMessageComponent,
		Token:     "tok",
		ChannelID: "chan1",
		Member:    &discord.Member{User: &discord.User{ID: userID}},
		Data:      &discord.InteractionData{CustomID: customID},
	}
}

type stubCommand struct {
	name string
	err  error
}

func (s *stubCommand) Name() string        { return s.name }
func (s *stubCommand) Description() string { return "stub " + s.name }
func (s *stubCommand) Execute(ctx context.Context, inter discord.Interaction) error {
	return s.err
}

func TestDispatchUnknownCommandReplies(t *testing.T) {
	api := &fakeAPI{}
	reg := NewRegistry(testLogger(), api)
	reg.Dispatch(context.Background(), commandInteraction("nope", "u1"))
	resp := api.lastResponse(t)
	if resp.Data == nil || resp.Data.Content == "" {
		t.Fatalf("expected a reply for unknown command")
	}
}

func TestDispatchCommandErrorMapsToFixedMessage(t *testing.T) {
	api := &fakeAPI{}
	reg := NewRegistry(testLogger(), api)
	reg.Register(&stubCommand{name: "boom", err: boterr.New(boterr.KindUpstreamAPI, "stub", fmt.Errorf("raw detail"))})

	reg.Dispatch(context.Background(), commandInteraction("boom", "u1"))
	resp := api.lastResponse(t)
	if resp.Data.Content != boterr.UserMessage(boterr.KindUpstreamAPI) {
		t.Fatalf("reply = %q, want fixed upstream message", resp.Data.Content)
	}
	if resp.Data.Content == "raw detail" {
		t.Fatalf("raw error text leaked into reply")
	}
}

func TestDispatchUnhandledButtonReplies(t *testing.T) {
	api := &fakeAPI{}
	reg := NewRegistry(testLogger(), api)
	reg.Dispatch(context.Background(), buttonInteraction("mystery_button", "u1"))
	resp := api.lastResponse(t)
	if resp.Data == nil || resp.Data.Content == "" {
		t.Fatalf("expected a fallback reply for unhandled button")
	}
}
