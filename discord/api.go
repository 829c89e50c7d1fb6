// Package discord wraps the subset of the Discord HTTP and gateway APIs
// the bot uses. Calls are plain REST requests; callers treat them as
// opaque async operations and decide per call whether a failure matters.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultBaseURL = "https://discord.com/api/v10"

type API struct {
	http    *http.Client
	baseURL string
	token   string
}

func NewAPI(httpClient *http.Client, baseURL, token string) *API {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &API{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

func (api *API) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, api.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bot "+api.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := api.http.Do(req)
	if err != nil {
		return err
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("discord http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return err
		}
	}
	return nil
}

func (api *API) GetCurrentUser(ctx context.Context) (*User, error) {
	var u User
	if err := api.do(ctx, http.MethodGet, "/users/@me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (api *API) CreateMessage(ctx context.Context, channelID string, params CreateMessageParams) (*Message, error) {
	var msg Message
	path := fmt.Sprintf("/channels/%s/messages", channelID)
	if err := api.do(ctx, http.MethodPost, path, params, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// AddReaction reacts to a message as the bot. emoji is either a unicode
// emoji or a name:id pair for custom emoji.
func (api *API) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	path := fmt.Sprintf("/channels/%s/messages/%s/reactions/%s/@me",
		channelID, messageID, url.PathEscape(emoji))
	return api.do(ctx, http.MethodPut, path, nil, nil)
}

func (api *API) RemoveOwnReaction(ctx context.Context, channelID, messageID, emoji string) error {
	path := fmt.Sprintf("/channels/%s/messages/%s/reactions/%s/@me",
		channelID, messageID, url.PathEscape(emoji))
	return api.do(ctx, http.MethodDelete, path, nil, nil)
}

// TriggerTyping signals the "composing" presence; it expires after ~10s on
// the platform side, so long work re-triggers it on a ticker.
func (api *API) TriggerTyping(ctx context.Context, channelID string) error {
	return api.do(ctx, http.MethodPost, fmt.Sprintf("/channels/%s/typing", channelID), struct{}{}, nil)
}

func (api *API) GetChannelMessages(ctx context.Context, channelID string, limit int, beforeID string) ([]Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	path := fmt.Sprintf("/channels/%s/messages?limit=%d", channelID, limit)
	if beforeID != "" {
		path += "&before=" + url.QueryEscape(beforeID)
	}
	var msgs []Message
	if err := api.do(ctx, http.MethodGet, path, nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// BulkDeleteMessages removes up to 100 messages at once. A single id falls
// back to a plain delete since the bulk endpoint rejects it.
func (api *API) BulkDeleteMessages(ctx context.Context, channelID string, messageIDs []string) error {
	switch len(messageIDs) {
	case 0:
		return nil
	case 1:
		return api.DeleteMessage(ctx, channelID, messageIDs[0])
	}
	path := fmt.Sprintf("/channels/%s/messages/bulk-delete", channelID)
	body := struct {
		Messages []string `json:"messages"`
	}{Messages: messageIDs}
	return api.do(ctx, http.MethodPost, path, body, nil)
}

func (api *API) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return api.do(ctx, http.MethodDelete, fmt.Sprintf("/channels/%s/messages/%s", channelID, messageID), nil, nil)
}

func (api *API) GetChannelType(ctx context.Context, channelID string) (int, error) {
	var ch struct {
		Type int `json:"type"`
	}
	if err := api.do(ctx, http.MethodGet, "/channels/"+channelID, nil, &ch); err != nil {
		return 0, err
	}
	return ch.Type, nil
}

// Respond answers an interaction within the platform's callback deadline.
func (api *API) Respond(ctx context.Context, interactionID, token string, resp InteractionResponse) error {
	path := fmt.Sprintf("/interactions/%s/%s/callback", interactionID, token)
	return api.do(ctx, http.MethodPost, path, resp, nil)
}

// GetGatewayURL asks the platform where the websocket gateway lives.
func (api *API) GetGatewayURL(ctx context.Context) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := api.do(ctx, http.MethodGet, "/gateway/bot", nil, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.URL) == "" {
		return "", fmt.Errorf("discord gateway: missing url")
	}
	return out.URL, nil
}
