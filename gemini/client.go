// Package gemini implements the client for the generateContent HTTP
// endpoint, including bounded retry with backoff and envelope parsing.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/iiimabbie/dcbot/boterr"
	"github.com/iiimabbie/dcbot/internal/retryutil"
)

const (
	DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent"

	defaultConnectTimeout = 10 * time.Second
	defaultRequestTimeout = 90 * time.Second

	// FallbackText is returned when a 2xx response carries no usable
	// candidate text. A structurally empty envelope is a soft condition,
	// not an error.
	FallbackText = "Sorry, I didn't get a valid response back. Mind trying again?"

	// EncodingNoticeText replaces output that looks garbled by a broken
	// encoding somewhere along the way.
	EncodingNoticeText = "I hit an encoding hiccup and my reply came out scrambled. Try rephrasing, or poke the admin about it."
)

type Config struct {
	Endpoint string
	APIKey   string

	// MaxAttempts and RetryBase bound the retry loop: the delay before
	// attempt N+1 is RetryBase*N. Zero values take the package defaults.
	MaxAttempts int
	RetryBase   time.Duration

	ConnectTimeout time.Duration
	RequestTimeout time.Duration

	Generation GenerationConfig
	Safety     []SafetySetting
}

type Client struct {
	http        *http.Client
	endpoint    string
	apiKey      string
	maxAttempts int
	retryBase   time.Duration
	generation  GenerationConfig
	safety      []SafetySetting
	logger      *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	generation := cfg.Generation
	if generationUnset(generation) {
		generation = DefaultGenerationConfig()
	}
	safety := cfg.Safety
	if len(safety) == 0 {
		safety = DefaultSafetySettings()
	}
	return &Client{
		http: &http.Client{
			// Generation latency dwarfs normal REST calls; keep the
			// connect timeout tight and the overall timeout long.
			Timeout: requestTimeout,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: connectTimeout}).DialContext,
				TLSHandshakeTimeout: connectTimeout,
			},
		},
		endpoint:    endpoint,
		apiKey:      cfg.APIKey,
		maxAttempts: cfg.MaxAttempts,
		retryBase:   cfg.RetryBase,
		generation:  generation,
		safety:      safety,
		logger:      logger,
	}
}

// Generate sends the ordered turns and returns the first candidate's text.
// Transport errors and non-2xx statuses are retried up to the configured
// attempt budget; whatever failure survives is mapped to the boterr
// taxonomy before being returned.
func (c *Client) Generate(ctx context.Context, contents []Content) (string, error) {
	if len(contents) == 0 {
		return "", boterr.New(boterr.KindInvalidInput, "gemini.generate", fmt.Errorf("no contents"))
	}

	body, err := json.Marshal(Request{
		Contents:         contents,
		GenerationConfig: &c.generation,
		SafetySettings:   c.safety,
	})
	if err != nil {
		return "", boterr.New(boterr.KindUnknown, "gemini.generate", err)
	}

	var text string
	err = retryutil.Do(ctx, c.logger, "gemini", c.maxAttempts, c.retryBase, func(ctx context.Context) error {
		out, attemptErr := c.sendOnce(ctx, body)
		if attemptErr != nil {
			return attemptErr
		}
		text = out
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", boterr.New(boterr.KindTransport, "gemini.generate", err)
		}
		if boterr.KindOf(err) != boterr.KindUnknown {
			return "", err
		}
		return "", boterr.New(boterr.KindTransport, "gemini.generate", err)
	}
	return text, nil
}

func (c *Client) sendOnce(ctx context.Context, body []byte) (string, error) {
	url := c.endpoint + "?key=" + c.apiKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", retryutil.Permanent(boterr.New(boterr.KindUnknown, "gemini.request", err))
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := c.http.Do(req)
	if err != nil {
		// Transport failures are the transient case retries exist for.
		return "", boterr.New(boterr.KindTransport, "gemini.request", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", boterr.New(boterr.KindUpstreamAPI, "gemini.request",
			fmt.Errorf("gemini http %d: %s", resp.StatusCode, truncateForLog(raw)))
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", retryutil.Permanent(boterr.New(boterr.KindUpstreamAPI, "gemini.parse", err))
	}

	result := out.FirstCandidateText()
	if strings.TrimSpace(result) == "" {
		if c.logger != nil {
			c.logger.Warn("gemini_empty_candidates", "status", resp.StatusCode)
		}
		return FallbackText, nil
	}
	if looksGarbled(result) {
		if c.logger != nil {
			c.logger.Warn("gemini_garbled_output", "text_len", len(result))
		}
		return EncodingNoticeText, nil
	}
	return result, nil
}

// generationUnset reports whether every tuning knob is at its zero value,
// in which case the package defaults apply.
func generationUnset(g GenerationConfig) bool {
	return g.Temperature == 0 && g.TopK == 0 && g.TopP == 0 &&
		g.MaxOutputTokens == 0 && len(g.StopSequences) == 0
}

// looksGarbled flags a run of replacement characters (or the literal
// question-mark runs some JVM stacks produce) as an encoding failure.
func looksGarbled(s string) bool {
	return strings.Contains(s, "���") || strings.Contains(s, "??????")
}

func truncateForLog(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 512 {
		s = s[:512] + "..."
	}
	return s
}
