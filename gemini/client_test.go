package gemini

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iiimabbie/dcbot/boterr"
)

func testContents() []Content {
	return []Content{{Role: "user", Parts: []Part{{Text: "abbie: hello"}}}}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(Config{
		Endpoint:    srv.URL,
		APIKey:      "test-key",
		MaxAttempts: 3,
		RetryBase:   time.Millisecond,
	}, nil)
	return client, srv
}

func okBody(text string) string {
	return `{"candidates":[{"content":{"parts":[{"text":"` + text + `"}],"role":"model"},"finishReason":"STOP"}],"usageMetadata":{"totalTokenCount":7}}`
}

func TestGenerateRecoversAfterServerErrors(t *testing.T) {
	var calls atomic.Int64
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(okBody("hi there")))
	})

	got, err := client.Generate(context.Background(), testContents())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "hi there" {
		t.Fatalf("Generate() = %q, want %q", got, "hi there")
	}
	if n := calls.Load(); n != 3 {
		t.Fatalf("request count = %d, want 3 (two retries)", n)
	}
}

func TestGenerateSurfacesUpstreamErrorAfterExhaustion(t *testing.T) {
	var calls atomic.Int64
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Generate(context.Background(), testContents())
	if err == nil {
		t.Fatalf("Generate() expected error")
	}
	if kind := boterr.KindOf(err); kind != boterr.KindUpstreamAPI {
		t.Fatalf("KindOf() = %q, want %q", kind, boterr.KindUpstreamAPI)
	}
	if n := calls.Load(); n != 3 {
		t.Fatalf("request count = %d, want 3", n)
	}
}

func TestGenerateReturnsFallbackOnEmptyCandidates(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	})

	got, err := client.Generate(context.Background(), testContents())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != FallbackText {
		t.Fatalf("Generate() = %q, want fallback text", got)
	}
}

func TestGenerateReturnsFallbackOnMissingParts(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[],"role":"model"},"finishReason":"STOP"}]}`))
	})

	got, err := client.Generate(context.Background(), testContents())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != FallbackText {
		t.Fatalf("Generate() = %q, want fallback text", got)
	}
}

func TestGenerateReplacesGarbledOutput(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(okBody("??????")))
	})

	got, err := client.Generate(context.Background(), testContents())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != EncodingNoticeText {
		t.Fatalf("Generate() = %q, want encoding notice", got)
	}
}

func TestGenerateDoesNotRetryMalformedBody(t *testing.T) {
	var calls atomic.Int64
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{not json`))
	})

	_, err := client.Generate(context.Background(), testContents())
	if err == nil {
		t.Fatalf("Generate() expected error")
	}
	if kind := boterr.KindOf(err); kind != boterr.KindUpstreamAPI {
		t.Fatalf("KindOf() = %q, want %q", kind, boterr.KindUpstreamAPI)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("request count = %d, want 1", n)
	}
}

func TestGenerateRejectsEmptyContents(t *testing.T) {
	client := NewClient(Config{Endpoint: "http://127.0.0.1:0", APIKey: "k"}, nil)
	_, err := client.Generate(context.Background(), nil)
	if err == nil {
		t.Fatalf("Generate() expected error")
	}
	if kind := boterr.KindOf(err); kind != boterr.KindInvalidInput {
		t.Fatalf("KindOf() = %q, want %q", kind, boterr.KindInvalidInput)
	}
}

func TestNewClientGenerationConfigDefaults(t *testing.T) {
	tests := []struct {
		name       string
		generation GenerationConfig
		wantInBody string
		notInBody  string
	}{
		{
			name:       "zero_config_takes_defaults",
			generation: GenerationConfig{},
			wantInBody: `"topK":40`,
		},
		{
			// Only a slice knob set still counts as configured.
			name:       "stop_sequences_only_is_kept",
			generation: GenerationConfig{StopSequences: []string{"END"}},
			wantInBody: `"stopSequences":["END"]`,
			notInBody:  `"topK":40`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotBody []byte
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotBody, _ = io.ReadAll(r.Body)
				_, _ = w.Write([]byte(okBody("ok")))
			}))
			defer srv.Close()
			client := NewClient(Config{
				Endpoint:   srv.URL,
				APIKey:     "k",
				Generation: tt.generation,
			}, nil)

			if _, err := client.Generate(context.Background(), testContents()); err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if !strings.Contains(string(gotBody), tt.wantInBody) {
				t.Fatalf("request body missing %s: %s", tt.wantInBody, gotBody)
			}
			if tt.notInBody != "" && strings.Contains(string(gotBody), tt.notInBody) {
				t.Fatalf("request body unexpectedly contains %s: %s", tt.notInBody, gotBody)
			}
		})
	}
}

func TestRequestEnvelopeShape(t *testing.T) {
	var gotBody []byte
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("key query param = %q, want test-key", r.URL.Query().Get("key"))
		}
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(okBody("ok")))
	})

	if _, err := client.Generate(context.Background(), testContents()); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	for _, want := range []string{`"contents"`, `"parts"`, `"generationConfig"`, `"safetySettings"`, `"topK":40`, `"maxOutputTokens":2048`} {
		if !strings.Contains(string(gotBody), want) {
			t.Fatalf("request body missing %s: %s", want, gotBody)
		}
	}
}
