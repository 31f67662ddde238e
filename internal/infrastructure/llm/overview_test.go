package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ResearchBriefing/internal/config"
	"ResearchBriefing/internal/domain"

	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
)

type fakeResponses struct {
	got  responses.ResponseNewParams
	resp *responses.Response
	err  error
}

func (f *fakeResponses) New(_ context.Context, body responses.ResponseNewParams, _ ...option.RequestOption) (*responses.Response, error) {
	f.got = body
	return f.resp, f.err
}

func sampleDigest() domain.Digest {
	return domain.Digest{
		Posts:  []domain.Post{{Title: "Gemini update", Source: "DeepMind"}},
		Papers: []domain.Paper{{ID: "2511.00001", Title: "Scaling laws", MatchedKeywords: []string{"OpenAI"}}},
	}
}

func TestNewOverviewClientValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     config.LLMConfig
		wantErr string
	}{
		{name: "valid", cfg: config.LLMConfig{APIKey: "sk-test", Model: "gpt-4o-mini"}},
		{name: "missing key", cfg: config.LLMConfig{Model: "gpt-4o-mini"}, wantErr: "missing apiKey"},
		{name: "missing model", cfg: config.LLMConfig{APIKey: "sk-test", Model: " "}, wantErr: "missing model"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			client, err := NewOverviewClient(tc.cfg)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("error = %v, want %q", err, tc.wantErr)
				}
				return
			}
			if err != nil || client == nil {
				t.Fatalf("NewOverviewClient: %v", err)
			}
		})
	}
}

func TestOverviewSendsPrompt(t *testing.T) {
	t.Parallel()

	fake := &fakeResponses{resp: &responses.Response{}}
	fake.resp.Output = []responses.ResponseOutputItemUnion{{
		Type: "message",
		Content: []responses.ResponseOutputMessageContentUnion{{
			Type: "output_text",
			Text: "  Two labs shipped updates.  ",
		}},
	}}
	client := newOverviewClient(fake, config.LLMConfig{Model: "gpt-4o-mini", Instructions: "Be brief."})

	got, err := client.Overview(context.Background(), sampleDigest())
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if got != "Two labs shipped updates." {
		t.Fatalf("unexpected overview %q", got)
	}
	if fake.got.Model != "gpt-4o-mini" || fake.got.Instructions.Value != "Be brief." {
		t.Fatalf("unexpected params: model=%s instructions=%s", fake.got.Model, fake.got.Instructions.Value)
	}
	prompt := fake.got.Input.OfString.Value
	if !strings.Contains(prompt, "[DeepMind] Gemini update") || !strings.Contains(prompt, "Scaling laws (OpenAI)") {
		t.Fatalf("unexpected prompt %q", prompt)
	}
}

func TestOverviewErrors(t *testing.T) {
	t.Parallel()

	client := newOverviewClient(&fakeResponses{err: errors.New("boom")}, config.LLMConfig{Model: "m"})
	if _, err := client.Overview(context.Background(), sampleDigest()); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected wrapped error, got %v", err)
	}

	empty := newOverviewClient(&fakeResponses{resp: &responses.Response{}}, config.LLMConfig{Model: "m"})
	if _, err := empty.Overview(context.Background(), sampleDigest()); !errors.Is(err, ErrEmptyOverview) {
		t.Fatalf("expected ErrEmptyOverview, got %v", err)
	}
	if _, err := empty.Overview(context.Background(), domain.Digest{}); !errors.Is(err, ErrEmptyOverview) {
		t.Fatalf("expected ErrEmptyOverview for empty digest, got %v", err)
	}
}

func TestOverviewOverHTTP(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/responses") {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["model"] != "gpt-4o-mini" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"resp_1","object":"response","status":"completed","model":"gpt-4o-mini",
			"output":[{"type":"message","id":"msg_1","role":"assistant","status":"completed",
			"content":[{"type":"output_text","text":"Overview text.","annotations":[]}]}]}`))
	}))
	defer server.Close()

	client, err := NewOverviewClient(config.LLMConfig{
		APIKey:         "sk-test",
		Model:          "gpt-4o-mini",
		BaseURL:        server.URL + "/v1/",
		TimeoutSeconds: 5,
	})
	if err != nil {
		t.Fatalf("NewOverviewClient: %v", err)
	}
	got, err := client.Overview(context.Background(), sampleDigest())
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if got != "Overview text." {
		t.Fatalf("unexpected overview %q", got)
	}
}
