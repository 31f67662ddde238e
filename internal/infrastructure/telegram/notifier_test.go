package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"ResearchBriefing/internal/config"
	"ResearchBriefing/internal/domain"
	"ResearchBriefing/internal/render"
)

func briefing() *render.Briefing {
	return render.Build(domain.Digest{
		Papers: []domain.Paper{{ID: "2511.00001", Title: "Paper", MatchedKeywords: []string{"OpenAI"}}},
	}, time.Date(2025, 11, 8, 0, 0, 0, 0, time.UTC), render.Options{Categories: []string{"cs.AI"}, Lookback: 48 * time.Hour})
}

func TestPublish(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		forms []url.Values
		paths []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		mu.Lock()
		forms = append(forms, r.PostForm)
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer server.Close()

	n := NewNotifier(config.TelegramConfig{BotToken: "123:abc", ChatID: "42", APIURL: server.URL + "/"}, server.Client())
	if err := n.Publish(context.Background(), briefing()); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(forms) != 1 {
		t.Fatalf("expected one message, got %d", len(forms))
	}
	if paths[0] != "/bot123:abc/sendMessage" {
		t.Fatalf("unexpected path %s", paths[0])
	}
	if forms[0].Get("chat_id") != "42" || !strings.Contains(forms[0].Get("text"), "2511.00001 · OpenAI") {
		t.Fatalf("unexpected form: %v", forms[0])
	}
}

func TestPublishAPIErrorHidesToken(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer server.Close()

	n := NewNotifier(config.TelegramConfig{BotToken: "123:secret", ChatID: "42", APIURL: server.URL}, server.Client())
	err := n.Publish(context.Background(), briefing())
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected api error, got %v", err)
	}
	if strings.Contains(err.Error(), "secret") {
		t.Fatalf("token leaked: %v", err)
	}
}

func TestPublishTransportErrorHidesToken(t *testing.T) {
	t.Parallel()

	n := NewNotifier(config.TelegramConfig{BotToken: "123:secret", ChatID: "42", APIURL: "http://127.0.0.1:1"}, nil)
	err := n.Publish(context.Background(), briefing())
	if err == nil {
		t.Fatalf("expected transport error")
	}
	if strings.Contains(err.Error(), "secret") {
		t.Fatalf("token leaked: %v", err)
	}
}

func TestPublishMisconfigured(t *testing.T) {
	t.Parallel()

	if err := NewNotifier(config.TelegramConfig{}, nil).Publish(context.Background(), briefing()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSplitMessage(t *testing.T) {
	t.Parallel()

	line := strings.Repeat("a", 30) + "\n"
	text := strings.Repeat(line, 10)
	chunks := splitMessage(text, 100)
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if len([]rune(c)) > 100 {
			t.Fatalf("chunk exceeds limit: %d", len([]rune(c)))
		}
		if strings.HasPrefix(c, "\n") || strings.HasSuffix(c, "\n") {
			t.Fatalf("chunk not trimmed at line boundary: %q", c)
		}
	}

	long := strings.Repeat("é", 250)
	parts := splitMessage(long, 100)
	if len(parts) != 3 || len([]rune(parts[2])) != 50 {
		t.Fatalf("unexpected split of a single long line: %d parts", len(parts))
	}

	if got := splitMessage("short", 100); len(got) != 1 || got[0] != "short" {
		t.Fatalf("unexpected short split: %v", got)
	}
}
