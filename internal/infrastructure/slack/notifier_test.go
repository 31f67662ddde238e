package slack

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"ResearchBriefing/internal/config"
	"ResearchBriefing/internal/domain"
	"ResearchBriefing/internal/render"
)

type recorded struct {
	path        string
	auth        string
	contentType string
	body        string
}

type fakeSlack struct {
	mu       sync.Mutex
	calls    []recorded
	failWith string
	server   *httptest.Server
}

func newFakeSlack(t *testing.T) *fakeSlack {
	t.Helper()
	f := &fakeSlack{}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeSlack) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.calls = append(f.calls, recorded{
		path:        r.URL.Path,
		auth:        r.Header.Get("Authorization"),
		contentType: r.Header.Get("Content-Type"),
		body:        string(body),
	})
	failWith := f.failWith
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/api/chat.postMessage":
		if failWith != "" {
			_, _ = w.Write([]byte(`{"ok":false,"error":"` + failWith + `"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"ts":"1731000000.000100"}`))
	case "/api/files.getUploadURLExternal":
		_, _ = w.Write([]byte(`{"ok":true,"upload_url":"` + f.server.URL + `/upload/F1?sig=secret","file_id":"F1"}`))
	case "/upload/F1":
		_, _ = w.Write([]byte("OK - 12"))
	case "/api/files.completeUploadExternal":
		_, _ = w.Write([]byte(`{"ok":true}`))
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeSlack) snapshot() []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recorded(nil), f.calls...)
}

func sampleBriefing(t *testing.T) *render.Briefing {
	t.Helper()
	b := render.Build(domain.Digest{
		Posts: []domain.Post{{Title: "Gemini <2>", URL: "https://blog.example/g", Source: "DeepMind", ArxivIDs: []string{"2511.00042"}}},
		Linked: []domain.LinkedPaper{{
			Paper: domain.Paper{ID: "2511.00042", Title: "Paper"},
			Link:  domain.LinkInfo{BlogURL: "https://blog.example/g", BlogTitle: "Gemini", BlogSource: "DeepMind"},
		}},
	}, time.Date(2025, 11, 8, 0, 0, 0, 0, time.UTC), render.Options{Categories: []string{"cs.AI"}, Lookback: 48 * time.Hour})
	if err := render.Attach(b); err != nil {
		t.Fatalf("attach: %v", err)
	}
	return b
}

func TestPublishPostsMessageAndUploadsIntoThread(t *testing.T) {
	t.Parallel()

	fake := newFakeSlack(t)
	n := NewNotifier(config.SlackConfig{BotToken: "xoxb-test", ChannelID: "C1", APIURL: fake.server.URL + "/api"}, fake.server.Client())

	if err := n.Publish(context.Background(), sampleBriefing(t)); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	calls := fake.snapshot()
	// message + 2 attachments x (ticket, content, complete)
	if len(calls) != 7 {
		t.Fatalf("expected 7 calls, got %d", len(calls))
	}

	post := calls[0]
	if post.path != "/api/chat.postMessage" || post.auth != "Bearer xoxb-test" {
		t.Fatalf("unexpected first call: %+v", post)
	}
	var msg struct {
		Channel string  `json:"channel"`
		Text    string  `json:"text"`
		Blocks  []block `json:"blocks"`
	}
	if err := json.Unmarshal([]byte(post.body), &msg); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if msg.Channel != "C1" || !strings.HasPrefix(msg.Text, "Daily AI Research Briefing") {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.Blocks[0].Type != "header" {
		t.Fatalf("expected header block first")
	}
	escaped := false
	for _, b := range msg.Blocks {
		if b.Text != nil && strings.Contains(b.Text.Text, "Gemini &lt;2&gt;") {
			escaped = true
		}
	}
	if !escaped {
		t.Fatalf("expected escaped title in blocks: %s", post.body)
	}

	ticket := calls[1]
	if ticket.path != "/api/files.getUploadURLExternal" || !strings.Contains(ticket.body, "filename=briefing-2025-11-08.md") {
		t.Fatalf("unexpected ticket call: %+v", ticket)
	}
	if ticket.contentType != "application/x-www-form-urlencoded" {
		t.Fatalf("ticket must be form encoded, got %s", ticket.contentType)
	}
	if calls[2].path != "/upload/F1" || !strings.HasPrefix(calls[2].body, "# Daily AI Research Briefing") {
		t.Fatalf("unexpected upload call: %+v", calls[2])
	}
	complete := calls[3]
	if complete.path != "/api/files.completeUploadExternal" || !strings.Contains(complete.body, `"thread_ts":"1731000000.000100"`) {
		t.Fatalf("unexpected complete call: %+v", complete)
	}
	if !strings.Contains(calls[4].body, "briefing-2025-11-08.html") {
		t.Fatalf("expected html attachment second, got %+v", calls[4])
	}
}

func TestPublishSurfacesAPIErrorWithoutToken(t *testing.T) {
	t.Parallel()

	fake := newFakeSlack(t)
	fake.failWith = "channel_not_found"
	n := NewNotifier(config.SlackConfig{BotToken: "xoxb-secret", ChannelID: "C1", APIURL: fake.server.URL + "/api/"}, nil)

	err := n.Publish(context.Background(), sampleBriefing(t))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "channel_not_found") {
		t.Fatalf("expected slack error code, got %v", err)
	}
	if strings.Contains(err.Error(), "xoxb-secret") {
		t.Fatalf("token leaked into error: %v", err)
	}
	if got := len(fake.snapshot()); got != 1 {
		t.Fatalf("expected no uploads after failed post, got %d calls", got)
	}
}

func TestPublishRequiresCredentials(t *testing.T) {
	t.Parallel()

	n := NewNotifier(config.SlackConfig{}, nil)
	if err := n.Publish(context.Background(), sampleBriefing(t)); err == nil {
		t.Fatalf("expected misconfiguration error")
	}
}

func TestBlocksLayout(t *testing.T) {
	t.Parallel()

	blocks := buildBlocks(sampleBriefing(t))
	last := blocks[len(blocks)-1]
	if last.Type != "context" || !strings.Contains(last.Elements[0].Text, "1 blogs, 0 arXiv, 1 linked · 2 total") {
		t.Fatalf("unexpected footer block: %+v", last)
	}

	var linked string
	for _, b := range blocks {
		if b.Text != nil && strings.Contains(b.Text.Text, "`2511.00042`") {
			linked = b.Text.Text
		}
	}
	if !strings.Contains(linked, "<https://blog.example/g|Gemini> (DeepMind)") {
		t.Fatalf("unexpected linked item text: %q", linked)
	}
}
