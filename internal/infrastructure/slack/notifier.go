// Package slack posts briefings through the Slack Web API with a bot token.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ResearchBriefing/internal/config"
	"ResearchBriefing/internal/ports"
	"ResearchBriefing/internal/render"
)

const defaultAPIURL = "https://slack.com/api/"

// Notifier posts the briefing as a channel message and uploads attachments into its thread.
type Notifier struct {
	token   string
	channel string
	apiURL  string
	client  *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier wires the bot token and channel from config.
func NewNotifier(cfg config.SlackConfig, client *http.Client) *Notifier {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}
	return &Notifier{token: cfg.BotToken, channel: cfg.ChannelID, apiURL: apiURL, client: client}
}

// Name identifies the channel in logs and metrics.
func (n *Notifier) Name() string { return "slack" }

// Publish sends the message first, then every attachment as a thread reply.
// Any failure is returned; nothing is retried here.
func (n *Notifier) Publish(ctx context.Context, b *render.Briefing) error {
	if n.token == "" || n.channel == "" {
		return errors.New("slack notifier misconfigured: bot token and channel id are required")
	}

	ts, err := n.postMessage(ctx, b)
	if err != nil {
		return err
	}

	for _, a := range b.Attachments {
		if err := n.upload(ctx, a, ts); err != nil {
			return fmt.Errorf("upload %s: %w", a.Name, err)
		}
	}
	return nil
}

type apiResponse struct {
	OK        bool   `json:"ok"`
	Error     string `json:"error"`
	TS        string `json:"ts"`
	UploadURL string `json:"upload_url"`
	FileID    string `json:"file_id"`
}

func (n *Notifier) postMessage(ctx context.Context, b *render.Briefing) (string, error) {
	payload := map[string]any{
		"channel": n.channel,
		"text":    b.Title,
		"blocks":  buildBlocks(b),
	}
	resp, err := n.callJSON(ctx, "chat.postMessage", payload)
	if err != nil {
		return "", err
	}
	if resp.TS == "" {
		return "", errors.New("slack chat.postMessage returned no ts")
	}
	return resp.TS, nil
}

func (n *Notifier) upload(ctx context.Context, a render.Attachment, threadTS string) error {
	form := url.Values{}
	form.Set("filename", a.Name)
	form.Set("length", strconv.Itoa(len(a.Content)))
	ticket, err := n.callForm(ctx, "files.getUploadURLExternal", form)
	if err != nil {
		return err
	}
	if ticket.UploadURL == "" || ticket.FileID == "" {
		return errors.New("slack files.getUploadURLExternal returned no upload url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ticket.UploadURL, bytes.NewReader(a.Content))
	if err != nil {
		return fmt.Errorf("new upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post file content: %w", redact(err))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("file upload returned %s", resp.Status)
	}

	title := a.Title
	if title == "" {
		title = a.Name
	}
	_, err = n.callJSON(ctx, "files.completeUploadExternal", map[string]any{
		"files":      []map[string]string{{"id": ticket.FileID, "title": title}},
		"channel_id": n.channel,
		"thread_ts":  threadTS,
	})
	return err
}

func (n *Notifier) callJSON(ctx context.Context, method string, payload any) (*apiResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.apiURL+method, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	return n.do(req, method)
}

func (n *Notifier) callForm(ctx context.Context, method string, form url.Values) (*apiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.apiURL+method, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return n.do(req, method)
}

func (n *Notifier) do(req *http.Request, method string) (*apiResponse, error) {
	req.Header.Set("Authorization", "Bearer "+n.token)

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("slack %s: %w", method, redact(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("slack %s returned %s", method, resp.Status)
	}

	var out apiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode slack %s response: %w", method, err)
	}
	if !out.OK {
		code := out.Error
		if code == "" {
			code = "unknown_error"
		}
		return nil, fmt.Errorf("slack %s failed: %s", method, code)
	}
	return &out, nil
}

// redact drops the request URL from transport errors; presigned upload URLs carry credentials.
func redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s: %w", uerr.Op, uerr.Err)
	}
	return err
}
