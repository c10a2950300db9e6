package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/perch-social/myna/reddit"
)

// SlackNotifier announces each posted reply to a channel via "incoming
// webhook". The webhook must already be configured in the slack workspace.
type SlackNotifier struct {
	SlackWebhookURL string

	// Client defaults to http.DefaultClient
	Client *http.Client
}

type SlackWebhookBody struct {
	Text string `json:"text"`
}

// Send posts an arbitrary text message to the webhook channel.
func (n *SlackNotifier) Send(ctx context.Context, msg string) error {
	return n.sendSlackMsg(ctx, msg)
}

func (n *SlackNotifier) SendReply(ctx context.Context, post *reddit.Post, out *Outcome) error {
	msg := "Auto-reply posted\n"
	msg += fmt.Sprintf("`r/%s` / `%s` / <%s|post>\n", post.Subreddit, post.ID, post.URL)
	msg += fmt.Sprintf("Rule: `%s` (%s, priority %d)\n", out.Verdict.Pattern, out.Verdict.Category, out.Verdict.Priority)
	msg += fmt.Sprintf("Provider: `%s`\n", out.Provider)
	return n.sendSlackMsg(ctx, msg)
}

func (n *SlackNotifier) sendSlackMsg(ctx context.Context, msg string) error {
	body, err := json.Marshal(SlackWebhookBody{Text: msg})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.SlackWebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")

	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	buf := new(bytes.Buffer)
	buf.ReadFrom(resp.Body)
	if resp.StatusCode != 200 || buf.String() != "ok" {
		return fmt.Errorf("failed slack webhook POST request. status=%d", resp.StatusCode)
	}
	return nil
}
