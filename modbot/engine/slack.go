package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gardien-bot/gardien/modbot/auditstore"

	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

type SlackNotifier struct {
	SlackWebhookURL string
	Client          *http.Client
	// optional; a burst of acceptances must not trip the webhook rate limit
	Limiter *rate.Limiter
}

// The webhook client retries on connection errors, 5xx and 429, logging intermediate failures.
func NewSlackNotifier(webhookURL string, logger *slog.Logger) *SlackNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = retryablehttp.LeveledLogger(logger.With("component", "slack"))
	retryClient.HTTPClient.Transport = otelhttp.NewTransport(retryClient.HTTPClient.Transport)
	client := retryClient.StandardClient()
	client.Timeout = 20 * time.Second
	return &SlackNotifier{
		SlackWebhookURL: webhookURL,
		Client:          client,
		Limiter:         rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

type SlackWebhookBody struct {
	Text string `json:"text"`
}

func (n *SlackNotifier) SendAction(ctx context.Context, act *auditstore.Action) error {
	return n.sendSlackMsg(ctx, slackBody(act))
}

// Sends a simple slack message to a channel via "incoming webhook".
//
// The slack incoming webhook must be already configured in the slack workplace.
func (n *SlackNotifier) sendSlackMsg(ctx context.Context, msg string) error {
	if n.Limiter != nil {
		if err := n.Limiter.Wait(ctx); err != nil {
			return fmt.Errorf("waiting for slack rate limit: %w", err)
		}
	}
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

func slackBody(act *auditstore.Action) string {
	var msg string
	switch act.Kind {
	case auditstore.KindMute:
		msg = "🚫 Mute\n"
	case auditstore.KindUnmute:
		msg = "🔓 Unmute\n"
	case auditstore.KindAccept:
		msg = "✅ Rules accepted\n"
	default:
		msg = fmt.Sprintf("Moderation action `%s`\n", act.Kind)
	}
	msg += fmt.Sprintf("Member: `%s` / `%s`\n", act.TargetName, act.TargetID)
	if act.ActorID != "" {
		msg += fmt.Sprintf("Moderator: `%s` / `%s`\n", act.ActorName, act.ActorID)
	}
	if act.Duration != "" {
		msg += fmt.Sprintf("Duration: `%s`\n", act.Duration)
	}
	if act.Kind != auditstore.KindAccept && act.Reason != "" {
		msg += fmt.Sprintf("Reason: %s\n", act.Reason)
	}
	if act.AcceptanceNumber > 0 {
		msg += fmt.Sprintf("Acceptance: #%d\n", act.AcceptanceNumber)
	}
	return msg
}
