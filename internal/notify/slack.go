package notify

import (
	"context"
	"errors"

	"github.com/slack-go/slack"
)

// SlackNotifier posts alerts to a Slack incoming webhook.
type SlackNotifier struct {
	webhookURL string
}

func NewSlackNotifier(webhookURL string) (*SlackNotifier, error) {
	if webhookURL == "" {
		return nil, errors.New("notify: slack webhook url is required")
	}
	return &SlackNotifier{webhookURL: webhookURL}, nil
}

func (s *SlackNotifier) Name() string { return "slack" }

func (s *SlackNotifier) Notify(ctx context.Context, alert Alert) error {
	return slack.PostWebhookContext(ctx, s.webhookURL, slackMessage(alert))
}

func slackMessage(alert Alert) *slack.WebhookMessage {
	att := slack.Attachment{
		Title: alert.Title,
		Text:  alert.Body,
		Color: "#dc2626",
	}
	for _, f := range alert.Fields {
		att.Fields = append(att.Fields, slack.AttachmentField{Title: f.Name, Value: f.Value, Short: true})
	}
	return &slack.WebhookMessage{
		Text:        alert.Title,
		Attachments: []slack.Attachment{att},
	}
}
