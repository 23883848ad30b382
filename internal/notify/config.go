package notify

import (
	"poholowani/internal/config"
)

// FromConfig builds the operator alert fan-out: the log is always on, Slack
// and Discord are added when their webhooks are configured.
func FromConfig(cfg config.NotifyConfig) (*Fanout, error) {
	notifiers := []Notifier{LogNotifier{}}
	if cfg.SlackWebhookURL != "" {
		s, err := NewSlackNotifier(cfg.SlackWebhookURL)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, s)
	}
	if cfg.DiscordWebhookID != "" || cfg.DiscordWebhookTok != "" {
		d, err := NewDiscordNotifier(cfg.DiscordWebhookID, cfg.DiscordWebhookTok)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, d)
	}
	return NewFanout(notifiers...), nil
}
