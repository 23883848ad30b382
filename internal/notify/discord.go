package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// webhookSession is the part of *discordgo.Session used here.
type webhookSession interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier posts alerts to a Discord channel webhook.
type DiscordNotifier struct {
	sess      webhookSession
	webhookID string
	token     string
}

// NewDiscordNotifier needs no bot token; webhook execution is authorised by
// the webhook token alone.
func NewDiscordNotifier(webhookID, token string) (*DiscordNotifier, error) {
	if webhookID == "" || token == "" {
		return nil, errors.New("notify: discord webhook id and token are required")
	}
	sess, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("notify: discord session: %w", err)
	}
	return &DiscordNotifier{sess: sess, webhookID: webhookID, token: token}, nil
}

func (d *DiscordNotifier) Name() string { return "discord" }

func (d *DiscordNotifier) Notify(ctx context.Context, alert Alert) error {
	_, err := d.sess.WebhookExecute(d.webhookID, d.token, false, discordParams(alert), discordgo.WithContext(ctx))
	return err
}

func discordParams(alert Alert) *discordgo.WebhookParams {
	embed := &discordgo.MessageEmbed{
		Title:       alert.Title,
		Description: alert.Body,
		Color:       0xdc2626,
	}
	for _, f := range alert.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: true})
	}
	return &discordgo.WebhookParams{Embeds: []*discordgo.MessageEmbed{embed}}
}
