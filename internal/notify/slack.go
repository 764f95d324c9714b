// Package notify delivers scheduler run summaries to external channels.
package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

// SlackNotifier posts run summaries to a Slack channel.
type SlackNotifier struct {
	client  *slack.Client
	channel string
}

// NewSlackNotifier creates a notifier for the given bot token and channel.
func NewSlackNotifier(token, channel string) *SlackNotifier {
	return &SlackNotifier{
		client:  slack.New(token),
		channel: channel,
	}
}

// Notify posts the text to the configured channel.
func (n *SlackNotifier) Notify(ctx context.Context, text string) error {
	_, _, err := n.client.PostMessageContext(ctx, n.channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionDisableLinkUnfurl(),
	)
	if err != nil {
		return fmt.Errorf("post to slack channel %s: %w", n.channel, err)
	}
	return nil
}
