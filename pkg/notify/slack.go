package notify

import (
	"context"
	"strings"

	"github.com/slack-go/slack"
)

// SlackNotifier delivers chat-a alerts to a Slack channel via a bot token.
type SlackNotifier struct {
	client *slack.Client
}

// NewSlackNotifier builds a SlackNotifier authenticated with a bot token.
func NewSlackNotifier(botToken string) *SlackNotifier {
	return &SlackNotifier{client: slack.New(botToken)}
}

// VerifyTarget accepts channel IDs and #channel-name references.
func (n *SlackNotifier) VerifyTarget(target string) bool {
	return strings.TrimSpace(target) != ""
}

func (n *SlackNotifier) Send(ctx context.Context, target, message string) error {
	_, _, err := n.client.PostMessageContext(ctx, target, slack.MsgOptionText(message, false))
	return err
}
