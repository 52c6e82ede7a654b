package slack

import (
	"context"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"
)

// Slack rejects header text over 150 characters and section text over 3000
const (
	MaxHeaderChars  = 150
	MaxSectionChars = 3000
)

// DefaultTimeout bounds every Slack API request
const DefaultTimeout = 10 * time.Second

// client implements Service interface
type client struct {
	api     *slack.Client
	apiURL  string
	timeout time.Duration
}

// Option is a functional option for client configuration
type Option func(*client)

// WithAPIURL points the client at a different Slack API endpoint
func WithAPIURL(url string) Option {
	return func(c *client) {
		c.apiURL = url
	}
}

// WithTimeout overrides DefaultTimeout for the underlying HTTP client
func WithTimeout(d time.Duration) Option {
	return func(c *client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// New creates a new Slack service with the provided bot token
func New(token string, opts ...Option) (Service, error) {
	if token == "" {
		return nil, goerr.New("Slack bot token is required")
	}

	c := &client{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(c)
	}

	apiOpts := []slack.Option{
		slack.OptionHTTPClient(&http.Client{Timeout: c.timeout}),
	}
	if c.apiURL != "" {
		apiOpts = append(apiOpts, slack.OptionAPIURL(c.apiURL))
	}
	c.api = slack.New(token, apiOpts...)

	return c, nil
}

func (c *client) PostMessage(ctx context.Context, channelID string, blocks []slack.Block, text string) (string, error) {
	_, ts, err := c.api.PostMessageContext(ctx, channelID,
		slack.MsgOptionBlocks(blocks...),
		slack.MsgOptionText(text, false),
	)
	if err != nil {
		return "", goerr.Wrap(err, "failed to post Slack message", goerr.V("channel", channelID))
	}
	return ts, nil
}

// TruncateRunes cuts s to at most n characters, marking the cut with an ellipsis
func TruncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 1 {
		return string(runes[:n])
	}
	return string(runes[:n-1]) + "…"
}
