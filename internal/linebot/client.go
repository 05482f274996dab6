// Package linebot connects the ledger to the LINE Messaging API.
package linebot

import (
	"context"
	"fmt"
	"net/http"

	sdk "github.com/line/line-bot-sdk-go/v7/linebot"
)

// Messenger sends text to LINE users and groups.
type Messenger interface {
	// Reply answers an event through its reply token.
	Reply(ctx context.Context, replyToken, text string) error

	// Push sends text to a user, group or room ID.
	Push(ctx context.Context, to, text string) error

	// DisplayName looks up a user's profile name.
	DisplayName(ctx context.Context, userID string) (string, error)
}

// EventParser verifies a webhook request and extracts its events.
type EventParser interface {
	ParseRequest(r *http.Request) ([]*sdk.Event, error)
}

// Client is the SDK-backed Messenger and EventParser.
type Client struct {
	bot *sdk.Client
}

var (
	_ Messenger   = (*Client)(nil)
	_ EventParser = (*Client)(nil)
)

// NewClient creates a client for the channel.
func NewClient(channelSecret, channelAccessToken string) (*Client, error) {
	bot, err := sdk.New(channelSecret, channelAccessToken)
	if err != nil {
		return nil, fmt.Errorf("NewClient: %w", err)
	}
	return &Client{bot: bot}, nil
}

// ParseRequest verifies the X-Line-Signature header and decodes the events.
func (c *Client) ParseRequest(r *http.Request) ([]*sdk.Event, error) {
	return c.bot.ParseRequest(r)
}

// Reply implements Messenger.
func (c *Client) Reply(ctx context.Context, replyToken, text string) error {
	if _, err := c.bot.ReplyMessage(replyToken, sdk.NewTextMessage(text)).WithContext(ctx).Do(); err != nil {
		return fmt.Errorf("Reply: %w", err)
	}
	return nil
}

// Push implements Messenger.
func (c *Client) Push(ctx context.Context, to, text string) error {
	if _, err := c.bot.PushMessage(to, sdk.NewTextMessage(text)).WithContext(ctx).Do(); err != nil {
		return fmt.Errorf("Push: %w", err)
	}
	return nil
}

// DisplayName implements Messenger.
func (c *Client) DisplayName(ctx context.Context, userID string) (string, error) {
	profile, err := c.bot.GetProfile(userID).WithContext(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("DisplayName: %w", err)
	}
	return profile.DisplayName, nil
}
