// Package delivery sends text replies through the WhatsApp Cloud API.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lewisedginton/whatsapp_router/pkg/logger"
)

const (
	DefaultBaseURL    = "https://graph.facebook.com"
	DefaultAPIVersion = "v20.0"
	DefaultTimeout    = 10 * time.Second

	maxBodyBytes = 1024
)

// ErrRejected is wrapped into Result.Err for non-2xx Graph responses.
var ErrRejected = errors.New("graph api rejected message")

// Result describes the outcome of a single send. It never carries a panic
// or a nil Err when OK is false.
type Result struct {
	OK         bool
	StatusCode int
	MessageID  string
	Body       string
	Err        error
}

// Sender delivers a text message to a WhatsApp user.
type Sender interface {
	Send(ctx context.Context, to, text string) Result
}

// Config holds the Graph API coordinates and credentials.
type Config struct {
	BaseURL       string
	APIVersion    string
	PhoneNumberID string
	Token         string
	Timeout       time.Duration
	HTTPClient    *http.Client
	Logger        logger.Logger
}

// Client is the Graph API Sender.
type Client struct {
	endpoint string
	token    string
	timeout  time.Duration
	http     *http.Client
	log      logger.Logger
}

// NewClient validates cfg and fills in the Graph API defaults.
func NewClient(cfg Config) (*Client, error) {
	if cfg.PhoneNumberID == "" {
		return nil, errors.New("phone number id is required")
	}
	if cfg.Token == "" {
		return nil, errors.New("access token is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNopLogger()
	}

	return &Client{
		endpoint: fmt.Sprintf("%s/%s/%s/messages", strings.TrimRight(cfg.BaseURL, "/"), cfg.APIVersion, cfg.PhoneNumberID),
		token:    cfg.Token,
		timeout:  cfg.Timeout,
		http:     cfg.HTTPClient,
		log:      cfg.Logger,
	}, nil
}

// Endpoint returns the messages URL the client posts to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

type textMessage struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body string `json:"body"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// Send posts one text message. There are no retries.
func (c *Client) Send(ctx context.Context, to, text string) Result {
	payload, err := json.Marshal(textMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             textBody{Body: text},
	})
	if err != nil {
		return Result{Err: fmt.Errorf("marshal message: %w", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Result{Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return Result{Err: fmt.Errorf("send message: %w", err)}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	res := Result{StatusCode: resp.StatusCode, Body: string(raw)}

	c.log.Debug("Graph API responded",
		logger.HTTPStatusField(resp.StatusCode),
		logger.DurationField("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		res.Err = fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
		return res
	}

	res.OK = true
	var parsed sendResponse
	if err := json.Unmarshal(raw, &parsed); err == nil && len(parsed.Messages) > 0 {
		res.MessageID = parsed.Messages[0].ID
	}
	return res
}
