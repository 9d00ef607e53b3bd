// Package mailer sends transactional email through the provider's REST API.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	pkgerrors "github.com/maplecart/storefront-backend/pkg/errors"
)

const (
	defaultBaseURL = "https://api.resend.com"
	defaultTimeout = 10 * time.Second
	errBodyLimit   = 1024
)

var (
	errAPIKeyRequired = errors.New("email api key is required")
	errFromRequired   = errors.New("email from address is required")
)

// Message is a single transactional email.
type Message struct {
	To      []string
	Subject string
	HTML    string
	Text    string
	ReplyTo string
	Tags    map[string]string
}

// Client sends mail through an HTTP email provider.
type Client struct {
	http *resty.Client
	from string
}

type options struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures optional client behavior.
type Option func(*options)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithBaseURL overrides the provider base URL.
func WithBaseURL(baseURL string) Option {
	return func(o *options) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			o.baseURL = trimmed
		}
	}
}

func NewClient(apiKey, from string, opts ...Option) (*Client, error) {
	apiKey, from = strings.TrimSpace(apiKey), strings.TrimSpace(from)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	if from == "" {
		return nil, errFromRequired
	}

	o := options{httpClient: &http.Client{Timeout: defaultTimeout}, baseURL: defaultBaseURL}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	rc := resty.NewWithClient(o.httpClient).
		SetBaseURL(strings.TrimRight(o.baseURL, "/")).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(0)
	return &Client{http: rc, from: from}, nil
}

type sendPayload struct {
	From    string              `json:"from"`
	To      []string            `json:"to"`
	Subject string              `json:"subject"`
	HTML    string              `json:"html,omitempty"`
	Text    string              `json:"text,omitempty"`
	ReplyTo string              `json:"reply_to,omitempty"`
	Tags    []map[string]string `json:"tags,omitempty"`
}

// Send delivers msg and returns the provider message id.
func (c *Client) Send(ctx context.Context, msg Message) (string, error) {
	if c == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "email client not configured")
	}
	recipients := make([]string, 0, len(msg.To))
	for _, to := range msg.To {
		if trimmed := strings.TrimSpace(to); trimmed != "" {
			recipients = append(recipients, trimmed)
		}
	}
	if len(recipients) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "email recipient is required")
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "email subject is required")
	}

	payload := sendPayload{
		From:    c.from,
		To:      recipients,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
		ReplyTo: msg.ReplyTo,
	}
	names := make([]string, 0, len(msg.Tags))
	for name := range msg.Tags {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		payload.Tags = append(payload.Tags, map[string]string{"name": name, "value": msg.Tags[name]})
	}

	var sent struct {
		ID string `json:"id"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&sent).
		ExpectContentType("application/json").
		Post("/emails")
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute email request")
	}
	if resp.IsError() {
		body := strings.TrimSpace(string(resp.Body()))
		if len(body) > errBodyLimit {
			body = body[:errBodyLimit]
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode(), body), "email request failed")
	}
	if sent.ID == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "email provider returned no message id")
	}
	return sent.ID, nil
}
