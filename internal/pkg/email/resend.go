// Package email sends transactional email through the Resend API.
package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"
)

const defaultAPI = "https://api.resend.com"

// ErrDelivery is the kind for any failed send.
var ErrDelivery = errors.New("email: delivery failed")

// Config holds the Resend API configuration.
type Config struct {
	API    string `mapstructure:"api"`
	APIKey string `mapstructure:"apiKey"`
	From   string `mapstructure:"from"`
}

// Client is the Resend email channel.
type Client struct {
	cfg    Config
	client *resty.Client
}

func New(cfg Config) *Client {
	if cfg.API == "" {
		cfg.API = defaultAPI
	}
	if cfg.From == "" {
		cfg.From = "onboarding@resend.dev"
	}
	return &Client{
		cfg:    cfg,
		client: resty.New().SetBaseURL(cfg.API),
	}
}

// Send delivers a single HTML email. A 403 from the API is translated
// into a specific configuration error so the operator checks the API
// key and the verified sender domain instead of guessing.
func (c *Client) Send(ctx context.Context, to, subject, html string) error {
	payload := map[string]any{
		"from":    c.cfg.From,
		"to":      []string{to},
		"subject": subject,
		"html":    html,
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+c.cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post("/emails")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	if resp.StatusCode() == 403 {
		detail := apiMessage(resp, "Forbidden")
		return fmt.Errorf("%w: resend api 403: %s; make sure the API key is valid and the 'from' address belongs to a verified domain", ErrDelivery, detail)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("%w: resend api status %d: %s", ErrDelivery, resp.StatusCode(), apiMessage(resp, resp.Status()))
	}
	return nil
}

func apiMessage(resp *resty.Response, fallback string) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Message != "" {
		return body.Message
	}
	return fallback
}
