package mail

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

	"github.com/boticalabs/botica-backend/pkg/config"
	"github.com/boticalabs/botica-backend/pkg/logger"
)

const sendPath = "/v3/mail/send"

var (
	errAPIKeyRequired    = errors.New("mail api key is required")
	errFromEmailRequired = errors.New("mail from address is required")
)

// Client sends transactional mail through the SendGrid v3 REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	fromEmail  string
	fromName   string
	logger     *logger.Logger
}

// Message is a single outbound email. At least one body is required.
type Message struct {
	To       string
	ToName   string
	Subject  string
	TextBody string
	HTMLBody string
}

// NewClient validates the mail configuration and returns a ready client.
func NewClient(ctx context.Context, cfg config.MailConfig, logg *logger.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	fromEmail := strings.TrimSpace(cfg.FromEmail)
	if fromEmail == "" {
		return nil, errFromEmailRequired
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.sendgrid.com"
	}

	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		fromEmail:  fromEmail,
		fromName:   strings.TrimSpace(cfg.FromName),
		logger:     logg,
	}

	if logg != nil {
		logg.Info(ctx, "mail client initialized")
	}
	return c, nil
}

type emailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendRequest struct {
	Personalizations []struct {
		To []emailAddress `json:"to"`
	} `json:"personalizations"`
	From    emailAddress  `json:"from"`
	Subject string        `json:"subject"`
	Content []mailContent `json:"content"`
}

// Send delivers one message. Callers treat failures as best-effort: log and
// continue, never abort the surrounding operation.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if c == nil {
		return errors.New("mail client not initialized")
	}
	to := strings.TrimSpace(msg.To)
	if to == "" {
		return errors.New("recipient is required")
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return errors.New("subject is required")
	}

	// SendGrid requires text/plain before text/html.
	var content []mailContent
	if body := strings.TrimSpace(msg.TextBody); body != "" {
		content = append(content, mailContent{Type: "text/plain", Value: body})
	}
	if body := strings.TrimSpace(msg.HTMLBody); body != "" {
		content = append(content, mailContent{Type: "text/html", Value: body})
	}
	if len(content) == 0 {
		return errors.New("message body is required")
	}

	payload := sendRequest{
		From:    emailAddress{Email: c.fromEmail, Name: c.fromName},
		Subject: msg.Subject,
		Content: content,
	}
	payload.Personalizations = []struct {
		To []emailAddress `json:"to"`
	}{{To: []emailAddress{{Email: to, Name: strings.TrimSpace(msg.ToName)}}}}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+sendPath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if len(snippet) > 0 {
			return fmt.Errorf("mail send failed: %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
		}
		return fmt.Errorf("mail send failed: %s", resp.Status)
	}

	if c.logger != nil {
		c.logger.Info(c.logger.WithFields(ctx, map[string]any{"subject": msg.Subject}), "mail sent")
	}
	return nil
}
