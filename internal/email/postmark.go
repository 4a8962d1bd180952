package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const postmarkAPIURL = "https://api.postmarkapp.com/email"

// PostmarkSender implements the Sender interface using the Postmark API
type PostmarkSender struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

type postmarkEmail struct {
	From        string           `json:"From"`
	To          string           `json:"To"`
	ReplyTo     string           `json:"ReplyTo,omitempty"`
	Subject     string           `json:"Subject"`
	HtmlBody    string           `json:"HtmlBody,omitempty"`
	TextBody    string           `json:"TextBody,omitempty"`
	Headers     []postmarkHeader `json:"Headers,omitempty"`
	Attachments []postmarkAttach `json:"Attachments,omitempty"`
}

type postmarkHeader struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

type postmarkAttach struct {
	Name        string `json:"Name"`
	Content     string `json:"Content"`
	ContentType string `json:"ContentType"`
}

type postmarkResponse struct {
	To        string `json:"To"`
	MessageID string `json:"MessageID"`
	ErrorCode int    `json:"ErrorCode"`
	Message   string `json:"Message"`
}

// PostmarkOption customizes a PostmarkSender.
type PostmarkOption func(*PostmarkSender)

// WithPostmarkEndpoint overrides the API URL.
func WithPostmarkEndpoint(url string) PostmarkOption {
	return func(p *PostmarkSender) { p.endpoint = url }
}

// WithPostmarkTransport sets the HTTP transport, e.g. a tracing round tripper.
func WithPostmarkTransport(rt http.RoundTripper) PostmarkOption {
	return func(p *PostmarkSender) { p.client.Transport = rt }
}

// NewPostmarkSender creates a new Postmark email sender
func NewPostmarkSender(apiKey string, opts ...PostmarkOption) *PostmarkSender {
	p := &PostmarkSender{
		apiKey:   apiKey,
		endpoint: postmarkAPIURL,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Send sends an email via Postmark
func (p *PostmarkSender) Send(ctx context.Context, email *Email) (string, error) {
	if len(email.To) == 0 {
		return "", ErrNoRecipients
	}

	payload := postmarkEmail{
		From:     email.From,
		To:       strings.Join(email.To, ","),
		ReplyTo:  email.ReplyTo,
		Subject:  email.Subject,
		HtmlBody: email.HTMLBody,
		TextBody: email.TextBody,
	}

	for name, value := range email.Headers {
		payload.Headers = append(payload.Headers, postmarkHeader{Name: name, Value: value})
	}

	for _, att := range email.Attachments {
		payload.Attachments = append(payload.Attachments, postmarkAttach{
			Name:        att.Filename,
			Content:     base64.StdEncoding.EncodeToString(att.Content),
			ContentType: att.ContentType,
		})
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Postmark-Server-Token", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var result postmarkResponse
	_ = json.Unmarshal(body, &result)

	if resp.StatusCode != http.StatusOK {
		msg := result.Message
		if msg == "" {
			msg = string(body)
		}
		return "", &DeliveryError{Provider: "postmark", Status: resp.StatusCode, Message: msg}
	}

	if result.ErrorCode != 0 {
		return "", &DeliveryError{Provider: "postmark", Message: fmt.Sprintf("error %d: %s", result.ErrorCode, result.Message)}
	}

	return result.MessageID, nil
}
