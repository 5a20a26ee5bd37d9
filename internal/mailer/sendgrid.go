package mailer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tranzac/internal/config"
	"tranzac/internal/models"
)

// SendGridMailer sends estimate emails through the SendGrid v3 mail API.
type SendGridMailer struct {
	baseURL    string
	apiKey     string
	fromEmail  string
	fromName   string
	httpClient *http.Client
}

const defaultBaseURL = "https://api.sendgrid.com"

func NewSendGridMailer(cfg config.EmailConfig) *SendGridMailer {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &SendGridMailer{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     cfg.APIKey,
		fromEmail:  cfg.FromEmail,
		fromName:   cfg.FromName,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type personalization struct {
	To []address `json:"to"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type attachment struct {
	Content     string `json:"content"`
	Type        string `json:"type"`
	Filename    string `json:"filename"`
	Disposition string `json:"disposition"`
}

type mailRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             address           `json:"from"`
	ReplyTo          *address          `json:"reply_to,omitempty"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
	Attachments      []attachment      `json:"attachments,omitempty"`
}

type errorResponse struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// SendEstimate delivers one estimate email, PDF attached when present.
func (m *SendGridMailer) SendEstimate(ctx context.Context, msg models.EstimateEmail) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("no recipients: %w", models.ErrValidation)
	}
	if msg.Subject == "" || msg.Body == "" {
		return fmt.Errorf("subject and body are required: %w", models.ErrValidation)
	}

	to := make([]address, 0, len(msg.To))
	for _, email := range msg.To {
		to = append(to, address{Email: email})
	}

	payload := mailRequest{
		Personalizations: []personalization{{To: to}},
		From:             address{Email: m.fromEmail, Name: m.fromName},
		Subject:          msg.Subject,
		Content:          []content{{Type: "text/html", Value: msg.Body}},
	}
	if msg.ReplyTo != "" {
		payload.ReplyTo = &address{Email: msg.ReplyTo}
	}
	if len(msg.Attachment) > 0 {
		name := msg.AttachName
		if name == "" {
			name = "estimate.pdf"
		}
		payload.Attachments = []attachment{{
			Content:     base64.StdEncoding.EncodeToString(msg.Attachment),
			Type:        "application/pdf",
			Filename:    name,
			Disposition: "attachment",
		}}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal mail request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/v3/mail/send", strings.NewReader(string(data)))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sendgrid request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var parsed errorResponse
		if json.Unmarshal(body, &parsed) == nil && len(parsed.Errors) > 0 {
			return fmt.Errorf("sendgrid http %d: %s: %w", resp.StatusCode, parsed.Errors[0].Message, models.ErrExternalService)
		}
		return fmt.Errorf("sendgrid http %d: %w", resp.StatusCode, models.ErrExternalService)
	}
	return nil
}
