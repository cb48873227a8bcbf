// Package mailtrap sends transactional email via the Mailtrap API.
package mailtrap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
)

// Service sends the account lifecycle emails. Both sends are best-effort:
// callers log failures but never fail the request over them.
type Service interface {
	SendWelcome(toEmail, toName string) error
	SendGoodbye(toEmail, toName string) error
}

type MailtrapService struct {
	APIKey string
	URL    string
	From   EmailRecipient
}

func NewMailtrapService() *MailtrapService {
	return &MailtrapService{
		APIKey: os.Getenv("MAILTRAP_API_KEY"),
		URL:    os.Getenv("MAILTRAP_API_URL"),
		From: EmailRecipient{
			Email: "noreply@taskhive.dev",
			Name:  "Task Service",
		},
	}
}

// EmailRecipient represents an email recipient.
type EmailRecipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// EmailRequest represents the request payload for sending an email.
type EmailRequest struct {
	From     EmailRecipient   `json:"from"`
	To       []EmailRecipient `json:"to"`
	Subject  string           `json:"subject"`
	Text     string           `json:"text"`
	Category string           `json:"category,omitempty"`
}

// SendWelcome greets a freshly registered user.
func (m *MailtrapService) SendWelcome(toEmail, toName string) error {
	body := fmt.Sprintf(
		"Welcome to the app, %s. Let me know how you get along with it.",
		toName,
	)
	return m.sendEmail(EmailRequest{
		From:     m.From,
		To:       []EmailRecipient{{Email: toEmail, Name: toName}},
		Subject:  "Thanks for joining in!",
		Text:     body,
		Category: "welcome",
	})
}

// SendGoodbye confirms account deletion.
func (m *MailtrapService) SendGoodbye(toEmail, toName string) error {
	body := fmt.Sprintf(
		"Goodbye, %s. Your account and all of your tasks have been deleted. "+
			"I hope to see you back sometime soon.",
		toName,
	)
	return m.sendEmail(EmailRequest{
		From:     m.From,
		To:       []EmailRecipient{{Email: toEmail, Name: toName}},
		Subject:  "Sorry to see you go",
		Text:     body,
		Category: "account_closed",
	})
}

// sendEmail sends an email via the Mailtrap API.
func (m *MailtrapService) sendEmail(emailReq EmailRequest) error {
	payload, err := json.Marshal(emailReq)
	if err != nil {
		return fmt.Errorf("failed to marshal email request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, m.URL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+m.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("mailtrap API returned status: %d", resp.StatusCode)
	}

	return nil
}
