package mail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/noobiecoder75/bookinggpt-api/internal/common"
)

// GmailConfig holds the OAuth2 material for the Gmail sender.
type GmailConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	From         string
}

// Configured reports whether all required Gmail credentials are present.
func (c GmailConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != "" && c.From != ""
}

// GmailSender sends mail through the Gmail API. All connection state lives on
// the struct; construction fails fast on incomplete credentials.
type GmailSender struct {
	service *gmail.Service
	from    string
}

// NewGmailSender builds a Gmail-backed sender from OAuth2 refresh-token credentials.
func NewGmailSender(ctx context.Context, cfg GmailConfig) (*GmailSender, error) {
	if !cfg.Configured() {
		return nil, errors.New("mail: gmail credentials are incomplete")
	}
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmail.GmailSendScope},
	}
	source := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
	service, err := gmail.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, fmt.Errorf("mail: init gmail service: %w", err)
	}
	return &GmailSender{service: service, from: cfg.From}, nil
}

// Send delivers the message through the authenticated Gmail account.
func (g *GmailSender) Send(ctx context.Context, msg common.EmailMessage) (common.SendResult, error) {
	if len(msg.To) == 0 {
		return common.SendResult{}, errors.New("mail: at least one recipient is required")
	}
	raw := buildRFC2822(g.from, msg)
	sent, err := g.service.Users.Messages.Send("me", &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}).Context(ctx).Do()
	if err != nil {
		return common.SendResult{}, fmt.Errorf("mail: gmail send: %w", err)
	}
	return common.SendResult{Success: true, MessageID: sent.Id}, nil
}

func buildRFC2822(from string, msg common.EmailMessage) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return []byte(b.String())
}
