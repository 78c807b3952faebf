// Package notifier sends transactional email to marketplace users.
package notifier

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"sync"

	"github.com/freelancehub/app-indexer/internal/models"
)

var ErrNoRecipient = errors.New("notifier: recipient has no email address")

// EmailConfig holds SMTP settings
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// EmailMessage is one outgoing email
type EmailMessage struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// EmailSender abstracts the mail transport
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// SMTPClient sends mail through an SMTP relay. The whole exchange is
// bounded by the context deadline.
type SMTPClient struct {
	addr string
	host string
	auth smtp.Auth
}

func NewSMTPClient(cfg EmailConfig) *SMTPClient {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	var auth smtp.Auth
	if cfg.Username != "" && cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPClient{addr: addr, host: cfg.Host, auth: auth}
}

func (c *SMTPClient) Send(ctx context.Context, msg EmailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("dial smtp %s: %w", c.addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, c.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake with %s: %w", c.addr, err)
	}
	defer client.Close()

	if err := c.deliver(client, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", strings.Join(msg.To, ","), err)
	}
	return client.Quit()
}

func (c *SMTPClient) deliver(client *smtp.Client, msg EmailMessage) error {
	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: c.host}); err != nil {
			return err
		}
	}
	if c.auth != nil {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(c.auth); err != nil {
				return err
			}
		}
	}
	if err := client.Mail(msg.From); err != nil {
		return err
	}
	for _, rcpt := range msg.To {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(buildEmailData(msg))); err != nil {
		return err
	}
	return w.Close()
}

// MatchMailer tells freelancers about offers that match their profile
type MatchMailer struct {
	from   string
	appURL string
	sender EmailSender
}

// NewMatchMailer falls back to SMTP delivery when sender is nil
func NewMatchMailer(cfg EmailConfig, appURL string, sender EmailSender) *MatchMailer {
	if sender == nil {
		sender = NewSMTPClient(cfg)
	}
	return &MatchMailer{from: cfg.From, appURL: strings.TrimRight(appURL, "/"), sender: sender}
}

// SendMatch emails user about offer
func (m *MatchMailer) SendMatch(ctx context.Context, user *models.User, offer *models.ServiceOffer) error {
	if user == nil || strings.TrimSpace(user.Email) == "" {
		return ErrNoRecipient
	}
	return m.sender.Send(ctx, BuildMatchEmail(m.from, m.appURL, user, offer))
}

// BuildMatchEmail renders the offer match message
func BuildMatchEmail(from, appURL string, user *models.User, offer *models.ServiceOffer) EmailMessage {
	var b strings.Builder
	name := strings.TrimSpace(user.Name)
	if name == "" {
		name = "there"
	}
	b.WriteString(fmt.Sprintf("Hi %s,\n\n", name))
	b.WriteString("A new offer matches your profile:\n\n")
	b.WriteString(fmt.Sprintf("  %s\n", offer.Title))
	if offer.Budget > 0 {
		b.WriteString(fmt.Sprintf("  Budget: %.2f\n", offer.Budget))
	}
	if len(offer.Skills) > 0 {
		b.WriteString(fmt.Sprintf("  Skills: %s\n", strings.Join(offer.Skills, ", ")))
	}
	b.WriteString(fmt.Sprintf("\nSee the details at %s/offers/%s\n", appURL, offer.ID))

	return EmailMessage{
		From:    from,
		To:      []string{user.Email},
		Subject: fmt.Sprintf("New offer for you: %s", offer.Title),
		Body:    b.String(),
	}
}

func buildEmailData(msg EmailMessage) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("From: %s\r\n", msg.From))
	b.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(msg.To, ",")))
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Body)
	return b.String()
}

// FakeSender records messages instead of sending them
type FakeSender struct {
	mu   sync.Mutex
	sent []EmailMessage
	err  error
}

// Fail makes subsequent sends return err. Pass nil to recover.
func (f *FakeSender) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *FakeSender) Send(_ context.Context, msg EmailMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

// Sent returns a copy of the delivered messages
func (f *FakeSender) Sent() []EmailMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]EmailMessage(nil), f.sent...)
}
