package notifier

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/freelancehub/app-indexer/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	user  = &models.User{ID: "u1", Name: "Ana", Email: "ana@example.com"}
	offer = &models.ServiceOffer{ID: "o1", Title: "Go backend for payments", Budget: 1500, Skills: []string{"go", "redis"}}
)

func TestBuildMatchEmail(t *testing.T) {
	msg := BuildMatchEmail("no-reply@example.com", "https://app.example.com", user, offer)

	assert.Equal(t, "no-reply@example.com", msg.From)
	assert.Equal(t, []string{"ana@example.com"}, msg.To)
	assert.Equal(t, "New offer for you: Go backend for payments", msg.Subject)
	assert.Contains(t, msg.Body, "Hi Ana,")
	assert.Contains(t, msg.Body, "Budget: 1500.00")
	assert.Contains(t, msg.Body, "Skills: go, redis")
	assert.Contains(t, msg.Body, "https://app.example.com/offers/o1")
}

func TestBuildEmailData(t *testing.T) {
	data := buildEmailData(EmailMessage{From: "a@x.com", To: []string{"b@x.com", "c@x.com"}, Subject: "Hi", Body: "hello"})

	assert.True(t, strings.HasPrefix(data, "From: a@x.com\r\nTo: b@x.com,c@x.com\r\nSubject: Hi\r\n"))
	assert.True(t, strings.HasSuffix(data, "\r\n\r\nhello"))
}

func TestMatchMailer_SendMatch(t *testing.T) {
	sender := &FakeSender{}
	mailer := NewMatchMailer(EmailConfig{From: "no-reply@example.com"}, "https://app.example.com/", sender)

	require.NoError(t, mailer.SendMatch(context.Background(), user, offer))
	sent := sender.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Body, "https://app.example.com/offers/o1")

	assert.ErrorIs(t, mailer.SendMatch(context.Background(), &models.User{ID: "u2"}, offer), ErrNoRecipient)
	assert.ErrorIs(t, mailer.SendMatch(context.Background(), nil, offer), ErrNoRecipient)

	boom := errors.New("smtp down")
	sender.Fail(boom)
	assert.ErrorIs(t, mailer.SendMatch(context.Background(), user, offer), boom)
	assert.Len(t, sender.Sent(), 1)
}

func TestSMTPClient_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewSMTPClient(EmailConfig{Host: "127.0.0.1", Port: 1}).Send(ctx, EmailMessage{To: []string{"a@x.com"}})
	assert.ErrorIs(t, err, context.Canceled)
}

// fakeSMTPServer answers a single SMTP session and returns the DATA payload
func fakeSMTPServer(t *testing.T) (addr string, data <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	out := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		reply := func(line string) { _, _ = conn.Write([]byte(line + "\r\n")) }

		reply("220 localhost ESMTP")
		var body strings.Builder
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			cmd := strings.ToUpper(strings.TrimSpace(line))
			switch {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				reply("250 localhost")
			case strings.HasPrefix(cmd, "MAIL"), strings.HasPrefix(cmd, "RCPT"):
				reply("250 OK")
			case cmd == "DATA":
				reply("354 go ahead")
				for {
					l, err := r.ReadString('\n')
					if err != nil {
						return
					}
					if l == ".\r\n" {
						break
					}
					body.WriteString(l)
				}
				out <- body.String()
				reply("250 queued")
			case cmd == "QUIT":
				reply("221 bye")
				return
			default:
				reply("502 not implemented")
			}
		}
	}()
	return ln.Addr().String(), out
}

func smtpConfig(t *testing.T, addr string) EmailConfig {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := net.LookupPort("tcp", portStr)
	require.NoError(t, err)
	return EmailConfig{Host: host, Port: port, From: "no-reply@example.com"}
}

func TestSMTPClient_Send(t *testing.T) {
	addr, data := fakeSMTPServer(t)
	client := NewSMTPClient(smtpConfig(t, addr))

	msg := BuildMatchEmail("no-reply@example.com", "https://app.example.com", user, offer)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, client.Send(ctx, msg))

	select {
	case body := <-data:
		assert.Contains(t, body, "Subject: New offer for you: Go backend for payments")
	case <-time.After(5 * time.Second):
		t.Fatal("server did not receive the message")
	}
}

func TestSMTPClient_HungServerRespectsDeadline(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		// never greet
		time.Sleep(5 * time.Second)
	}()

	client := NewSMTPClient(smtpConfig(t, ln.Addr().String()))
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = client.Send(ctx, EmailMessage{From: "no-reply@example.com", To: []string{"a@x.com"}})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
