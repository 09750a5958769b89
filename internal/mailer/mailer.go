// Package mailer renders and sends transactional email.
package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// Message is one outgoing email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer sends messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	FromName string
	Timeout  time.Duration
}

// SMTP sends mail through an authenticated SMTP server. Port 465 uses
// implicit TLS, any other port requires STARTTLS.
type SMTP struct {
	cfg Config
	now func() time.Time
}

// NewSMTP creates an SMTP mailer.
func NewSMTP(cfg Config) *SMTP {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SMTP{cfg: cfg, now: time.Now}
}

// Send delivers msg. The session is abandoned when ctx is done.
func (m *SMTP) Send(ctx context.Context, msg Message) error {
	raw, err := m.compose(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	conn, err := m.dial(ctx, addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := m.client(conn)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to start SMTP session: %w", err)
	}
	defer c.Close()

	if m.cfg.User != "" {
		if err := c.Auth(sasl.NewPlainClient("", m.cfg.User, m.cfg.Password)); err != nil {
			return fmt.Errorf("failed to authenticate: %w", err)
		}
	}
	if err := c.SendMail(m.cfg.User, []string{msg.To}, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("failed to send message to %s: %w", msg.To, err)
	}
	return c.Quit()
}

func (m *SMTP) tlsConfig() *tls.Config {
	return &tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12}
}

func (m *SMTP) dial(ctx context.Context, addr string) (net.Conn, error) {
	if m.cfg.Port == 465 {
		d := &tls.Dialer{Config: m.tlsConfig()}
		return d.DialContext(ctx, "tcp", addr)
	}
	var d net.Dialer
	return d.DialContext(ctx, "tcp", addr)
}

// client starts the session: port 465 is already TLS, any other port must
// upgrade with STARTTLS.
func (m *SMTP) client(conn net.Conn) (*smtp.Client, error) {
	if m.cfg.Port == 465 {
		return smtp.NewClient(conn), nil
	}
	return smtp.NewClientStartTLS(conn, m.tlsConfig())
}

// compose builds a multipart/alternative message with a plain-text part
// derived from the HTML.
func (m *SMTP) compose(msg Message) ([]byte, error) {
	return Compose(m.cfg.FromName, m.cfg.User, msg, m.now())
}

// Compose renders msg as an RFC 5322 message.
func Compose(fromName, fromAddress string, msg Message, date time.Time) ([]byte, error) {
	text, err := PlainText(msg.HTML)
	if err != nil {
		return nil, fmt.Errorf("failed to render text part: %w", err)
	}

	var h mail.Header
	h.SetDate(date)
	h.SetAddressList("From", []*mail.Address{{Name: fromName, Address: fromAddress}})
	h.SetAddressList("To", []*mail.Address{{Address: msg.To}})
	h.SetSubject(msg.Subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("failed to generate message id: %w", err)
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	tw, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("failed to create message body: %w", err)
	}
	if err := writePart(tw, "text/plain", text); err != nil {
		return nil, err
	}
	if err := writePart(tw, "text/html", msg.HTML); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writePart(tw *mail.InlineWriter, contentType, body string) error {
	var ph mail.InlineHeader
	ph.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	w, err := tw.CreatePart(ph)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		w.Close()
		return fmt.Errorf("failed to write %s part: %w", contentType, err)
	}
	return w.Close()
}

// Log writes messages to the log instead of sending them. It is used
// when SMTP is not configured.
type Log struct{}

// Send logs msg.
func (Log) Send(_ context.Context, msg Message) error {
	log.Printf("[mailer] SMTP not configured, skipping email to %s: %q", msg.To, msg.Subject)
	return nil
}
