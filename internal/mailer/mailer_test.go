package mailer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusUpdateMessage(t *testing.T) {
	msg, err := StatusUpdateMessage(StatusUpdate{
		ApplicantName:  "Ada <Lovelace>",
		ApplicantEmail: "ada@example.com",
		JobTitle:       "Backend Engineer",
		Status:         "Accepted",
	})
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", msg.To)
	assert.Equal(t, "Application Status Update - Backend Engineer", msg.Subject)
	assert.Contains(t, msg.HTML, "ACCEPTED")
	assert.Contains(t, msg.HTML, "Ada &lt;Lovelace&gt;")
}

func TestInterviewMessage(t *testing.T) {
	at := time.Date(2030, time.March, 4, 15, 30, 0, 0, time.UTC)
	msg, err := InterviewMessage(Interview{
		ApplicantName:  "Grace",
		ApplicantEmail: "grace@example.com",
		JobTitle:       "SRE",
		CompanyName:    "Acme",
		Location:       "Remote",
		Link:           "https://meet.example.com/abc",
		At:             at,
	})
	require.NoError(t, err)

	assert.Equal(t, "Interview Scheduled: SRE", msg.Subject)
	assert.Contains(t, msg.HTML, "Monday, March 4, 2030 at 03:30 PM UTC")
	assert.Contains(t, msg.HTML, `href="https://meet.example.com/abc"`)
	assert.Contains(t, msg.HTML, "Acme Recruiting Team")
}

func TestPlainText(t *testing.T) {
	text, err := PlainText(`<div><h2>Hello</h2><p>Line one<br/>Line   two</p>
		<p><a href="https://x.example.com">Open</a></p><style>p{}</style></div>`)
	require.NoError(t, err)
	assert.Equal(t, "Hello\nLine one\nLine two\nOpen (https://x.example.com)", text)
}

func TestCompose(t *testing.T) {
	date := time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC)
	raw, err := Compose("Next Hire", "noreply@example.com", Message{
		To:      "ada@example.com",
		Subject: "Hi",
		HTML:    "<p>Hello <b>Ada</b></p>",
	}, date)
	require.NoError(t, err)

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	require.NoError(t, err)

	subject, err := mr.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Hi", subject)

	from, err := mr.Header.AddressList("From")
	require.NoError(t, err)
	require.Len(t, from, 1)
	assert.Equal(t, "Next Hire", from[0].Name)
	assert.Equal(t, "noreply@example.com", from[0].Address)

	var parts []string
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		body, err := io.ReadAll(p.Body)
		require.NoError(t, err)
		ct, _, _ := p.Header.(*mail.InlineHeader).ContentType()
		parts = append(parts, ct+": "+strings.TrimSpace(string(body)))
	}
	assert.Equal(t, []string{
		"text/plain: Hello Ada",
		"text/html: <p>Hello <b>Ada</b></p>",
	}, parts)
}

func TestTemplateError(t *testing.T) {
	_, err := render("missing.html", nil)
	var te *TemplateError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "missing.html", te.Template)
}

func TestSMTPSend_AbandonsSilentServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()
	defer func() {
		select {
		case conn := <-accepted:
			conn.Close()
		default:
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	m := NewSMTP(Config{Host: "127.0.0.1", Port: port, User: "bot@example.com", Password: "x", Timeout: 200 * time.Millisecond})

	start := time.Now()
	err = m.Send(context.Background(), Message{To: "ada@example.com", Subject: "Hi", HTML: "<p>Hi</p>"})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSMTPSend_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewSMTP(Config{Host: "127.0.0.1", Port: 1, Timeout: time.Second})
	err := m.Send(ctx, Message{To: "ada@example.com", Subject: "Hi", HTML: "<p>Hi</p>"})
	assert.Error(t, err)
}
