package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Sender dispatches one message. Callers treat a failure as non-fatal.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	timeout  time.Duration
}

func NewSMTPSender(host string, port int, user, pass, from string) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		username: user,
		password: pass,
		from:     from,
		timeout:  15 * time.Second,
	}
}

// Send uses implicit TLS on port 465 and opportunistic STARTTLS elsewhere.
func (e *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	serverAddr := net.JoinHostPort(e.host, strconv.Itoa(e.port))
	dialer := &net.Dialer{Timeout: e.timeout}
	tlsConfig := &tls.Config{ServerName: e.host}

	var conn net.Conn
	var err error
	if e.port == 465 {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", serverAddr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", serverAddr)
	}
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(e.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	client, err := smtp.NewClient(conn, e.host)
	if err != nil {
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if e.port != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				return fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}

	if e.username != "" {
		auth := smtp.PlainAuth("", e.username, e.password, e.host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(e.from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(buildMessage(e.from, to, subject, body)); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp data close: %w", err)
	}
	return client.Quit()
}

func buildMessage(from, to, subject, body string) []byte {
	return []byte(
		"From: " + headerSafe(from) + "\r\n" +
			"To: " + headerSafe(to) + "\r\n" +
			"Subject: " + headerSafe(subject) + "\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=\"utf-8\"\r\n" +
			"\r\n" +
			body,
	)
}

var headerBreaks = strings.NewReplacer("\r", " ", "\n", " ")

func headerSafe(v string) string {
	return headerBreaks.Replace(v)
}

// LogSender writes messages to the log instead of sending them. It stands in
// when no SMTP host is configured.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (l *LogSender) Send(_ context.Context, to, subject, body string) error {
	l.logger.Info("email not sent, no SMTP host configured",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body))
	return nil
}
