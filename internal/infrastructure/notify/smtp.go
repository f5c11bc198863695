package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"GenAIMonitor/internal/domain"
	"GenAIMonitor/internal/ports"
)

// SMTPConfig describes the relay and the envelope.
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	Sender    string
	Recipient string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTP emails a plain-text run summary.
type SMTP struct {
	cfg  SMTPConfig
	send sendFunc
	now  func() time.Time
}

var _ ports.Notifier = (*SMTP)(nil)

func NewSMTP(cfg SMTPConfig) *SMTP {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Sender == "" {
		cfg.Sender = cfg.Username
	}
	return &SMTP{cfg: cfg, send: smtp.SendMail, now: time.Now}
}

func (s *SMTP) NotifyRun(ctx context.Context, report domain.RunReport) error {
	if s.cfg.Host == "" || s.cfg.Recipient == "" || s.cfg.Sender == "" {
		return fmt.Errorf("smtp notifier misconfigured")
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	msg := s.message(report)

	// smtp.SendMail takes no context; the goroutine is abandoned on cancel.
	done := make(chan error, 1)
	go func() {
		done <- s.send(addr, auth, s.cfg.Sender, []string{s.cfg.Recipient}, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send mail: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send mail: %w", ctx.Err())
	}
}

func (s *SMTP) message(report domain.RunReport) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.cfg.Sender)
	fmt.Fprintf(&b, "To: %s\r\n", s.cfg.Recipient)
	fmt.Fprintf(&b, "Subject: %s\r\n", Subject(report))
	fmt.Fprintf(&b, "Date: %s\r\n", s.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(PlainText(report), "\n", "\r\n"))
	return []byte(b.String())
}
