package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"clinic-auth/pkg/utils"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTPSender struct {
	addr     string
	from     string
	auth     smtp.Auth
	sendMail sendMailFunc
}

func NewSMTPSender(config utils.EmailConfig) *SMTPSender {
	var auth smtp.Auth
	if config.User != "" {
		auth = smtp.PlainAuth("", config.User, config.Password, config.Host)
	}
	return &SMTPSender{
		addr:     net.JoinHostPort(config.Host, strconv.Itoa(config.Port)),
		from:     config.From,
		auth:     auth,
		sendMail: smtp.SendMail,
	}
}

func (s *SMTPSender) SendOTP(ctx context.Context, destination, code, purpose string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(destination, "\r\n") {
		return fmt.Errorf("invalid email destination")
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.from)
	fmt.Fprintf(&msg, "To: %s\r\n", destination)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject(purpose))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	msg.WriteString(messageBody(code, purpose))
	msg.WriteString("\r\n")

	if err := s.sendMail(s.addr, s.auth, s.from, []string{destination}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
