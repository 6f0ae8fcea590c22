// Package mailer はマジックリンクメールの送信を提供する。
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// Sender はメール送信のインターフェース。
// 本番環境ではSMTPSender、それ以外ではLogSenderを使用する。
type Sender interface {
	// Send はHTMLメールを送信する。
	Send(ctx context.Context, to, subject, html string) error
}

// SMTPConfig はSMTP送信の設定。
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender はSMTP経由でメールを送信する。
type SMTPSender struct {
	config SMTPConfig
}

// NewSMTPSender はSMTPSenderを生成する。
func NewSMTPSender(config SMTPConfig) *SMTPSender {
	return &SMTPSender{config: config}
}

// Send はHTMLメールをSMTPで送信する。
func (s *SMTPSender) Send(ctx context.Context, to, subject, html string) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)

	msg := s.buildMessage(to, subject, html)
	if err := smtp.SendMail(addr, auth, s.config.From, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	return nil
}

// buildMessage はRFCに沿ったHTMLメールメッセージを組み立てる。
func (s *SMTPSender) buildMessage(to, subject, html string) []byte {
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", s.config.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(html)
	msg.WriteString("\r\n")
	return []byte(msg.String())
}

// LogSender はメールを送信せず、内容を運用ログに出力する。
// 開発環境でマジックリンクを確認するために使用する。
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender はLogSenderを生成する。
// loggerがnilの場合はデフォルトロガーを使用する。
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// Send はメールの内容をログに出力する。
func (s *LogSender) Send(ctx context.Context, to, subject, html string) error {
	s.logger.InfoContext(ctx, "magic link email (not sent)",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.String("html", html),
	)
	return nil
}

// compile-time interface checks
var (
	_ Sender = (*SMTPSender)(nil)
	_ Sender = (*LogSender)(nil)
)
