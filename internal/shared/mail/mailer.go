// Package mail 激活邮件发送
//
// 对核心流程来说邮件是 fire-and-forget 的：发送失败只记录日志，
// 不阻断注册流程（激活码同时会写进服务端日志，便于人工补发）。
package mail

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
)

// Mailer 邮件发送接口
type Mailer interface {
	SendActivationMail(ctx context.Context, email, login, activationTokenID string) error
}

// ============================================================================
// SMTPMailer
// ============================================================================

// Config SMTP 配置
type Config struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	From     string `yaml:"from"`
	Username string `yaml:"-"` // 只从 SMTP_USERNAME 环境变量读取
	Password string `yaml:"-"` // 只从 SMTP_PASSWORD 环境变量读取
}

// Enabled 是否配置了 SMTP
func (c Config) Enabled() bool {
	return c.Host != ""
}

// SMTPMailer 基于 net/smtp 的实现
type SMTPMailer struct {
	cfg Config
}

// NewSMTPMailer 创建 SMTP 发送器
func NewSMTPMailer(cfg Config) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// SendActivationMail 发送激活邮件
func (m *SMTPMailer) SendActivationMail(ctx context.Context, email, login, activationTokenID string) error {
	body := fmt.Sprintf("To: %s\r\nFrom: %s\r\nSubject: Activate your account\r\n\r\n"+
		"Hi %s,\r\n\r\nactivate your account with this code: %s\r\n",
		email, m.cfg.From, login, activationTokenID)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{email}, []byte(body)); err != nil {
		return fmt.Errorf("send activation mail to %s: %w", email, err)
	}
	return nil
}

// ============================================================================
// NoOpMailer
// ============================================================================

// NoOpMailer 未配置 SMTP 时的空实现，只记录日志
type NoOpMailer struct{}

// NewNoOpMailer 创建空实现
func NewNoOpMailer() *NoOpMailer {
	return &NoOpMailer{}
}

// SendActivationMail 只记录激活码，不实际发送
func (m *NoOpMailer) SendActivationMail(ctx context.Context, email, login, activationTokenID string) error {
	log.Printf("[Mail] SMTP disabled, activation code for %s (%s): %s", login, email, activationTokenID)
	return nil
}

var _ Mailer = (*SMTPMailer)(nil)
var _ Mailer = (*NoOpMailer)(nil)
