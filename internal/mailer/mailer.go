// Package mailer предоставляет SMTP-транспорт для отправки писем с вложениями.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// TLSMode задаёт способ защиты SMTP-соединения.
type TLSMode string

const (
	// TLSImplicit включает TLS с момента подключения (обычно порт 465).
	TLSImplicit TLSMode = "ssl"
	// TLSStartTLS требует STARTTLS (обычно порт 587).
	TLSStartTLS TLSMode = "starttls"
)

const defaultTimeout = 15 * time.Second

// Attachment описывает вложение письма.
type Attachment struct {
	Filename string
	Data     []byte
}

// Message описывает письмо одному получателю.
type Message struct {
	To          string
	ReplyTo     string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Transport отправляет пачку писем за одно соединение.
type Transport interface {
	Send(ctx context.Context, msgs ...Message) error
}

// SendError возвращается, если отправка прервалась. Sent показывает, сколько писем ушло до сбоя.
type SendError struct {
	Sent int
	Err  error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("smtp send failed after %d message(s): %v", e.Sent, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// Config содержит параметры подключения к SMTP-серверу.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	TLS      TLSMode
	Timeout  time.Duration
}

// SMTPTransport отправляет письма через SMTP. Соединение открывается на каждый вызов Send
// и закрывается до возврата.
type SMTPTransport struct {
	cfg    Config
	logger *zap.Logger
}

// NewSMTPTransport создаёт SMTP-транспорт.
func NewSMTPTransport(cfg Config, logger *zap.Logger) *SMTPTransport {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.TLS == "" {
		cfg.TLS = TLSImplicit
		if cfg.Port == 587 {
			cfg.TLS = TLSStartTLS
		}
	}
	return &SMTPTransport{cfg: cfg, logger: logger}
}

// Send отправляет письма по порядку и останавливается на первой ошибке.
func (t *SMTPTransport) Send(ctx context.Context, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}

	built := make([]*mail.Msg, 0, len(msgs))
	for _, m := range msgs {
		msg, err := buildMsg(t.cfg.From, m)
		if err != nil {
			return &SendError{Err: err}
		}
		built = append(built, msg)
	}

	client, err := mail.NewClient(t.cfg.Host, t.options()...)
	if err != nil {
		return &SendError{Err: t.redact(fmt.Errorf("create smtp client: %w", err))}
	}

	if err := client.DialWithContext(ctx); err != nil {
		return &SendError{Err: t.redact(fmt.Errorf("dial %s:%d: %w", t.cfg.Host, t.cfg.Port, err))}
	}
	defer func() {
		if err := client.Close(); err != nil {
			t.logger.Warn("smtp close error", zap.Error(t.redact(err)))
		}
	}()

	for i, msg := range built {
		if err := client.Send(msg); err != nil {
			return &SendError{Sent: i, Err: t.redact(fmt.Errorf("send to %s: %w", msgs[i].To, err))}
		}
		t.logger.Debug("smtp message sent", zap.String("to", msgs[i].To), zap.Int("attachments", len(msgs[i].Attachments)))
	}

	return nil
}

func (t *SMTPTransport) options() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(t.cfg.Port),
		mail.WithTimeout(t.cfg.Timeout),
	}

	if t.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(t.cfg.Username),
			mail.WithPassword(t.cfg.Password),
		)
	}

	switch t.cfg.TLS {
	case TLSStartTLS:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		opts = append(opts, mail.WithSSL())
	}

	return opts
}

// redact убирает пароль SMTP из текста ошибки.
func (t *SMTPTransport) redact(err error) error {
	if err == nil || t.cfg.Password == "" || !strings.Contains(err.Error(), t.cfg.Password) {
		return err
	}
	return &redactedError{
		msg: strings.ReplaceAll(err.Error(), t.cfg.Password, "[redacted]"),
		err: err,
	}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func buildMsg(from string, m Message) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("set from %q: %w", from, err)
	}
	if err := msg.To(m.To); err != nil {
		return nil, fmt.Errorf("set recipient %q: %w", m.To, err)
	}
	if m.ReplyTo != "" {
		if err := msg.ReplyTo(m.ReplyTo); err != nil {
			return nil, fmt.Errorf("set reply-to %q: %w", m.ReplyTo, err)
		}
	}
	msg.Subject(m.Subject)
	msg.SetDate()
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextPlain, m.Body)

	for _, a := range m.Attachments {
		err := msg.AttachReader(a.Filename, bytes.NewReader(a.Data),
			mail.WithFileContentType(mail.TypeAppOctetStream),
			mail.WithFileEncoding(mail.EncodingB64),
		)
		if err != nil {
			return nil, fmt.Errorf("attach %s: %w", a.Filename, err)
		}
	}

	return msg, nil
}
