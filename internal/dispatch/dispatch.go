// Package dispatch рассылает отрисованную сводку заказа цеху и клиенту.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mmeshcher/flexylabel-order/internal/document"
	"github.com/mmeshcher/flexylabel-order/internal/mailer"
	"github.com/mmeshcher/flexylabel-order/internal/model"
)

// Role определяет, какой комплект получает адресат.
type Role string

const (
	// RoleShop получает сводку и макет клиента.
	RoleShop Role = "shop"
	// RoleCustomer получает только сводку.
	RoleCustomer Role = "customer"
)

// Recipient описывает адресата рассылки.
type Recipient struct {
	Address string `json:"address"`
	Role    Role   `json:"role"`
}

// Envelope содержит данные заказа для темы и текста писем.
type Envelope struct {
	Reference  string
	ClientName string
	ReplyTo    string
	Summary    string
}

// Result описывает успешную рассылку.
type Result struct {
	Delivered []Recipient
}

// Error описывает сбой почтового транспорта. Повторная отправка не выполняется.
type Error struct {
	Delivered []Recipient
	Failed    []Recipient
	Err       error
}

func (e *Error) Error() string {
	return "dispatch failed: " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Partial сообщает, что часть писем уже ушла до сбоя.
func (e *Error) Partial() bool {
	return len(e.Delivered) > 0
}

// Dispatcher собирает письма и передаёт их транспорту за одно соединение.
type Dispatcher struct {
	transport mailer.Transport
	company   string
}

// NewDispatcher создаёт рассыльщик поверх почтового транспорта.
func NewDispatcher(transport mailer.Transport, company string) *Dispatcher {
	return &Dispatcher{transport: transport, company: company}
}

// Send отправляет сводку всем адресатам. Письма цеху уходят первыми и содержат макет;
// копия клиенту содержит только сводку. Один и тот же документ прикладывается ко всем письмам.
func (d *Dispatcher) Send(ctx context.Context, env Envelope, doc *document.Document, design *model.Attachment, recipients []Recipient) (*Result, error) {
	if doc == nil {
		return nil, errors.New("dispatch: no document to send")
	}

	ordered := orderRecipients(recipients)
	if len(ordered) == 0 {
		return nil, errors.New("dispatch: no recipients")
	}

	msgs := make([]mailer.Message, 0, len(ordered))
	for _, rcpt := range ordered {
		msgs = append(msgs, d.message(env, doc, design, rcpt))
	}

	if err := d.transport.Send(ctx, msgs...); err != nil {
		sent := 0
		var sendErr *mailer.SendError
		if errors.As(err, &sendErr) {
			sent = min(max(sendErr.Sent, 0), len(ordered))
		}
		return nil, &Error{
			Delivered: ordered[:sent],
			Failed:    ordered[sent:],
			Err:       err,
		}
	}

	return &Result{Delivered: ordered}, nil
}

func (d *Dispatcher) message(env Envelope, doc *document.Document, design *model.Attachment, rcpt Recipient) mailer.Message {
	attachments := []mailer.Attachment{{Filename: doc.Name, Data: doc.Bytes}}

	if rcpt.Role == RoleShop {
		if design != nil && len(design.Data) > 0 {
			attachments = append(attachments, mailer.Attachment{Filename: design.Filename, Data: design.Data})
		}
		return mailer.Message{
			To:          rcpt.Address,
			ReplyTo:     env.ReplyTo,
			Subject:     fmt.Sprintf("New label order %s - %s", env.Reference, env.ClientName),
			Body:        shopBody(env, design),
			Attachments: attachments,
		}
	}

	return mailer.Message{
		To:          rcpt.Address,
		Subject:     fmt.Sprintf("%s: we received your order %s", d.company, env.Reference),
		Body:        customerBody(d.company, env),
		Attachments: attachments,
	}
}

// orderRecipients ставит адресатов цеха перед клиентскими и убирает пустые адреса и дубли.
func orderRecipients(recipients []Recipient) []Recipient {
	seen := make(map[string]bool, len(recipients))
	var shop, customer []Recipient
	for _, r := range recipients {
		addr := strings.TrimSpace(r.Address)
		key := strings.ToLower(addr)
		if addr == "" || seen[key] {
			continue
		}
		seen[key] = true
		r.Address = addr
		if r.Role == RoleShop {
			shop = append(shop, r)
		} else {
			r.Role = RoleCustomer
			customer = append(customer, r)
		}
	}
	return append(shop, customer...)
}

func shopBody(env Envelope, design *model.Attachment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New production order %s from %s.\n\n", env.Reference, env.ClientName)
	b.WriteString(env.Summary)
	b.WriteString("\n\n")
	if design != nil && len(design.Data) > 0 {
		fmt.Fprintf(&b, "Attached: order summary and client design (%s).\n", design.Filename)
	} else {
		b.WriteString("Attached: order summary. The client did not upload a design file.\n")
	}
	return b.String()
}

func customerBody(company string, env Envelope) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", env.ClientName)
	fmt.Fprintf(&b, "Thank you for your order %s. The attached summary lists the specifications we received.\n\n", env.Reference)
	b.WriteString(env.Summary)
	fmt.Fprintf(&b, "\n\n%s\n", company)
	return b.String()
}
