package validation

import (
	"mime"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	gomail "github.com/wneessen/go-mail"

	"github.com/mmeshcher/flexylabel-order/internal/model"
)

const pdfMIME = "application/pdf"

var strictEmailRe = regexp.MustCompile(`^[a-z0-9]+[._]?[a-z0-9]+[@]\w+[.]\w{2,3}$`)

// IsStrictEmail проверяет адрес по строгому шаблону.
// В обязательную проверку формы не входит: там достаточно наличия "@".
func IsStrictEmail(email string) bool {
	return strictEmailRe.MatchString(email)
}

// IsDeliverable сообщает, примет ли почтовый транспорт адрес как получателя и Reply-To.
// Ровно один адрес; списки и адреса без локальной части или домена отклоняются.
func IsDeliverable(email string) bool {
	if strings.TrimSpace(email) == "" {
		return false
	}
	msg := gomail.NewMsg()
	if err := msg.To(email); err != nil {
		return false
	}
	return msg.ReplyTo(email) == nil
}

// IsPDF сообщает, является ли вложение PDF-документом.
// Заявленный тип имеет приоритет; содержимое анализируется только при пустом или общем типе.
func IsPDF(a *model.Attachment) bool {
	if a == nil || len(a.Data) == 0 {
		return false
	}

	declared := strings.ToLower(strings.TrimSpace(a.MIMEType))
	if mt, _, err := mime.ParseMediaType(declared); err == nil {
		declared = mt
	}

	switch declared {
	case pdfMIME:
		return true
	case "", "application/octet-stream":
		return mimetype.Detect(a.Data).Is(pdfMIME)
	default:
		return false
	}
}

// normalizeDesign возвращает nil для отсутствующего файла и копию вложения с типом PDF для корректного.
func normalizeDesign(a *model.Attachment) (*model.Attachment, bool) {
	if a == nil || len(a.Data) == 0 {
		return nil, false
	}
	if !IsPDF(a) {
		return a, false
	}
	out := *a
	out.MIMEType = pdfMIME
	if strings.TrimSpace(out.Filename) == "" {
		out.Filename = "design.pdf"
	}
	return &out, true
}
