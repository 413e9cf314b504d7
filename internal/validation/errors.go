package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldIssue описывает одно некорректное поле формы.
type FieldIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Error описывает ошибку проверки формы, исправимую пользователем.
// Содержит все некорректные поля сразу, чтобы показать одно общее сообщение.
type Error struct {
	Issues []FieldIssue
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		parts = append(parts, is.Field+" "+is.Reason)
	}
	return "invalid order: " + strings.Join(parts, "; ")
}

// Fields возвращает имена некорректных полей в порядке обнаружения.
func (e *Error) Fields() []string {
	out := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		out = append(out, is.Field)
	}
	return out
}

// HasIssues сообщает, найдено ли хотя бы одно некорректное поле.
func (e *Error) HasIssues() bool {
	return len(e.Issues) > 0
}

// add регистрирует проблему; для одного поля сохраняется только первая.
func (e *Error) add(field, reason string) {
	for _, is := range e.Issues {
		if is.Field == field {
			return
		}
	}
	e.Issues = append(e.Issues, FieldIssue{Field: field, Reason: reason})
}

func (e *Error) merge(err error) {
	var other *Error
	if errors.As(err, &other) {
		for _, is := range other.Issues {
			e.add(is.Field, is.Reason)
		}
	}
}

func (e *Error) addValidation(err error) {
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		e.add("form", err.Error())
		return
	}
	for _, fe := range verrs {
		e.add(fe.Field(), describe(fe))
	}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "contains":
		return fmt.Sprintf("must contain %q", fe.Param())
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "is invalid"
	}
}
