package apperr

import (
	"errors"
	"net/http"
)

// Kind - категория ошибки, которую видит клиент API
type Kind string

const (
	KindInvalidParameter Kind = "INVALID_PARAMETER"
	KindLimitExceeded    Kind = "LIMIT_EXCEEDED"
	KindNotFound         Kind = "NOT_FOUND"
	KindValidationFailed Kind = "VALIDATION_FAILED"
	KindConflict         Kind = "CONFLICT"
)

// Error ошибка пользовательского ввода или состояния ресурса.
// Все ожидаемые ошибки (плохие параметры, несуществующий ресурс) возвращаются
// этим типом, handler сам решает какой HTTP статус отдать
type Error struct {
	Kind       Kind
	Field      string              // Параметр или поле, вызвавшее ошибку (может быть пустым)
	Message    string              // Описание для клиента
	Suggestion string              // Подсказка как исправить запрос
	Fields     map[string][]string // Ошибки по полям для KindValidationFailed
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithSuggestion добавляет подсказку и возвращает ту же ошибку
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

func InvalidParameter(field, msg string) *Error {
	return &Error{Kind: KindInvalidParameter, Field: field, Message: msg}
}

func LimitExceeded(field, msg string) *Error {
	return &Error{Kind: KindLimitExceeded, Field: field, Message: msg}
}

func NotFound(field, msg string) *Error {
	return &Error{Kind: KindNotFound, Field: field, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

// ValidationFailed собирает ошибки по полям в одну ошибку
func ValidationFailed(fields map[string][]string) *Error {
	return &Error{
		Kind:    KindValidationFailed,
		Message: "one or more fields failed validation",
		Fields:  fields,
	}
}

// As извлекает *Error из цепочки обёрток
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind проверяет, что в цепочке есть *Error нужного вида
func IsKind(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// HTTPStatus отображает вид ошибки в HTTP статус
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidParameter, KindLimitExceeded, KindValidationFailed:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
