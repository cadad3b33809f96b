// Package apperr содержит типизированные ошибки предметной области.
package apperr

import (
	"errors"
	"fmt"
)

// Code - машиночитаемый код ошибки
type Code string

const (
	CodeUnknown         Code = "UNKNOWN"
	CodeNotFound        Code = "NOT_FOUND"
	CodeForbidden       Code = "FORBIDDEN"
	CodeInvalid         Code = "INVALID"
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeConflict        Code = "CONFLICT"
)

// Error - ошибка с кодом, сообщением и ошибками полей формы
type Error struct {
	Code    Code
	Message string
	Fields  map[string]string // имя поля -> сообщение, только для CodeInvalid
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is сравнивает ошибки по коду
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// Sentinel-значения для errors.Is
var (
	ErrNotFound        = &Error{Code: CodeNotFound}
	ErrForbidden       = &Error{Code: CodeForbidden}
	ErrInvalid         = &Error{Code: CodeInvalid}
	ErrUnauthenticated = &Error{Code: CodeUnauthenticated}
	ErrConflict        = &Error{Code: CodeConflict}
)

func NotFound(message string, cause error) *Error {
	return &Error{Code: CodeNotFound, Message: message, Cause: cause}
}

func Forbidden(message string) *Error {
	return &Error{Code: CodeForbidden, Message: message}
}

func Unauthenticated(message string) *Error {
	return &Error{Code: CodeUnauthenticated, Message: message}
}

func Conflict(message string, cause error) *Error {
	return &Error{Code: CodeConflict, Message: message, Cause: cause}
}

// Invalid создаёт ошибку валидации с сообщениями по полям
func Invalid(message string, fields map[string]string) *Error {
	return &Error{Code: CodeInvalid, Message: message, Fields: fields}
}

// CodeOf возвращает код первой *Error в цепочке или CodeUnknown
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// FieldsOf возвращает ошибки полей, если они есть
func FieldsOf(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}
