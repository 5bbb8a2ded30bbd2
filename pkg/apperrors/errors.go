package apperrors

import (
	"errors"
	"fmt"
)

type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// Is matches another *AppError carrying the same code, so sentinel kinds work
// with errors.Is even when the message differs.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

func New(code Code, message string) error {
	return &AppError{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) error {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// CodeOf returns the code of the first AppError in the chain.
func CodeOf(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

func HasCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

func InvalidArg(msg string) error {
	return New(CodeInvalidArgument, msg)
}

func NotFound(msg string) error {
	return New(CodeNotFound, msg)
}

func Unauthorized(msg string) error {
	return New(CodeUnauthorized, msg)
}

func Forbidden(msg string) error {
	return New(CodeForbidden, msg)
}

func Conflict(msg string) error {
	return New(CodeConflict, msg)
}

func FailedPrecondition(msg string) error {
	return New(CodeFailedPrecondition, msg)
}

func StoreCorrupt(path string, cause error) error {
	return Wrap(CodeStoreCorrupt, fmt.Sprintf("malformed collection %s, starting empty", path), cause)
}

func StoreWrite(path string, cause error) error {
	return Wrap(CodeStoreWrite, fmt.Sprintf("flush of %s failed", path), cause)
}

const internalMessage = "internal error"

// PublicMessage is the text that may be shown to a client: the message of
// the first AppError without its cause. Server-side failures collapse to a
// generic text.
func PublicMessage(err error) string {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return internalMessage
	}
	switch appErr.Code {
	case CodeUnknown, CodeInternal, CodeStoreWrite, CodeStoreCorrupt:
		return internalMessage
	}
	return appErr.Message
}
