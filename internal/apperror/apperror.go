// Package apperror separates operational errors, which carry a status code
// and a message safe to show clients, from programming or unknown errors,
// which are reduced to a generic response outside development.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string { return e.Message }

// New returns an operational error with the given status code.
func New(code int, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func BadRequest(format string, args ...any) *Error {
	return New(http.StatusBadRequest, format, args...)
}

func Unauthorized(format string, args ...any) *Error {
	return New(http.StatusUnauthorized, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return New(http.StatusForbidden, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return New(http.StatusNotFound, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return New(http.StatusConflict, format, args...)
}

var dupValueRe = regexp.MustCompile(`dup key: {[^:]*: \\?"?([^"}]*)`)

// Translate maps database and token errors onto operational errors with
// tailored messages. Anything it does not recognize is returned unchanged
// and treated as an unknown error by the response writer.
func Translate(err error) error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return NotFound("no document found with that ID")
	}
	if errors.Is(err, primitive.ErrInvalidHex) {
		return BadRequest("invalid ID")
	}
	if mongo.IsDuplicateKeyError(err) {
		if m := dupValueRe.FindStringSubmatch(err.Error()); m != nil {
			return Conflict("duplicate field value %q, please use another value", m[1])
		}
		return Conflict("duplicate field value, please use another value")
	}
	if errors.Is(err, jwt.ErrTokenExpired) {
		return Unauthorized("your token has expired, please log in again")
	}
	if errors.Is(err, jwt.ErrTokenMalformed) || errors.Is(err, jwt.ErrSignatureInvalid) ||
		errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		return Unauthorized("invalid token, please log in again")
	}
	return err
}

// CodeOf returns the status code an error should be answered with, falling
// back to 500 for unknown errors.
func CodeOf(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return http.StatusInternalServerError
}

// IsOperational reports whether the error is safe to show to a client.
func IsOperational(err error) bool {
	var appErr *Error
	return errors.As(err, &appErr)
}
