// Package apperr defines the engine's error kinds and their mapping to
// HTTP status codes, per the error handling design in spec.md §7.
package apperr

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// Kind classifies an error for status-code mapping and logging.
type Kind int

const (
	// Internal marks a store or unexpected failure; maps to 500.
	Internal Kind = iota
	// BadRequest marks a malformed or missing client input; maps to 400.
	BadRequest
	// NotFound marks an absent app/upload/asset; maps to 404.
	NotFound
	// Conflict marks a uniqueness violation (duplicate slug); maps to 409.
	Conflict
	// Validation marks malformed PEM/archive input from a client; maps
	// to 400. Integrity failures of stored data use ValidationInternal.
	Validation
	// Config marks a server misconfiguration (e.g. signing requested
	// without a private key); maps to 500.
	Config
	// Forbidden marks a request that is well-formed but disallowed by
	// policy (e.g. a path-traversal asset key); maps to 403.
	Forbidden
)

// Error is a kind-tagged error with a short plain-text reason.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind.
func New(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// Wrap builds an Error of the given kind around a lower-level error.
func Wrap(kind Kind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}

// Status maps a Kind to its HTTP status code.
func (k Kind) Status() int {
	switch k {
	case BadRequest:
		return fiber.StatusBadRequest
	case NotFound:
		return fiber.StatusNotFound
	case Conflict:
		return fiber.StatusConflict
	case Validation:
		return fiber.StatusBadRequest
	case Config:
		return fiber.StatusInternalServerError
	case Forbidden:
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

// ValidationInternal returns an Internal-kind error, which maps to 500
// rather than 400 — for internal data integrity failures (stored
// metadata that should have been valid but isn't), as opposed to user
// input validation failures.
func ValidationInternal(reason string, err error) *Error {
	return &Error{Kind: Internal, Reason: reason, Err: err}
}

// FiberHandler is installed as fiber.Config.ErrorHandler. It maps
// *apperr.Error to its status code and a short plain-text body. A
// *fiber.Error (framework-level rejections) is answered with its own
// code and message; any other error is logged and answered with 500
// and the body "internal error".
func FiberHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var ae *Error
		if errors.As(err, &ae) {
			if ae.Kind == Internal || ae.Kind == Config {
				logger.Error("request failed", "reason", ae.Reason, "err", ae.Err, "path", c.Path())
			}
			return c.Status(ae.Kind.Status()).SendString(ae.Reason)
		}
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).SendString(fe.Message)
		}
		logger.Error("unhandled error", "err", err, "path", c.Path())
		return c.Status(fiber.StatusInternalServerError).SendString("internal error")
	}
}
