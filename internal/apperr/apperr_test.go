package apperr_test

import (
	"errors"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/entropyconquers/expo-update-server-x/internal/apperr"
)

func TestKind_Status(t *testing.T) {
	cases := map[apperr.Kind]int{
		apperr.Internal:    fiber.StatusInternalServerError,
		apperr.BadRequest:  fiber.StatusBadRequest,
		apperr.NotFound:    fiber.StatusNotFound,
		apperr.Conflict:    fiber.StatusConflict,
		apperr.Validation:  fiber.StatusBadRequest,
		apperr.Config:      fiber.StatusInternalServerError,
		apperr.Forbidden:   fiber.StatusForbidden,
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.Status())
	}
}

func TestError_UnwrapAndMessage(t *testing.T) {
	inner := errors.New("root cause")
	err := apperr.Wrap(apperr.Internal, "failed to do thing", inner)
	assert.Equal(t, "failed to do thing: root cause", err.Error())
	assert.ErrorIs(t, err, inner)
}

func TestNew_HasNoWrappedError(t *testing.T) {
	err := apperr.New(apperr.NotFound, "not found")
	assert.Equal(t, "not found", err.Error())
	assert.Nil(t, err.Unwrap())
}
