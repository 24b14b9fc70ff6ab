package apierror

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAPIError(t *testing.T) {
	t.Parallel()

	t.Run("formats with and without details", func(t *testing.T) {
		require.Equal(t, "BAD_REQUEST: invalid JSON body", BadRequest("invalid JSON body", "").Error())
		require.Equal(t, "BAD_REQUEST: validation failed (email: required)", BadRequest("validation failed", "email: required").Error())
	})

	t.Run("nil error renders empty", func(t *testing.T) {
		var e *APIError
		require.Empty(t, e.Error())
		require.NoError(t, e.Unwrap())
	})

	t.Run("wrap keeps the cause reachable", func(t *testing.T) {
		cause := errors.New("boom")
		wrapped := Wrap(cause, "INTERNAL_ERROR", "Unexpected server error", http.StatusInternalServerError)

		require.ErrorIs(t, wrapped, cause)
		require.Equal(t, http.StatusInternalServerError, wrapped.HTTPStatus)
	})
}
