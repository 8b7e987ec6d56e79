package authsdk

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseErrorResponse(t *testing.T) {
	t.Run("two factor challenge", func(t *testing.T) {
		rec := httptest.NewRecorder()
		(&TwoFactorRequiredError{ChallengeToken: "tok", ExpiresIn: 300, Methods: []string{"totp"}}).WriteError(rec)
		require.Equal(t, http.StatusConflict, rec.Code)

		err := parseErrorResponse(rec.Result(), rec.Body.Bytes())
		var tfa *TwoFactorRequiredError
		require.ErrorAs(t, err, &tfa)
		require.Equal(t, "tok", tfa.ChallengeToken)
		require.Equal(t, 300, tfa.ExpiresIn)
	})

	t.Run("account locked", func(t *testing.T) {
		rec := httptest.NewRecorder()
		(&AccountLockedError{RetryAfter: 42}).WriteError(rec)
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.Equal(t, "42", rec.Header().Get("Retry-After"))

		err := parseErrorResponse(rec.Result(), rec.Body.Bytes())
		var locked *AccountLockedError
		require.ErrorAs(t, err, &locked)
		require.Equal(t, 42, locked.RetryAfter)
	})

	t.Run("oauth2 error matches sentinel", func(t *testing.T) {
		rec := httptest.NewRecorder()
		ErrInvalidGrant.WriteError(rec)
		require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

		err := parseErrorResponse(rec.Result(), rec.Body.Bytes())
		require.True(t, errors.Is(err, ErrInvalidGrant))
		require.False(t, errors.Is(err, ErrInvalidClient))
	})

	t.Run("non json body", func(t *testing.T) {
		resp := &http.Response{StatusCode: http.StatusBadGateway}
		err := parseErrorResponse(resp, []byte("<html>"))
		var oe *OAuth2Error
		require.ErrorAs(t, err, &oe)
		require.Equal(t, ErrorCodeServerError, oe.Code)
	})

	t.Run("success is nil", func(t *testing.T) {
		require.NoError(t, parseErrorResponse(&http.Response{StatusCode: http.StatusOK}, nil))
	})
}

func TestNewPKCE(t *testing.T) {
	v1, c1 := NewPKCE()
	v2, c2 := NewPKCE()
	require.NotEqual(t, v1, v2)
	require.NotEqual(t, c1, c2)
	require.Len(t, v1, 43)
	require.Len(t, c1, 43)
}
