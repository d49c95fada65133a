package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnamet/faithvibe/internal/auth"
)

func identityEcho(t *testing.T, captured **auth.Identity) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = IdentityFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate_ValidToken(t *testing.T) {
	t.Parallel()

	tokens := auth.NewTokenManager("test-secret", "faithvibe", time.Hour)
	token, err := tokens.Issue(auth.Identity{UID: "u1", Email: "sam@example.org"})
	require.NoError(t, err)

	var got *auth.Identity
	h := Authenticate(tokens)(identityEcho(t, &got))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UID)
}

func TestAuthenticate_NoHeaderPassesAnonymously(t *testing.T) {
	t.Parallel()

	tokens := auth.NewTokenManager("test-secret", "faithvibe", time.Hour)
	var got *auth.Identity
	h := Authenticate(tokens)(identityEcho(t, &got))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, got)
}

func TestAuthenticate_BadToken(t *testing.T) {
	t.Parallel()

	tokens := auth.NewTokenManager("test-secret", "faithvibe", time.Hour)
	h := Authenticate(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticate_MalformedHeader(t *testing.T) {
	t.Parallel()

	tokens := auth.NewTokenManager("test-secret", "faithvibe", time.Hour)
	h := Authenticate(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
