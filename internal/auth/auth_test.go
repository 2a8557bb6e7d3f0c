package auth

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coreos/go-oidc"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukisch/n8n-workflow-manager/internal/config"
)

const (
	testIssuer   = "https://test-issuer.com"
	testClientID = "test-client"
)

// staticKeySet satisfies oidc.KeySet and skips signature verification.
type staticKeySet struct{}

func (staticKeySet) VerifySignature(ctx context.Context, jwtToken string) ([]byte, error) {
	parts := strings.Split(jwtToken, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed jwt")
	}
	return base64.RawURLEncoding.DecodeString(parts[1])
}

func fakeToken(t *testing.T, claims map[string]interface{}) string {
	t.Helper()
	header, err := json.Marshal(map[string]interface{}{"alg": "RS256", "typ": "JWT", "kid": "test-key"})
	require.NoError(t, err)
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(header) + "." +
		base64.RawURLEncoding.EncodeToString(payload) + "." +
		base64.RawURLEncoding.EncodeToString([]byte("fakesignature"))
}

func baseClaims(sub string) map[string]interface{} {
	return map[string]interface{}{
		"iss": testIssuer,
		"aud": testClientID,
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Add(-1 * time.Minute).Unix(),
	}
}

func testAuth() *Auth {
	verifier := oidc.NewVerifier(testIssuer, staticKeySet{}, &oidc.Config{
		ClientID:          testClientID,
		SkipClientIDCheck: true,
	})
	return &Auth{apiVerifier: verifier, verifier: verifier, logger: nopLogger{}}
}

func serve(a *Auth, req *http.Request) (*httptest.ResponseRecorder, string) {
	var subject string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject = Subject(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	rec := httptest.NewRecorder()
	a.RequireAuth(next).ServeHTTP(rec, req)
	return rec, subject
}

func TestRequireAuth_BearerTokenSetsSubject(t *testing.T) {
	claims := baseClaims("test-user")
	claims["email"] = "user@acme.com"

	req := httptest.NewRequest(http.MethodGet, "/api/v1/workflows", nil)
	req.Header.Set("Authorization", "Bearer "+fakeToken(t, claims))
	rec, subject := serve(testAuth(), req)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "user@acme.com", subject)
}

func TestRequireAuth_FallsBackToSub(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/workflows", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: fakeToken(t, baseClaims("svc-account"))})
	rec, subject := serve(testAuth(), req)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "svc-account", subject)
}

func TestRequireAuth_RejectsExpiredToken(t *testing.T) {
	claims := baseClaims("late")
	claims["exp"] = time.Now().Add(-time.Hour).Unix()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/workflows", nil)
	req.Header.Set("Authorization", "Bearer "+fakeToken(t, claims))
	rec, _ := serve(testAuth(), req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_RedirectsWithoutSession(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/workflows", nil)
	rec, _ := serve(testAuth(), req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestDisabledAuthPassesLocalSubject(t *testing.T) {
	a, err := New(context.Background(), &config.Config{}, nil)
	require.NoError(t, err)
	assert.False(t, a.Enabled())

	rec, subject := serve(a, httptest.NewRequest(http.MethodGet, "/api/v1/workflows", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, LocalSubject, subject)
}

func TestIncompleteConfigIsRejected(t *testing.T) {
	cfg := &config.Config{}
	cfg.Auth.Enabled = true
	cfg.Auth.Issuer = testIssuer
	_, err := New(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestCallbackRejectsStateMismatch(t *testing.T) {
	a := testAuth()
	req := httptest.NewRequest(http.MethodGet, "/auth/callback?state=forged&code=x", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "expected"})
	rec := httptest.NewRecorder()
	a.CallbackHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutClearsSession(t *testing.T) {
	rec := httptest.NewRecorder()
	testAuth().LogoutHandler(rec, httptest.NewRequest(http.MethodGet, "/logout", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookie, cookies[0].Name)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
