// Package auth provides optional OpenID Connect protection for the REST API.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc"
	"golang.org/x/oauth2"

	"github.com/lukisch/n8n-workflow-manager/internal/config"
)

// LocalSubject identifies callers when authentication is disabled.
const LocalSubject = "local"

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

type subjectKey struct{}

// WithSubject returns ctx carrying the authenticated subject.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey{}, subject)
}

// Subject returns the authenticated subject, or "" when there is none.
func Subject(ctx context.Context) string {
	s, _ := ctx.Value(subjectKey{}).(string)
	return s
}

// Auth contains configuration and helpers for performing OpenID Connect
// authentication against the configured issuer.
type Auth struct {
	oauth2Config *oauth2.Config
	verifier     *oidc.IDTokenVerifier
	apiVerifier  *oidc.IDTokenVerifier
	logger       Logger
	disabled     bool
	secureCookie bool
}

// New creates a new Auth object from the application configuration. With
// auth.enabled false every request passes as LocalSubject and no provider is
// contacted.
func New(ctx context.Context, cfg *config.Config, logger Logger) (*Auth, error) {
	if logger == nil {
		logger = nopLogger{}
	}
	if !cfg.Auth.Enabled {
		return &Auth{logger: logger, disabled: true}, nil
	}
	if cfg.Auth.Issuer == "" || cfg.Auth.ClientID == "" ||
		cfg.Auth.ClientSecret == "" || cfg.Auth.RedirectURL == "" {
		return nil, errors.New("auth configuration is incomplete")
	}

	provider, err := oidc.NewProvider(ctx, cfg.Auth.Issuer)
	if err != nil {
		return nil, err
	}

	return &Auth{
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.Auth.ClientID,
			ClientSecret: cfg.Auth.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  cfg.Auth.RedirectURL,
			Scopes:       AllScopes,
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.Auth.ClientID}),
		// Access tokens often carry a different audience than the client id.
		apiVerifier:  provider.Verifier(&oidc.Config{SkipClientIDCheck: true}),
		logger:       logger,
		secureCookie: cfg.IsProduction() || cfg.TLS.Enable,
	}, nil
}

// Enabled reports whether requests are authenticated.
func (a *Auth) Enabled() bool { return !a.disabled }

const (
	stateCookie   = "n8nmgr_oauth_state"
	sessionCookie = "n8nmgr_session"
)

func (a *Auth) setCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		HttpOnly: true,
		Path:     "/",
		Secure:   a.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// LoginHandler starts the authorization code flow. The random state is kept
// in a cookie and checked on the callback.
func (a *Auth) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if a.disabled {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	state, err := generateState()
	if err != nil {
		http.Error(w, "failed to generate state", http.StatusInternalServerError)
		return
	}
	a.setCookie(w, stateCookie, state)
	http.Redirect(w, r, a.oauth2Config.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// CallbackHandler exchanges the code and stores the verified ID token as the
// session.
func (a *Auth) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	if a.disabled {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	query := r.URL.Query()
	state, err := r.Cookie(stateCookie)
	if err != nil || query.Get("state") != state.Value {
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}

	token, err := a.oauth2Config.Exchange(r.Context(), query.Get("code"))
	if err != nil {
		a.logger.Error("code exchange: %v", err)
		http.Error(w, "token exchange failed", http.StatusBadGateway)
		return
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		http.Error(w, "no id_token in token response", http.StatusBadGateway)
		return
	}
	if _, err := a.verifier.Verify(r.Context(), rawIDToken); err != nil {
		http.Error(w, "failed to verify id token", http.StatusUnauthorized)
		return
	}

	a.setCookie(w, sessionCookie, rawIDToken)
	http.Redirect(w, r, "/docs", http.StatusSeeOther)
}

// RequireAuth accepts a Bearer access token or the session cookie and puts
// the caller's subject into the request context. Browsers without a session
// are sent to /login.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.disabled {
			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), LocalSubject)))
			return
		}
		token, err := a.verify(r)
		if errors.Is(err, http.ErrNoCookie) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if err != nil {
			a.logger.Debug("rejected token: %v", err)
			http.Error(w, "invalid token: "+err.Error(), http.StatusUnauthorized)
			return
		}
		subject, err := subjectOf(token)
		if err != nil {
			http.Error(w, "failed to parse token claims", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), subject)))
	})
}

func (a *Auth) verify(r *http.Request) (*oidc.IDToken, error) {
	if raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return a.apiVerifier.Verify(r.Context(), raw)
	}
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil, err
	}
	return a.verifier.Verify(r.Context(), cookie.Value)
}

// subjectOf prefers the email claim and falls back to sub.
func subjectOf(token *oidc.IDToken) (string, error) {
	var claims struct {
		Email string `json:"email"`
	}
	if err := token.Claims(&claims); err != nil {
		return "", err
	}
	if claims.Email != "" {
		return claims.Email, nil
	}
	return token.Subject, nil
}

// LogoutHandler drops the session cookie.
func (a *Auth) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
