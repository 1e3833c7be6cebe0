package controllers

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"

	"gitea.com/go-chi/session"

	"github.com/turtlelab/labtrack/authenticator"
	"github.com/turtlelab/labtrack/middleware"
	"github.com/turtlelab/labtrack/services"
	"github.com/turtlelab/labtrack/userctx"
)

// SSOProvider is the optional single sign-on provider; nil disables SSO.
type SSOProvider = authenticator.Provider

// AuthController serves login, logout and the SSO flow. Both login paths
// converge on the login service, so local and SSO logins land in the same
// login log with the same lockout rules.
type AuthController struct {
	login    services.LoginService
	users    services.UserService
	provider SSOProvider
}

// NewAuthController creates a new auth controller
func NewAuthController(login services.LoginService, users services.UserService, provider SSOProvider) *AuthController {
	return &AuthController{login: login, users: users, provider: provider}
}

// Login authenticates local credentials and establishes the session
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	user, err := c.login.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		respondError(w, err)
		return
	}

	sess := session.GetSession(r)
	sess.Set(middleware.SessionUsernameKey, user.Username)

	respondJSON(w, http.StatusOK, user)
}

// Logout records the logout and destroys the session
func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	username := userctx.GetUsername(r.Context())
	if err := c.login.Logout(r.Context(), username); err != nil {
		respondError(w, err)
		return
	}

	sess := session.GetSession(r)
	sess.Delete(middleware.SessionUsernameKey)

	respondJSON(w, http.StatusNoContent, nil)
}

// ChangePassword lets the authenticated user replace their own password,
// clearing the initial_password flag.
func (c *AuthController) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	username := userctx.GetUsername(r.Context())
	if err := c.users.SetPassword(r.Context(), username, username, body.Password, false); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// SSOLogin starts the OIDC flow
func (c *AuthController) SSOLogin(w http.ResponseWriter, r *http.Request) {
	if c.provider == nil {
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "single sign-on is not configured"})
		return
	}

	state, err := generateRandomState()
	if err != nil {
		respondError(w, err)
		return
	}

	// The state round-trips through the session to bind the callback to
	// this browser.
	sess := session.GetSession(r)
	sess.Set("state", state)

	http.Redirect(w, r, c.provider.GetAuthURL(state), http.StatusTemporaryRedirect)
}

// SSOCallback completes the OIDC flow. The provider only proves identity;
// the account still has to exist and be active, and the login is logged
// like any other.
func (c *AuthController) SSOCallback(w http.ResponseWriter, r *http.Request) {
	if c.provider == nil {
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "single sign-on is not configured"})
		return
	}

	sess := session.GetSession(r)
	storedState, ok := sess.Get("state").(string)
	if !ok || storedState == "" {
		badRequest(w, "state not found in session")
		return
	}
	if r.URL.Query().Get("state") != storedState {
		badRequest(w, "invalid state parameter")
		return
	}
	sess.Delete("state")

	token, err := c.provider.ExchangeCode(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "failed to exchange authorization code"})
		return
	}
	claims, err := c.provider.GetClaims(r.Context(), token)
	if err != nil {
		respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "failed to verify ID token"})
		return
	}

	user, err := c.login.LoginSSO(r.Context(), claims.Username())
	if err != nil {
		respondError(w, err)
		return
	}

	sess.Set(middleware.SessionUsernameKey, user.Username)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// generateRandomState generates a random state value for CSRF protection
func generateRandomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
