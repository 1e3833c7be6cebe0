package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/turtlelab/labtrack/models"
	"github.com/turtlelab/labtrack/services"
	"github.com/turtlelab/labtrack/userctx"
)

// User permission codes: read, write, activate/deactivate, password reset.
const (
	PermUserRead     = "us_r"
	PermUserWrite    = "us_w"
	PermUserActivate = "us_a"
	PermUserPassword = "us_p"
)

// UserController serves user management endpoints
type UserController struct {
	users services.UserService
}

// NewUserController creates a new user controller
func NewUserController(users services.UserService) *UserController {
	return &UserController{users: users}
}

// Routes mounts the user management endpoints
func (c *UserController) Routes(r chi.Router, perm func(code string) func(http.Handler) http.Handler) {
	r.With(perm(PermUserRead)).Get("/", c.List)
	r.With(perm(PermUserWrite)).Post("/", c.Create)

	r.Route("/{username}", func(r chi.Router) {
		r.With(perm(PermUserRead)).Get("/", c.Get)
		r.With(perm(PermUserWrite)).Put("/", c.Update)
		r.With(perm(PermUserWrite)).Delete("/", c.Delete)
		r.With(perm(PermUserRead)).Get("/audit-trail", c.AuditTrail)
		r.With(perm(PermUserActivate)).Put("/active", c.SetActive)
		r.With(perm(PermUserPassword)).Put("/password", c.ResetPassword)
	})
}

// List returns all users
func (c *UserController) List(w http.ResponseWriter, r *http.Request) {
	users, err := c.users.List(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": users})
}

// Get returns one user
func (c *UserController) Get(w http.ResponseWriter, r *http.Request) {
	user, err := c.users.Get(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// Create creates a new user
func (c *UserController) Create(w http.ResponseWriter, r *http.Request) {
	var form models.UserForm
	if err := decodeJSON(r, &form); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	user, err := c.users.Create(r.Context(), userctx.GetUsername(r.Context()), &form)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

// Update rewrites a user's profile
func (c *UserController) Update(w http.ResponseWriter, r *http.Request) {
	var form models.UserForm
	if err := decodeJSON(r, &form); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	user, err := c.users.Update(r.Context(), userctx.GetUsername(r.Context()), chi.URLParam(r, "username"), &form)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// Delete removes a user
func (c *UserController) Delete(w http.ResponseWriter, r *http.Request) {
	err := c.users.Delete(r.Context(), userctx.GetUsername(r.Context()), chi.URLParam(r, "username"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// AuditTrail returns the audit entries of one user
func (c *UserController) AuditTrail(w http.ResponseWriter, r *http.Request) {
	entries, err := c.users.AuditTrail(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": entries})
}

// SetActive activates or deactivates a user
func (c *UserController) SetActive(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Active bool `json:"active"`
	}
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	err := c.users.SetActive(r.Context(), userctx.GetUsername(r.Context()), chi.URLParam(r, "username"), body.Active)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// ResetPassword sets a new password the user must change at the next login
func (c *UserController) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	err := c.users.SetPassword(r.Context(), userctx.GetUsername(r.Context()), chi.URLParam(r, "username"), body.Password, true)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
