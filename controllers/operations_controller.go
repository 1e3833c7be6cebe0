package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/turtlelab/labtrack/models"
	"github.com/turtlelab/labtrack/services"
	"github.com/turtlelab/labtrack/userctx"
)

// Home screen permission codes: movements and boxing.
const (
	PermMove = "mo"
	PermBox  = "bo"
)

// OperationsController serves the inventory operations: moving objects
// between locations, placing samples into boxes and printing labels.
type OperationsController struct {
	movements services.MovementService
	labels    services.LabelService
	users     services.UserService
}

// NewOperationsController creates a new operations controller
func NewOperationsController(movements services.MovementService, labels services.LabelService, users services.UserService) *OperationsController {
	return &OperationsController{movements: movements, labels: labels, users: users}
}

// Routes mounts the operation endpoints
func (c *OperationsController) Routes(r chi.Router, perm func(code string) func(http.Handler) http.Handler) {
	r.With(perm(PermMove)).Post("/movements", c.Move)
	r.With(perm(PermMove)).Get("/movements/{object}", c.CurrentLocation)
	r.With(perm(PermBox)).Post("/boxing", c.PlaceSample)
	r.Post("/labels", c.PrintLabel)
}

// CurrentLocation returns where an object last moved to
func (c *OperationsController) CurrentLocation(w http.ResponseWriter, r *http.Request) {
	location, err := c.movements.CurrentLocation(r.Context(), chi.URLParam(r, "object"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"location": location})
}

// Move relocates a sample or box
func (c *OperationsController) Move(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Object      string `json:"object"`
		NewLocation string `json:"new_location"`
	}
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	err := c.movements.Move(r.Context(), userctx.GetUsername(r.Context()), body.Object, body.NewLocation)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// PlaceSample records a sample being placed into a box position
func (c *OperationsController) PlaceSample(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Sample   string `json:"sample"`
		Box      string `json:"box"`
		Position string `json:"position"`
	}
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	err := c.movements.PlaceSample(r.Context(), userctx.GetUsername(r.Context()), body.Sample, body.Box, body.Position)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// PrintLabel logs a label print job and returns the job id. The label
// permission follows the labeled object's entity, so it is checked here
// after the body is decoded rather than in route middleware.
func (c *OperationsController) PrintLabel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Label string `json:"label"`
	}
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	code, ok := LabelPermission(body.Label)
	if !ok {
		badRequest(w, "unknown label identifier")
		return
	}
	username := userctx.GetUsername(r.Context())
	granted, err := c.users.HasPermission(r.Context(), username, code)
	if err != nil {
		respondError(w, err)
		return
	}
	if !granted {
		respondJSON(w, http.StatusForbidden, map[string]string{"error": "permission denied"})
		return
	}

	job, err := c.labels.Print(r.Context(), username, body.Label)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"job": job})
}

// LabelPermission maps an identifier to the label permission of its entity
func LabelPermission(label string) (string, bool) {
	switch {
	case strings.HasPrefix(label, models.SampleSchema.Prefix):
		return "sa_l", true
	case strings.HasPrefix(label, models.BoxSchema.Prefix):
		return "bo_l", true
	case strings.HasPrefix(label, models.LocationSchema.Prefix):
		return "lo_l", true
	default:
		return "", false
	}
}
