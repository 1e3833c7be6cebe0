package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/turtlelab/labtrack/services"
)

// Log permission codes.
const (
	PermLogLogin    = "log_lo"
	PermLogMovement = "log_mo"
	PermLogLabel    = "log_la"
	PermLogBoxing   = "log_bo"
)

// LogController serves the verified read surface of the append-only event
// logs.
type LogController struct {
	services *services.Services
}

// NewLogController creates a new log controller
func NewLogController(svcs *services.Services) *LogController {
	return &LogController{services: svcs}
}

// Routes mounts the log endpoints. The times and attribute logs ride on the
// movement and reagent read permissions.
func (c *LogController) Routes(r chi.Router, perm func(code string) func(http.Handler) http.Handler) {
	r.With(perm(PermLogLogin)).Get("/login", c.list(c.services.LoginLog))
	r.With(perm(PermLogMovement)).Get("/movement", c.list(c.services.MovementLog))
	r.With(perm(PermLogLabel)).Get("/label", c.list(c.services.LabelLog))
	r.With(perm(PermLogBoxing)).Get("/boxing", c.list(c.services.BoxingLog))
	r.With(perm(PermLogMovement)).Get("/times", c.list(c.services.Times))
	r.With(perm("re_r")).Get("/attributes", c.list(c.services.AttributeLog))
}

func (c *LogController) list(log services.LogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := log.List(r.Context(), nil, "-id")
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"data": rows})
	}
}
