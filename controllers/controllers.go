package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/turtlelab/labtrack/models"
	"github.com/turtlelab/labtrack/repositories"
	"github.com/turtlelab/labtrack/services"
)

// Controllers holds all controller instances
type Controllers struct {
	Auth       *AuthController
	Conditions *RecordController
	Locations  *RecordController
	Boxes      *RecordController
	Samples    *RecordController
	Reagents   *RecordController
	Accounts   *RecordController
	Roles      *RecordController
	Users      *UserController
	Operations *OperationsController
	Logs       *LogController
}

// New creates and initializes all controller instances
func New(svcs *services.Services, provider SSOProvider) *Controllers {
	return &Controllers{
		Auth:       NewAuthController(svcs.Login, svcs.Users, provider),
		Conditions: NewRecordController(svcs.Conditions, "co", func() models.RecordForm { return &models.ConditionForm{} }),
		Locations:  NewRecordController(svcs.Locations, "lo", func() models.RecordForm { return &models.LocationForm{} }),
		Boxes:      NewRecordController(svcs.Boxes, "bo", func() models.RecordForm { return &models.BoxForm{} }),
		Samples:    NewRecordController(svcs.Samples, "sa", func() models.RecordForm { return &models.SampleForm{} }),
		Reagents:   NewRecordController(svcs.Reagents, "re", func() models.RecordForm { return &models.ReagentForm{} }),
		Accounts:   NewRecordController(svcs.Accounts, "ac", func() models.RecordForm { return &models.AccountForm{} }),
		Roles:      NewRecordController(svcs.Roles, "ro", func() models.RecordForm { return &models.RoleForm{} }),
		Users:      NewUserController(svcs.Users),
		Operations: NewOperationsController(svcs.Movements, svcs.Labels, svcs.Users),
		Logs:       NewLogController(svcs),
	}
}

// respondJSON writes a JSON response with the given status code
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError maps service and repository errors onto HTTP status codes
func respondError(w http.ResponseWriter, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, map[string]any{"errors": verr.Messages})
	case errors.Is(err, repositories.ErrNotFound):
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, repositories.ErrVersionMismatch):
		respondJSON(w, http.StatusConflict, map[string]string{"error": "version mismatch, reload and retry"})
	case errors.Is(err, services.ErrConflict):
		respondJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, services.ErrLoginFailed):
		respondJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
	case errors.Is(err, services.ErrUserInactive):
		respondJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	default:
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// decodeJSON decodes a request body into dst, rejecting unknown fields
func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func badRequest(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusBadRequest, map[string]string{"error": message})
}
