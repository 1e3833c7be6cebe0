package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/turtlelab/labtrack/models"
	"github.com/turtlelab/labtrack/services"
	"github.com/turtlelab/labtrack/userctx"
)

// RecordController serves the JSON CRUD surface of one entity. All entities
// share the handler set; the bound service, the permission prefix and the
// form factory are the only differences.
type RecordController struct {
	service services.RecordService
	prefix  string
	form    func() models.RecordForm
}

// NewRecordController creates a record controller for one entity
func NewRecordController(service services.RecordService, permissionPrefix string, form func() models.RecordForm) *RecordController {
	return &RecordController{service: service, prefix: permissionPrefix, form: form}
}

// Permission codes of this entity, derived from its prefix.
func (c *RecordController) ReadPermission() string   { return c.prefix + "_r" }
func (c *RecordController) WritePermission() string  { return c.prefix + "_w" }
func (c *RecordController) DeletePermission() string { return c.prefix + "_d" }

// Routes mounts the entity's endpoints. perm builds the permission
// middleware for one code.
func (c *RecordController) Routes(r chi.Router, perm func(code string) func(http.Handler) http.Handler) {
	read := perm(c.ReadPermission())
	write := perm(c.WritePermission())
	remove := perm(c.DeletePermission())

	r.With(read).Get("/", c.List)
	r.With(write).Post("/", c.Create)
	r.With(remove).Delete("/", c.DeleteBatch)
	r.With(read).Get("/audit-trail", c.AuditLog)

	r.Route("/{unique}", func(r chi.Router) {
		r.With(read).Get("/", c.Get)
		r.With(write).Put("/", c.Update)
		r.With(remove).Delete("/", c.Delete)
		r.With(read).Get("/audit-trail", c.AuditTrail)

		if c.service.Schema().Table == models.ReagentSchema.Table {
			r.With(read).Get("/attributes", c.Attributes)
			r.With(write).Put("/attributes", c.SetAttribute)
			r.With(remove).Delete("/attributes/{name}", c.DeleteAttribute)
		}
	})
}

// List returns all records, optionally filtered by business field query
// parameters and ordered by the order_by parameter
func (c *RecordController) List(w http.ResponseWriter, r *http.Request) {
	criteria, err := c.criteria(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	records, err := c.service.List(r.Context(), criteria, r.URL.Query().Get("order_by"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": records})
}

// Get returns one record by its unique value
func (c *RecordController) Get(w http.ResponseWriter, r *http.Request) {
	record, err := c.service.Get(r.Context(), chi.URLParam(r, "unique"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, record)
}

// Create creates a new record from the posted form
func (c *RecordController) Create(w http.ResponseWriter, r *http.Request) {
	form := c.form()
	if err := decodeJSON(r, form); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	record, err := c.service.Create(r.Context(), userctx.GetUsername(r.Context()), form)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, record)
}

// Update rewrites a record from the posted form
func (c *RecordController) Update(w http.ResponseWriter, r *http.Request) {
	form := c.form()
	if err := decodeJSON(r, form); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	record, err := c.service.Update(r.Context(), userctx.GetUsername(r.Context()), chi.URLParam(r, "unique"), form)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, record)
}

// Delete removes one record
func (c *RecordController) Delete(w http.ResponseWriter, r *http.Request) {
	err := c.service.Delete(r.Context(), userctx.GetUsername(r.Context()), chi.URLParam(r, "unique"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// DeleteBatch removes a set of records and returns the per-item outcomes
func (c *RecordController) DeleteBatch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Records []string `json:"records"`
	}
	if err := decodeJSON(r, &body); err != nil || len(body.Records) == 0 {
		badRequest(w, "a non-empty records list is required")
		return
	}
	outcomes := c.service.DeleteBatch(r.Context(), userctx.GetUsername(r.Context()), body.Records)
	respondJSON(w, http.StatusOK, map[string]any{"data": outcomes})
}

// AuditTrail returns the audit entries of one record
func (c *RecordController) AuditTrail(w http.ResponseWriter, r *http.Request) {
	entries, err := c.service.AuditTrail(r.Context(), chi.URLParam(r, "unique"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": entries})
}

// AuditLog returns the entity's full audit trail, including entries of
// deleted records
func (c *RecordController) AuditLog(w http.ResponseWriter, r *http.Request) {
	entries, err := c.service.AuditLog(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": entries})
}

// Attributes returns the dynamic attributes of one record
func (c *RecordController) Attributes(w http.ResponseWriter, r *http.Request) {
	attrs, err := c.service.Attributes(r.Context(), chi.URLParam(r, "unique"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": attrs})
}

// SetAttribute upserts one dynamic attribute
func (c *RecordController) SetAttribute(w http.ResponseWriter, r *http.Request) {
	var form models.AttributeForm
	if err := decodeJSON(r, &form); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	attr, err := c.service.SetAttribute(r.Context(), userctx.GetUsername(r.Context()), chi.URLParam(r, "unique"), &form)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, attr)
}

// DeleteAttribute removes one dynamic attribute
func (c *RecordController) DeleteAttribute(w http.ResponseWriter, r *http.Request) {
	err := c.service.DeleteAttribute(r.Context(), userctx.GetUsername(r.Context()),
		chi.URLParam(r, "unique"), chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// criteria parses business field filters from the query string, converting
// values to the field's kind
func (c *RecordController) criteria(r *http.Request) (models.Fields, error) {
	criteria := models.Fields{}
	for _, field := range c.service.Schema().Fields {
		raw := r.URL.Query().Get(field.Name)
		if raw == "" {
			continue
		}
		switch field.Kind {
		case models.Int:
			value, err := strconv.Atoi(raw)
			if err != nil {
				return nil, err
			}
			criteria[field.Name] = value
		case models.Bool:
			value, err := strconv.ParseBool(raw)
			if err != nil {
				return nil, err
			}
			criteria[field.Name] = value
		default:
			criteria[field.Name] = raw
		}
	}
	if len(criteria) == 0 {
		return nil, nil
	}
	return criteria, nil
}
