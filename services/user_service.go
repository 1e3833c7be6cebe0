package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/turtlelab/labtrack/integrity"
	"github.com/turtlelab/labtrack/models"
	"github.com/turtlelab/labtrack/repositories"
)

// UserService manages application users on top of the manipulation engine.
// It owns the pieces the generic engine does not know about: slow profile
// password hashing, username generation and role permission checks.
type UserService interface {
	List(ctx context.Context) ([]models.User, error)
	Get(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, operator string, form *models.UserForm) (*models.User, error)
	Update(ctx context.Context, operator, username string, form *models.UserForm) (*models.User, error)
	Delete(ctx context.Context, operator, username string) error
	SetPassword(ctx context.Context, operator, username, password string, initial bool) error
	SetActive(ctx context.Context, operator, username string, active bool) error
	RecordLogin(ctx context.Context, username string) error
	AuditTrail(ctx context.Context, username string) ([]models.AuditEntry, error)
	HasPermission(ctx context.Context, username, code string) (bool, error)
}

// userService implements UserService
type userService struct {
	records RecordService
	store   repositories.RecordStore
	roles   RecordService
	engine  *integrity.Engine
	logger  *slog.Logger
}

// NewUserService creates a new user service. The store is needed alongside
// the manipulation engine for the last_login column, which sits outside the
// checksum coverage.
func NewUserService(records RecordService, store repositories.RecordStore, roles RecordService, engine *integrity.Engine, logger *slog.Logger) UserService {
	return &userService{records: records, store: store, roles: roles, engine: engine, logger: logger}
}

// userRecordForm completes a UserForm with the fields the manipulation
// engine needs but the HTTP form must never carry: the credential hash and
// the initial_password flag.
type userRecordForm struct {
	*models.UserForm
	passwordHash    string
	initialPassword bool
}

func (f *userRecordForm) Fields() models.Fields {
	fields := f.UserForm.Fields()
	fields["password"] = f.passwordHash
	fields["initial_password"] = f.initialPassword
	return fields
}

// List retrieves all users
func (s *userService) List(ctx context.Context) ([]models.User, error) {
	records, err := s.records.List(ctx, nil, "username")
	if err != nil {
		return nil, err
	}
	users := make([]models.User, len(records))
	for i := range records {
		users[i] = *models.UserFromRecord(&records[i])
	}
	return users, nil
}

// Get retrieves one user by username
func (s *userService) Get(ctx context.Context, username string) (*models.User, error) {
	record, err := s.records.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	return models.UserFromRecord(record), nil
}

// Create creates a new user with a freshly hashed password. An empty
// username is generated from first and last name; the account starts with
// initial_password set so the first login forces a password change.
func (s *userService) Create(ctx context.Context, operator string, form *models.UserForm) (*models.User, error) {
	if form.Password == "" {
		return nil, &ValidationError{Messages: []string{"Password is required"}}
	}
	if err := validate(form); err != nil {
		return nil, err
	}

	if form.Username == "" {
		username, err := s.generateUsername(ctx, form.FirstName, form.LastName)
		if err != nil {
			return nil, err
		}
		form.Username = username
	}

	hash, err := s.engine.HashCredential(form.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	record, err := s.records.Create(ctx, operator, &userRecordForm{
		UserForm:        form,
		passwordHash:    hash,
		initialPassword: true,
	})
	if err != nil {
		return nil, err
	}
	return models.UserFromRecord(record), nil
}

// Update rewrites a user's profile fields. The credential hash and the
// initial_password flag are carried over unchanged; password changes go
// through SetPassword.
func (s *userService) Update(ctx context.Context, operator, username string, form *models.UserForm) (*models.User, error) {
	current, err := s.records.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	currentHash, _ := current.Fields["password"].(string)
	currentInitial, _ := current.Fields["initial_password"].(bool)

	record, err := s.records.Update(ctx, operator, username, &userRecordForm{
		UserForm:        form,
		passwordHash:    currentHash,
		initialPassword: currentInitial,
	})
	if err != nil {
		return nil, err
	}
	return models.UserFromRecord(record), nil
}

// Delete removes a user
func (s *userService) Delete(ctx context.Context, operator, username string) error {
	return s.records.Delete(ctx, operator, username)
}

// SetPassword replaces a user's credential hash. initial marks an
// administrative reset the user must change at the next login; a user
// changing their own password clears the flag.
func (s *userService) SetPassword(ctx context.Context, operator, username, password string, initial bool) error {
	if password == "" {
		return &ValidationError{Messages: []string{"Password is required"}}
	}
	current, err := s.records.Get(ctx, username)
	if err != nil {
		return err
	}
	hash, err := s.engine.HashCredential(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	fields := current.Fields.Clone()
	fields["password"] = hash
	fields["initial_password"] = initial
	_, err = s.records.Update(ctx, operator, username, &fieldsForm{fields: fields})
	return err
}

// SetActive activates or deactivates a user account
func (s *userService) SetActive(ctx context.Context, operator, username string, active bool) error {
	current, err := s.records.Get(ctx, username)
	if err != nil {
		return err
	}
	fields := current.Fields.Clone()
	fields["is_active"] = active
	_, err = s.records.Update(ctx, operator, username, &fieldsForm{fields: fields})
	return err
}

// RecordLogin stamps the user's last_login. The column is outside the
// checksum and version coverage, so no audit entry is written for it.
func (s *userService) RecordLogin(ctx context.Context, username string) error {
	return s.store.SetAux(ctx, username, "last_login", timeNow())
}

// AuditTrail lists the audit entries of one user
func (s *userService) AuditTrail(ctx context.Context, username string) ([]models.AuditEntry, error) {
	return s.records.AuditTrail(ctx, username)
}

// HasPermission reports whether a user's role grants a permission code. The
// wildcard role grants everything.
func (s *userService) HasPermission(ctx context.Context, username, code string) (bool, error) {
	user, err := s.Get(ctx, username)
	if err != nil {
		return false, err
	}
	if user.Role == models.RoleAll {
		return true, nil
	}
	role, err := s.roles.Get(ctx, user.Role)
	if err != nil {
		return false, err
	}
	permissions, _ := role.Fields["permissions"].(string)
	return models.HasPermission(permissions, code), nil
}

// generateUsername derives a free username from first and last name: the
// lowercased last name plus a growing prefix of the first name, then numeric
// suffixes when every prefix is taken.
func (s *userService) generateUsername(ctx context.Context, firstName, lastName string) (string, error) {
	records, err := s.records.List(ctx, nil, "")
	if err != nil {
		return "", err
	}
	existing := make(map[string]bool, len(records))
	for i := range records {
		username, _ := records[i].Fields["username"].(string)
		existing[username] = true
	}

	first := strings.ToLower(firstName)
	last := strings.ToLower(lastName)
	for i := 1; i <= len(first); i++ {
		candidate := last + first[:i]
		if !existing[candidate] {
			return candidate, nil
		}
	}
	for x := 1; x <= 100; x++ {
		candidate := last + first + strconv.Itoa(x)
		if !existing[candidate] {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: no free username for %s %s", ErrConflict, firstName, lastName)
}

// fieldsForm wraps a complete field set as a RecordForm for internal
// manipulations that do not originate from an HTTP form.
type fieldsForm struct {
	fields models.Fields
}

func (f *fieldsForm) Validate() []string {
	return nil
}

func (f *fieldsForm) Fields() models.Fields {
	return f.fields.Clone()
}
