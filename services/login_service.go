package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/turtlelab/labtrack/integrity"
	"github.com/turtlelab/labtrack/metrics"
	"github.com/turtlelab/labtrack/models"
	"github.com/turtlelab/labtrack/repositories"
)

// maxAttempts is the consecutive failed attempt count that deactivates an
// account.
const maxAttempts = 4

// Login methods recorded in the login log.
const (
	MethodLocal = "local"
	MethodSSO   = "sso"
)

var (
	// ErrLoginFailed covers unknown usernames and wrong passwords alike, so
	// the response does not leak which of the two it was.
	ErrLoginFailed = errors.New("invalid credentials")

	// ErrUserInactive indicates a deactivated account.
	ErrUserInactive = errors.New("user is not active")
)

// LoginService authenticates users and maintains the append-only login log.
// The consecutive attempt counter is derived from the trailing log rows at
// append time; there is no separately mutable counter to drift from the log.
type LoginService interface {
	Login(ctx context.Context, username, password string) (*models.User, error)
	LoginSSO(ctx context.Context, username string) (*models.User, error)
	Logout(ctx context.Context, username string) error
}

// loginService implements LoginService
type loginService struct {
	users    UserService
	loginLog repositories.LogStore
	engine   *integrity.Engine
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewLoginService creates a new login service
func NewLoginService(users UserService, loginLog repositories.LogStore, engine *integrity.Engine, logger *slog.Logger, m *metrics.Metrics) LoginService {
	return &loginService{users: users, loginLog: loginLog, engine: engine, logger: logger, metrics: m}
}

// Login verifies local credentials. Every attempt is logged; the fourth
// consecutive failure deactivates the account through the manipulation
// engine, so the lockout itself lands in the user's audit trail.
func (s *loginService) Login(ctx context.Context, username, password string) (*models.User, error) {
	return s.login(ctx, username, MethodLocal, func(user *models.User) bool {
		return s.engine.VerifyCredential(password, user.Password)
	})
}

// LoginSSO records a login established by the identity provider. The
// credential check already happened upstream; account existence and
// activation still apply.
func (s *loginService) LoginSSO(ctx context.Context, username string) (*models.User, error) {
	return s.login(ctx, username, MethodSSO, func(*models.User) bool { return true })
}

func (s *loginService) login(ctx context.Context, username, method string, check func(*models.User) bool) (*models.User, error) {
	user, err := s.users.Get(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			s.metrics.LoginAttempts.WithLabelValues("unknown").Inc()
			return nil, ErrLoginFailed
		}
		return nil, err
	}

	if !user.IsActive {
		if _, err := s.appendLogin(ctx, username, models.LoginActionAttempt, method, false); err != nil {
			return nil, err
		}
		s.metrics.LoginAttempts.WithLabelValues("inactive").Inc()
		return nil, ErrUserInactive
	}

	if !check(user) {
		attempts, err := s.appendLogin(ctx, username, models.LoginActionAttempt, method, true)
		if err != nil {
			return nil, err
		}
		if attempts == maxAttempts {
			if err := s.users.SetActive(ctx, username, username, false); err != nil {
				return nil, err
			}
			s.metrics.LoginAttempts.WithLabelValues("lockout").Inc()
			s.logger.Warn("user locked out", "user", username, "attempts", attempts)
			return nil, ErrUserInactive
		}
		s.metrics.LoginAttempts.WithLabelValues("failure").Inc()
		return nil, ErrLoginFailed
	}

	if _, err := s.appendLogin(ctx, username, models.LoginActionLogin, method, true); err != nil {
		return nil, err
	}
	if err := s.users.RecordLogin(ctx, username); err != nil {
		return nil, err
	}
	s.metrics.LoginAttempts.WithLabelValues("success").Inc()
	s.logger.Info("user logged in", "user", username, "method", method)
	return s.users.Get(ctx, username)
}

// Logout records a logout
func (s *loginService) Logout(ctx context.Context, username string) error {
	user, err := s.users.Get(ctx, username)
	if err != nil {
		return err
	}
	if _, err := s.appendLogin(ctx, username, models.LoginActionLogout, MethodLocal, user.IsActive); err != nil {
		return err
	}
	s.logger.Info("user logged out", "user", username)
	return nil
}

// appendLogin writes one login log row. The attempt counter continues the
// trailing run of attempt rows and resets on any other action.
func (s *loginService) appendLogin(ctx context.Context, username, action, method string, active bool) (int, error) {
	attempts := 1
	previous, err := s.loginLog.Filter(ctx, models.Fields{"user": username}, "-id")
	if err != nil {
		return 0, err
	}
	if len(previous) > 0 {
		lastAction, _ := previous[0].Fields["action"].(string)
		if lastAction == models.LoginActionAttempt {
			lastAttempts, _ := previous[0].Fields["attempts"].(int64)
			attempts = int(lastAttempts) + 1
		}
	}

	fields := models.Fields{
		"user": username, "action": action, "attempts": attempts,
		"method": method, "active": active, "timestamp": timeNow(),
	}
	serial, err := logSerial(s.loginLog.Schema(), fields)
	if err != nil {
		return 0, err
	}
	checksum, err := s.engine.Checksum(serial)
	if err != nil {
		return 0, err
	}
	if _, err := s.loginLog.Append(ctx, fields, checksum); err != nil {
		return 0, err
	}
	return attempts, nil
}
