package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"gitea.com/go-chi/session"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/turtlelab/labtrack/authenticator"
	"github.com/turtlelab/labtrack/controllers"
	"github.com/turtlelab/labtrack/database"
	"github.com/turtlelab/labtrack/integrity"
	"github.com/turtlelab/labtrack/metrics"
	appmiddleware "github.com/turtlelab/labtrack/middleware"
	"github.com/turtlelab/labtrack/models"
	"github.com/turtlelab/labtrack/repositories"
	"github.com/turtlelab/labtrack/services"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// Load environment variables from .env file when present
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file loaded, using process environment")
	}

	// The checksum secret is mandatory: without it no stored checksum can
	// ever be written or verified.
	secret := os.Getenv("LABTRACK_SECRET")
	engine, err := integrity.NewEngine(secret)
	if err != nil {
		logger.Error("failed to initialize checksum engine", "error", err)
		os.Exit(1)
	}

	// Initialize database
	dbPath := os.Getenv("LABTRACK_DB")
	if dbPath == "" {
		dbPath = "labtrack.db"
	}
	if err := database.InitializeDatabase(dbPath); err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer database.CloseDB()

	// Initialize repositories, metrics, services and controllers
	repos := repositories.New(database.GetDB())
	m := metrics.New(prometheus.DefaultRegisterer)
	svcs := services.New(repos, engine, logger, m)

	if err := bootstrapAdmin(context.Background(), repos, svcs, logger); err != nil {
		logger.Error("failed to bootstrap admin user", "error", err)
		os.Exit(1)
	}

	provider, err := setupSSO(logger)
	if err != nil {
		logger.Error("failed to initialize SSO provider", "error", err)
		os.Exit(1)
	}

	ctrl := controllers.New(svcs, provider)

	r, err := setupRouter(ctrl, svcs)
	if err != nil {
		logger.Error("failed to setup router", "error", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logger.Info("labtrack starting", "port", port, "database", dbPath)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// setupSSO builds the optional OIDC provider. Unset OIDC variables disable
// single sign-on; partial configuration is an error.
func setupSSO(logger *slog.Logger) (authenticator.Provider, error) {
	issuer := os.Getenv("OIDC_ISSUER")
	if issuer == "" {
		logger.Info("single sign-on disabled")
		return nil, nil
	}
	return authenticator.NewOpenIDProvider(context.Background(), authenticator.OpenIDConfig{
		Issuer:       issuer,
		ClientID:     os.Getenv("OIDC_CLIENT_ID"),
		ClientSecret: os.Getenv("OIDC_CLIENT_SECRET"),
		CallbackURL:  os.Getenv("OIDC_CALLBACK_URL"),
	})
}

// bootstrapAdmin creates the initial admin account on an empty users table,
// so a fresh installation can be logged into. The password comes from the
// environment and must be changed at the first login.
func bootstrapAdmin(ctx context.Context, repos *repositories.Repositories, svcs *services.Services, logger *slog.Logger) error {
	count, err := repos.Users.Records.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	password := os.Getenv("LABTRACK_ADMIN_PASSWORD")
	if password == "" {
		logger.Warn("users table is empty and LABTRACK_ADMIN_PASSWORD is unset, skipping admin bootstrap")
		return nil
	}

	user, err := svcs.Users.Create(ctx, "system", &models.UserForm{
		Username:  "admin",
		FirstName: "System",
		LastName:  "Admin",
		Role:      models.RoleAll,
		IsActive:  true,
		Password:  password,
	})
	if err != nil {
		return err
	}
	logger.Info("admin user created", "user", user.Username)
	return nil
}

// setupRouter configures all routes
func setupRouter(ctrl *controllers.Controllers, svcs *services.Services) (*chi.Mux, error) {
	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(chimiddleware.Compress(5))

	useSecureCookies := os.Getenv("USE_HTTPS") == "true"

	// Session middleware
	sessionHandler, err := session.Sessioner(session.Options{
		Provider:       "memory",
		ProviderConfig: "",
		CookieName:     "labtrack_session",
		Secure:         useSecureCookies,
		Gclifetime:     3600,
		Maxlifetime:    3600,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}
	r.Use(sessionHandler)

	// perm builds the permission middleware for one code
	perm := func(code string) func(http.Handler) http.Handler {
		return appmiddleware.RequirePermission(svcs.Users, code)
	}

	// PUBLIC ROUTES (no authentication required)
	r.Post("/login", ctrl.Auth.Login)
	r.Get("/login/sso", ctrl.Auth.SSOLogin)
	r.Get("/callback", ctrl.Auth.SSOCallback)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status": "healthy", "service": "labtrack"}`)
	})

	// PROTECTED ROUTES (authentication required)
	r.Group(func(r chi.Router) {
		r.Use(appmiddleware.RequireAuth)

		r.Post("/logout", ctrl.Auth.Logout)
		r.Put("/password", ctrl.Auth.ChangePassword)

		r.Route("/api", func(r chi.Router) {
			r.Route("/conditions", func(r chi.Router) { ctrl.Conditions.Routes(r, perm) })
			r.Route("/locations", func(r chi.Router) { ctrl.Locations.Routes(r, perm) })
			r.Route("/boxes", func(r chi.Router) { ctrl.Boxes.Routes(r, perm) })
			r.Route("/samples", func(r chi.Router) { ctrl.Samples.Routes(r, perm) })
			r.Route("/reagents", func(r chi.Router) { ctrl.Reagents.Routes(r, perm) })
			r.Route("/accounts", func(r chi.Router) { ctrl.Accounts.Routes(r, perm) })
			r.Route("/roles", func(r chi.Router) { ctrl.Roles.Routes(r, perm) })
			r.Route("/users", func(r chi.Router) { ctrl.Users.Routes(r, perm) })
			r.Route("/logs", func(r chi.Router) { ctrl.Logs.Routes(r, perm) })
			ctrl.Operations.Routes(r, perm)
		})
	})

	return r, nil
}
