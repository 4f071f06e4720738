package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/shier/usercenter/internal/api/account"
)

// Config contains dependencies needed for the router setup
type Config struct {
	AccountHandler account.Handler
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (logger, requestID, recoverer) are expected to be
// applied *before* mounting this router in main.go. Authentication and
// authorization are resolved inside the account service from the session
// cookie, so there is no route-level auth middleware.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Route("/api/v1/account", func(r chi.Router) {
		// Public routes
		r.Post("/register", cfg.AccountHandler.Register)
		r.Post("/login", cfg.AccountHandler.Login)

		// Session-backed routes
		r.Post("/logout", cfg.AccountHandler.Logout)
		r.Get("/current", cfg.AccountHandler.CurrentUser)
		r.Post("/update/password", cfg.AccountHandler.UpdatePassword)
		r.Post("/update/my", cfg.AccountHandler.UpdateMy)

		// Admin routes (role resolved from the session login state)
		r.Get("/search", cfg.AccountHandler.Search)
		r.Post("/add", cfg.AccountHandler.Add)
		r.Post("/update", cfg.AccountHandler.Update)
		r.Post("/delete", cfg.AccountHandler.Delete)
	})

	return r
}
