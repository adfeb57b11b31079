package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"messenger-lab/auth"
	"messenger-lab/gateway"
	"messenger-lab/observability"
	"messenger-lab/services"
)

type Dependencies struct {
	Log          *slog.Logger
	Tokens       *auth.TokenManager
	AuthService  services.IAuthService
	Messages     services.IMessageService
	Gateway      *gateway.Gateway
	Monitor      *observability.Monitor
	ClientOrigin string
}

// NewRouter wires the request/response surface. Register and login are
// public; everything else requires a valid bearer token.
func NewRouter(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{deps.ClientOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	authHandler := NewAuthHandler(deps.Log, deps.AuthService)
	messageHandler := NewMessageHandler(deps.Log, deps.Messages)

	r.Get("/api/health", healthHandler(deps.Log, deps.Monitor))
	r.Post("/api/auth/register", authHandler.Register)
	r.Post("/api/auth/login", authHandler.Login)

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(deps.Tokens, deps.Log))

		r.Get("/api/auth/me", authHandler.Me)
		r.Post("/api/auth/logout", authHandler.Logout)

		r.Post("/api/messages/send", messageHandler.Send)
		r.Get("/api/messages/conversations", messageHandler.Conversations)
		r.Get("/api/messages/{id}", messageHandler.History)
		r.Put("/api/messages/mark-read/{id}", messageHandler.MarkRead)
		r.Delete("/api/messages/{id}", messageHandler.Delete)
	})

	// The live channel authenticates during its own handshake.
	r.Get("/ws", deps.Gateway.Handle)

	return r
}

func healthHandler(log *slog.Logger, monitor *observability.Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := observability.CollectSelfStats()
		if err != nil {
			log.Warn("self stats collection failed", "error", err)
		}
		respond(w, http.StatusOK, "server is running", map[string]any{
			"timestamp": time.Now().UTC(),
			"process":   stats,
			"gateway":   monitor.Snapshot(),
		})
	}
}
