package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS allows the browser-based agent console to call the REST API
// from its own origin. The websocket upgrade is not subject to CORS;
// origins for /ws are enforced here for the preflight only.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	return c.Handler
}
