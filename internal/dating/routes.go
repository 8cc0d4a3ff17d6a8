package dating

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes mounts the dating API under /api/v1/dating. Middlewares
// run in the order given, before any handler.
func RegisterRoutes(router *mux.Router, handler *Handler, middlewares ...mux.MiddlewareFunc) {
	api := router.PathPrefix("/api/v1/dating").Subrouter()
	api.Use(middlewares...)

	// Recommendations
	api.HandleFunc("/recommendations", handler.GetRecommendations).Methods(http.MethodGet)
	api.HandleFunc("/rank", handler.Rank).Methods(http.MethodPost)

	// Compatibility
	api.HandleFunc("/compatibility/{userId}", handler.GetCompatibility).Methods(http.MethodGet)
}
