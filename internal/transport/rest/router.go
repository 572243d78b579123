package rest

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"interviewai/internal/service"
	"interviewai/internal/transport/rest/handler"
	"interviewai/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	InterviewService *service.InterviewService
	ReportService    *service.ReportService
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	interviewHandler := handler.NewInterviewHandler(c.InterviewService)
	reportHandler := handler.NewReportHandler(c.ReportService)
	wsHandler := ws.NewHandler(c.InterviewService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware)

	api := r.PathPrefix("/api").Subrouter()

	// Interview routes
	api.HandleFunc("/interview/start", interviewHandler.Start).Methods("POST", "OPTIONS")
	api.HandleFunc("/interview/next-step", interviewHandler.NextStep).Methods("POST", "OPTIONS")
	api.HandleFunc("/interview/end", interviewHandler.End).Methods("POST", "OPTIONS")
	api.HandleFunc("/interview/session/{id}", interviewHandler.Get).Methods("GET", "OPTIONS")
	api.HandleFunc("/interview/code/submit", interviewHandler.SubmitCode).Methods("POST", "OPTIONS")

	// Report routes
	api.HandleFunc("/report/session/{sessionId}", reportHandler.BySession).Methods("GET", "OPTIONS")
	api.HandleFunc("/report/status/{reportId}", reportHandler.Status).Methods("GET", "OPTIONS")

	// WebSocket route
	api.HandleFunc("/ws/interview/{sessionId}", wsHandler.InterviewWS).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		allowedMethods := os.Getenv("CORS_ALLOWED_METHODS")
		if allowedMethods == "" {
			allowedMethods = "GET, POST, PUT, DELETE, OPTIONS"
		}

		allowedHeaders := os.Getenv("CORS_ALLOWED_HEADERS")
		if allowedHeaders == "" {
			allowedHeaders = "Content-Type, Authorization"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
