package health

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegistryStatus is the live-state view the status endpoint reports.
type RegistryStatus interface {
	Nonce() uint64
	Owner() common.Address
	Messenger() common.Address
	ExecutionManager() common.Address
	PaymentToken() common.Address
}

// Server represents a health check HTTP server
type Server struct {
	port          string
	registry      RegistryStatus
	journalReady  func() bool
	metricsAPIKey string
}

// NewServer creates a new health check server. journalReady reports whether
// the request journal is reachable; pass nil when journaling is disabled.
func NewServer(port string, registry RegistryStatus, journalReady func() bool) *Server {
	return &Server{
		port:          port,
		registry:      registry,
		journalReady:  journalReady,
		metricsAPIKey: os.Getenv("METRICS_API_KEY"),
	}
}

// metricsAuthMiddleware is a middleware that checks for a valid API key
func (s *Server) metricsAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip auth if no API key is configured
		if s.metricsAPIKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		// Get API key from Authorization header
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Missing Authorization header", http.StatusUnauthorized)
			return
		}

		// Check if the header has the correct format
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
			return
		}

		// Validate API key
		if parts[1] != s.metricsAPIKey {
			http.Error(w, "Invalid API key", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Start starts the health check server
func (s *Server) Start() {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Readiness check
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if s.journalReady != nil && !s.journalReady() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("Request journal not reachable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Ready"))
	})

	// Registry status endpoint
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{
			"nonce":             s.registry.Nonce(),
			"owner":             s.registry.Owner().Hex(),
			"messenger":         s.registry.Messenger().Hex(),
			"execution_manager": s.registry.ExecutionManager().Hex(),
			"payment_token":     s.registry.PaymentToken().Hex(),
			"manager_connected": s.registry.ExecutionManager() != (common.Address{}),
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(status); err != nil {
			log.Printf("Error encoding status JSON: %v", err)
		}
	})

	// Expose Prometheus metrics with API key authentication
	mux.Handle("/metrics", s.metricsAuthMiddleware(promhttp.Handler()))

	log.Printf("Starting health and metrics server on port %s", s.port)
	if err := http.ListenAndServe(":"+s.port, mux); err != nil {
		log.Printf("Health server error: %v", err)
	}
}
