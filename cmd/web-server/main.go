// Loiter Web Server
// Serves recorded loitering verdicts over a REST API and lets an
// authenticated operator trigger detection cycles.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/unklstewy/ads-loiter/internal/app"
	"github.com/unklstewy/ads-loiter/internal/auth"
	"github.com/unklstewy/ads-loiter/internal/dailylog"
	"github.com/unklstewy/ads-loiter/internal/db"
	"github.com/unklstewy/ads-loiter/internal/metrics"
	"github.com/unklstewy/ads-loiter/pkg/config"
	"github.com/unklstewy/ads-loiter/pkg/coordinates"
)

type ctxKey string

const (
	ctxUsername ctxKey = "username"
	ctxRole     ctxKey = "role"
)

var (
	configPath = flag.String("config", "configs/loiter.yaml", "Path to configuration file")
	port       = flag.Int("port", 0, "HTTP server port (overrides config)")
)

// Server holds the HTTP server and its dependencies
type Server struct {
	router   *chi.Mux
	app      *app.App
	authSvc  *auth.Service
	area     coordinates.Area
	gatherer prometheus.Gatherer
}

func main() {
	flag.Parse()

	log.Println("🚀 Starting Loiter Web Server...")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer a.Close()

	if err := a.AttachDatabase(context.Background()); err != nil {
		log.Printf("Warning: database mirror disabled: %v", err)
	}
	a.Pipeline.SetObserver(metrics.NewPromObserver(prometheus.DefaultRegisterer))

	authSvc := auth.NewService(auth.Config{
		JWTSecret:            cfg.Server.JWTSecret,
		TokenDuration:        time.Duration(cfg.Server.TokenHours) * time.Hour,
		OperatorUser:         cfg.Server.OperatorUser,
		OperatorPasswordHash: cfg.Server.OperatorPasswordHash,
	})
	if !authSvc.Enabled() {
		log.Println("⚠️  Operator login disabled: set ADS_LOITER_JWT_SECRET and ADS_LOITER_OPERATOR_PASSWORD_HASH")
	}

	srv := newServer(a, authSvc, a.Area(context.Background(), ""), prometheus.DefaultGatherer)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      srv.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // on-demand cycles fetch every trail
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("📡 Server listening on http://%s", cfg.Server.Addr())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("\n👋 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server stopped")
}

func newServer(a *app.App, authSvc *auth.Service, area coordinates.Area, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		app:      a,
		authSvc:  authSvc,
		area:     area,
		gatherer: gatherer,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	r := s.router

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/auth/login", s.handleLogin)
		r.Get("/verdicts", s.handleGetVerdicts)
		r.Get("/verdicts/dates", s.handleGetDates)

		// Operator routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Use(requireRole(auth.RoleOperator))

			r.Post("/cycles", s.handleRunCycle)
		})
	})
}

// Auth middleware
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondError(w, http.StatusUnauthorized, "Missing authorization header")
			return
		}

		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			respondError(w, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := s.authSvc.ValidateToken(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), ctxUsername, claims.Username)
		ctx = context.WithValue(ctx, ctxRole, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userRole, _ := r.Context().Value(ctxRole).(string)
			if !auth.HasRole(userRole, role) {
				respondError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":   "ok",
		"log_path": s.app.Log.Path(),
	}
	if s.app.DB != nil {
		status["database"] = db.HealthCheck(r.Context(), s.app.DB)
	}
	respondJSON(w, http.StatusOK, status)
}

// handleLogin exchanges operator credentials for a token
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, err := s.authSvc.Login(req.Username, req.Password)
	switch {
	case errors.Is(err, auth.ErrNotConfigured):
		respondError(w, http.StatusServiceUnavailable, "Operator login is not configured")
		return
	case err != nil:
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"token":   token,
		"user": map[string]interface{}{
			"username": req.Username,
			"role":     auth.RoleOperator,
		},
	})
}

// handleGetVerdicts lists the flights recorded on ?date=YYYY-MM-DD (default today).
// ?source=db reads the PostgreSQL mirror instead of the text log.
func (s *Server) handleGetVerdicts(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("date")
	if day == "" {
		day = time.Now().Format(dailylog.DayLayout)
	}
	if _, err := time.Parse(dailylog.DayLayout, day); err != nil {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	if r.URL.Query().Get("source") == "db" {
		if s.app.Verdicts == nil {
			respondError(w, http.StatusServiceUnavailable, "Database mirror is not enabled")
			return
		}
		verdicts, err := s.app.Verdicts.ListByDate(r.Context(), day)
		if err != nil {
			log.Printf("Error listing verdicts: %v", err)
			respondError(w, http.StatusInternalServerError, "Failed to read verdicts")
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"date": day, "source": "db", "verdicts": verdicts})
		return
	}

	entries, err := s.app.Log.EntriesOn(day)
	if err != nil {
		log.Printf("Error reading log: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to read log")
		return
	}
	if entries == nil {
		entries = []dailylog.Entry{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"date": day, "source": "log", "verdicts": entries})
}

func (s *Server) handleGetDates(w http.ResponseWriter, r *http.Request) {
	days, err := s.app.Log.Days()
	if err != nil {
		log.Printf("Error reading log: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to read log")
		return
	}
	if days == nil {
		days = []string{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"dates": days})
}

// handleRunCycle runs a detection cycle now and returns its result.
func (s *Server) handleRunCycle(w http.ResponseWriter, r *http.Request) {
	username, _ := r.Context().Value(ctxUsername).(string)
	log.Printf("Cycle requested by %s", username)

	res, err := s.app.Pipeline.RunCycle(r.Context(), s.area)
	if err != nil {
		log.Printf("✗ On-demand cycle failed: %v", err)
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]interface{}{"success": false, "error": msg})
}
