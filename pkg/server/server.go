package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/airepert/airepert/pkg/controller"
	"github.com/airepert/airepert/pkg/log"
	"github.com/airepert/airepert/pkg/metrics"
	"github.com/airepert/airepert/pkg/storage"
	"github.com/airepert/airepert/pkg/types"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/levenlabs/go-lflag"
)

// tokenIdentity is who an ID token was issued to.
type tokenIdentity struct {
	Email   string
	Subject string
}

// tokenVerifier is a function that validates an OIDC ID Token.
type tokenVerifier func(ctx context.Context, rawIDToken string) (tokenIdentity, error)

func oidcTokenVerifier(v *oidc.IDTokenVerifier) tokenVerifier {
	return func(ctx context.Context, rawIDToken string) (tokenIdentity, error) {
		idToken, err := v.Verify(ctx, rawIDToken)
		if err != nil {
			return tokenIdentity{}, err
		}
		var claims struct {
			Email string `json:"email"`
		}
		if err := idToken.Claims(&claims); err != nil {
			return tokenIdentity{}, err
		}
		return tokenIdentity{Email: claims.Email, Subject: idToken.Subject}, nil
	}
}

// forecaster is the forecast manager as seen by the HTTP layer.
type forecaster interface {
	GetForecast(ctx context.Context, now time.Time) (types.ForecastResult, error)
	Refresh(ctx context.Context, now time.Time) (types.ForecastResult, error)
	UsageStats(now time.Time) types.ForecastUsageStats
}

// Server handles the HTTP API of the dispatcher. It builds the decision
// context from storage and hands it to the controller.
type Server struct {
	storage    storage.Database
	forecasts  forecaster
	controller *controller.Controller
	metrics    *metrics.Metrics

	listenAddr string
	httpServer *http.Server
	serverName string
	now        func() time.Time

	adminEmails       []string
	oidcVerifiers     map[string]tokenVerifier
	batteryCapacityWH float64
}

// Configured initializes the Server with dependencies.
// It uses lflag to register command-line flags for configuration.
func Configured(s storage.Database, f forecaster, c *controller.Controller, m *metrics.Metrics) *Server {
	srv := &Server{
		storage:    s,
		forecasts:  f,
		controller: c,
		metrics:    m,
		serverName: "airepert",
		now:        time.Now,
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	listenAddr := lflag.String("http-listen", ":"+port, "HTTP server listen address")
	adminEmails := lflag.String("admin-emails", "", "comma-delimited list of email addresses allowed to change loads and refresh forecasts")
	oidcAudience := lflag.String("oidc-audience", "", "audience to validate Google ID tokens against (empty disables auth)")
	batteryCapacityWH := lflag.Int("battery-capacity-wh", 10000, "Usable battery capacity in Wh")

	lflag.Do(func() {
		srv.listenAddr = *listenAddr
		srv.batteryCapacityWH = float64(*batteryCapacityWH)
		if *adminEmails != "" {
			srv.adminEmails = strings.Split(*adminEmails, ",")
			for i, email := range srv.adminEmails {
				srv.adminEmails[i] = strings.TrimSpace(email)
			}
		}
		if *oidcAudience != "" {
			provider, err := oidc.NewProvider(context.Background(), "https://accounts.google.com")
			if err != nil {
				log.Ctx(context.Background()).Error("failed to initialize Google OIDC provider", slog.Any("error", err))
				os.Exit(1)
			}
			srv.oidcVerifiers = map[string]tokenVerifier{
				"google": oidcTokenVerifier(provider.Verifier(&oidc.Config{ClientID: *oidcAudience})),
			}
		}
	})

	return srv
}

func (s *Server) setupHandler() http.Handler {
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("POST /api/dispatch", s.handleDispatch)
	apiMux.HandleFunc("GET /api/forecast", s.handleForecast)
	apiMux.HandleFunc("GET /api/forecast/stats", s.handleForecastStats)
	apiMux.Handle("POST /api/forecast/refresh", s.requireAdmin(http.HandlerFunc(s.handleForecastRefresh)))
	apiMux.HandleFunc("POST /api/measurements", s.handleInsertMeasurement)
	apiMux.HandleFunc("GET /api/measurements/latest", s.handleLatestMeasurements)
	apiMux.HandleFunc("GET /api/loads", s.handleListLoads)
	apiMux.Handle("POST /api/loads", s.requireAdmin(http.HandlerFunc(s.handleCreateLoad)))
	apiMux.Handle("PUT /api/loads/{id}/state", s.requireAdmin(http.HandlerFunc(s.handleSetLoadState)))
	apiMux.HandleFunc("GET /api/history/decisions", s.handleHistoryDecisions)
	apiMux.HandleFunc("POST /api/battery/autonomy", s.handleBatteryAutonomy)

	mux := http.NewServeMux()
	mux.Handle("/api/", s.requestLogMiddleware(apiMux))
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.HandleFunc("/healthz", s.handleHealthz)
	return s.revisionMiddleware(gziphandler.GzipHandler(s.securityHeadersMiddleware(mux)))
}

// Run starts the HTTP server and blocks until the context is canceled or an error occurs.
// It also handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.setupHandler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	// use a channel to capturing server errors
	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", s.listenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg}); err != nil {
		slog.Warn("failed to write error response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

// decodeJSONBody reads at most 1MB of JSON into v.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1048576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := log.WithAttrs(r.Context(), slog.String("reqPath", r.URL.Path), slog.String("reqMethod", r.Method))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) revisionMiddleware(next http.Handler) http.Handler {
	if s.serverName == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", s.serverName)
		next.ServeHTTP(w, r)
	})
}
