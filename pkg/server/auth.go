package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/airepert/airepert/pkg/log"
)

// requireAdmin only lets through requests bearing an ID token whose email is
// one of the admin emails. Without any verifier configured auth is disabled.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if len(s.oidcVerifiers) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			log.Ctx(ctx).WarnContext(ctx, "missing auth header")
			writeJSONError(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			log.Ctx(ctx).WarnContext(ctx, "invalid auth header")
			writeJSONError(w, "invalid auth header", http.StatusBadRequest)
			return
		}

		email, subject, err := s.authenticateToken(ctx, strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "token validation failed", slog.Any("error", err))
			writeJSONError(w, "invalid auth token", http.StatusUnauthorized)
			return
		}
		if email == "" || !slices.Contains(s.adminEmails, email) {
			log.Ctx(ctx).WarnContext(ctx, "user is not an admin", slog.String("email", email))
			writeJSONError(w, "forbidden", http.StatusForbidden)
			return
		}

		ctx = log.WithAttrs(ctx, slog.String("authUserID", subject))
		log.Ctx(ctx).DebugContext(ctx, "authenticated request", slog.String("email", email))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) authenticateToken(ctx context.Context, token string) (string, string, error) {
	var errs []error

	for providerName, verifier := range s.oidcVerifiers {
		id, err := verifier(ctx, token)
		if err == nil {
			return id.Email, id.Subject, nil
		}
		errs = append(errs, fmt.Errorf("%s verifier failed: %v", providerName, err))
	}

	if len(errs) > 0 {
		return "", "", errors.Join(errs...)
	}
	return "", "", errors.New("no valid audiences configured or token invalid")
}
