package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"intranet-lending/internal/config"
	"intranet-lending/internal/logger"
	"intranet-lending/internal/security"
)

const requestIDHeader = "X-Request-ID"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	if rw.status != 0 {
		return
	}
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// RequestLogging assigns a request id and logs every request once it completes.
func RequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r.WithContext(ctx))

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		logger.Info("HTTP request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

// Auth enforces the security level configured for the matched route name.
type Auth struct {
	tokenManager security.TokenManager
}

func NewAuth(tm security.TokenManager) *Auth {
	return &Auth{tokenManager: tm}
}

func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := ""
		if current := mux.CurrentRoute(r); current != nil {
			route = current.GetName()
		}
		level := config.GetRouteSecurityLevel(route)

		// Public endpoint - skip auth
		if level == config.SecurityPublic {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := extractToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Anmeldung erforderlich.")
			return
		}

		claims, err := a.tokenManager.ValidateToken(token)
		if err != nil {
			logger.Debug("Rejected session token", "route", route, "error", err)
			writeError(w, http.StatusUnauthorized, "Die Sitzung ist ungültig oder abgelaufen.")
			return
		}

		if level == config.SecurityAdmin && !claims.IsAdmin() {
			logger.Warn("Admin route denied", "route", route, "user_id", claims.UserID)
			writeError(w, http.StatusForbidden, "Keine Berechtigung.")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if cookie, err := r.Cookie("portal_session"); err == nil && cookie.Value != "" {
			return cookie.Value, true
		}
		return "", false
	}
	// Remove Bearer prefix if present
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		header = header[7:]
	}
	header = strings.TrimSpace(header)
	return header, header != ""
}
