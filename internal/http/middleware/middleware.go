package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	rl "github.com/rogerio-castellano/storefront/internal/http/rate_limiter"
	"github.com/rogerio-castellano/storefront/internal/session"
	"github.com/sirupsen/logrus"
)

// ReturnToHeader carries the UI route to come back to after logging in.
const ReturnToHeader = "X-Return-To"

var sess *session.Session

func SetSession(s *session.Session) {
	sess = s
}

type errorBody struct {
	Kind    string `json:"kind"`
	Action  string `json:"action"`
	Message string `json:"message"`
}

func deny(w http.ResponseWriter, status int, kind, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Kind: kind, Action: "Acceso", Message: msg})
}

// RequireSession rejects requests made without a logged-in session. The
// ReturnToHeader value, when present, becomes the post-login redirect.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !sess.LoggedIn() {
			if to := r.Header.Get(ReturnToHeader); strings.HasPrefix(to, "/") {
				if err := sess.SetRedirect(r.Context(), to); err != nil {
					logrus.WithError(err).Warn("Could not store post-login redirect")
				}
			}
			deny(w, http.StatusUnauthorized, "auth", "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireStaff lets only staff sessions through.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !sess.LoggedIn() {
			deny(w, http.StatusUnauthorized, "auth", "authentication required")
			return
		}
		if !sess.IsStaff() {
			deny(w, http.StatusForbidden, "auth", "staff only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP keys on the peer address. Forwarding headers count only when the
// router was told to trust a proxy, which rewrites RemoteAddr first.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit answers 429 once a client exceeds its request budget.
func RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !rl.GetVisitor(ip).Allow() {
			logrus.WithFields(logrus.Fields{"client": ip, "route": r.URL.Path}).Warn("🚫 Rate limit exceeded")
			w.Header().Set("Retry-After", "1")
			deny(w, http.StatusTooManyRequests, "rate_limit", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequestLogger logs every request with its status and duration.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		entry := logrus.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start).String(),
			"request_id": chimw.GetReqID(r.Context()),
		})
		switch {
		case ww.Status() >= 500:
			entry.Error("Request served")
		case ww.Status() >= 400:
			entry.Warn("Request served")
		default:
			entry.Debug("Request served")
		}
	})
}
