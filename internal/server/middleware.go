package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

type ctxKey struct{}

func requestLogger(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", chiMiddleware.GetReqID(r.Context()),
			)
		})
	}
}

// requireAuth resolves the access cookie to a user id.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(accessCookie)
		if err != nil || cookie.Value == "" {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		userID, err := s.parseToken(cookie.Value, kindAccess)
		if err != nil {
			s.logger.Debug("rejected access token", "err", err)
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		if _, ok := s.store.user(userID); !ok {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, userID)))
	})
}

func currentUserID(r *http.Request) int {
	id, _ := r.Context().Value(ctxKey{}).(int)
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return false
	}
	return true
}

// page reads skip and limit, clamping limit to [1, 100] with a default of 10.
func page(r *http.Request) (skip, limit int) {
	q := r.URL.Query()
	skip, _ = strconv.Atoi(q.Get("skip"))
	limit, _ = strconv.Atoi(q.Get("limit"))
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return skip, limit
}

func paginate[T any](items []T, skip, limit int) []T {
	if skip >= len(items) {
		return []T{}
	}
	end := min(skip+limit, len(items))
	return items[skip:end]
}
