package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nickyhof/TableDB/core"
	"github.com/nickyhof/TableDB/db"
)

type identityKey struct{}

// Router serves the request protocol over HTTP:
//
//	POST /v1/exec    one JSON request in the body
//	GET  /v1/tables  table names
//	GET  /healthz    liveness
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.bearerAuth)
		r.Post("/exec", s.handleExec)
		r.Get("/tables", s.handleTables)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// bearerAuth validates "Authorization: Bearer <jwt>" when auth is enabled.
func (s *Server) bearerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.auth.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse(errAuthRequired))
			return
		}
		result := validateJWT(s.auth, token)
		if result.err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse(result.err))
			return
		}

		ctx := context.WithValue(r.Context(), identityKey{}, result.identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleExec(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxLineSize))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse(err))
		return
	}

	engine := s.engine
	if identity, ok := r.Context().Value(identityKey{}).(core.Identity); ok {
		engine = engine.As(identity)
	}

	result, err := engine.ExecuteJSON(r.Context(), body)
	if err != nil {
		writeJSON(w, statusFor(err), errorResponse(err))
		return
	}
	writeJSON(w, http.StatusOK, resultResponse(result))
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	names := s.instance.Registry().TableNames()
	writeJSON(w, http.StatusOK, resultResponse(db.TablesResult{Names: names}))
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrUnknownTable):
		return http.StatusNotFound
	case errors.Is(err, core.ErrDuplicateTable):
		return http.StatusConflict
	case errors.Is(err, db.ErrNoPersistence):
		return http.StatusServiceUnavailable
	case errors.Is(err, db.ErrBadRequest), errors.Is(err, db.ErrUnknownOp),
		errors.Is(err, core.ErrValidation), errors.Is(err, core.ErrUnknownColumn),
		errors.Is(err, core.ErrNotPrimaryKey), errors.Is(err, core.ErrUnknownType),
		errors.Is(err, core.ErrDuplicateColumn), errors.Is(err, core.ErrInvalidSchema),
		errors.Is(err, core.ErrUnknownOperator), errors.Is(err, core.ErrNotNumeric):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Default().Warn("failed to write response", "error", err)
	}
}
