package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/tablewright/tablewright/internal/ddl"
	"github.com/tablewright/tablewright/internal/diagram"
	"github.com/tablewright/tablewright/internal/dialect"
	"github.com/tablewright/tablewright/internal/executor"
	"github.com/tablewright/tablewright/internal/source"
)

// jsonResponse writes a JSON response.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("writing json response", "error", err)
	}
}

// errorResponse writes an error JSON response.
func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, ErrorResponse{Error: message})
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	var (
		unknownConn *source.UnknownConnectionError
		notFound    *source.TableNotFoundError
		intent      *diagram.IntentError
		ident       *ddl.InvalidIdentifierError
		engine      *dialect.UnsupportedEngineError
		exec        *executor.ExecutionError
	)
	switch {
	case errors.Is(err, executor.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, executor.ErrNoPending):
		return http.StatusNotFound
	case errors.As(err, &intent), errors.As(err, &ident), errors.As(err, &engine):
		return http.StatusBadRequest
	case errors.As(err, &exec):
		return http.StatusUnprocessableEntity
	case errors.As(err, &unknownConn), errors.As(err, &notFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err with the status statusFor picks. Execution failures
// carry the backend message unchanged.
func writeError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error()}
	var exec *executor.ExecutionError
	if errors.As(err, &exec) {
		resp.Error = exec.Error()
		resp.SQL = exec.SQL
	}
	jsonResponse(w, statusFor(err), resp)
}

// requestLogger is middleware that logs HTTP requests.
func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
