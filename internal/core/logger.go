package core

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tesh254/llmstxt/internal/logger"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	bodySize   int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(data []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(data)
	rw.bodySize += n
	return n, err
}

// Flush keeps streamed responses working through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func loggingHandler(handler http.Handler, log logger.Logger) http.Handler {
	log = logger.OrNull(log)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqLog := log.With("request_id", uuid.New().String(), "method", r.Method, logger.KeyPath, r.URL.Path)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		reqLog.Debug("incoming request",
			"remote", r.RemoteAddr,
			"user_agent", r.Header.Get("User-Agent"),
			"content_length", r.Header.Get("Content-Length"),
		)

		handler.ServeHTTP(wrapped, r)

		reqLog.Info("response sent",
			logger.KeyStatus, wrapped.statusCode,
			"duration", time.Since(start),
			"size", wrapped.bodySize,
		)
	})
}
