package controller

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sharetube/watchparty/pkg/ctxlogger"
)

const requestIdHeader = "X-Request-Id"

// requestIdMw reuses the caller's request id when present and echoes it back.
func (c controller) requestIdMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestId := r.Header.Get(requestIdHeader)
		if requestId == "" {
			requestId = c.generateTimeBasedId()
		}
		w.Header().Set(requestIdHeader, requestId)

		ctx := ctxlogger.AppendCtx(r.Context(), slog.String("request_id", requestId))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLoggingMw logs the path only, the query carries auth tokens.
// Upgraded connections are logged when they close.
func (c controller) requestLoggingMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		c.logger.InfoContext(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"remote_addr", r.RemoteAddr,
		)
	})
}
