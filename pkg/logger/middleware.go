package logger

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/narwhalmedia/medialibrary/pkg/interfaces"
)

// HTTPMiddleware logs every request and stores the logger in the request context.
func HTTPMiddleware(logger interfaces.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			reqLogger := logger.WithFields(
				interfaces.String("method", r.Method),
				interfaces.String("path", r.URL.Path),
				interfaces.String("request_id", middleware.GetReqID(r.Context())),
			)
			ctx := WithContext(r.Context(), reqLogger)

			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []interfaces.Field{
				interfaces.Int("status", status),
				interfaces.Duration("duration", time.Since(start)),
			}
			if status >= http.StatusInternalServerError {
				reqLogger.Error("HTTP request failed", fields...)
				return
			}
			reqLogger.Debug("HTTP request completed", fields...)
		})
	}
}
