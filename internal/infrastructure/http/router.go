package httpserver

import (
	"net/http"
	"time"

	"tokenprices-service/internal/infrastructure/logx"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// correlationHeaders are echoed back, or minted when the caller sent none.
var correlationHeaders = []struct{ header, field string }{
	{"X-Request-ID", "request_id"},
	{"X-Trace-Id", "trace_id"},
}

func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()

	r.Use(correlate, accessLog, recoverPanic)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if s.ping != nil {
			if err := s.ping(r.Context()); err != nil {
				writeError(w, http.StatusServiceUnavailable, "db not ready")
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/crypto-prices", s.GetCryptoPrices)
		r.Post("/update-token-prices", s.UpdateTokenPrices)
	})
	return r
}

// correlate attaches the correlation ids to the response and to the
// request-scoped logger.
func correlate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fields := make([]zap.Field, 0, len(correlationHeaders))
		for _, c := range correlationHeaders {
			v := r.Header.Get(c.header)
			if v == "" {
				v = uuid.NewString()
			}
			w.Header().Set(c.header, v)
			fields = append(fields, zap.String(c.field, v))
		}
		ctx := logx.Into(r.Context(), logx.WithFields(r.Context()).With(fields...))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// responseCapture remembers the status and size of what the handler wrote.
type responseCapture struct {
	http.ResponseWriter
	code    int
	written int64
}

func (c *responseCapture) WriteHeader(code int) {
	if c.code == 0 {
		c.code = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.code == 0 {
		c.code = http.StatusOK
	}
	n, err := c.ResponseWriter.Write(b)
	c.written += int64(n)
	return n, err
}

func (c *responseCapture) status() int {
	if c.code == 0 {
		return http.StatusOK
	}
	return c.code
}

// accessLog logs one line per request, at Warn for 4xx and Error for 5xx.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		began := time.Now()
		rc := &responseCapture{ResponseWriter: w}
		next.ServeHTTP(rc, r)

		log := logx.WithFields(r.Context())
		level := zap.InfoLevel
		switch code := rc.status(); {
		case code >= 500:
			level = zap.ErrorLevel
		case code >= 400:
			level = zap.WarnLevel
		}
		if ce := log.Check(level, "http_request"); ce != nil {
			ce.Write(
				zap.String("method", r.Method),
				zap.String("route", r.URL.Path),
				zap.Int("status", rc.status()),
				zap.Int64("bytes", rc.written),
				zap.Duration("took", time.Since(began)),
			)
		}
	})
}

// recoverPanic turns a handler panic into a JSON 500 unless the handler had
// already started the response.
func recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc, ok := w.(*responseCapture)
		if !ok {
			rc = &responseCapture{ResponseWriter: w}
		}
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}
			logx.WithFields(r.Context()).Error("http_panic", zap.Any("panic", v), zap.Stack("stack"))
			if rc.code != 0 {
				return
			}
			writeJSON(rc, http.StatusInternalServerError, ErrorResponse{Message: http.StatusText(http.StatusInternalServerError), Source: "error"})
		}()
		next.ServeHTTP(rc, r)
	})
}
