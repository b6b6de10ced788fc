package client

import (
	"net/http"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// RequestIDHeader carries a per-request id for correlating client and server logs.
const RequestIDHeader = "X-Request-Id"

type loggingTransport struct {
	log  *zap.Logger
	next http.RoundTripper
}

// LoggingTransport wraps next with structured request logging and request ids.
// Only metadata is logged, never payloads or headers.
func LoggingTransport(log *zap.Logger, next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &loggingTransport{log: log, next: next}
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	id := req.Header.Get(RequestIDHeader)
	if id == "" {
		if v, err := uuid.NewV4(); err == nil {
			id = v.String()
			req = req.Clone(req.Context())
			req.Header.Set(RequestIDHeader, id)
		}
	}

	resp, err := t.next.RoundTrip(req)

	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.String("request_id", id),
		zap.Duration("dur", time.Since(start)),
	}
	if err != nil {
		t.log.Warn("http", append(fields, zap.Error(err))...)
		return resp, err
	}
	t.log.Info("http", append(fields, zap.Int("status", resp.StatusCode))...)
	return resp, nil
}
