package client

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type rtFunc func(*http.Request) (*http.Response, error)

func (f rtFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestLoggingTransport_StampsRequestID(t *testing.T) {
	t.Parallel()

	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(RequestIDHeader)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	core, logs := observer.New(zap.InfoLevel)
	hc := &http.Client{Transport: LoggingTransport(zap.New(core), srv.Client().Transport)}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/plants/x", nil)
	resp, err := hc.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	_ = resp.Body.Close()

	if _, err := uuid.FromString(seen); err != nil {
		t.Fatalf("request id not a uuid: %q", seen)
	}
	if req.Header.Get(RequestIDHeader) != "" {
		t.Fatalf("caller's request must not be mutated")
	}

	entries := logs.FilterMessage("http").All()
	if len(entries) != 1 {
		t.Fatalf("want 1 log entry, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["path"] != "/plants/x" || ctx["status"] != int64(http.StatusNoContent) || ctx["request_id"] != seen {
		t.Fatalf("unexpected log fields: %v", ctx)
	}
}

func TestLoggingTransport_KeepsExistingIDAndLogsErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("dial fail")
	var got string
	next := rtFunc(func(r *http.Request) (*http.Response, error) {
		got = r.Header.Get(RequestIDHeader)
		return nil, boom
	})

	core, logs := observer.New(zap.InfoLevel)
	rt := LoggingTransport(zap.New(core), next)

	req, _ := http.NewRequest(http.MethodDelete, "http://api.local/plants/1", nil)
	req.Header.Set(RequestIDHeader, "fixed")
	if _, err := rt.RoundTrip(req); !errors.Is(err, boom) {
		t.Fatalf("want original error, got %v", err)
	}
	if got != "fixed" {
		t.Fatalf("existing request id replaced: %q", got)
	}
	if logs.FilterMessage("http").FilterLevelExact(zap.WarnLevel).Len() != 1 {
		t.Fatalf("transport error should be logged at warn")
	}
}
