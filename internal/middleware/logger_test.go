package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Lixing-Zhang/storefront/pkg/logger"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_RequestFields(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	core, logs := observer.New(zap.InfoLevel)
	h := chimw.RequestID(Logger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("inside_handler")
		w.WriteHeader(http.StatusTeapot)
	})))

	req := httptest.NewRequest(http.MethodGet, "/store", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	h.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d log entries, want 2", len(entries))
	}
	for _, e := range entries {
		fields := e.ContextMap()
		if id, _ := fields["request_id"].(string); id == "" {
			t.Errorf("%s: missing request_id", e.Message)
		}
		if fields["trace_id"] != "4bf92f3577b34da6a3ce929d0e0e4736" {
			t.Errorf("%s: trace_id = %v", e.Message, fields["trace_id"])
		}
	}

	last := entries[1].ContextMap()
	if last["status"] != int64(http.StatusTeapot) {
		t.Errorf("status = %v, want 418", last["status"])
	}
}
