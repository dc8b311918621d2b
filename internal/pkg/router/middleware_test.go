package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shandysiswandi/passwordless/internal/pkg/config"
)

func TestChainOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}), tag("outer"), tag("inner"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	want := []string{"outer", "inner", "handler"}
	if len(order) != len(want) {
		t.Fatalf("execution order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("execution order = %v, want %v", order, want)
		}
	}
}

type maintenanceConfig struct {
	config.Config
	endpoints []string
}

func (c maintenanceConfig) GetArray(key string) []string {
	if key == "app.maintenance.endpoints" {
		return c.endpoints
	}
	return nil
}

func TestMiddlewareMaintenance(t *testing.T) {
	mw := middlewareMaintenance(maintenanceConfig{endpoints: []string{"/otp/generate"}})

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("blocks listed endpoints", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mw(next).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/otp/generate", nil))

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
		}
		var body struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Error != "service is under maintenance" {
			t.Errorf("error = %q, want maintenance message", body.Error)
		}
	})

	t.Run("passes through other endpoints", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mw(next).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/otp/validate", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
	})

	t.Run("does nothing when no endpoints are listed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		middlewareMaintenance(maintenanceConfig{})(next).
			ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/otp/generate", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
	})
}
