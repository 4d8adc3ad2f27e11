package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name       string
		checks     map[string]Pinger
		wantStatus int
		wantBody   []string
	}{
		{
			name:       "all up",
			checks:     map[string]Pinger{"cache": ok, "database": ok},
			wantStatus: http.StatusOK,
			wantBody:   []string{`"cache":"ok"`, `"database":"ok"`, `"status":"ready"`},
		},
		{
			name:       "database down",
			checks:     map[string]Pinger{"cache": ok, "database": down},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   []string{`"database":"error"`, `"status":"unavailable"`},
		},
		{
			name:       "nil dependency skipped",
			checks:     map[string]Pinger{"cache": ok, "database": nil},
			wantStatus: http.StatusOK,
			wantBody:   []string{`"cache":"ok"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.checks)
			engine := newTestEngine()
			engine.GET("/health", h.Live)
			engine.GET("/ready", h.Ready)

			assert.Equal(t, http.StatusOK, perform(engine, http.MethodGet, "/health", "", "").Code)

			w := perform(engine, http.MethodGet, "/ready", "", "")
			assert.Equal(t, tt.wantStatus, w.Code)
			for _, s := range tt.wantBody {
				assert.Contains(t, w.Body.String(), s)
			}
		})
	}
}
