package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Beyllin/link/internal/api/shared"
	"github.com/Beyllin/link/internal/service/auth"
)

// stubJWTService accepts exactly one token
type stubJWTService struct {
	valid string
	err   error
}

func (s stubJWTService) GenerateToken(context.Context, string) (string, error) {
	return s.valid, nil
}

func (s stubJWTService) ValidateToken(_ context.Context, token string) (*auth.Claims, error) {
	if s.err != nil {
		return nil, s.err
	}
	if token != s.valid {
		return nil, auth.ErrInvalidToken
	}
	return &auth.Claims{Subject: "admin"}, nil
}

func ownerEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner, _ := shared.GetOwner(r.Context())
		_, _ = io.WriteString(w, owner)
	})
}

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		svc        stubJWTService
		wantStatus int
		wantBody   string
	}{
		{"valid token", "Bearer good", stubJWTService{valid: "good"}, http.StatusOK, "admin"},
		{"lowercase scheme", "bearer good", stubJWTService{valid: "good"}, http.StatusOK, "admin"},
		{"missing header", "", stubJWTService{valid: "good"}, http.StatusUnauthorized, "Authorization header required"},
		{"wrong scheme", "Basic good", stubJWTService{valid: "good"}, http.StatusUnauthorized, "Invalid authorization format"},
		{"no token", "Bearer", stubJWTService{valid: "good"}, http.StatusUnauthorized, "Invalid authorization format"},
		{"bad token", "Bearer bad", stubJWTService{valid: "good"}, http.StatusUnauthorized, "Invalid token"},
		{"expired", "Bearer good", stubJWTService{err: auth.ErrExpiredToken}, http.StatusUnauthorized, "Token expired"},
		{"internal", "Bearer good", stubJWTService{err: errors.New("db down")}, http.StatusInternalServerError, "Authentication error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewAuthMiddleware(tt.svc).Authenticate(ownerEcho())

			r := httptest.NewRequest(http.MethodGet, "/api/queue", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestTraceMiddleware(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	var seen string
	handler := TraceMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = shared.GetTraceID(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Len(t, seen, shared.TraceIDLength*2)
	assert.Equal(t, seen, w.Header().Get("X-Trace-ID"))
}
