package api

import (
	"net/http"
	"time"

	"github.com/Beyllin/link/internal/api/shared"
	"github.com/Beyllin/link/internal/service/auth"
)

// AdminSubject is the token subject issued to the admin operator.
const AdminSubject = "admin"

// Authenticator checks the admin password.
type Authenticator interface {
	Authenticate(password string) error
}

// AuthHandler issues bearer tokens for the admin API.
type AuthHandler struct {
	authenticator Authenticator
	jwtService    auth.JWTService
	tokenLifetime time.Duration
	timeFunc      func() time.Time
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(authenticator Authenticator, jwtService auth.JWTService, tokenLifetime time.Duration) *AuthHandler {
	return &AuthHandler{
		authenticator: authenticator,
		jwtService:    jwtService,
		tokenLifetime: tokenLifetime,
		timeFunc:      time.Now,
	}
}

// IssueToken handles POST /api/auth/token.
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.authenticator.Authenticate(req.Password); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, "Invalid credentials", err,
			shared.WithElevatedLogLevel())
		return
	}

	issuedAt := h.timeFunc()
	token, err := h.jwtService.GenerateToken(r.Context(), AdminSubject)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to generate authentication token", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TokenResponse{
		Token:     token,
		ExpiresAt: issuedAt.Add(h.tokenLifetime).UTC(),
	})
}
