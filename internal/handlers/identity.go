package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/ternarybob/folio/internal/services/portfolio"
)

// SessionValidator resolves a bearer token to an account email.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (string, error)
}

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// requesterEmail resolves the account a request acts on. A valid bearer
// token selects that account; anything else falls back to the demo
// account so the portfolio and report routes work without a login.
func requesterEmail(r *http.Request, validator SessionValidator) string {
	token := bearerToken(r)
	if token != "" && validator != nil {
		if email, err := validator.Validate(r.Context(), token); err == nil {
			return email
		}
	}
	return portfolio.DemoUserEmail
}
