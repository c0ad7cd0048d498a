package api

import (
	"net/http"

	"github.com/go-chi/jwtauth"
	"github.com/google/uuid"
)

// Caller is the authenticated identity extracted from the request token
type Caller struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
}

// NewTokenAuth builds the JWT verifier used by the router middleware
func NewTokenAuth(secret string) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", []byte(secret), nil)
}

// callerFromContext extracts the caller identity from verified JWT claims.
// The subject claim carries the user id; tenant_id is optional and zero
// when absent.
func callerFromContext(r *http.Request) (Caller, bool) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return Caller{}, false
	}

	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return Caller{}, false
	}

	caller := Caller{UserID: userID}
	if tenant, ok := claims["tenant_id"].(string); ok {
		if tenantID, err := uuid.Parse(tenant); err == nil {
			caller.TenantID = tenantID
		}
	}

	return caller, true
}
