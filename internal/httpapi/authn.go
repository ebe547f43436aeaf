package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"digytal.com/control/internal/audit"
	"digytal.com/control/internal/auth"
	"digytal.com/control/internal/business"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
	orgHeader  = "X-Organization-ID"
)

var publicPaths = []string{
	"/v1/auth/login",
	"/v1/auth/password/reset",
	"/v1/auth/password/confirm",
	"/v1/first-access",
	"/v1/info",
	"/metrics",
	"/healthz",
	"/readyz",
}

func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || a.svc.Authenticator == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="control"`)
			writeErrorCode(w, r, http.StatusUnauthorized, business.Code(business.ErrInvalidToken), err.Error())
			return
		}

		principal, err := a.svc.Authenticator.Authenticate(r.Context(), token)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="control", error="invalid_token"`)
			handleServiceError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.ContextWithPrincipal(r.Context(), principal)))
	})
}

// organization resolves the organization the request acts on and records it
// for audit. It writes the error response and returns false on failure.
func (a *API) organization(w http.ResponseWriter, r *http.Request) (string, *http.Request, bool) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeErrorCode(w, r, http.StatusUnauthorized, business.Code(business.ErrInvalidToken), "authentication required")
		return "", r, false
	}
	orgID, ok := principal.ActiveOrganization(r.Header.Get(orgHeader))
	if !ok {
		writeErrorCode(w, r, http.StatusForbidden, "organization_forbidden", "organization not available to this user")
		return "", r, false
	}
	return orgID, r.WithContext(audit.WithOrganizationID(r.Context(), orgID)), true
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if len(header) < len(bearer) || !strings.EqualFold(header[:len(bearer)], bearer) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
