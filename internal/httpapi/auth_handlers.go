package httpapi

import (
	"net/http"
	"strings"
	"time"

	"digytal.com/control/internal/audit"
	"digytal.com/control/internal/auth"
	"digytal.com/control/internal/onboarding"
)

type resetRequest struct {
	Login string `json:"login"`
}

// resetAccepted is returned for reset requests; the token travels only by email.
type resetAccepted struct {
	Login     string    `json:"login"`
	ExpiresAt time.Time `json:"expires_at"`
}

type firstAccessRequest struct {
	TaxID string `json:"tax_id"`
	onboarding.Registration
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req auth.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	session, err := a.svc.Authenticator.Login(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(auth.ContextWithPrincipal(r.Context(), auth.Principal{UserID: session.User.ID}), "auth.login", map[string]any{
		"login":      session.User.Login,
		"expires_at": session.ExpiresAt.Format(time.RFC3339),
	})
	respond(w, http.StatusOK, "login successful", session)
}

func (a *API) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req resetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	ticket, err := a.svc.Passwords.RequestResetByLogin(r.Context(), req.Login)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.password.reset_requested", map[string]any{
		"login": ticket.Login,
	})
	respond(w, http.StatusAccepted, "reset instructions sent", resetAccepted{Login: ticket.Login, ExpiresAt: ticket.ExpiresAt})
}

func (a *API) handleResetConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req auth.ResetConfirmation
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	session, err := a.svc.Passwords.ConfirmReset(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(auth.ContextWithPrincipal(r.Context(), auth.Principal{UserID: session.User.ID}), "auth.password.defined", nil)
	respond(w, http.StatusOK, "password defined", session)
}

func (a *API) handlePasswordChange(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	var req auth.PasswordChange
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req.UserID = principal.UserID
	req.ExpiresAt = principal.ExpiresAt
	session, err := a.svc.Passwords.ChangePassword(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.password.changed", nil)
	respond(w, http.StatusOK, "password changed", session)
}

// handleUserResource serves /v1/users/{id}/password-reset.
func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/users/"), "/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "password-reset" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	orgID, r, ok := a.organization(w, r)
	if !ok {
		return
	}
	ticket, err := a.svc.Passwords.RequestResetByID(r.Context(), orgID, parts[0])
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.password.reset_issued", map[string]any{
		"target_user_id": ticket.UserID,
		"expires_at":     ticket.ExpiresAt.Format(time.RFC3339),
	})
	respond(w, http.StatusAccepted, "reset instructions sent", resetAccepted{Login: ticket.Login, ExpiresAt: ticket.ExpiresAt})
}

func (a *API) handleFirstAccess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req firstAccessRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	cred, err := a.svc.Onboarding.FirstAccess(r.Context(), req.TaxID, req.Registration)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	ctx := audit.WithOrganizationID(r.Context(), cred.OrganizationID)
	_ = audit.LogEvent(auth.ContextWithPrincipal(ctx, auth.Principal{UserID: cred.UserID}), "onboarding.first_access", map[string]any{
		"login":      cred.Login,
		"account_id": cred.AccountID,
	})
	w.Header().Set("Location", "/v1/accounts/"+cred.AccountID)
	respond(w, http.StatusCreated, "organization provisioned", cred)
}
