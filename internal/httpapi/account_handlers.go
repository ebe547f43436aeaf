package httpapi

import (
	"net/http"
	"strings"

	"digytal.com/control/internal/account"
	"digytal.com/control/internal/audit"
)

func (a *API) handleAccountsCollection(w http.ResponseWriter, r *http.Request) {
	orgID, r, ok := a.organization(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		accounts, err := a.svc.Accounts.ListAccounts(r.Context(), orgID)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		if accounts == nil {
			accounts = []account.Account{}
		}
		respond(w, http.StatusOK, "ok", accounts)
	case http.MethodPost:
		var req account.AccountRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		acc, err := a.svc.Accounts.CreateAccount(r.Context(), orgID, req)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "account.create", map[string]any{
			"account_id": acc.ID,
			"kind":       string(acc.Kind),
		})
		w.Header().Set("Location", "/v1/accounts/"+acc.ID)
		respond(w, http.StatusCreated, "account created", acc)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleAccountResource serves /v1/accounts/{id} and /v1/accounts/{id}/payment-methods.
func (a *API) handleAccountResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/accounts/"), "/")
	parts := strings.Split(path, "/")
	if path == "" || len(parts) > 2 || (len(parts) == 2 && parts[1] != "payment-methods") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	orgID, r, ok := a.organization(w, r)
	if !ok {
		return
	}
	accountID := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		acc, err := a.svc.Accounts.GetAccount(r.Context(), orgID, accountID)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		respond(w, http.StatusOK, "ok", acc)
		return
	}

	switch r.Method {
	case http.MethodGet:
		methods, err := a.svc.Accounts.ListPaymentMethods(r.Context(), orgID, accountID)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		if methods == nil {
			methods = []account.PaymentMethod{}
		}
		respond(w, http.StatusOK, "ok", methods)
	case http.MethodPost:
		var req account.PaymentMethodRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		id, err := a.svc.Accounts.AddPaymentMethod(r.Context(), orgID, accountID, req)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "account.payment_method.create", map[string]any{
			"account_id":        accountID,
			"payment_method_id": id,
			"means":             string(req.Means),
		})
		w.Header().Set("Location", "/v1/payment-methods/"+id)
		respond(w, http.StatusCreated, "payment method created", createdResponse{ID: id})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handlePaymentMethodResource(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/payment-methods/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}
	orgID, r, ok := a.organization(w, r)
	if !ok {
		return
	}
	if err := a.svc.Accounts.RemovePaymentMethod(r.Context(), orgID, id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "account.payment_method.delete", map[string]any{
		"payment_method_id": id,
	})
	w.WriteHeader(http.StatusNoContent)
}
