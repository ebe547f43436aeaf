package httpapi

import (
	"context"
	"net/http"
	"strings"

	"digytal.com/control/internal/audit"
	"digytal.com/control/internal/catalog"
)

type createdResponse struct {
	ID string `json:"id"`
}

type applicationRoute struct {
	kind    catalog.Kind
	list    func(context.Context, string, string) ([]catalog.Application, error)
	include func(context.Context, string, catalog.ApplicationRequest) (string, error)
}

func (a *API) applicationRoutes() map[string]applicationRoute {
	return map[string]applicationRoute{
		"areas":    {catalog.KindArea, a.svc.Catalog.ListAreas, a.svc.Catalog.IncludeArea},
		"revenues": {catalog.KindRevenue, a.svc.Catalog.ListRevenues, a.svc.Catalog.IncludeRevenue},
		"expenses": {catalog.KindExpense, a.svc.Catalog.ListExpenses, a.svc.Catalog.IncludeExpense},
	}
}

// handleApplications serves /v1/applications/{areas|revenues|expenses} and /v1/applications/{id}.
func (a *API) handleApplications(w http.ResponseWriter, r *http.Request) {
	segment := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/applications/"), "/")
	if segment == "" || strings.Contains(segment, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	orgID, r, ok := a.organization(w, r)
	if !ok {
		return
	}

	route, isCollection := a.applicationRoutes()[segment]
	if !isCollection {
		if r.Method != http.MethodPatch {
			methodNotAllowed(w, r, http.MethodPatch)
			return
		}
		a.renameApplication(w, r, orgID, segment)
		return
	}

	switch r.Method {
	case http.MethodGet:
		apps, err := route.list(r.Context(), orgID, r.URL.Query().Get("name"))
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		if apps == nil {
			apps = []catalog.Application{}
		}
		respond(w, http.StatusOK, "ok", apps)
	case http.MethodPost:
		var req catalog.ApplicationRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		id, err := route.include(r.Context(), orgID, req)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "catalog.application.create", map[string]any{
			"application_id": id,
			"kind":           string(route.kind),
		})
		w.Header().Set("Location", "/v1/applications/"+id)
		respond(w, http.StatusCreated, "application created", createdResponse{ID: id})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) renameApplication(w http.ResponseWriter, r *http.Request, orgID, id string) {
	var req catalog.ApplicationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	app, err := a.svc.Catalog.Rename(r.Context(), orgID, id, req.Name)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "catalog.application.rename", map[string]any{
		"application_id": app.ID,
		"name":           app.Name,
	})
	respond(w, http.StatusOK, "application updated", app)
}
