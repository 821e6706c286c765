package httpapi

import (
	"net/http"
	"strings"

	"ruqsat.org/internal/pass"
)

func (a *API) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	notes, err := a.svc.Notifications(r.Context(), p)
	if err != nil {
		handlePassError(w, r, err)
		return
	}
	if notes == nil {
		notes = []pass.Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": notes})
}

func (a *API) handleNotificationResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/notifications/")
	id, action, hasAction := strings.Cut(path, "/")
	if id == "" || !hasAction || action != "read" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	if err := a.svc.MarkNotificationRead(r.Context(), p, id); err != nil {
		handlePassError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	stats, err := a.svc.SystemStats(r.Context(), p)
	if err != nil {
		handlePassError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
