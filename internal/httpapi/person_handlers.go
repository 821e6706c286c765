package httpapi

import (
	"net/http"
	"strings"
)

func (a *API) handlePersonResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/persons/")
	id, action, hasAction := strings.Cut(path, "/")
	if id == "" || !hasAction || strings.Contains(action, "/") {
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

	switch action {
	case "approve":
		person, err := a.svc.ApprovePerson(r.Context(), p, id)
		if err != nil {
			handlePassError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, person)
	case "reject":
		var payload reasonPayload
		if err := decodeJSON(w, r, &payload); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		person, err := a.svc.RejectPerson(r.Context(), p, id, payload.Reason)
		if err != nil {
			handlePassError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, person)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}
