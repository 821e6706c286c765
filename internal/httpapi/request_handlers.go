package httpapi

import (
	"net/http"
	"strings"
	"time"

	"ruqsat.org/internal/pass"
)

type createRequestPayload struct {
	Duration      string          `json:"duration"`
	Purpose       string          `json:"purpose"`
	StartDate     time.Time       `json:"start_date"`
	EndDate       time.Time       `json:"end_date"`
	CheckpointIDs []int64         `json:"checkpoint_ids"`
	Persons       []personPayload `json:"persons"`
}

type personPayload struct {
	FullName    string `json:"full_name"`
	IIN         string `json:"iin"`
	DocNumber   string `json:"doc_number"`
	BirthDate   string `json:"birth_date"`
	Nationality string `json:"nationality"`
	Company     string `json:"company"`
}

type reasonPayload struct {
	Reason string `json:"reason"`
}

type listRequestsResponse struct {
	Items []*pass.Request `json:"items"`
	AsOf  time.Time       `json:"as_of"`
}

func (a *API) handleRequestsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createRequest(w, r)
	case http.MethodGet:
		a.listRequests(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleRequestResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/requests/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	id, action, hasAction := strings.Cut(path, "/")
	if id == "" || (hasAction && strings.Contains(action, "/")) {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if !hasAction {
		switch r.Method {
		case http.MethodGet:
			a.getRequest(w, r, id)
		case http.MethodDelete:
			a.deleteRequest(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
		}
		return
	}

	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	switch action {
	case "approve":
		a.approveStage(w, r, id)
	case "decline":
		a.declineStage(w, r, id)
	case "issue":
		a.issueRequest(w, r, id)
	case "close":
		a.closeRequest(w, r, id)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) createRequest(w http.ResponseWriter, r *http.Request) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	var payload createRequestPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	draft := pass.RequestDraft{
		Duration:      pass.Duration(strings.ToUpper(strings.TrimSpace(payload.Duration))),
		Purpose:       strings.TrimSpace(payload.Purpose),
		StartDate:     payload.StartDate,
		EndDate:       payload.EndDate,
		CheckpointIDs: payload.CheckpointIDs,
	}
	for _, person := range payload.Persons {
		draft.Persons = append(draft.Persons, pass.PersonDraft{
			FullName:    strings.TrimSpace(person.FullName),
			IIN:         strings.TrimSpace(person.IIN),
			DocNumber:   strings.TrimSpace(person.DocNumber),
			BirthDate:   strings.TrimSpace(person.BirthDate),
			Nationality: pass.Nationality(strings.ToUpper(strings.TrimSpace(person.Nationality))),
			Company:     strings.TrimSpace(person.Company),
		})
	}

	req, err := a.svc.CreateRequest(r.Context(), p, draft)
	if err != nil {
		handlePassError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (a *API) listRequests(w http.ResponseWriter, r *http.Request) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}

	var f pass.Filter
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			st := pass.Status(strings.ToUpper(strings.TrimSpace(part)))
			if !st.Valid() {
				writeError(w, r, http.StatusBadRequest, "unknown status "+string(st))
				return
			}
			f.Statuses = append(f.Statuses, st)
		}
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("duration")); raw != "" {
		d := pass.Duration(strings.ToUpper(raw))
		if !d.Valid() {
			writeError(w, r, http.StatusBadRequest, "unknown duration "+string(d))
			return
		}
		f.Duration = d
	}

	items, err := a.svc.ListRequests(r.Context(), p, f)
	if err != nil {
		handlePassError(w, r, err)
		return
	}
	if items == nil {
		items = []*pass.Request{}
	}
	writeJSON(w, http.StatusOK, listRequestsResponse{Items: items, AsOf: time.Now().UTC()})
}

func (a *API) getRequest(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	req, err := a.svc.GetRequest(r.Context(), p, id)
	if err != nil {
		handlePassError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (a *API) deleteRequest(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	if err := a.svc.DeleteRequest(r.Context(), p, id); err != nil {
		handlePassError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func stageParam(w http.ResponseWriter, r *http.Request) (pass.Stage, bool) {
	stage := pass.Stage(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("stage"))))
	if !stage.Valid() {
		writeError(w, r, http.StatusBadRequest, "stage must be USB or AS")
		return "", false
	}
	return stage, true
}

func (a *API) approveStage(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	stage, ok := stageParam(w, r)
	if !ok {
		return
	}
	req, err := a.svc.ApproveStage(r.Context(), p, stage, id)
	if err != nil {
		handlePassError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (a *API) declineStage(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	stage, ok := stageParam(w, r)
	if !ok {
		return
	}
	var payload reasonPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req, err := a.svc.DeclineStage(r.Context(), p, stage, id, payload.Reason)
	if err != nil {
		handlePassError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (a *API) issueRequest(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	req, err := a.svc.MarkIssued(r.Context(), p, id)
	if err != nil {
		handlePassError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (a *API) closeRequest(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	req, err := a.svc.CloseRequest(r.Context(), p, id)
	if err != nil {
		handlePassError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}
