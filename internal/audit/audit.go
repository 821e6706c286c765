package audit

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"ruqsat.org/internal/ids"
	"ruqsat.org/internal/obs"
)

// Action codes recorded by the approval workflow.
const (
	ActionCreateAndSubmit = "CREATE_AND_SUBMIT"
	ActionCreateFail      = "CREATE_FAIL"
	ActionStageApprove    = "STAGE_APPROVE"
	ActionStageDecline    = "STAGE_DECLINE"
	ActionPersonApprove   = "PERSON_APPROVE"
	ActionPersonReject    = "PERSON_REJECT"
	ActionFinalize        = "FINALIZE"
	ActionDelete          = "DELETE"
	ActionIssue           = "ISSUE"
	ActionClose           = "CLOSE"
)

// Event is one append-only audit record. ActorID is empty for system actions.
type Event struct {
	ID       string         `json:"id"`
	ActorID  string         `json:"actor_id,omitempty"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entity_id"`
	Action   string         `json:"action"`
	Fields   map[string]any `json:"fields,omitempty"`
	At       time.Time      `json:"at"`
}

// NewEvent builds an event with a fresh id and timestamp.
func NewEvent(actorID, entity, entityID, action string, fields map[string]any) Event {
	return Event{
		ID:       ids.New(),
		ActorID:  actorID,
		Entity:   entity,
		EntityID: entityID,
		Action:   action,
		Fields:   fields,
		At:       time.Now().UTC(),
	}
}

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the transport request identifier to the context so
// audit records can be correlated with access logs.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogSink writes audit events as JSON lines through the shared logger. It is
// the default sink; the pg store layers a durable one on top of it.
type LogSink struct{}

// Record emits the event. It never fails the caller.
func (LogSink) Record(ctx context.Context, e Event) {
	entry := map[string]any{
		"ts":        e.At.Format(time.RFC3339Nano),
		"type":      "audit",
		"event_id":  e.ID,
		"entity":    e.Entity,
		"entity_id": e.EntityID,
		"action":    e.Action,
	}
	if e.ActorID != "" {
		entry["actor_id"] = e.ActorID
	}
	if rid := requestIDFromContext(ctx); rid != "" {
		entry["request_id"] = rid
	}
	if len(e.Fields) > 0 {
		entry["fields"] = e.Fields
	}

	data, err := json.Marshal(entry)
	if err != nil {
		obs.Logger().Println(`{"type":"audit","error":"marshal failed"}`)
		return
	}
	obs.Logger().Println(string(data))
}
