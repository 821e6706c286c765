package pass

import (
	"context"
	"time"

	"ruqsat.org/internal/audit"
)

// Checkpoint is immutable reference data: a physical entry point. The number
// doubles as the suffix of the operator role code ("KPP-<n>").
type Checkpoint struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// Person is a single visitor entry of a request.
type Person struct {
	ID           string      `json:"id"`
	RequestID    string      `json:"request_id"`
	FullName     string      `json:"full_name"`
	IIN          string      `json:"iin,omitempty"`
	DocNumber    string      `json:"doc_number,omitempty"`
	BirthDate    string      `json:"birth_date,omitempty"` // YYYY-MM-DD
	Nationality  Nationality `json:"nationality"`
	Company      string      `json:"company,omitempty"`
	Status       Status      `json:"status"`
	RejectReason string      `json:"reject_reason,omitempty"`
}

// Request is a visitor pass request with its persons and target checkpoints.
type Request struct {
	ID            string    `json:"id"`
	CreatorID     string    `json:"creator_id"`
	CreatorUnitID string    `json:"creator_unit_id,omitempty"`
	Duration      Duration  `json:"duration"`
	Purpose       string    `json:"purpose,omitempty"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	CheckpointIDs []int64   `json:"checkpoint_ids"`
	Persons       []Person  `json:"persons"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// TargetsCheckpoint reports whether the request covers the given checkpoint.
func (r *Request) TargetsCheckpoint(id int64) bool {
	for _, cp := range r.CheckpointIDs {
		if cp == id {
			return true
		}
	}
	return false
}

// PersonStatuses returns the statuses of all persons, in order. Input to the
// finalization aggregator.
func (r *Request) PersonStatuses() []Status {
	out := make([]Status, len(r.Persons))
	for i := range r.Persons {
		out[i] = r.Persons[i].Status
	}
	return out
}

func (r *Request) person(id string) *Person {
	for i := range r.Persons {
		if r.Persons[i].ID == id {
			return &r.Persons[i]
		}
	}
	return nil
}

// PersonDraft is the caller-supplied description of one visitor.
type PersonDraft struct {
	FullName    string      `json:"full_name"`
	IIN         string      `json:"iin,omitempty"`
	DocNumber   string      `json:"doc_number,omitempty"`
	BirthDate   string      `json:"birth_date,omitempty"`
	Nationality Nationality `json:"nationality"`
	Company     string      `json:"company,omitempty"`
}

// RequestDraft is the caller-supplied description of a new request. Creation
// routes and submits immediately; there is no separate draft state.
type RequestDraft struct {
	Duration      Duration      `json:"duration"`
	Purpose       string        `json:"purpose,omitempty"`
	StartDate     time.Time     `json:"start_date"`
	EndDate       time.Time     `json:"end_date"`
	CheckpointIDs []int64       `json:"checkpoint_ids"`
	Persons       []PersonDraft `json:"persons"`
}

// BlacklistEntry is a read-only screening record managed elsewhere.
type BlacklistEntry struct {
	ID        string     `json:"id"`
	FullName  string     `json:"full_name"`
	IIN       string     `json:"iin,omitempty"`
	DocNumber string     `json:"doc_number,omitempty"`
	BirthDate string     `json:"birth_date,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	Active    bool       `json:"active"`
	AddedBy   string     `json:"added_by,omitempty"`
	AddedAt   time.Time  `json:"added_at"`
	RemovedBy string     `json:"removed_by,omitempty"`
	RemovedAt *time.Time `json:"removed_at,omitempty"`
}

// Notification is an intent to inform a user; delivery transport is out of
// scope, recipients poll.
type Notification struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipient_id"`
	Message     string    `json:"message"`
	RequestID   string    `json:"request_id,omitempty"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"`
}

// Filter narrows request listings. The service always intersects it with the
// caller's visibility before it reaches the store.
type Filter struct {
	Statuses       []Status
	CreatorID      string
	CreatorUnitIDs []string
	CheckpointID   int64
	Duration       Duration
}

// Stats is the admin system summary.
type Stats struct {
	TotalRequests   int `json:"total_requests"`
	PendingRequests int `json:"pending_requests"`
	ActiveBlacklist int `json:"active_blacklist"`
}

// Store is the persistence contract of the workflow. Every method is one
// atomic operation; UpdateRequest must serialize concurrent mutations of the
// same request for the whole mutate-plus-write sequence.
type Store interface {
	CreateRequest(ctx context.Context, req *Request) error
	GetRequest(ctx context.Context, id string) (*Request, error)
	ListRequests(ctx context.Context, f Filter) ([]*Request, error)
	// UpdateRequest loads the request with its persons under a write lock,
	// applies mutate, and persists the resulting request and person statuses.
	// The mutate error aborts the transaction and is returned verbatim.
	UpdateRequest(ctx context.Context, id string, mutate func(*Request) error) (*Request, error)
	DeleteRequest(ctx context.Context, id string) error
	// PersonRequest maps a person id to its owning request id.
	PersonRequest(ctx context.Context, personID string) (string, error)

	Checkpoints(ctx context.Context, ids []int64) ([]Checkpoint, error)
	// CountShortTermSince counts short-term requests created at or after the
	// cutoff that contain a person with the given IIN.
	CountShortTermSince(ctx context.Context, iin string, since time.Time) (int, error)
	ActiveBlacklist(ctx context.Context) ([]BlacklistEntry, error)
	Stats(ctx context.Context) (Stats, error)
}

// NotificationStore persists and serves notification intents.
type NotificationStore interface {
	AddNotification(ctx context.Context, n *Notification) error
	Notifications(ctx context.Context, recipientID string) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, id, recipientID string) error
}

// AuditSink receives one event per mutating operation. Implementations must
// not fail the calling operation; errors are logged and swallowed.
type AuditSink interface {
	Record(ctx context.Context, e audit.Event)
}
