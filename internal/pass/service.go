package pass

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ruqsat.org/internal/audit"
	"ruqsat.org/internal/auth"
	"ruqsat.org/internal/ids"
	"ruqsat.org/internal/obs"
)

const (
	// shortTermWindow and shortTermLimit bound repeat short-term requests for
	// the same visitor IIN.
	shortTermWindow = 30 * 24 * time.Hour
	shortTermLimit  = 2

	// maxShortTermSpan is the longest span a short-term pass may cover.
	maxShortTermSpan = 24 * time.Hour
)

// Service is the approval workflow engine: creation-time routing, bulk stage
// actions, individual person actions with finalization, and the read paths
// behind the visibility policy.
type Service struct {
	store    Store
	notes    NotificationStore
	dir      auth.Directory
	resolver HierarchyResolver
	sink     AuditSink
	now      func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService wires the workflow with its collaborators.
func NewService(store Store, notes NotificationStore, dir auth.Directory, resolver HierarchyResolver, sink AuditSink, opts ...Option) *Service {
	s := &Service{
		store:    store,
		notes:    notes,
		dir:      dir,
		resolver: resolver,
		sink:     sink,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest validates, screens and routes a new request. On success the
// request and all its persons are persisted in one transaction, already
// carrying the routed-to pending status.
func (s *Service) CreateRequest(ctx context.Context, p auth.Principal, draft RequestDraft) (*Request, error) {
	if !p.Active {
		return nil, ErrForbidden
	}
	if err := validateDraft(draft); err != nil {
		return nil, err
	}
	if !CanCreateRequest(p, draft.Duration) {
		return nil, ErrForbiddenDuration
	}

	cps, err := s.store.Checkpoints(ctx, draft.CheckpointIDs)
	if err != nil {
		return nil, err
	}
	if len(cps) != len(draft.CheckpointIDs) {
		return nil, ErrUnknownCheckpoint
	}

	now := s.now()
	if draft.Duration == DurationShortTerm {
		if draft.EndDate.Before(draft.StartDate) {
			return nil, ErrInvalidDateRange
		}
		if draft.EndDate.Sub(draft.StartDate) > maxShortTermSpan {
			return nil, fmt.Errorf("%w: span exceeds one day, use LONG_TERM", ErrInvalidDateRange)
		}
		for _, person := range draft.Persons {
			if person.IIN == "" {
				continue
			}
			n, err := s.store.CountShortTermSince(ctx, person.IIN, now.Add(-shortTermWindow))
			if err != nil {
				return nil, err
			}
			if n >= shortTermLimit {
				return nil, fmt.Errorf("%w: %s", ErrRateLimited, person.IIN)
			}
		}
	}

	entries, err := s.store.ActiveBlacklist(ctx)
	if err != nil {
		return nil, err
	}
	if entry, person := ScreenBlacklist(entries, draft.Persons); entry != nil {
		s.sink.Record(ctx, audit.NewEvent(p.UserID, "request", "", audit.ActionCreateFail, map[string]any{
			"reason":          "blacklisted",
			"full_name":       person.FullName,
			"blacklist_entry": entry.ID,
		}))
		return nil, fmt.Errorf("%w: %s", ErrBlacklisted, person.FullName)
	}

	stage := RouteTarget(draft.Duration, draft.Persons)
	initial := stage.Pending()

	req := &Request{
		ID:            ids.New(),
		CreatorID:     p.UserID,
		CreatorUnitID: p.UnitID,
		Duration:      draft.Duration,
		Purpose:       draft.Purpose,
		StartDate:     draft.StartDate,
		EndDate:       draft.EndDate,
		CheckpointIDs: append([]int64(nil), draft.CheckpointIDs...),
		Status:        initial,
		CreatedAt:     now,
	}
	for _, d := range draft.Persons {
		req.Persons = append(req.Persons, Person{
			ID:          ids.New(),
			RequestID:   req.ID,
			FullName:    d.FullName,
			IIN:         d.IIN,
			DocNumber:   d.DocNumber,
			BirthDate:   d.BirthDate,
			Nationality: d.Nationality,
			Company:     d.Company,
			Status:      initial,
		})
	}

	if err := s.store.CreateRequest(ctx, req); err != nil {
		return nil, err
	}

	s.sink.Record(ctx, audit.NewEvent(p.UserID, "request", req.ID, audit.ActionCreateAndSubmit, map[string]any{
		"routed_to": string(stage),
		"duration":  string(req.Duration),
		"persons":   len(req.Persons),
	}))
	obs.CountRequestCreated(string(stage))
	s.notifyStageAuthorities(ctx, stage, req.ID,
		fmt.Sprintf("Pass request %s awaits %s review", req.ID, stage))
	return req, nil
}

// ApproveStage approves the whole request at the given stage in one step.
func (s *Service) ApproveStage(ctx context.Context, p auth.Principal, stage Stage, requestID string) (*Request, error) {
	if !stage.Valid() {
		return nil, ErrInvalidInput
	}
	if !p.Active || !CanActStage(p, stage) {
		return nil, ErrForbidden
	}

	req, err := s.store.UpdateRequest(ctx, requestID, func(r *Request) error {
		if !StageAllows(stage, r.Status) {
			return fmt.Errorf("%w: %s cannot approve request in %s", ErrInvalidState, stage, r.Status)
		}
		for i := range r.Persons {
			if r.Persons[i].Status.Declined() {
				continue
			}
			r.Persons[i].Status = stage.Approved()
			r.Persons[i].RejectReason = ""
		}
		if stage == StageUSB {
			// The USB bulk approve advances straight into the AS stage
			// instead of stopping at APPROVED_USB; kept for compatibility
			// with the per-person aggregation path's asymmetry.
			r.Status = StatusPendingAS
		} else {
			r.Status = StatusApprovedAS
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.sink.Record(ctx, audit.NewEvent(p.UserID, "request", req.ID, audit.ActionStageApprove, map[string]any{
		"stage": string(stage),
	}))
	obs.CountStageDecision(string(stage), "approve")

	if stage == StageUSB {
		s.notifyStageAuthorities(ctx, StageAS, req.ID,
			fmt.Sprintf("Pass request %s awaits AS review", req.ID))
	} else {
		s.notifyUser(ctx, req.CreatorID, req.ID,
			fmt.Sprintf("Pass request %s has been approved", req.ID))
		s.notifyCheckpointOperators(ctx, req,
			fmt.Sprintf("Pass request %s approved for your checkpoint", req.ID))
	}
	return req, nil
}

// DeclineStage declines the whole request at the given stage. The reason is
// mandatory and is propagated to every affected person.
func (s *Service) DeclineStage(ctx context.Context, p auth.Principal, stage Stage, requestID, reason string) (*Request, error) {
	if !stage.Valid() {
		return nil, ErrInvalidInput
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrMissingReason
	}
	if !p.Active || !CanActStage(p, stage) {
		return nil, ErrForbidden
	}

	req, err := s.store.UpdateRequest(ctx, requestID, func(r *Request) error {
		if !StageAllows(stage, r.Status) {
			return fmt.Errorf("%w: %s cannot decline request in %s", ErrInvalidState, stage, r.Status)
		}
		for i := range r.Persons {
			if stage == StageAS && r.Persons[i].Status == StatusDeclinedAS {
				continue
			}
			r.Persons[i].Status = stage.Declined()
			r.Persons[i].RejectReason = reason
		}
		r.Status = stage.Declined()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.sink.Record(ctx, audit.NewEvent(p.UserID, "request", req.ID, audit.ActionStageDecline, map[string]any{
		"stage":  string(stage),
		"reason": reason,
	}))
	obs.CountStageDecision(string(stage), "decline")
	s.notifyUser(ctx, req.CreatorID, req.ID,
		fmt.Sprintf("Pass request %s was declined: %s", req.ID, reason))
	return req, nil
}

// ApprovePerson approves one visitor entry and re-aggregates the request.
func (s *Service) ApprovePerson(ctx context.Context, p auth.Principal, personID string) (*Person, error) {
	return s.decidePerson(ctx, p, personID, true, "")
}

// RejectPerson declines one visitor entry (reason mandatory) and
// re-aggregates the request.
func (s *Service) RejectPerson(ctx context.Context, p auth.Principal, personID, reason string) (*Person, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrMissingReason
	}
	return s.decidePerson(ctx, p, personID, false, reason)
}

func (s *Service) decidePerson(ctx context.Context, p auth.Principal, personID string, approve bool, reason string) (*Person, error) {
	if !p.Active {
		return nil, ErrForbidden
	}
	switch p.Role.Kind {
	case auth.RoleAdmin, auth.RoleUSBOfficer, auth.RoleASOfficer:
	default:
		return nil, ErrForbidden
	}

	requestID, err := s.store.PersonRequest(ctx, personID)
	if err != nil {
		return nil, err
	}

	var stage Stage
	var finalized Status
	var changed bool

	req, err := s.store.UpdateRequest(ctx, requestID, func(r *Request) error {
		var ok bool
		stage, ok = actorStage(p, r.Status)
		if !ok {
			return fmt.Errorf("%w: no stage may act on request in %s", ErrInvalidState, r.Status)
		}
		if !CanActStage(p, stage) {
			return ErrForbidden
		}
		if !StageAllows(stage, r.Status) {
			return fmt.Errorf("%w: %s cannot act on request in %s", ErrInvalidState, stage, r.Status)
		}
		person := r.person(personID)
		if person == nil {
			return ErrNotFound
		}
		if stage == StageAS && person.Status == StatusDeclinedUSB {
			return fmt.Errorf("%w: person already declined by USB", ErrInvalidState)
		}
		if approve {
			person.Status = stage.Approved()
			person.RejectReason = ""
		} else {
			person.Status = stage.Declined()
			person.RejectReason = reason
		}
		finalized, changed = Finalize(stage, r.Status, r.PersonStatuses())
		if changed {
			r.Status = finalized
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	action := audit.ActionPersonApprove
	decision := "approve"
	fields := map[string]any{"stage": string(stage)}
	if !approve {
		action = audit.ActionPersonReject
		decision = "reject"
		fields["reason"] = reason
	}
	s.sink.Record(ctx, audit.NewEvent(p.UserID, "person", personID, action, fields))
	obs.CountStageDecision(string(stage), decision)

	if changed {
		s.sink.Record(ctx, audit.NewEvent("", "request", req.ID, audit.ActionFinalize, map[string]any{
			"status": string(finalized),
		}))
		obs.CountFinalization(string(finalized))
		s.notifyFinalized(ctx, req, finalized)
	}
	return req.person(personID), nil
}

// actorStage maps the acting principal to an approval stage. Officers carry
// their own stage; an admin acts for whichever stage the request currently
// sits in, preferring AS once USB has approved.
func actorStage(p auth.Principal, current Status) (Stage, bool) {
	switch p.Role.Kind {
	case auth.RoleUSBOfficer:
		return StageUSB, true
	case auth.RoleASOfficer:
		return StageAS, true
	case auth.RoleAdmin:
		switch current {
		case StatusPendingUSB, StatusDeclinedUSB:
			return StageUSB, true
		case StatusApprovedUSB, StatusPendingAS, StatusApprovedAS, StatusDeclinedAS:
			return StageAS, true
		}
	}
	return "", false
}

// ListRequests applies the principal's visibility before the caller's own
// filter and returns matching requests.
func (s *Service) ListRequests(ctx context.Context, p auth.Principal, f Filter) ([]*Request, error) {
	if !p.Active {
		return nil, ErrForbidden
	}
	vis, err := VisibilityFor(ctx, p, s.resolver)
	if err != nil {
		return nil, err
	}
	switch vis.Kind {
	case VisibilityAll:
	case VisibilityCreator:
		f.CreatorID = vis.CreatorID
	case VisibilityUnits:
		f.CreatorUnitIDs = vis.UnitIDs
	case VisibilityCheckpoint:
		f.CheckpointID = vis.Checkpoint
		f.Statuses = intersectStatuses(f.Statuses, vis.Statuses)
	}
	return s.store.ListRequests(ctx, f)
}

// GetRequest returns a single request. Missing and invisible resources are
// indistinguishable to the caller.
func (s *Service) GetRequest(ctx context.Context, p auth.Principal, requestID string) (*Request, error) {
	if !p.Active {
		return nil, ErrForbidden
	}
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	ok, err := CanViewRequest(ctx, p, req, s.resolver)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return req, nil
}

// DeleteRequest removes a request that nobody has started processing,
// cascading to its persons.
func (s *Service) DeleteRequest(ctx context.Context, p auth.Principal, requestID string) error {
	if !p.Active {
		return ErrForbidden
	}
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	visible, err := CanViewRequest(ctx, p, req, s.resolver)
	if err != nil {
		return err
	}
	if !visible {
		return ErrNotFound
	}
	if !CanDeleteRequest(p, req) {
		return ErrForbidden
	}
	if req.Status != StatusPendingUSB && req.Status != StatusPendingAS {
		return fmt.Errorf("%w: request already processed", ErrInvalidState)
	}
	for _, person := range req.Persons {
		if person.Status != req.Status {
			return fmt.Errorf("%w: request already processed", ErrInvalidState)
		}
	}
	if err := s.store.DeleteRequest(ctx, requestID); err != nil {
		return err
	}
	s.sink.Record(ctx, audit.NewEvent(p.UserID, "request", requestID, audit.ActionDelete, nil))
	return nil
}

// MarkIssued records that passes for an approved request were handed out at a
// checkpoint.
func (s *Service) MarkIssued(ctx context.Context, p auth.Principal, requestID string) (*Request, error) {
	return s.transition(ctx, p, requestID, StatusApprovedAS, StatusIssued, audit.ActionIssue,
		"Passes for request %s have been issued")
}

// CloseRequest closes an issued request after the visit completes.
func (s *Service) CloseRequest(ctx context.Context, p auth.Principal, requestID string) (*Request, error) {
	return s.transition(ctx, p, requestID, StatusIssued, StatusClosed, audit.ActionClose, "")
}

func (s *Service) transition(ctx context.Context, p auth.Principal, requestID string, from, to Status, action, creatorMsg string) (*Request, error) {
	if !p.Active {
		return nil, ErrForbidden
	}
	req, err := s.store.UpdateRequest(ctx, requestID, func(r *Request) error {
		if !CanOperateCheckpoint(p, r) {
			return ErrForbidden
		}
		if r.Status != from {
			return fmt.Errorf("%w: expected %s, request is %s", ErrInvalidState, from, r.Status)
		}
		r.Status = to
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.sink.Record(ctx, audit.NewEvent(p.UserID, "request", req.ID, action, nil))
	if creatorMsg != "" {
		s.notifyUser(ctx, req.CreatorID, req.ID, fmt.Sprintf(creatorMsg, req.ID))
	}
	return req, nil
}

// Notifications returns the caller's notification intents, newest first.
func (s *Service) Notifications(ctx context.Context, p auth.Principal) ([]Notification, error) {
	if !p.Active {
		return nil, ErrForbidden
	}
	return s.notes.Notifications(ctx, p.UserID)
}

// MarkNotificationRead marks one of the caller's notifications as read.
func (s *Service) MarkNotificationRead(ctx context.Context, p auth.Principal, id string) error {
	if !p.Active {
		return ErrForbidden
	}
	return s.notes.MarkNotificationRead(ctx, id, p.UserID)
}

// SystemStats returns the admin dashboard counters.
func (s *Service) SystemStats(ctx context.Context, p auth.Principal) (Stats, error) {
	if !p.Active || p.Role.Kind != auth.RoleAdmin {
		return Stats{}, ErrForbidden
	}
	return s.store.Stats(ctx)
}

// --- notification fan-out ---------------------------------------------------

func (s *Service) notifyUser(ctx context.Context, userID, requestID, message string) {
	if userID == "" {
		return
	}
	n := &Notification{
		ID:          ids.New(),
		RecipientID: userID,
		Message:     message,
		RequestID:   requestID,
		CreatedAt:   s.now(),
	}
	if err := s.notes.AddNotification(ctx, n); err != nil {
		obs.LogRequest(map[string]any{"level": "error", "msg": "notification enqueue failed", "err": err.Error()})
	}
}

func (s *Service) notifyStageAuthorities(ctx context.Context, stage Stage, requestID, message string) {
	code := auth.RoleCodeUSBOfficer
	if stage == StageAS {
		code = auth.RoleCodeASOfficer
	}
	holders, err := s.dir.ActiveRoleHolders(ctx, code)
	if err != nil {
		obs.LogRequest(map[string]any{"level": "error", "msg": "role holder lookup failed", "err": err.Error()})
		return
	}
	for _, id := range holders {
		s.notifyUser(ctx, id, requestID, message)
	}
}

func (s *Service) notifyCheckpointOperators(ctx context.Context, req *Request, message string) {
	for _, cp := range req.CheckpointIDs {
		holders, err := s.dir.ActiveRoleHolders(ctx, auth.CheckpointRoleCode(cp))
		if err != nil {
			obs.LogRequest(map[string]any{"level": "error", "msg": "role holder lookup failed", "err": err.Error()})
			continue
		}
		for _, id := range holders {
			s.notifyUser(ctx, id, req.ID, message)
		}
	}
}

func (s *Service) notifyFinalized(ctx context.Context, req *Request, status Status) {
	switch status {
	case StatusApprovedUSB:
		s.notifyStageAuthorities(ctx, StageAS, req.ID,
			fmt.Sprintf("Pass request %s awaits AS review", req.ID))
	case StatusApprovedAS:
		s.notifyUser(ctx, req.CreatorID, req.ID,
			fmt.Sprintf("Pass request %s has been approved", req.ID))
		s.notifyCheckpointOperators(ctx, req,
			fmt.Sprintf("Pass request %s approved for your checkpoint", req.ID))
	case StatusDeclinedUSB, StatusDeclinedAS:
		s.notifyUser(ctx, req.CreatorID, req.ID,
			fmt.Sprintf("Pass request %s was declined", req.ID))
	}
}

// --- validation -------------------------------------------------------------

func validateDraft(draft RequestDraft) error {
	if !draft.Duration.Valid() {
		return fmt.Errorf("%w: duration", ErrInvalidInput)
	}
	if len(draft.Persons) == 0 {
		return fmt.Errorf("%w: at least one person is required", ErrInvalidInput)
	}
	if len(draft.CheckpointIDs) == 0 {
		return fmt.Errorf("%w: at least one checkpoint is required", ErrInvalidInput)
	}
	for _, p := range draft.Persons {
		if strings.TrimSpace(p.FullName) == "" {
			return fmt.Errorf("%w: person full name is required", ErrInvalidInput)
		}
		if !p.Nationality.Valid() {
			return fmt.Errorf("%w: nationality", ErrInvalidInput)
		}
	}
	return nil
}

func intersectStatuses(requested, allowed []Status) []Status {
	if len(requested) == 0 {
		return append([]Status(nil), allowed...)
	}
	var out []Status
	for _, r := range requested {
		for _, a := range allowed {
			if r == a {
				out = append(out, r)
			}
		}
	}
	if out == nil {
		// The caller asked only for statuses outside its scope; an impossible
		// sentinel keeps the store from returning everything.
		out = []Status{""}
	}
	return out
}
