package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ruqsat.org/internal/pass"
)

var (
	_ pass.Store             = (*Store)(nil)
	_ pass.NotificationStore = (*Store)(nil)
)

func (s *Store) CreateRequest(ctx context.Context, req *pass.Request) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		insert into requests (id, creator_id, creator_unit_id, duration, purpose, start_date, end_date, status, created_at)
		values ($1,$2,nullif($3,''),$4,$5,$6,$7,$8,$9)
	`, req.ID, req.CreatorID, req.CreatorUnitID, req.Duration, req.Purpose,
		req.StartDate, req.EndDate, req.Status, req.CreatedAt); err != nil {
		return err
	}
	for _, cp := range req.CheckpointIDs {
		if _, err := tx.ExecContext(ctx, `
			insert into request_checkpoints (request_id, checkpoint_id) values ($1,$2)
		`, req.ID, cp); err != nil {
			return err
		}
	}
	for _, p := range req.Persons {
		if _, err := tx.ExecContext(ctx, `
			insert into request_persons (id, request_id, full_name, iin, doc_number, birth_date, nationality, company, status, reject_reason)
			values ($1,$2,$3,nullif($4,''),nullif($5,''),nullif($6,''),$7,nullif($8,''),$9,'')
		`, p.ID, req.ID, p.FullName, p.IIN, p.DocNumber, p.BirthDate,
			p.Nationality, p.Company, p.Status); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) GetRequest(ctx context.Context, id string) (*pass.Request, error) {
	return loadRequest(ctx, s.db, id, false)
}

// loadRequest reads a request with its checkpoints and persons. With forUpdate
// the request row is locked for the remainder of the transaction.
func loadRequest(ctx context.Context, q rowQuerier, id string, forUpdate bool) (*pass.Request, error) {
	query := `
		select id, creator_id, coalesce(creator_unit_id,''), duration, purpose, start_date, end_date, status, created_at
		from requests where id = $1`
	if forUpdate {
		query += " for update"
	}
	var req pass.Request
	err := q.QueryRowContext(ctx, query, id).Scan(
		&req.ID, &req.CreatorID, &req.CreatorUnitID, &req.Duration, &req.Purpose,
		&req.StartDate, &req.EndDate, &req.Status, &req.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pass.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	cps, err := q.QueryContext(ctx, `
		select checkpoint_id from request_checkpoints where request_id = $1 order by checkpoint_id
	`, id)
	if err != nil {
		return nil, err
	}
	defer cps.Close()
	for cps.Next() {
		var cp int64
		if err := cps.Scan(&cp); err != nil {
			return nil, err
		}
		req.CheckpointIDs = append(req.CheckpointIDs, cp)
	}
	if err := cps.Err(); err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, `
		select id, request_id, full_name, coalesce(iin,''), coalesce(doc_number,''), coalesce(birth_date,''),
		       nationality, coalesce(company,''), status, reject_reason
		from request_persons where request_id = $1 order by id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p pass.Person
		if err := rows.Scan(&p.ID, &p.RequestID, &p.FullName, &p.IIN, &p.DocNumber,
			&p.BirthDate, &p.Nationality, &p.Company, &p.Status, &p.RejectReason); err != nil {
			return nil, err
		}
		req.Persons = append(req.Persons, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *Store) ListRequests(ctx context.Context, f pass.Filter) ([]*pass.Request, error) {
	var (
		where []string
		args  []any
		idx   = 1
	)
	if f.CreatorID != "" {
		where = append(where, fmt.Sprintf("creator_id = $%d", idx))
		args = append(args, f.CreatorID)
		idx++
	}
	if f.Duration != "" {
		where = append(where, fmt.Sprintf("duration = $%d", idx))
		args = append(args, f.Duration)
		idx++
	}
	if f.CheckpointID != 0 {
		where = append(where, fmt.Sprintf(
			"exists (select 1 from request_checkpoints rc where rc.request_id = requests.id and rc.checkpoint_id = $%d)", idx))
		args = append(args, f.CheckpointID)
		idx++
	}
	if len(f.Statuses) > 0 {
		ph := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			ph[i] = fmt.Sprintf("$%d", idx)
			args = append(args, st)
			idx++
		}
		where = append(where, "status in ("+strings.Join(ph, ",")+")")
	}
	if len(f.CreatorUnitIDs) > 0 {
		ph := make([]string, len(f.CreatorUnitIDs))
		for i, unit := range f.CreatorUnitIDs {
			ph[i] = fmt.Sprintf("$%d", idx)
			args = append(args, unit)
			idx++
		}
		where = append(where, "creator_unit_id in ("+strings.Join(ph, ",")+")")
	}

	query := `select id from requests`
	if len(where) > 0 {
		query += " where " + strings.Join(where, " and ")
	}
	query += " order by created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*pass.Request, 0, len(ids))
	for _, id := range ids {
		req, err := loadRequest(ctx, s.db, id, false)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, nil
}

// UpdateRequest locks the request row, applies mutate and writes back the
// request status and every person's status and reject reason. The row lock
// serializes concurrent finalizations of the same request.
func (s *Store) UpdateRequest(ctx context.Context, id string, mutate func(*pass.Request) error) (*pass.Request, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	req, err := loadRequest(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	if err := mutate(req); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		update requests set status = $2 where id = $1
	`, req.ID, req.Status); err != nil {
		return nil, err
	}
	for _, p := range req.Persons {
		if _, err := tx.ExecContext(ctx, `
			update request_persons set status = $2, reject_reason = $3 where id = $1
		`, p.ID, p.Status, p.RejectReason); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *Store) DeleteRequest(ctx context.Context, id string) error {
	// Persons and checkpoint links go with the request via on delete cascade.
	res, err := s.db.ExecContext(ctx, `delete from requests where id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return pass.ErrNotFound
	}
	return nil
}

func (s *Store) PersonRequest(ctx context.Context, personID string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		select request_id from request_persons where id = $1
	`, personID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", pass.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Checkpoints(ctx context.Context, ids []int64) ([]pass.Checkpoint, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	ph := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		ph[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, code, name from checkpoints where id in (`+strings.Join(ph, ",")+`) order by id
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pass.Checkpoint
	for rows.Next() {
		var cp pass.Checkpoint
		if err := rows.Scan(&cp.ID, &cp.Code, &cp.Name); err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, rows.Err()
}

func (s *Store) CountShortTermSince(ctx context.Context, iin string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		select count(distinct r.id)
		from requests r
		join request_persons p on p.request_id = r.id
		where r.duration = $1 and r.created_at >= $2 and p.iin = $3
	`, pass.DurationShortTerm, since, iin).Scan(&n)
	return n, err
}

func (s *Store) ActiveBlacklist(ctx context.Context) ([]pass.BlacklistEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, full_name, coalesce(iin,''), coalesce(doc_number,''), coalesce(birth_date,''),
		       coalesce(reason,''), active, coalesce(added_by,''), added_at
		from blacklist where active
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pass.BlacklistEntry
	for rows.Next() {
		var e pass.BlacklistEntry
		if err := rows.Scan(&e.ID, &e.FullName, &e.IIN, &e.DocNumber, &e.BirthDate,
			&e.Reason, &e.Active, &e.AddedBy, &e.AddedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Stats(ctx context.Context) (pass.Stats, error) {
	var st pass.Stats
	err := s.db.QueryRowContext(ctx, `
		select
			(select count(*) from requests),
			(select count(*) from requests where status in ($1,$2)),
			(select count(*) from blacklist where active)
	`, pass.StatusPendingUSB, pass.StatusPendingAS).Scan(
		&st.TotalRequests, &st.PendingRequests, &st.ActiveBlacklist)
	return st, err
}

func (s *Store) AddNotification(ctx context.Context, n *pass.Notification) error {
	_, err := s.db.ExecContext(ctx, `
		insert into notifications (id, recipient_id, message, request_id, read, created_at)
		values ($1,$2,$3,nullif($4,''),$5,$6)
	`, n.ID, n.RecipientID, n.Message, n.RequestID, n.Read, n.CreatedAt)
	return err
}

func (s *Store) Notifications(ctx context.Context, recipientID string) ([]pass.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, recipient_id, message, coalesce(request_id,''), read, created_at
		from notifications where recipient_id = $1
		order by created_at desc
	`, recipientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pass.Notification
	for rows.Next() {
		var n pass.Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Message, &n.RequestID, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) MarkNotificationRead(ctx context.Context, id, recipientID string) error {
	res, err := s.db.ExecContext(ctx, `
		update notifications set read = true where id = $1 and recipient_id = $2
	`, id, recipientID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return pass.ErrNotFound
	}
	return nil
}
