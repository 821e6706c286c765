package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"ruqsat.org/internal/audit"
	"ruqsat.org/internal/auth"
	"ruqsat.org/internal/obs"
	"ruqsat.org/internal/org"
)

var (
	_ auth.Directory = (*Store)(nil)
	_ org.UnitStore  = (*Store)(nil)
)

const userColumns = `id, username, full_name, coalesce(role_code,''), coalesce(unit_id,''), active, password_hash, created_at`

func scanUser(row *sql.Row) (auth.User, error) {
	var u auth.User
	err := row.Scan(&u.ID, &u.Username, &u.FullName, &u.RoleCode, &u.UnitID,
		&u.Active, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.User{}, err
	}
	return u, nil
}

func (s *Store) UserByID(ctx context.Context, id string) (auth.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `
		select `+userColumns+` from users where id = $1
	`, id))
}

func (s *Store) UserByUsername(ctx context.Context, username string) (auth.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `
		select `+userColumns+` from users where username = $1
	`, username))
}

func (s *Store) ActiveRoleHolders(ctx context.Context, roleCode string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id from users where active and role_code = $1
	`, roleCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) ListUnits(ctx context.Context) ([]org.Unit, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, coalesce(parent_id,''), kind, created_at from units order by id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []org.Unit
	for rows.Next() {
		var u org.Unit
		if err := rows.Scan(&u.ID, &u.Name, &u.ParentID, &u.Kind, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// AuditSink persists audit events and mirrors them to the log sink. Audit must
// never fail the calling operation, so insert errors are logged and swallowed.
type AuditSink struct {
	db  *sql.DB
	log audit.LogSink
}

func (s *Store) AuditSink() *AuditSink { return &AuditSink{db: s.db} }

func (a *AuditSink) Record(ctx context.Context, e audit.Event) {
	a.log.Record(ctx, e)

	fields := []byte("{}")
	if len(e.Fields) > 0 {
		data, err := json.Marshal(e.Fields)
		if err != nil {
			obs.LogRequest(map[string]any{"level": "error", "msg": "audit fields marshal failed", "err": err.Error()})
			return
		}
		fields = data
	}
	if _, err := a.db.ExecContext(ctx, `
		insert into audit_events (id, actor_id, entity, entity_id, action, fields, at)
		values ($1,nullif($2,''),$3,$4,$5,$6,$7)
	`, e.ID, e.ActorID, e.Entity, e.EntityID, e.Action, fields, e.At); err != nil {
		obs.LogRequest(map[string]any{"level": "error", "msg": "audit insert failed", "err": err.Error()})
	}
}
