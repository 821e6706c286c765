package pg

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"ruqsat.org/internal/pass"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(db), mock
}

func TestGetRequestNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("select id, creator_id").WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := s.GetRequest(context.Background(), "missing")
	if !errors.Is(err, pass.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetRequest(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("select id, creator_id").WithArgs("r1").WillReturnRows(
		sqlmock.NewRows([]string{"id", "creator_id", "creator_unit_id", "duration", "purpose", "start_date", "end_date", "status", "created_at"}).
			AddRow("r1", "creator", "div1", "SHORT_TERM", "visit", now, now.Add(8*time.Hour), "PENDING_AS", now))
	mock.ExpectQuery("select checkpoint_id from request_checkpoints").WithArgs("r1").WillReturnRows(
		sqlmock.NewRows([]string{"checkpoint_id"}).AddRow(int64(1)).AddRow(int64(2)))
	mock.ExpectQuery("select id, request_id, full_name").WithArgs("r1").WillReturnRows(
		sqlmock.NewRows([]string{"id", "request_id", "full_name", "iin", "doc_number", "birth_date", "nationality", "company", "status", "reject_reason"}).
			AddRow("p1", "r1", "Visitor", "", "", "", "LOCAL", "", "PENDING_AS", ""))

	req, err := s.GetRequest(context.Background(), "r1")
	if err != nil {
		t.Fatal(err)
	}
	if req.Status != pass.StatusPendingAS || len(req.CheckpointIDs) != 2 || len(req.Persons) != 1 {
		t.Fatalf("request = %+v", req)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestUpdateRequestLocksAndWrites(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("from requests where id = .. for update").WithArgs("r1").WillReturnRows(
		sqlmock.NewRows([]string{"id", "creator_id", "creator_unit_id", "duration", "purpose", "start_date", "end_date", "status", "created_at"}).
			AddRow("r1", "creator", "div1", "SHORT_TERM", "visit", now, now.Add(8*time.Hour), "PENDING_AS", now))
	mock.ExpectQuery("select checkpoint_id from request_checkpoints").WithArgs("r1").WillReturnRows(
		sqlmock.NewRows([]string{"checkpoint_id"}).AddRow(int64(1)))
	mock.ExpectQuery("select id, request_id, full_name").WithArgs("r1").WillReturnRows(
		sqlmock.NewRows([]string{"id", "request_id", "full_name", "iin", "doc_number", "birth_date", "nationality", "company", "status", "reject_reason"}).
			AddRow("p1", "r1", "Visitor", "", "", "", "LOCAL", "", "PENDING_AS", ""))
	mock.ExpectExec("update requests set status").WithArgs("r1", "APPROVED_AS").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("update request_persons set status").WithArgs("p1", "APPROVED_AS", "").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	req, err := s.UpdateRequest(context.Background(), "r1", func(r *pass.Request) error {
		r.Status = pass.StatusApprovedAS
		r.Persons[0].Status = pass.StatusApprovedAS
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if req.Status != pass.StatusApprovedAS {
		t.Fatalf("status = %s", req.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestUpdateRequestMutateErrorRollsBack(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("from requests where id = .. for update").WithArgs("r1").WillReturnRows(
		sqlmock.NewRows([]string{"id", "creator_id", "creator_unit_id", "duration", "purpose", "start_date", "end_date", "status", "created_at"}).
			AddRow("r1", "creator", "", "SHORT_TERM", "visit", now, now, "PENDING_AS", now))
	mock.ExpectQuery("select checkpoint_id from request_checkpoints").WithArgs("r1").WillReturnRows(
		sqlmock.NewRows([]string{"checkpoint_id"}))
	mock.ExpectQuery("select id, request_id, full_name").WithArgs("r1").WillReturnRows(
		sqlmock.NewRows([]string{"id", "request_id", "full_name", "iin", "doc_number", "birth_date", "nationality", "company", "status", "reject_reason"}))
	mock.ExpectRollback()

	_, err := s.UpdateRequest(context.Background(), "r1", func(*pass.Request) error {
		return pass.ErrInvalidState
	})
	if !errors.Is(err, pass.ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestDeleteRequestNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("delete from requests").WithArgs("missing").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.DeleteRequest(context.Background(), "missing"); !errors.Is(err, pass.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPersonRequest(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("select request_id from request_persons").WithArgs("p1").WillReturnRows(
		sqlmock.NewRows([]string{"request_id"}).AddRow("r1"))

	id, err := s.PersonRequest(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if id != "r1" {
		t.Fatalf("request id = %s", id)
	}
}

func TestCountShortTermSince(t *testing.T) {
	s, mock := newMockStore(t)
	since := time.Date(2026, 2, 8, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("select count.distinct r.id").
		WithArgs("SHORT_TERM", since, "880101300123").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := s.CountShortTermSince(context.Background(), "880101300123", since)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("count = %d", n)
	}
}

func TestMarkNotificationReadWrongRecipient(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("update notifications set read").WithArgs("n1", "other").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.MarkNotificationRead(context.Background(), "n1", "other"); !errors.Is(err, pass.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListRequestsFilters(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("select id from requests where creator_id = .. and status in").
		WithArgs("creator", "PENDING_AS").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	out, err := s.ListRequests(context.Background(), pass.Filter{
		CreatorID: "creator",
		Statuses:  []pass.Status{pass.StatusPendingAS},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Fatalf("requests = %d", len(out))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
