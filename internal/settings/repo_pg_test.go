package settings

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoGetDecodesLists(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"family_id", "event_types", "sender_names", "recipient_names", "created_at", "updated_at"}).
		AddRow("fam-1", []byte(`["Birthday","Christmas"]`), []byte(`["Grandma June"]`), []byte(`[]`), now, now)
	mock.ExpectQuery("SELECT family_id, event_types, sender_names, recipient_names").
		WithArgs("fam-1").
		WillReturnRows(rows)

	s, err := repo.Get(context.Background(), "fam-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(s.EventTypes) != 2 || s.EventTypes[0] != "Birthday" {
		t.Fatalf("event types = %v", s.EventTypes)
	}
	if len(s.SenderNames) != 1 || s.SenderNames[0] != "Grandma June" {
		t.Fatalf("sender names = %v", s.SenderNames)
	}
	if len(s.RecipientNames) != 0 {
		t.Fatalf("recipient names = %v", s.RecipientNames)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectQuery("SELECT family_id, event_types").
		WithArgs("fam-missing").
		WillReturnRows(sqlmock.NewRows([]string{"family_id", "event_types", "sender_names", "recipient_names", "created_at", "updated_at"}))

	if _, err := repo.Get(context.Background(), "fam-missing"); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpsertEncodesLists(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectExec("INSERT INTO tenant_settings").
		WithArgs("fam-1", []byte(`["Birthday"]`), []byte(`["Grandma June"]`), []byte(`[]`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Upsert(context.Background(), Settings{
		FamilyID:    "fam-1",
		EventTypes:  []string{"Birthday"},
		SenderNames: []string{"Grandma June"},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoAppendMergesUnderRowLock(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}

	mock.ExpectBegin()
	rows := sqlmock.NewRows([]string{"event_types", "sender_names", "recipient_names"}).
		AddRow([]byte(`["Birthday"]`), []byte(`["Grandma June"]`), []byte(`[]`))
	mock.ExpectQuery(`(?s)SELECT event_types, sender_names, recipient_names.*FOR UPDATE`).
		WithArgs("fam-1").
		WillReturnRows(rows)
	mock.ExpectExec("UPDATE tenant_settings").
		WithArgs("fam-1", []byte(`["Birthday"]`), []byte(`["Grandma June","Uncle Theo"]`), []byte(`[]`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = repo.Append(context.Background(), "fam-1", Values{SenderNames: []string{"Uncle Theo"}})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoAppendNoChangeSkipsUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}

	mock.ExpectBegin()
	rows := sqlmock.NewRows([]string{"event_types", "sender_names", "recipient_names"}).
		AddRow([]byte(`["Birthday"]`), []byte(`["Grandma June"]`), []byte(`[]`))
	mock.ExpectQuery(`(?s)SELECT event_types, sender_names, recipient_names.*FOR UPDATE`).
		WithArgs("fam-1").
		WillReturnRows(rows)
	mock.ExpectCommit()

	err = repo.Append(context.Background(), "fam-1", Values{SenderNames: []string{"GRANDMA JUNE"}})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectExec("DELETE FROM tenant_settings").
		WithArgs("guest:abc").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), "guest:abc"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
