package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/stevechen1112/aetheria/pkg/models"
)

func TestSQLiteGetSessionNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	s := NewSQLiteStoreWithDB(db)

	mock.ExpectQuery("SELECT user_id, title").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "title", "created_at", "updated_at"}))

	if _, err := s.GetSession(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSQLiteWriteChartLockError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	s := NewSQLiteStoreWithDB(db)

	mock.ExpectExec("INSERT INTO chart_locks").
		WillReturnError(errors.New("disk I/O error"))

	err = s.WriteChartLock(context.Background(), "u1", models.ChartBazi, []byte(`{}`))
	if err == nil {
		t.Fatal("expected error to propagate")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSQLiteUpdateUserFactsNoop(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	s := NewSQLiteStoreWithDB(db)

	// Zero facts must not touch the database at all.
	if err := s.UpdateUserFacts(context.Background(), "u1", models.UserFacts{}); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
