package audit

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestStoreSave(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStoreWithDB(db)

	event := UserCreateEvent{
		AdminUser: "admin",
		User:      "app_user",
		Database:  "inbox_connector_db",
		Role:      "readWrite",
		Result:    ResultCreated,
	}

	mock.ExpectExec(`INSERT INTO messages`).
		WithArgs(
			FacilityAuthPriv,    // facility
			int(SeverityNotice), // severity
			sqlmock.AnyArg(),    // timestamp
			sqlmock.AnyArg(),    // hostname
			"dbinit",            // appname
			sqlmock.AnyArg(),    // procid
			"user-create",       // msgid
			sqlmock.AnyArg(),    // sdata (JSON)
			sqlmock.AnyArg(),    // message
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := store.Save(event); err != nil {
		t.Errorf("Save() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStoreSaveError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStoreWithDB(db)
	mock.ExpectExec(`INSERT INTO messages`).WillReturnError(errors.New("relation \"messages\" does not exist"))

	if err := store.Save(SessionEvent{Engine: "mongo", AdminUser: "admin", Success: true}); err == nil {
		t.Error("expected error from Save()")
	}
}

func TestStoreNilDB(t *testing.T) {
	store := NewStoreWithDB(nil)
	if err := store.Save(SessionEvent{}); err != nil {
		t.Errorf("Save() with nil db should be a no-op, got %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Close() with nil db should be a no-op, got %v", err)
	}
}

func TestNewStoreWithoutURL(t *testing.T) {
	t.Setenv("AUDIT_DATABASE_URL", "")
	store, err := NewStore()
	if err != nil || store != nil {
		t.Errorf("NewStore() = %v, %v; want nil, nil", store, err)
	}
}
