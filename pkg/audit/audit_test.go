package audit

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger()
	logger.SetWriter(&buf)
	logger.hostname = "db-init"
	logger.pid = 42
	logger.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 6e6, time.UTC) }

	logger.Log(UserCreateEvent{
		AdminUser: "admin",
		User:      "app_user",
		Database:  "inbox_connector_db",
		Role:      "readWrite",
		Result:    ResultCreated,
	})

	want := `<85>1 2026-01-02T03:04:05.006Z db-init dbinit 42 user-create ` +
		`[action@32473 operation="create-user" result="created"]` +
		`[auth@32473 user="admin"]` +
		`[subject@32473 role="readWrite" user="app_user"]` +
		`[target@32473 database="inbox_connector_db"] ` +
		"admin created app_user with role readWrite on inbox_connector_db\n"
	if buf.String() != want {
		t.Errorf("Log() =\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestEscapeSDValue(t *testing.T) {
	got := escapeSDValue(`a"b\c]d`)
	want := `"a\"b\\c\]d"`
	if got != want {
		t.Errorf("escapeSDValue() = %s, want %s", got, want)
	}
}

func TestFormatStructuredDataEmpty(t *testing.T) {
	if got := formatStructuredData(nil); got != "" {
		t.Errorf("formatStructuredData(nil) = %q, want empty", got)
	}
}

func TestSessionEvent(t *testing.T) {
	tests := []struct {
		name    string
		event   SessionEvent
		wantMsg string
		wantSev Severity
	}{
		{
			name:    "opened",
			event:   SessionEvent{Engine: "mongo", AdminUser: "admin", AdminSource: "admin", Success: true},
			wantMsg: "admin opened an administrative mongo session",
			wantSev: SeverityInfo,
		},
		{
			name:    "refused",
			event:   SessionEvent{Engine: "mongo", AdminUser: "admin", ErrorMessage: "authentication failed"},
			wantMsg: "failed to open an administrative mongo session: authentication failed",
			wantSev: SeverityError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(tt.event.Message(), tt.wantMsg) {
				t.Errorf("Message() = %q, want to contain %q", tt.event.Message(), tt.wantMsg)
			}
			if tt.event.Severity() != tt.wantSev {
				t.Errorf("Severity() = %v, want %v", tt.event.Severity(), tt.wantSev)
			}
			if tt.event.MessageID() != "session" {
				t.Errorf("MessageID() = %v, want 'session'", tt.event.MessageID())
			}
			if tt.event.Facility() != FacilityAuth {
				t.Errorf("Facility() = %v, want %v", tt.event.Facility(), FacilityAuth)
			}
		})
	}
}

func TestUserCreateEvent(t *testing.T) {
	tests := []struct {
		name       string
		event      UserCreateEvent
		wantMsg    string
		wantSev    Severity
		wantResult string
	}{
		{
			name:       "created",
			event:      UserCreateEvent{AdminUser: "admin", User: "app_user", Database: "m365_connector", Role: "readWrite", Result: ResultCreated},
			wantMsg:    "created app_user with role readWrite on m365_connector",
			wantSev:    SeverityNotice,
			wantResult: "created",
		},
		{
			name:       "already exists",
			event:      UserCreateEvent{AdminUser: "admin", User: "app_user", Database: "m365_connector", Result: ResultExists},
			wantMsg:    "which already exists",
			wantSev:    SeverityInfo,
			wantResult: "exists",
		},
		{
			name:       "failed",
			event:      UserCreateEvent{AdminUser: "admin", User: "app_user", Database: "m365_connector", Result: ResultFailure, ErrorMessage: "not authorized"},
			wantMsg:    "failed to create app_user on m365_connector: not authorized",
			wantSev:    SeverityError,
			wantResult: "failure",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(tt.event.Message(), tt.wantMsg) {
				t.Errorf("Message() = %q, want to contain %q", tt.event.Message(), tt.wantMsg)
			}
			if tt.event.Severity() != tt.wantSev {
				t.Errorf("Severity() = %v, want %v", tt.event.Severity(), tt.wantSev)
			}
			if got := tt.event.StructuredData()[SDIDAction]["result"]; got != tt.wantResult {
				t.Errorf("result = %q, want %q", got, tt.wantResult)
			}
		})
	}
}

func TestUserDropEvent(t *testing.T) {
	event := UserDropEvent{AdminUser: "admin", User: "app_user", Database: "inbox_connector_db", Success: true}

	if event.MessageID() != "user-drop" {
		t.Errorf("MessageID() = %v, want 'user-drop'", event.MessageID())
	}
	if !strings.Contains(event.Message(), "dropped app_user from inbox_connector_db") {
		t.Errorf("Message() = %q", event.Message())
	}

	event.Success = false
	event.ErrorMessage = "boom"
	if event.Severity() != SeverityError {
		t.Errorf("Severity() = %v, want SeverityError", event.Severity())
	}
	if event.StructuredData()[SDIDAction]["result"] != ResultFailure {
		t.Errorf("expected failure result")
	}
}

func TestLogDisabled(t *testing.T) {
	var buf bytes.Buffer
	previous := DefaultLogger
	DefaultLogger = NewLogger()
	DefaultLogger.SetWriter(&buf)
	defer func() {
		DefaultLogger = previous
		SetEnabled(true)
	}()

	SetEnabled(false)
	Log(SessionEvent{Engine: "mongo", AdminUser: "admin", Success: true})
	if buf.Len() != 0 {
		t.Errorf("expected no output while disabled, got %q", buf.String())
	}
}
