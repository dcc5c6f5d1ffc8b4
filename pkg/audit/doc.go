// Package audit records security-relevant bootstrap operations.
//
// Events are written as RFC5424 syslog lines to stderr:
//
//   - session: an administrative session was opened (or refused)
//   - user-create: an application principal was created, already existed, or failed
//   - user-drop: an application principal was removed
//
// When AUDIT_DATABASE_URL is set, events are also inserted into the
// "messages" table, whose schema is managed by Migrate.
//
//	audit.Log(audit.UserCreateEvent{User: "app_user", Database: "inbox_connector_db", Result: audit.ResultCreated})
package audit
