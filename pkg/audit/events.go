package audit

import "fmt"

// Results recorded on user events.
const (
	ResultCreated = "created"
	ResultExists  = "exists"
	ResultDropped = "dropped"
	ResultFailure = "failure"
)

// SessionEvent represents opening an administrative session
type SessionEvent struct {
	Engine       string
	AdminUser    string
	AdminSource  string
	Success      bool
	ErrorMessage string
}

func (e SessionEvent) MessageID() string {
	return "session"
}

func (e SessionEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s opened an administrative %s session", e.AdminUser, e.Engine)
	}
	msg := fmt.Sprintf("%s failed to open an administrative %s session", e.AdminUser, e.Engine)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e SessionEvent) Severity() Severity {
	if e.Success {
		return SeverityInfo
	}
	return SeverityError
}

func (e SessionEvent) Facility() int {
	return FacilityAuth
}

func (e SessionEvent) StructuredData() map[string]map[string]string {
	result := "success"
	if !e.Success {
		result = "failure"
	}
	return map[string]map[string]string{
		SDIDAuth: {
			"user":   e.AdminUser,
			"source": e.AdminSource,
		},
		SDIDAction: {
			"operation": "open-session",
			"engine":    e.Engine,
			"result":    result,
		},
	}
}

// UserCreateEvent represents an attempt to create an application principal
type UserCreateEvent struct {
	AdminUser    string
	User         string
	Database     string
	Role         string
	Result       string
	ErrorMessage string
}

func (e UserCreateEvent) MessageID() string {
	return "user-create"
}

func (e UserCreateEvent) Message() string {
	switch e.Result {
	case ResultCreated:
		return fmt.Sprintf("%s created %s with role %s on %s", e.AdminUser, e.User, e.Role, e.Database)
	case ResultExists:
		return fmt.Sprintf("%s tried to create %s on %s, which already exists", e.AdminUser, e.User, e.Database)
	}
	msg := fmt.Sprintf("%s failed to create %s on %s", e.AdminUser, e.User, e.Database)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e UserCreateEvent) Severity() Severity {
	switch e.Result {
	case ResultCreated:
		return SeverityNotice
	case ResultExists:
		return SeverityInfo
	}
	return SeverityError
}

func (e UserCreateEvent) Facility() int {
	return FacilityAuthPriv
}

func (e UserCreateEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDAuth: {
			"user": e.AdminUser,
		},
		SDIDSubject: {
			"user": e.User,
			"role": e.Role,
		},
		SDIDTarget: {
			"database": e.Database,
		},
		SDIDAction: {
			"operation": "create-user",
			"result":    e.Result,
		},
	}
}

// UserDropEvent represents removal of an application principal
type UserDropEvent struct {
	AdminUser    string
	User         string
	Database     string
	Success      bool
	ErrorMessage string
}

func (e UserDropEvent) MessageID() string {
	return "user-drop"
}

func (e UserDropEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s dropped %s from %s", e.AdminUser, e.User, e.Database)
	}
	msg := fmt.Sprintf("%s failed to drop %s from %s", e.AdminUser, e.User, e.Database)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e UserDropEvent) Severity() Severity {
	if e.Success {
		return SeverityNotice
	}
	return SeverityError
}

func (e UserDropEvent) Facility() int {
	return FacilityAuthPriv
}

func (e UserDropEvent) StructuredData() map[string]map[string]string {
	result := ResultDropped
	if !e.Success {
		result = ResultFailure
	}
	return map[string]map[string]string{
		SDIDAuth: {
			"user": e.AdminUser,
		},
		SDIDSubject: {
			"user": e.User,
		},
		SDIDTarget: {
			"database": e.Database,
		},
		SDIDAction: {
			"operation": "drop-user",
			"result":    result,
		},
	}
}
