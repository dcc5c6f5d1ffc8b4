package config

//go:generate go run github.com/dmarkham/enumer -type Engine -trimprefix Engine -transform lower -yaml -output engine.gen.go

// Engine selects the database server family being bootstrapped.
type Engine int

const (
	EngineMongo Engine = iota
	EnginePostgres
)

// DefaultURL is the server address used when none is configured.
func (e Engine) DefaultURL() string {
	switch e {
	case EnginePostgres:
		return "postgres://localhost:5432/postgres?sslmode=disable"
	default:
		return "mongodb://localhost:27017"
	}
}

// DefaultAdminSource is the database the admin principal authenticates against by default.
func (e Engine) DefaultAdminSource() string {
	if e == EnginePostgres {
		return "postgres"
	}
	return "admin"
}

// DisplayName is the product name used in messages.
func (e Engine) DisplayName() string {
	if e == EnginePostgres {
		return "PostgreSQL"
	}
	return "MongoDB"
}

// Schemes lists the URL schemes accepted for the engine.
func (e Engine) Schemes() []string {
	switch e {
	case EnginePostgres:
		return []string{"postgres", "postgresql"}
	default:
		return []string{"mongodb", "mongodb+srv"}
	}
}
