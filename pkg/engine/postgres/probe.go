package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/doodlesbykumbi/dbinit/pkg/bootstrap"
	"github.com/doodlesbykumbi/dbinit/pkg/db"
)

const probeTable = "dbinit_probe"

// Probe logs in as cred and exercises a scratch table plus one administrative statement.
func (e *Engine) Probe(ctx context.Context, database string, cred bootstrap.Credential) (*bootstrap.Probe, error) {
	probe := &bootstrap.Probe{}

	conn, err := e.open(ctx, cred.Username, cred.Password, database)
	if err != nil {
		return probe, err
	}
	defer func() { _ = db.Close(conn) }()

	probe.Authenticated = true
	runProbe(conn, probe)
	return probe, nil
}

func runProbe(conn *gorm.DB, probe *bootstrap.Probe) {
	if err := conn.Exec("CREATE TABLE IF NOT EXISTS " + probeTable + " (id integer)").Error; err == nil {
		probe.CanWrite = conn.Exec("INSERT INTO "+probeTable+" (id) VALUES (1)").Error == nil

		var count int64
		probe.CanRead = conn.Raw("SELECT count(*) FROM "+probeTable).Row().Scan(&count) == nil

		_ = conn.Exec("DROP TABLE " + probeTable).Error
	}

	err := conn.Exec("CREATE ROLE dbinit_probe_admin").Error
	switch {
	case err == nil:
		_ = conn.Exec("DROP ROLE dbinit_probe_admin").Error
	case sqlState(err) == codeInsufficientPrivilege:
		probe.AdminDenied = true
	}
}
