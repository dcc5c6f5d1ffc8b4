package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/doodlesbykumbi/dbinit/pkg/bootstrap"
)

const probeCollection = "_dbinit_probe"

// listAllDatabases needs the cluster-wide listDatabases action, which readWrite lacks.
var listAllDatabases = bson.D{
	{Key: "listDatabases", Value: 1},
	{Key: "nameOnly", Value: true},
	{Key: "authorizedDatabases", Value: false},
}

// Probe logs in as cred against database and exercises a scratch collection
// plus one cluster-level command.
func (e *Engine) Probe(ctx context.Context, database string, cred bootstrap.Credential) (*bootstrap.Probe, error) {
	probe := &bootstrap.Probe{}

	client, err := e.connect(ctx, cred.Username, cred.Password, database)
	if err != nil {
		return probe, err
	}
	defer func() { _ = client.Disconnect(context.WithoutCancel(ctx)) }()

	probe.Authenticated = true

	coll := client.Database(database).Collection(probeCollection)
	if _, err := coll.InsertOne(ctx, bson.D{{Key: "probe", Value: true}}); err == nil {
		probe.CanWrite = true
	}
	if _, err := coll.CountDocuments(ctx, bson.D{}); err == nil {
		probe.CanRead = true
	}
	if probe.CanWrite {
		_ = coll.Drop(ctx)
	}

	err = client.Database("admin").RunCommand(ctx, listAllDatabases).Err()
	probe.AdminDenied = deniedAdmin(err)
	return probe, nil
}

func deniedAdmin(err error) bool {
	return err != nil && hasErrorCode(err, codeUnauthorized)
}
