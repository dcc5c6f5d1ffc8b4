package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/doodlesbykumbi/dbinit/pkg/bootstrap"
)

// Database runs user management commands against one database.
type Database struct {
	db *mongo.Database
}

func (d *Database) Name() string {
	return d.db.Name()
}

func createUserCommand(cred bootstrap.Credential) bson.D {
	roles := bson.A{}
	for _, grant := range cred.Roles {
		roles = append(roles, bson.D{{Key: "role", Value: grant.Role}, {Key: "db", Value: grant.DB}})
	}
	return bson.D{
		{Key: "createUser", Value: cred.Username},
		{Key: "pwd", Value: cred.Password},
		{Key: "roles", Value: roles},
	}
}

// CreateUser issues createUser on the database.
func (d *Database) CreateUser(ctx context.Context, cred bootstrap.Credential) error {
	return classify(d.db.RunCommand(ctx, createUserCommand(cred)).Err())
}

type usersInfoReply struct {
	Users []struct {
		User  string `bson:"user"`
		DB    string `bson:"db"`
		Roles []struct {
			Role string `bson:"role"`
			DB   string `bson:"db"`
		} `bson:"roles"`
	} `bson:"users"`
}

// credential picks username@database out of the reply.
func (r usersInfoReply) credential(username, database string) (*bootstrap.Credential, error) {
	for _, user := range r.Users {
		if user.User != username || user.DB != database {
			continue
		}
		cred := &bootstrap.Credential{Username: user.User}
		for _, role := range user.Roles {
			cred.Roles = append(cred.Roles, bootstrap.RoleGrant{Role: role.Role, DB: role.DB})
		}
		return cred, nil
	}
	return nil, fmt.Errorf("%w: %s@%s", bootstrap.ErrPrincipalNotFound, username, database)
}

// FindUser runs usersInfo for username on the database.
func (d *Database) FindUser(ctx context.Context, username string) (*bootstrap.Credential, error) {
	var reply usersInfoReply
	err := d.db.RunCommand(ctx, bson.D{{Key: "usersInfo", Value: username}}).Decode(&reply)
	if err != nil {
		return nil, classify(err)
	}
	return reply.credential(username, d.db.Name())
}

// DropUser issues dropUser on the database.
func (d *Database) DropUser(ctx context.Context, username string) error {
	return classify(d.db.RunCommand(ctx, bson.D{{Key: "dropUser", Value: username}}).Err())
}
