package bootstrap

import "fmt"

// RoleReadWrite is the only role the application principal is granted.
const RoleReadWrite = "readWrite"

// RoleGrant scopes a role to a database.
type RoleGrant struct {
	Role string `json:"role"`
	DB   string `json:"db"`
}

func (g RoleGrant) String() string {
	return fmt.Sprintf("%s@%s", g.Role, g.DB)
}

// Credential is an application principal.
type Credential struct {
	Username string
	Password string
	Roles    []RoleGrant
}

// AdminCredential authenticates the administrative session.
type AdminCredential struct {
	Username string
	Password string
	// Source is the database the admin principal is defined in.
	Source string
}

// NewAppCredential returns the credential created on database: one readWrite role scoped to it.
func NewAppCredential(username, password, database string) Credential {
	return Credential{
		Username: username,
		Password: password,
		Roles:    []RoleGrant{{Role: RoleReadWrite, DB: database}},
	}
}

// HasExactRoles reports whether the credential holds exactly the given grants, in any order.
func (c Credential) HasExactRoles(grants ...RoleGrant) bool {
	if len(c.Roles) != len(grants) {
		return false
	}
	want := make(map[RoleGrant]int, len(grants))
	for _, g := range grants {
		want[g]++
	}
	for _, g := range c.Roles {
		if want[g] == 0 {
			return false
		}
		want[g]--
	}
	return true
}
