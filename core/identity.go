package core

// Roles
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// Identity is the authenticated requester of an operation.
type Identity struct {
	Email string
	Name  string
	Role  string
}

func (id Identity) IsAdmin() bool   { return id.Role == RoleAdmin }
func (id Identity) IsStudent() bool { return id.Role == RoleStudent }
