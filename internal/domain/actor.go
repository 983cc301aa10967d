package domain

type Role string

const (
	RoleCustomer Role = "customer"
	RoleBusiness Role = "business"
	RoleSystem   Role = "system"
)

// Actor identifies who is invoking a lifecycle operation. It replaces any
// ambient auth context: every engine call receives the caller explicitly.
type Actor struct {
	ID   string
	Role Role
}

// SystemActor is used by background jobs such as the expiry sweep.
var SystemActor = Actor{ID: "system", Role: RoleSystem}
