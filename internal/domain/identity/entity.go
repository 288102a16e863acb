package identity

type Role string

const (
	RoleOwner    Role = "owner"    // Chain owner - full access
	RoleHR       Role = "hr"       // Runs payroll and manages entitlements
	RoleManager  Role = "manager"  // Approves leave, reads team attendance
	RoleEmployee Role = "employee" // Regular staff member
)

// Actor is the already authenticated and authorized caller of an engine
// operation. It is built once at the transport boundary by Authorize.
type Actor struct {
	UserID     string
	EmployeeID string
	Role       Role
	granted    Permission
}

// System is the actor used by scheduled jobs.
var System = Actor{UserID: "system", Role: RoleOwner}

// Valid reports whether the actor carries an identity.
func (a Actor) Valid() bool {
	return a.UserID != ""
}

// Granted returns the permission the actor was authorized for, if any.
func (a Actor) Granted() Permission {
	return a.granted
}

// IsSelf reports whether the actor acts on their own employee record.
func (a Actor) IsSelf(employeeID string) bool {
	return a.EmployeeID != "" && a.EmployeeID == employeeID
}
