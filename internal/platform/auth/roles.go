package auth

// Staff roles. admin passes every role gate.
const (
	RoleNCA       = "nca"
	RoleLeadNCA   = "lead-nca"
	RoleDietitian = "dietitian"
	RoleNurse     = "nurse"
	RoleAdmin     = "admin"
)

var validRoles = map[string]bool{
	RoleNCA:       true,
	RoleLeadNCA:   true,
	RoleDietitian: true,
	RoleNurse:     true,
	RoleAdmin:     true,
}

func IsValidRole(role string) bool {
	return validRoles[role]
}
