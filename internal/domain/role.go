package domain

// Role represents an account's access level.
type Role string

const (
	// RoleMember is an ordinary wallet holder.
	RoleMember Role = "member"

	// RoleVendor sells at events; same capabilities as a member.
	RoleVendor Role = "vendor"

	// RoleCore can top up any account and disburse to groups.
	RoleCore Role = "core"

	// RoleFinanceCore can top up accounts within its own department.
	RoleFinanceCore Role = "finance_core"

	// RoleAdmin has every capability.
	RoleAdmin Role = "admin"
)

// Capability is a single permission evaluated by the policy gate.
type Capability uint16

const (
	CapTransfer Capability = 1 << iota
	CapGroupTransfer
	CapTopUpAny
	CapTopUpDepartment
	CapAdjust
	CapViewAnyHistory
	CapProvision
	CapLedgerAudit
)

var roleCapabilities = map[Role]Capability{
	RoleMember:      CapTransfer,
	RoleVendor:      CapTransfer,
	RoleCore:        CapTransfer | CapGroupTransfer | CapTopUpAny | CapLedgerAudit,
	RoleFinanceCore: CapTransfer | CapGroupTransfer | CapTopUpDepartment,
	RoleAdmin: CapTransfer | CapGroupTransfer | CapTopUpAny | CapAdjust |
		CapViewAnyHistory | CapProvision | CapLedgerAudit,
}

// IsValid checks if the role is a known role.
func (r Role) IsValid() bool {
	_, ok := roleCapabilities[r]
	return ok
}

// Capabilities returns the role's capability set.
func (r Role) Capabilities() Capability {
	return roleCapabilities[r]
}

// Can reports whether the role holds every capability in c.
func (r Role) Can(c Capability) bool {
	return c != 0 && r.Capabilities()&c == c
}

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.IsValid() {
		return "", ErrInvalidRole
	}
	return r, nil
}
