package rbac

type Role string
type Action string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleFrontDesk  Role = "frontdesk"
	RoleTechnician Role = "technician"
	RoleCourier    Role = "courier"
)

const (
	ActionRead   Action = "read"
	ActionMove   Action = "move"
	ActionManage Action = "manage"
	ActionAdmin  Action = "admin"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleManager:
		return action == ActionRead || action == ActionMove || action == ActionManage
	case RoleFrontDesk, RoleTechnician:
		return action == ActionRead || action == ActionMove
	case RoleCourier:
		return action == ActionRead
	default:
		return false
	}
}

// Privileged reports whether a role sees unfiltered department queues and may
// trigger placement materialization there.
func Privileged(role Role) bool {
	return role == RoleAdmin || role == RoleManager
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleAdmin, RoleManager, RoleFrontDesk, RoleTechnician, RoleCourier:
		return Role(role)
	default:
		return RoleTechnician
	}
}
