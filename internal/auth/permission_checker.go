package auth

import "github.com/frahmantamala/tracker-workorders/internal/user"

// Action names an operation guarded by role.
type Action string

const (
	ActionCreateWorkOrder   Action = "work_order.create"
	ActionFinalizeWorkOrder Action = "work_order.finalize"
	ActionViewAllWorkOrders Action = "work_order.view_all"
	ActionDownloadReport    Action = "work_order.report"
	ActionViewReports       Action = "reports.view"
	ActionManageTemplates   Action = "templates.manage"
	ActionManageUsers       Action = "users.manage"
	ActionListTechnicians   Action = "users.list_technicians"
	ActionExecuteFieldWork  Action = "work_order.field_work"
)

var rolePolicy = map[Action][]user.Role{
	ActionCreateWorkOrder:   user.BackOffice,
	ActionFinalizeWorkOrder: user.BackOffice,
	ActionViewAllWorkOrders: user.BackOffice,
	ActionDownloadReport:    user.BackOffice,
	ActionListTechnicians:   user.BackOffice,
	ActionViewReports:       {user.RoleManager, user.RoleAdmin},
	ActionManageTemplates:   {user.RoleAdmin},
	ActionManageUsers:       {user.RoleAdmin},
	ActionExecuteFieldWork:  {user.RoleTechnician},
}

// RolesFor returns the roles allowed to perform action. Unknown actions are admin-only.
func RolesFor(action Action) []user.Role {
	if roles, ok := rolePolicy[action]; ok {
		return roles
	}
	return []user.Role{user.RoleAdmin}
}

func RoleCan(role user.Role, action Action) bool {
	return role.In(RolesFor(action)...)
}
