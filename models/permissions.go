package models

// Action is an operation a role may or may not perform. Ownership and
// team membership are checked separately by the service layer; the
// capability table answers only "can this role ever do this".
type Action string

const (
	ActionEntryCreate     Action = "entry:create"
	ActionEntryEdit       Action = "entry:edit"
	ActionEntryDelete     Action = "entry:delete"
	ActionEntrySubmit     Action = "entry:submit"
	ActionEntryApprove    Action = "entry:approve"
	ActionEntryReject     Action = "entry:reject"
	ActionEntryViewAll    Action = "entry:view_all"
	ActionWorkCodeEdit    Action = "workcode:edit"
	ActionWorkCodeManage  Action = "workcode:manage"
	ActionUserManage      Action = "user:manage"
	ActionRuleManage      Action = "rule:manage"
	ActionAuditView       Action = "audit:view"
)

var employeeActions = map[Action]bool{
	ActionEntryCreate: true,
	ActionEntryEdit:   true,
	ActionEntryDelete: true,
	ActionEntrySubmit: true,
}

var managerActions = map[Action]bool{
	ActionEntryCreate:  true,
	ActionEntryEdit:    true,
	ActionEntryDelete:  true,
	ActionEntrySubmit:  true,
	ActionEntryApprove: true,
	ActionEntryReject:  true,
	ActionEntryViewAll: true,
	ActionWorkCodeEdit: true,
	ActionAuditView:    true,
}

var adminActions = map[Action]bool{
	ActionEntryCreate:    true,
	ActionEntryEdit:      true,
	ActionEntryDelete:    true,
	ActionEntrySubmit:    true,
	ActionEntryApprove:   true,
	ActionEntryReject:    true,
	ActionEntryViewAll:   true,
	ActionWorkCodeEdit:   true,
	ActionWorkCodeManage: true,
	ActionUserManage:     true,
	ActionRuleManage:     true,
	ActionAuditView:      true,
}

var rolePermissions = map[Role]map[Action]bool{
	RoleEmployee: employeeActions,
	RoleManager:  managerActions,
	RoleAdmin:    adminActions,
}

// Can reports whether the role is ever allowed to perform the action.
func (r Role) Can(a Action) bool {
	return rolePermissions[r][a]
}
