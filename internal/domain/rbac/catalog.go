package rbac

const (
	PermEmployeesView   = "employees.view"
	PermEmployeesCreate = "employees.create"
	PermEmployeesEdit   = "employees.edit"
	PermEmployeesDelete = "employees.delete"
	PermEmployeesExport = "employees.export"

	PermLeaveView    = "leave.view"
	PermLeaveRequest = "leave.request"
	PermLeaveApprove = "leave.approve"
	PermLeaveManage  = "leave.manage"

	PermIncidentsView        = "incidents.view"
	PermIncidentsReport      = "incidents.report"
	PermIncidentsInvestigate = "incidents.investigate"
	PermIncidentsResolve     = "incidents.resolve"

	PermNoticesView    = "notices.view"
	PermNoticesCreate  = "notices.create"
	PermNoticesPublish = "notices.publish"
	PermNoticesDelete  = "notices.delete"

	PermReportsView   = "reports.view"
	PermReportsExport = "reports.export"

	PermUsersView         = "users.view"
	PermUsersManage       = "users.manage"
	PermPermissionsView   = "permissions.view"
	PermPermissionsManage = "permissions.manage"
	PermAuditView         = "audit.view"
)

const (
	CategoryEmployees = "employees"
	CategoryLeave     = "leave"
	CategoryIncidents = "incidents"
	CategoryNotices   = "notices"
	CategoryReports   = "reports"
	CategorySystem    = "system"
)

// DefaultCatalog is the seeded permission catalog. Entries are created by
// seed/migration and never mutated by the engine.
func DefaultCatalog() []Permission {
	return []Permission{
		{ID: PermEmployeesView, Name: "View employees", Description: "View employee records and profiles", Category: CategoryEmployees},
		{ID: PermEmployeesCreate, Name: "Create employees", Description: "Add new employee records", Category: CategoryEmployees},
		{ID: PermEmployeesEdit, Name: "Edit employees", Description: "Update employee records", Category: CategoryEmployees},
		{ID: PermEmployeesDelete, Name: "Delete employees", Description: "Remove employee records", Category: CategoryEmployees},
		{ID: PermEmployeesExport, Name: "Export employees", Description: "Export employee data to files", Category: CategoryEmployees},

		{ID: PermLeaveView, Name: "View leave", Description: "View leave requests and balances", Category: CategoryLeave},
		{ID: PermLeaveRequest, Name: "Request leave", Description: "Submit leave requests", Category: CategoryLeave},
		{ID: PermLeaveApprove, Name: "Approve leave", Description: "Approve or reject leave requests", Category: CategoryLeave},
		{ID: PermLeaveManage, Name: "Manage leave", Description: "Manage leave types and allowances", Category: CategoryLeave},

		{ID: PermIncidentsView, Name: "View incidents", Description: "View reported incidents", Category: CategoryIncidents},
		{ID: PermIncidentsReport, Name: "Report incidents", Description: "File new incident reports", Category: CategoryIncidents},
		{ID: PermIncidentsInvestigate, Name: "Investigate incidents", Description: "Run incident investigations", Category: CategoryIncidents},
		{ID: PermIncidentsResolve, Name: "Resolve incidents", Description: "Close and resolve incidents", Category: CategoryIncidents},

		{ID: PermNoticesView, Name: "View notices", Description: "View company notices", Category: CategoryNotices},
		{ID: PermNoticesCreate, Name: "Create notices", Description: "Draft company notices", Category: CategoryNotices},
		{ID: PermNoticesPublish, Name: "Publish notices", Description: "Publish notices to employees", Category: CategoryNotices},
		{ID: PermNoticesDelete, Name: "Delete notices", Description: "Remove company notices", Category: CategoryNotices},

		{ID: PermReportsView, Name: "View reports", Description: "View HR reports and dashboards", Category: CategoryReports},
		{ID: PermReportsExport, Name: "Export reports", Description: "Download report files", Category: CategoryReports},

		{ID: PermUsersView, Name: "View users", Description: "View user accounts", Category: CategorySystem},
		{ID: PermUsersManage, Name: "Manage users", Description: "Create, update, and deactivate user accounts", Category: CategorySystem},
		{ID: PermPermissionsView, Name: "View permissions", Description: "View role permission assignments", Category: CategorySystem},
		{ID: PermPermissionsManage, Name: "Manage permissions", Description: "Change role permission assignments", Category: CategorySystem},
		{ID: PermAuditView, Name: "View audit log", Description: "View the permission audit trail", Category: CategorySystem},
	}
}

// DefaultCatalogIDs returns the catalog ids in catalog order.
func DefaultCatalogIDs() []string {
	catalog := DefaultCatalog()
	ids := make([]string, 0, len(catalog))
	for _, perm := range catalog {
		ids = append(ids, perm.ID)
	}
	return ids
}
