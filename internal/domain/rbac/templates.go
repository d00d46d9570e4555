package rbac

const (
	TemplateViewOnly   = "view-only"
	TemplateStandard   = "standard"
	TemplateManager    = "manager"
	TemplateFullAccess = "full-access"
)

// Templates returns the static template catalog in display order.
func Templates() []Template {
	return []Template{
		{
			ID:          TemplateViewOnly,
			Name:        "View only",
			Description: "Read-only access across every module",
			PermissionIDs: []string{
				PermEmployeesView,
				PermLeaveView,
				PermIncidentsView,
				PermNoticesView,
				PermReportsView,
			},
		},
		{
			ID:          TemplateStandard,
			Name:        "Standard employee",
			Description: "Read access plus self-service leave and incident reporting",
			PermissionIDs: []string{
				PermEmployeesView,
				PermLeaveView,
				PermLeaveRequest,
				PermIncidentsView,
				PermIncidentsReport,
				PermNoticesView,
				PermReportsView,
			},
		},
		{
			ID:          TemplateManager,
			Name:        "Manager",
			Description: "Standard access plus approvals, investigations, and notice publishing",
			PermissionIDs: []string{
				PermEmployeesView,
				PermLeaveView,
				PermLeaveRequest,
				PermLeaveApprove,
				PermIncidentsView,
				PermIncidentsReport,
				PermIncidentsInvestigate,
				PermIncidentsResolve,
				PermNoticesView,
				PermNoticesCreate,
				PermNoticesPublish,
				PermReportsView,
				PermReportsExport,
				PermUsersView,
			},
		},
		{
			ID:            TemplateFullAccess,
			Name:          "Full access",
			Description:   "Every catalog permission",
			PermissionIDs: DefaultCatalogIDs(),
		},
	}
}

// TemplateByID resolves a template id against the static catalog.
func TemplateByID(id string) (Template, bool) {
	for _, tpl := range Templates() {
		if tpl.ID == id {
			return tpl, true
		}
	}
	return Template{}, false
}
