package rbac

import "time"

// Permission is an immutable catalog entry. The ID is the stable dotted key
// (e.g. "employees.view") so templates and export documents stay portable
// across installs.
type Permission struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type CatalogFilter struct {
	Search   string
	Category string
}

// Template is a predefined, named permission set. Read-only at runtime.
type Template struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	PermissionIDs []string `json:"permissionIds"`
}

type BulkAction string

const (
	BulkGrant  BulkAction = "grant"
	BulkRevoke BulkAction = "revoke"
)

// BulkResult reports what a bulk operation actually changed. Skipped holds
// selections that were already in the requested state.
type BulkResult struct {
	Role    string   `json:"role"`
	Action  string   `json:"action"`
	Applied []string `json:"applied"`
	Skipped []string `json:"skipped"`
}

// ReplaceResult is the diff a replace-all operation applied.
type ReplaceResult struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

// ExportDocument is the portable role→permission mapping.
type ExportDocument struct {
	ExportedAt time.Time           `json:"exportedAt"`
	Roles      map[string][]string `json:"roles"`
}

// ImportResult reports the per-role diff an import applied.
type ImportResult struct {
	Roles map[string]ReplaceResult `json:"roles"`
}
