package rbac

import "context"

// StoreAPI is the persistence boundary of the engine. Roles cross it as
// plain strings; the service owns role parsing and policy.
type StoreAPI interface {
	ListPermissions(ctx context.Context, filter CatalogFilter) ([]Permission, error)
	ListCategories(ctx context.Context) ([]string, error)
	PermissionExists(ctx context.Context, permissionID string) (bool, error)
	CatalogIDs(ctx context.Context) (map[string]struct{}, error)

	HasPermission(ctx context.Context, role, permissionID string) (bool, error)
	ListForRole(ctx context.Context, role string) ([]string, error)
	ListAll(ctx context.Context) (map[string][]string, error)

	// Grant and Revoke report whether a row actually changed, so callers
	// can keep no-ops out of the audit trail.
	Grant(ctx context.Context, role, permissionID string) (bool, error)
	Revoke(ctx context.Context, role, permissionID string) (bool, error)

	// ReplaceRolePermissions sets the role's permission set to exactly
	// permissionIDs inside a single transaction, serialized per role.
	ReplaceRolePermissions(ctx context.Context, role string, permissionIDs []string) (ReplaceResult, error)
}
