package rbac

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"hradmin/internal/domain/audit"
	"hradmin/internal/domain/auth"
)

// AuditSink receives one entry per successful mutation. Append failures are
// logged, never allowed to fail the mutation they describe.
type AuditSink interface {
	Record(ctx context.Context, entry audit.Entry) error
}

type Service struct {
	store StoreAPI
	audit AuditSink
}

func NewService(store StoreAPI, sink AuditSink) *Service {
	return &Service{store: store, audit: sink}
}

// guard is the access check in front of every operation. It runs before any
// store call, so a rejected caller causes no side effects.
func (s *Service) guard(actor auth.Actor, op string) error {
	if !actor.IsAdmin() {
		return &AuthorizationError{Op: op}
	}
	return nil
}

func (s *Service) record(ctx context.Context, entry audit.Entry) {
	if err := s.audit.Record(ctx, entry); err != nil {
		slog.Error("audit append failed", "role", entry.Role, "action", entry.Action, "err", err)
	}
}

func actorLabel(actor auth.Actor) string {
	if actor.Email != "" {
		return actor.Email
	}
	return actor.UserID
}

func (s *Service) ListPermissions(ctx context.Context, actor auth.Actor, filter CatalogFilter) ([]Permission, error) {
	if err := s.guard(actor, "list permissions"); err != nil {
		return nil, err
	}
	perms, err := s.store.ListPermissions(ctx, filter)
	if err != nil {
		return nil, &StoreError{Op: "list permissions", Err: err}
	}
	return perms, nil
}

func (s *Service) ListCategories(ctx context.Context, actor auth.Actor) ([]string, error) {
	if err := s.guard(actor, "list categories"); err != nil {
		return nil, err
	}
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, &StoreError{Op: "list categories", Err: err}
	}
	return categories, nil
}

func (s *Service) ListTemplates(actor auth.Actor) ([]Template, error) {
	if err := s.guard(actor, "list templates"); err != nil {
		return nil, err
	}
	return Templates(), nil
}

// HasPermission reports the role's effective grant. The admin role holds
// every catalog permission implicitly.
func (s *Service) HasPermission(ctx context.Context, actor auth.Actor, role auth.Role, permissionID string) (bool, error) {
	if err := s.guard(actor, "check permission"); err != nil {
		return false, err
	}
	if role.IsAdmin() {
		exists, err := s.store.PermissionExists(ctx, permissionID)
		if err != nil {
			return false, &StoreError{Op: "check permission", Role: role.String(), PermissionID: permissionID, Err: err}
		}
		return exists, nil
	}
	has, err := s.store.HasPermission(ctx, role.String(), permissionID)
	if err != nil {
		return false, &StoreError{Op: "check permission", Role: role.String(), PermissionID: permissionID, Err: err}
	}
	return has, nil
}

// ListForRole returns the role's effective permission ids, sorted.
func (s *Service) ListForRole(ctx context.Context, actor auth.Actor, role auth.Role) ([]string, error) {
	if err := s.guard(actor, "list role permissions"); err != nil {
		return nil, err
	}
	ids, err := s.effectivePermissions(ctx, role)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Service) effectivePermissions(ctx context.Context, role auth.Role) ([]string, error) {
	if role.IsAdmin() {
		catalog, err := s.store.CatalogIDs(ctx)
		if err != nil {
			return nil, &StoreError{Op: "list role permissions", Role: role.String(), Err: err}
		}
		ids := make([]string, 0, len(catalog))
		for id := range catalog {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		return ids, nil
	}
	ids, err := s.store.ListForRole(ctx, role.String())
	if err != nil {
		return nil, &StoreError{Op: "list role permissions", Role: role.String(), Err: err}
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// ListAll returns the stored role→permission mapping in one query. Every
// known editable role is present even when it holds no permissions.
func (s *Service) ListAll(ctx context.Context, actor auth.Actor) (map[string][]string, error) {
	if err := s.guard(actor, "list role assignments"); err != nil {
		return nil, err
	}
	all, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, &StoreError{Op: "list role assignments", Err: err}
	}
	delete(all, auth.RoleAdmin.String())
	for _, role := range auth.KnownRoles() {
		if role.IsAdmin() {
			continue
		}
		if _, ok := all[role.String()]; !ok {
			all[role.String()] = []string{}
		}
	}
	return all, nil
}

// rejectAdminTarget enforces the policy that admin's permission set is fixed.
func rejectAdminTarget(role auth.Role) error {
	if role.IsAdmin() {
		return &ValidationError{Reason: "the admin role holds every permission and cannot be edited"}
	}
	return nil
}

func (s *Service) requirePermission(ctx context.Context, op string, permissionID string) error {
	exists, err := s.store.PermissionExists(ctx, permissionID)
	if err != nil {
		return &StoreError{Op: op, PermissionID: permissionID, Err: err}
	}
	if !exists {
		return &NotFoundError{Kind: "permission", ID: permissionID}
	}
	return nil
}

// Grant adds one permission to a role. Granting an already-granted
// permission is a no-op and leaves no audit entry.
func (s *Service) Grant(ctx context.Context, actor auth.Actor, role auth.Role, permissionID string) (bool, error) {
	if err := s.guard(actor, "grant permission"); err != nil {
		return false, err
	}
	if err := rejectAdminTarget(role); err != nil {
		return false, err
	}
	if err := s.requirePermission(ctx, "grant permission", permissionID); err != nil {
		return false, err
	}
	return s.applyGrant(ctx, actor, role, permissionID)
}

func (s *Service) applyGrant(ctx context.Context, actor auth.Actor, role auth.Role, permissionID string) (bool, error) {
	changed, err := s.store.Grant(ctx, role.String(), permissionID)
	if err != nil {
		return false, &StoreError{Op: "grant permission", Role: role.String(), PermissionID: permissionID, Err: err}
	}
	if changed {
		s.record(ctx, audit.Entry{
			PermissionID: permissionID,
			Role:         role.String(),
			Action:       audit.ActionAdded,
			Details:      fmt.Sprintf("%s granted to %s by %s", permissionID, role, actorLabel(actor)),
		})
	}
	return changed, nil
}

// Revoke removes one permission from a role. Revoking an absent permission
// is a no-op and leaves no audit entry.
func (s *Service) Revoke(ctx context.Context, actor auth.Actor, role auth.Role, permissionID string) (bool, error) {
	if err := s.guard(actor, "revoke permission"); err != nil {
		return false, err
	}
	if err := rejectAdminTarget(role); err != nil {
		return false, err
	}
	if err := s.requirePermission(ctx, "revoke permission", permissionID); err != nil {
		return false, err
	}
	return s.applyRevoke(ctx, actor, role, permissionID)
}

func (s *Service) applyRevoke(ctx context.Context, actor auth.Actor, role auth.Role, permissionID string) (bool, error) {
	changed, err := s.store.Revoke(ctx, role.String(), permissionID)
	if err != nil {
		return false, &StoreError{Op: "revoke permission", Role: role.String(), PermissionID: permissionID, Err: err}
	}
	if changed {
		s.record(ctx, audit.Entry{
			PermissionID: permissionID,
			Role:         role.String(),
			Action:       audit.ActionRemoved,
			Details:      fmt.Sprintf("%s revoked from %s by %s", permissionID, role, actorLabel(actor)),
		})
	}
	return changed, nil
}

// Toggle flips one permission for a role. The current state is re-read
// inside the call, so a stale view held by the caller cannot invert the
// intended change.
func (s *Service) Toggle(ctx context.Context, actor auth.Actor, role auth.Role, permissionID string) (bool, error) {
	if err := s.guard(actor, "toggle permission"); err != nil {
		return false, err
	}
	if err := rejectAdminTarget(role); err != nil {
		return false, err
	}
	if err := s.requirePermission(ctx, "toggle permission", permissionID); err != nil {
		return false, err
	}
	has, err := s.store.HasPermission(ctx, role.String(), permissionID)
	if err != nil {
		return false, &StoreError{Op: "toggle permission", Role: role.String(), PermissionID: permissionID, Err: err}
	}
	if has {
		if _, err := s.applyRevoke(ctx, actor, role, permissionID); err != nil {
			return false, err
		}
		return false, nil
	}
	if _, err := s.applyGrant(ctx, actor, role, permissionID); err != nil {
		return false, err
	}
	return true, nil
}

// BulkUpdate applies one action to a selected permission set. Selections
// already in the requested state are skipped. Items that fail are reported
// through PartialFailureError alongside the ones that were applied.
func (s *Service) BulkUpdate(ctx context.Context, actor auth.Actor, role auth.Role, action BulkAction, permissionIDs []string) (BulkResult, error) {
	result := BulkResult{Role: role.String(), Action: string(action), Applied: []string{}, Skipped: []string{}}

	if err := s.guard(actor, "bulk update"); err != nil {
		return result, err
	}
	if err := rejectAdminTarget(role); err != nil {
		return result, err
	}
	if action != BulkGrant && action != BulkRevoke {
		return result, &ValidationError{Reason: fmt.Sprintf("unsupported bulk action %q", action)}
	}

	selection := dedupe(permissionIDs)
	if len(selection) == 0 {
		return result, &ValidationError{Reason: "bulk selection is empty"}
	}

	catalog, err := s.store.CatalogIDs(ctx)
	if err != nil {
		return result, &StoreError{Op: "bulk update", Role: role.String(), Err: err}
	}
	var unknown []string
	for _, id := range selection {
		if _, ok := catalog[id]; !ok {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		return result, &ValidationError{Reason: "unknown permission ids", Fields: unknown}
	}

	currentIDs, err := s.store.ListForRole(ctx, role.String())
	if err != nil {
		return result, &StoreError{Op: "bulk update", Role: role.String(), Err: err}
	}
	current := make(map[string]struct{}, len(currentIDs))
	for _, id := range currentIDs {
		current[id] = struct{}{}
	}

	var failed []ItemFailure
	for _, id := range selection {
		_, held := current[id]
		if (action == BulkGrant && held) || (action == BulkRevoke && !held) {
			result.Skipped = append(result.Skipped, id)
			continue
		}

		var applyErr error
		if action == BulkGrant {
			_, applyErr = s.applyGrant(ctx, actor, role, id)
		} else {
			_, applyErr = s.applyRevoke(ctx, actor, role, id)
		}
		if applyErr != nil {
			failed = append(failed, ItemFailure{ID: id, Err: applyErr})
			continue
		}
		result.Applied = append(result.Applied, id)
	}

	if len(result.Applied) > 0 {
		verb := "granted to"
		if action == BulkRevoke {
			verb = "revoked from"
		}
		s.record(ctx, audit.Entry{
			Role:    role.String(),
			Action:  audit.ActionModified,
			Details: fmt.Sprintf("bulk %s: %d of %d selected permissions %s %s by %s", action, len(result.Applied), len(selection), verb, role, actorLabel(actor)),
		})
	}

	if len(failed) > 0 {
		return result, &PartialFailureError{Op: "bulk " + string(action), Applied: result.Applied, Failed: failed}
	}
	return result, nil
}

// ApplyTemplate replaces the role's entire permission set with the named
// template's set.
func (s *Service) ApplyTemplate(ctx context.Context, actor auth.Actor, role auth.Role, templateID string) (ReplaceResult, error) {
	if err := s.guard(actor, "apply template"); err != nil {
		return ReplaceResult{}, err
	}
	if err := rejectAdminTarget(role); err != nil {
		return ReplaceResult{}, err
	}
	tpl, ok := TemplateByID(templateID)
	if !ok {
		return ReplaceResult{}, &NotFoundError{Kind: "template", ID: templateID}
	}

	result, err := s.store.ReplaceRolePermissions(ctx, role.String(), tpl.PermissionIDs)
	if err != nil {
		return ReplaceResult{}, &StoreError{Op: "apply template", Role: role.String(), Err: err}
	}

	s.record(ctx, audit.Entry{
		Role:    role.String(),
		Action:  audit.ActionModified,
		Details: fmt.Sprintf("template %q applied to %s by %s: %d added, %d removed", tpl.ID, role, actorLabel(actor), len(result.Added), len(result.Removed)),
	})
	return result, nil
}

// CopyPermissions replaces the target role's permission set with the source
// role's effective set as captured at the start of the copy.
func (s *Service) CopyPermissions(ctx context.Context, actor auth.Actor, source, target auth.Role) (ReplaceResult, error) {
	if err := s.guard(actor, "copy permissions"); err != nil {
		return ReplaceResult{}, err
	}
	if err := rejectAdminTarget(target); err != nil {
		return ReplaceResult{}, err
	}
	if source.String() == target.String() {
		return ReplaceResult{}, &ValidationError{Reason: "source and target roles must differ"}
	}

	sourceIDs, err := s.effectivePermissions(ctx, source)
	if err != nil {
		return ReplaceResult{}, err
	}

	result, err := s.store.ReplaceRolePermissions(ctx, target.String(), sourceIDs)
	if err != nil {
		return ReplaceResult{}, &StoreError{Op: "copy permissions", Role: target.String(), Err: err}
	}

	s.record(ctx, audit.Entry{
		Role:    target.String(),
		Action:  audit.ActionModified,
		Details: fmt.Sprintf("permissions copied from %s to %s by %s: %d added, %d removed", source, target, actorLabel(actor), len(result.Added), len(result.Removed)),
	})
	return result, nil
}

// Export serializes the stored role→permission mapping. The admin role is
// excluded: its grant is implicit and not re-importable.
func (s *Service) Export(ctx context.Context, actor auth.Actor) (ExportDocument, error) {
	if err := s.guard(actor, "export permissions"); err != nil {
		return ExportDocument{}, err
	}
	all, err := s.store.ListAll(ctx)
	if err != nil {
		return ExportDocument{}, &StoreError{Op: "export permissions", Err: err}
	}
	delete(all, auth.RoleAdmin.String())
	for _, role := range auth.KnownRoles() {
		if role.IsAdmin() {
			continue
		}
		if _, ok := all[role.String()]; !ok {
			all[role.String()] = []string{}
		}
	}
	return ExportDocument{ExportedAt: time.Now().UTC(), Roles: all}, nil
}

// Import applies an export document as a full replace of every role it
// names; roles absent from the document are untouched. The whole document
// is validated against the live catalog before anything is written.
func (s *Service) Import(ctx context.Context, actor auth.Actor, doc ExportDocument) (ImportResult, error) {
	result := ImportResult{Roles: map[string]ReplaceResult{}}

	if err := s.guard(actor, "import permissions"); err != nil {
		return result, err
	}
	if len(doc.Roles) == 0 {
		return result, &ValidationError{Reason: "import document names no roles"}
	}

	catalog, err := s.store.CatalogIDs(ctx)
	if err != nil {
		return result, &StoreError{Op: "import permissions", Err: err}
	}

	names := make([]string, 0, len(doc.Roles))
	for name := range doc.Roles {
		names = append(names, name)
	}
	sort.Strings(names)

	roles := make(map[string]auth.Role, len(names))
	seen := make(map[string]string, len(names))
	var issues []string
	for _, name := range names {
		role, err := auth.ParseRole(name)
		if err != nil {
			issues = append(issues, fmt.Sprintf("role %q is not a valid identifier", name))
			continue
		}
		if role.IsAdmin() {
			issues = append(issues, "the admin role cannot be imported")
			continue
		}
		if prev, ok := seen[role.String()]; ok {
			issues = append(issues, fmt.Sprintf("roles %q and %q name the same role", prev, name))
			continue
		}
		seen[role.String()] = name
		roles[name] = role
		for _, id := range doc.Roles[name] {
			if _, ok := catalog[id]; !ok {
				issues = append(issues, fmt.Sprintf("permission %q is not in the catalog", id))
			}
		}
	}
	if len(issues) > 0 {
		return result, &ValidationError{Reason: "import document invalid", Fields: issues}
	}

	var applied []string
	var failed []ItemFailure
	for _, name := range names {
		role := roles[name].String()
		replaced, err := s.store.ReplaceRolePermissions(ctx, role, dedupe(doc.Roles[name]))
		if err != nil {
			failed = append(failed, ItemFailure{ID: role, Err: &StoreError{Op: "import permissions", Role: role, Err: err}})
			continue
		}
		applied = append(applied, role)
		result.Roles[role] = replaced
		s.record(ctx, audit.Entry{
			Role:    role,
			Action:  audit.ActionModified,
			Details: fmt.Sprintf("permissions imported for %s by %s: %d added, %d removed", role, actorLabel(actor), len(replaced.Added), len(replaced.Removed)),
		})
	}

	if len(applied) > 0 {
		s.record(ctx, audit.Entry{
			Role:    auth.RoleAdmin.String(),
			Action:  audit.ActionModified,
			Details: fmt.Sprintf("import by %s replaced assignments for %d roles", actorLabel(actor), len(applied)),
		})
	}

	if len(failed) > 0 {
		return result, &PartialFailureError{Op: "import", Applied: applied, Failed: failed}
	}
	return result, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
