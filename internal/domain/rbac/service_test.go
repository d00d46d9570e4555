package rbac

import (
	"context"
	"errors"
	"sort"
	"testing"

	"hradmin/internal/domain/audit"
	"hradmin/internal/domain/auth"
)

type fakeStore struct {
	catalog    []Permission
	grants     map[string]map[string]bool
	calls      int
	failGrant  map[string]error
	failRevoke map[string]error
	failList   error
}

func newFakeStore(perms ...Permission) *fakeStore {
	if len(perms) == 0 {
		perms = DefaultCatalog()
	}
	return &fakeStore{
		catalog:    perms,
		grants:     make(map[string]map[string]bool),
		failGrant:  make(map[string]error),
		failRevoke: make(map[string]error),
	}
}

func (f *fakeStore) seed(role string, ids ...string) {
	set := make(map[string]bool)
	for _, id := range ids {
		set[id] = true
	}
	f.grants[role] = set
}

func (f *fakeStore) held(role string) []string {
	var out []string
	for id, ok := range f.grants[role] {
		if ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func (f *fakeStore) ListPermissions(_ context.Context, filter CatalogFilter) ([]Permission, error) {
	f.calls++
	var out []Permission
	for _, perm := range f.catalog {
		if filter.Category != "" && filter.Category != "all" && perm.Category != filter.Category {
			continue
		}
		out = append(out, perm)
	}
	return out, nil
}

func (f *fakeStore) ListCategories(context.Context) ([]string, error) {
	f.calls++
	seen := map[string]bool{}
	var out []string
	for _, perm := range f.catalog {
		if !seen[perm.Category] {
			seen[perm.Category] = true
			out = append(out, perm.Category)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeStore) PermissionExists(_ context.Context, permissionID string) (bool, error) {
	f.calls++
	for _, perm := range f.catalog {
		if perm.ID == permissionID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) CatalogIDs(context.Context) (map[string]struct{}, error) {
	f.calls++
	out := make(map[string]struct{}, len(f.catalog))
	for _, perm := range f.catalog {
		out[perm.ID] = struct{}{}
	}
	return out, nil
}

func (f *fakeStore) HasPermission(_ context.Context, role, permissionID string) (bool, error) {
	f.calls++
	return f.grants[role][permissionID], nil
}

func (f *fakeStore) ListForRole(_ context.Context, role string) ([]string, error) {
	f.calls++
	if f.failList != nil {
		return nil, f.failList
	}
	return f.held(role), nil
}

func (f *fakeStore) ListAll(context.Context) (map[string][]string, error) {
	f.calls++
	out := make(map[string][]string)
	for role := range f.grants {
		if held := f.held(role); len(held) > 0 {
			out[role] = held
		}
	}
	return out, nil
}

func (f *fakeStore) Grant(_ context.Context, role, permissionID string) (bool, error) {
	f.calls++
	if err := f.failGrant[permissionID]; err != nil {
		return false, err
	}
	if f.grants[role] == nil {
		f.grants[role] = make(map[string]bool)
	}
	if f.grants[role][permissionID] {
		return false, nil
	}
	f.grants[role][permissionID] = true
	return true, nil
}

func (f *fakeStore) Revoke(_ context.Context, role, permissionID string) (bool, error) {
	f.calls++
	if err := f.failRevoke[permissionID]; err != nil {
		return false, err
	}
	if !f.grants[role][permissionID] {
		return false, nil
	}
	delete(f.grants[role], permissionID)
	return true, nil
}

func (f *fakeStore) ReplaceRolePermissions(_ context.Context, role string, permissionIDs []string) (ReplaceResult, error) {
	f.calls++
	desired := make(map[string]bool, len(permissionIDs))
	for _, id := range permissionIDs {
		desired[id] = true
	}

	var result ReplaceResult
	for id := range desired {
		if !f.grants[role][id] {
			result.Added = append(result.Added, id)
		}
	}
	for id := range f.grants[role] {
		if !desired[id] {
			result.Removed = append(result.Removed, id)
		}
	}
	sort.Strings(result.Added)
	sort.Strings(result.Removed)
	f.grants[role] = desired
	return result, nil
}

type fakeAudit struct {
	entries []audit.Entry
}

func (f *fakeAudit) Record(_ context.Context, entry audit.Entry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAudit) withAction(action string) []audit.Entry {
	var out []audit.Entry
	for _, entry := range f.entries {
		if entry.Action == action {
			out = append(out, entry)
		}
	}
	return out
}

var (
	adminActor = auth.Actor{UserID: "u-admin", Email: "admin@example.com", Role: auth.RoleAdmin}
	hrActor    = auth.Actor{UserID: "u-hr", Email: "hr@example.com", Role: auth.RoleHR}
)

func newTestService() (*Service, *fakeStore, *fakeAudit) {
	store := newFakeStore()
	sink := &fakeAudit{}
	return NewService(store, sink), store, sink
}

func TestNonAdminRejectedBeforeStoreCalls(t *testing.T) {
	svc, store, sink := newTestService()
	ctx := context.Background()

	if _, err := svc.Grant(ctx, hrActor, auth.RoleEmployee, PermLeaveView); !IsAuthorization(err) {
		t.Fatalf("expected authorization error, got %v", err)
	}
	if _, err := svc.ListPermissions(ctx, hrActor, CatalogFilter{}); !IsAuthorization(err) {
		t.Fatalf("expected authorization error, got %v", err)
	}
	if _, err := svc.BulkUpdate(ctx, hrActor, auth.RoleEmployee, BulkGrant, []string{PermLeaveView}); !IsAuthorization(err) {
		t.Fatalf("expected authorization error, got %v", err)
	}
	if _, err := svc.ApplyTemplate(ctx, hrActor, auth.RoleEmployee, TemplateViewOnly); !IsAuthorization(err) {
		t.Fatalf("expected authorization error, got %v", err)
	}

	if store.calls != 0 {
		t.Fatalf("expected zero store calls, got %d", store.calls)
	}
	if len(sink.entries) != 0 {
		t.Fatalf("expected zero audit entries, got %d", len(sink.entries))
	}
}

func TestGrantIsIdempotent(t *testing.T) {
	svc, store, sink := newTestService()
	ctx := context.Background()

	changed, err := svc.Grant(ctx, adminActor, auth.RoleEmployee, PermLeaveView)
	if err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if !changed {
		t.Fatal("expected first grant to change state")
	}

	changed, err = svc.Grant(ctx, adminActor, auth.RoleEmployee, PermLeaveView)
	if err != nil {
		t.Fatalf("repeat grant failed: %v", err)
	}
	if changed {
		t.Fatal("expected repeat grant to be a no-op")
	}

	if got := store.held("employee"); len(got) != 1 || got[0] != PermLeaveView {
		t.Fatalf("unexpected grants: %v", got)
	}
	if entries := sink.withAction(audit.ActionAdded); len(entries) != 1 {
		t.Fatalf("expected exactly one added audit entry, got %d", len(entries))
	}
}

func TestRevokeIsIdempotent(t *testing.T) {
	svc, store, sink := newTestService()
	ctx := context.Background()
	store.seed("employee", PermLeaveView)

	changed, err := svc.Revoke(ctx, adminActor, auth.RoleEmployee, PermLeaveView)
	if err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if !changed {
		t.Fatal("expected first revoke to change state")
	}

	changed, err = svc.Revoke(ctx, adminActor, auth.RoleEmployee, PermLeaveView)
	if err != nil {
		t.Fatalf("repeat revoke failed: %v", err)
	}
	if changed {
		t.Fatal("expected repeat revoke to be a no-op")
	}

	if entries := sink.withAction(audit.ActionRemoved); len(entries) != 1 {
		t.Fatalf("expected exactly one removed audit entry, got %d", len(entries))
	}
}

func TestGrantUnknownPermission(t *testing.T) {
	svc, store, _ := newTestService()

	_, err := svc.Grant(context.Background(), adminActor, auth.RoleEmployee, "nope.nothing")
	if !IsNotFound(err) {
		t.Fatalf("expected not found error, got %v", err)
	}
	if len(store.held("employee")) != 0 {
		t.Fatal("expected no grants after failed grant")
	}
}

func TestAdminRoleCannotBeEdited(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Grant(ctx, adminActor, auth.RoleAdmin, PermLeaveView); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.ApplyTemplate(ctx, adminActor, auth.RoleAdmin, TemplateViewOnly); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.CopyPermissions(ctx, adminActor, auth.RoleHR, auth.RoleAdmin); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestToggleInverseLaw(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()
	store.seed("manager", PermLeaveView)
	before := store.held("manager")

	granted, err := svc.Toggle(ctx, adminActor, auth.RoleManager, PermLeaveView)
	if err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if granted {
		t.Fatal("expected first toggle to revoke")
	}

	granted, err = svc.Toggle(ctx, adminActor, auth.RoleManager, PermLeaveView)
	if err != nil {
		t.Fatalf("second toggle failed: %v", err)
	}
	if !granted {
		t.Fatal("expected second toggle to grant")
	}

	after := store.held("manager")
	if len(after) != len(before) || after[0] != before[0] {
		t.Fatalf("toggle pair changed state: before=%v after=%v", before, after)
	}
}

func TestBulkValidation(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.BulkUpdate(ctx, adminActor, auth.RoleEmployee, BulkGrant, nil); !IsValidation(err) {
		t.Fatalf("expected validation error for empty selection, got %v", err)
	}
	if _, err := svc.BulkUpdate(ctx, adminActor, auth.RoleEmployee, BulkAction("replace"), []string{PermLeaveView}); !IsValidation(err) {
		t.Fatalf("expected validation error for bad action, got %v", err)
	}
	if _, err := svc.BulkUpdate(ctx, adminActor, auth.RoleEmployee, BulkGrant, []string{"ghost.permission"}); !IsValidation(err) {
		t.Fatalf("expected validation error for unknown ids, got %v", err)
	}
	if len(store.held("employee")) != 0 {
		t.Fatal("expected no writes from rejected bulk calls")
	}
}

func TestBulkGrantSkipsAlreadyGranted(t *testing.T) {
	svc, store, sink := newTestService()
	ctx := context.Background()
	store.seed("employee", PermLeaveView)

	result, err := svc.BulkUpdate(ctx, adminActor, auth.RoleEmployee, BulkGrant, []string{PermLeaveView, PermLeaveRequest, PermNoticesView})
	if err != nil {
		t.Fatalf("bulk grant failed: %v", err)
	}
	if len(result.Applied) != 2 {
		t.Fatalf("expected 2 applied, got %v", result.Applied)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != PermLeaveView {
		t.Fatalf("expected %s skipped, got %v", PermLeaveView, result.Skipped)
	}

	held := store.held("employee")
	want := []string{PermLeaveRequest, PermLeaveView, PermNoticesView}
	if len(held) != len(want) {
		t.Fatalf("unexpected grants: %v", held)
	}
	for i := range want {
		if held[i] != want[i] {
			t.Fatalf("unexpected grants: %v", held)
		}
	}

	if entries := sink.withAction(audit.ActionAdded); len(entries) != 2 {
		t.Fatalf("expected 2 per-item audit entries, got %d", len(entries))
	}
	if entries := sink.withAction(audit.ActionModified); len(entries) != 1 {
		t.Fatalf("expected 1 summary audit entry, got %d", len(entries))
	}
}

func TestBulkRevokeIgnoresMissing(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()
	store.seed("employee", PermLeaveView, PermNoticesView)

	result, err := svc.BulkUpdate(ctx, adminActor, auth.RoleEmployee, BulkRevoke, []string{PermLeaveView, PermLeaveRequest, PermNoticesView})
	if err != nil {
		t.Fatalf("bulk revoke failed: %v", err)
	}
	if len(result.Applied) != 2 || len(result.Skipped) != 1 {
		t.Fatalf("unexpected result: applied=%v skipped=%v", result.Applied, result.Skipped)
	}
	if held := store.held("employee"); len(held) != 0 {
		t.Fatalf("expected empty set, got %v", held)
	}
}

func TestBulkPartialFailureEnumerates(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()
	store.failGrant[PermLeaveRequest] = errors.New("connection reset")

	_, err := svc.BulkUpdate(ctx, adminActor, auth.RoleEmployee, BulkGrant, []string{PermLeaveView, PermLeaveRequest, PermNoticesView})
	var partial *PartialFailureError
	if !errors.As(err, &partial) {
		t.Fatalf("expected partial failure error, got %v", err)
	}
	if len(partial.Applied) != 2 {
		t.Fatalf("expected 2 applied, got %v", partial.Applied)
	}
	if got := partial.FailedIDs(); len(got) != 1 || got[0] != PermLeaveRequest {
		t.Fatalf("expected %s failed, got %v", PermLeaveRequest, got)
	}
}

func TestApplyTemplateReplacesExactly(t *testing.T) {
	svc, store, sink := newTestService()
	ctx := context.Background()
	store.seed("hr", PermUsersManage, PermAuditView)

	tpl, _ := TemplateByID(TemplateViewOnly)
	if _, err := svc.ApplyTemplate(ctx, adminActor, auth.RoleHR, TemplateViewOnly); err != nil {
		t.Fatalf("apply template failed: %v", err)
	}

	held := store.held("hr")
	want := append([]string(nil), tpl.PermissionIDs...)
	sort.Strings(want)
	if len(held) != len(want) {
		t.Fatalf("expected %v, got %v", want, held)
	}
	for i := range want {
		if held[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, held)
		}
	}

	if entries := sink.withAction(audit.ActionModified); len(entries) != 1 {
		t.Fatalf("expected 1 summary audit entry, got %d", len(entries))
	}
}

func TestApplyTemplateUnknownID(t *testing.T) {
	svc, store, _ := newTestService()
	store.seed("hr", PermUsersManage)

	_, err := svc.ApplyTemplate(context.Background(), adminActor, auth.RoleHR, "no-such-template")
	if !IsNotFound(err) {
		t.Fatalf("expected not found error, got %v", err)
	}
	if held := store.held("hr"); len(held) != 1 {
		t.Fatalf("expected grants untouched, got %v", held)
	}
}

func TestCopyPermissions(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()
	store.seed("manager", PermLeaveView, PermLeaveApprove)
	store.seed("supervisor", PermNoticesView)

	if _, err := svc.CopyPermissions(ctx, adminActor, auth.RoleManager, auth.RoleSupervisor); err != nil {
		t.Fatalf("copy failed: %v", err)
	}

	source := store.held("manager")
	target := store.held("supervisor")
	if len(source) != len(target) {
		t.Fatalf("copy mismatch: source=%v target=%v", source, target)
	}
	for i := range source {
		if source[i] != target[i] {
			t.Fatalf("copy mismatch: source=%v target=%v", source, target)
		}
	}
}

func TestCopyFromAdminGrantsWholeCatalog(t *testing.T) {
	svc, store, _ := newTestService()

	if _, err := svc.CopyPermissions(context.Background(), adminActor, auth.RoleAdmin, auth.RoleDirector); err != nil {
		t.Fatalf("copy failed: %v", err)
	}
	if held := store.held("director"); len(held) != len(store.catalog) {
		t.Fatalf("expected %d permissions, got %d", len(store.catalog), len(held))
	}
}

func TestCopySameRoleRejected(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.CopyPermissions(context.Background(), adminActor, auth.RoleHR, auth.RoleHR)
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExportCoversKnownRolesAndSkipsAdmin(t *testing.T) {
	svc, store, _ := newTestService()
	store.seed("employee", PermLeaveView)
	store.seed("admin", PermLeaveView)

	doc, err := svc.Export(context.Background(), adminActor)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if doc.ExportedAt.IsZero() {
		t.Fatal("expected export timestamp")
	}
	if _, ok := doc.Roles["admin"]; ok {
		t.Fatal("admin must not be exported")
	}
	for _, role := range []string{"director", "hr", "manager", "supervisor", "employee"} {
		if _, ok := doc.Roles[role]; !ok {
			t.Fatalf("expected role %s in export", role)
		}
	}
	if got := doc.Roles["employee"]; len(got) != 1 || got[0] != PermLeaveView {
		t.Fatalf("unexpected employee export: %v", got)
	}
}

func TestImportValidatesBeforeWriting(t *testing.T) {
	svc, store, _ := newTestService()
	store.seed("employee", PermLeaveView)

	doc := ExportDocument{Roles: map[string][]string{
		"employee": {PermLeaveView, "ghost.permission"},
	}}
	_, err := svc.Import(context.Background(), adminActor, doc)
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if held := store.held("employee"); len(held) != 1 {
		t.Fatalf("expected grants untouched, got %v", held)
	}

	doc = ExportDocument{Roles: map[string][]string{"admin": {PermLeaveView}}}
	if _, err := svc.Import(context.Background(), adminActor, doc); !IsValidation(err) {
		t.Fatalf("expected validation error for admin target, got %v", err)
	}

	if _, err := svc.Import(context.Background(), adminActor, ExportDocument{}); !IsValidation(err) {
		t.Fatalf("expected validation error for empty document, got %v", err)
	}
}

func TestImportReplacesNamedRolesOnly(t *testing.T) {
	svc, store, sink := newTestService()
	store.seed("employee", PermNoticesView)
	store.seed("manager", PermLeaveApprove)

	doc := ExportDocument{Roles: map[string][]string{
		"employee": {PermLeaveView, PermLeaveRequest},
	}}
	result, err := svc.Import(context.Background(), adminActor, doc)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}

	held := store.held("employee")
	if len(held) != 2 || held[0] != PermLeaveRequest || held[1] != PermLeaveView {
		t.Fatalf("unexpected employee grants: %v", held)
	}
	if got := store.held("manager"); len(got) != 1 || got[0] != PermLeaveApprove {
		t.Fatalf("manager must be untouched, got %v", got)
	}

	replaced, ok := result.Roles["employee"]
	if !ok || len(replaced.Added) != 2 || len(replaced.Removed) != 1 {
		t.Fatalf("unexpected import result: %+v", result)
	}
	if entries := sink.withAction(audit.ActionModified); len(entries) != 2 {
		t.Fatalf("expected per-role and summary audit entries, got %d", len(entries))
	}
}

func TestImportNormalizesRoleNames(t *testing.T) {
	svc, store, _ := newTestService()
	store.seed("manager", PermLeaveApprove)

	doc := ExportDocument{Roles: map[string][]string{
		" Manager ": {PermLeaveView, PermLeaveRequest},
	}}
	result, err := svc.Import(context.Background(), adminActor, doc)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}

	held := store.held("manager")
	if len(held) != 2 || held[0] != PermLeaveRequest || held[1] != PermLeaveView {
		t.Fatalf("unexpected manager grants: %v", held)
	}
	for role := range store.grants {
		if role != "manager" {
			t.Fatalf("stray rows written under %q", role)
		}
	}
	if _, ok := result.Roles["manager"]; !ok {
		t.Fatalf("expected normalized role key in result, got %v", result.Roles)
	}
}

func TestImportRejectsDuplicateRoleNames(t *testing.T) {
	svc, store, _ := newTestService()
	store.seed("manager", PermLeaveApprove)

	doc := ExportDocument{Roles: map[string][]string{
		"manager": {PermLeaveView},
		"Manager": {PermLeaveRequest},
	}}
	if _, err := svc.Import(context.Background(), adminActor, doc); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if held := store.held("manager"); len(held) != 1 || held[0] != PermLeaveApprove {
		t.Fatalf("expected grants untouched, got %v", held)
	}
}

func TestListForRoleAdminIsWholeCatalog(t *testing.T) {
	svc, store, _ := newTestService()

	ids, err := svc.ListForRole(context.Background(), adminActor, auth.RoleAdmin)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(ids) != len(store.catalog) {
		t.Fatalf("expected %d ids, got %d", len(store.catalog), len(ids))
	}
}

func TestListAllIncludesEmptyKnownRoles(t *testing.T) {
	svc, store, _ := newTestService()
	store.seed("employee", PermLeaveView)

	all, err := svc.ListAll(context.Background(), adminActor)
	if err != nil {
		t.Fatalf("list all failed: %v", err)
	}
	if _, ok := all["supervisor"]; !ok {
		t.Fatal("expected empty supervisor entry")
	}
	if _, ok := all["admin"]; ok {
		t.Fatal("admin must not appear in assignments")
	}
}
