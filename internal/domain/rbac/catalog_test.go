package rbac

import "testing"

func TestCatalogIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, perm := range DefaultCatalog() {
		if perm.ID == "" || perm.Name == "" || perm.Category == "" {
			t.Fatalf("incomplete catalog entry: %+v", perm)
		}
		if seen[perm.ID] {
			t.Fatalf("duplicate permission id %s", perm.ID)
		}
		seen[perm.ID] = true
	}
}

func TestCatalogCategoriesAreKnown(t *testing.T) {
	known := map[string]bool{
		CategoryEmployees: true,
		CategoryLeave:     true,
		CategoryIncidents: true,
		CategoryNotices:   true,
		CategoryReports:   true,
		CategorySystem:    true,
	}
	for _, perm := range DefaultCatalog() {
		if !known[perm.Category] {
			t.Fatalf("permission %s has unknown category %s", perm.ID, perm.Category)
		}
	}
}

func TestTemplatesReferenceCatalogIDs(t *testing.T) {
	catalog := make(map[string]bool)
	for _, perm := range DefaultCatalog() {
		catalog[perm.ID] = true
	}

	seen := make(map[string]bool)
	for _, tpl := range Templates() {
		if seen[tpl.ID] {
			t.Fatalf("duplicate template id %s", tpl.ID)
		}
		seen[tpl.ID] = true
		if len(tpl.PermissionIDs) == 0 {
			t.Fatalf("template %s is empty", tpl.ID)
		}

		ids := make(map[string]bool)
		for _, id := range tpl.PermissionIDs {
			if !catalog[id] {
				t.Fatalf("template %s references unknown permission %s", tpl.ID, id)
			}
			if ids[id] {
				t.Fatalf("template %s repeats permission %s", tpl.ID, id)
			}
			ids[id] = true
		}
	}
}

func TestFullAccessTemplateCoversCatalog(t *testing.T) {
	tpl, ok := TemplateByID(TemplateFullAccess)
	if !ok {
		t.Fatal("full access template missing")
	}
	if len(tpl.PermissionIDs) != len(DefaultCatalog()) {
		t.Fatalf("full access template has %d ids, catalog has %d", len(tpl.PermissionIDs), len(DefaultCatalog()))
	}
}

func TestTemplateByIDUnknown(t *testing.T) {
	if _, ok := TemplateByID("no-such-template"); ok {
		t.Fatal("expected lookup to miss")
	}
}
