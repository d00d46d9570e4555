package rbac

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) ListPermissions(ctx context.Context, filter CatalogFilter) ([]Permission, error) {
	query := "SELECT id, name, description, category FROM permissions"
	var args []any
	var where []string
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	if category := strings.TrimSpace(filter.Category); category != "" && category != "all" {
		args = append(args, category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY category ASC, name ASC"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Permission
	for rows.Next() {
		var perm Permission
		if err := rows.Scan(&perm.ID, &perm.Name, &perm.Description, &perm.Category); err != nil {
			return nil, err
		}
		out = append(out, perm)
	}
	return out, rows.Err()
}

func (s *Store) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := s.DB.Query(ctx, "SELECT DISTINCT category FROM permissions ORDER BY category ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, err
		}
		out = append(out, category)
	}
	return out, rows.Err()
}

func (s *Store) PermissionExists(ctx context.Context, permissionID string) (bool, error) {
	var count int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM permissions WHERE id = $1", permissionID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) CatalogIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.DB.Query(ctx, "SELECT id FROM permissions")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

func (s *Store) HasPermission(ctx context.Context, role, permissionID string) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM role_permissions
    WHERE role = $1 AND permission_id = $2
  `, role, permissionID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) ListForRole(ctx context.Context, role string) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT permission_id
    FROM role_permissions
    WHERE role = $1
    ORDER BY permission_id ASC
  `, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) ListAll(ctx context.Context) (map[string][]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT role, permission_id
    FROM role_permissions
    ORDER BY role ASC, permission_id ASC
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var role, id string
		if err := rows.Scan(&role, &id); err != nil {
			return nil, err
		}
		out[role] = append(out[role], id)
	}
	return out, rows.Err()
}

func (s *Store) Grant(ctx context.Context, role, permissionID string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    INSERT INTO role_permissions (role, permission_id)
    VALUES ($1, $2)
    ON CONFLICT (role, permission_id) DO NOTHING
  `, role, permissionID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) Revoke(ctx context.Context, role, permissionID string) (bool, error) {
	tag, err := s.DB.Exec(ctx, "DELETE FROM role_permissions WHERE role = $1 AND permission_id = $2", role, permissionID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ReplaceRolePermissions applies the replace as a computed diff inside one
// transaction. A per-role advisory lock serializes overlapping replace-all
// operations so they cannot interleave into a mixed final state.
func (s *Store) ReplaceRolePermissions(ctx context.Context, role string, permissionIDs []string) (ReplaceResult, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return ReplaceResult{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext('role_permissions:' || $1::text))", role); err != nil {
		return ReplaceResult{}, err
	}

	rows, err := tx.Query(ctx, "SELECT permission_id FROM role_permissions WHERE role = $1", role)
	if err != nil {
		return ReplaceResult{}, err
	}
	current := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return ReplaceResult{}, err
		}
		current[id] = struct{}{}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return ReplaceResult{}, err
	}

	desired := make(map[string]struct{}, len(permissionIDs))
	for _, id := range permissionIDs {
		desired[id] = struct{}{}
	}

	var result ReplaceResult
	for id := range desired {
		if _, ok := current[id]; !ok {
			result.Added = append(result.Added, id)
		}
	}
	for id := range current {
		if _, ok := desired[id]; !ok {
			result.Removed = append(result.Removed, id)
		}
	}
	sort.Strings(result.Added)
	sort.Strings(result.Removed)

	if len(result.Removed) > 0 {
		if _, err := tx.Exec(ctx, "DELETE FROM role_permissions WHERE role = $1 AND permission_id = ANY($2)", role, result.Removed); err != nil {
			return ReplaceResult{}, err
		}
	}
	for _, id := range result.Added {
		if _, err := tx.Exec(ctx, "INSERT INTO role_permissions (role, permission_id) VALUES ($1, $2)", role, id); err != nil {
			return ReplaceResult{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return ReplaceResult{}, err
	}
	return result, nil
}
