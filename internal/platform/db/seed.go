package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"hradmin/internal/domain/auth"
	"hradmin/internal/domain/rbac"
	"hradmin/internal/platform/config"
)

// defaultTemplates maps each editable known role to the template seeding
// its initial grants. Admin is absent: its grant is implicit.
var defaultTemplates = map[string]string{
	auth.RoleDirector.String():   rbac.TemplateFullAccess,
	auth.RoleHR.String():         rbac.TemplateFullAccess,
	auth.RoleManager.String():    rbac.TemplateManager,
	auth.RoleSupervisor.String(): rbac.TemplateManager,
	auth.RoleEmployee.String():   rbac.TemplateStandard,
}

func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if err := ensurePermissions(ctx, pool); err != nil {
		return err
	}
	if err := ensureRolePermissions(ctx, pool); err != nil {
		return err
	}
	if cfg.SeedAdminEmail != "" {
		if err := ensureAdminUser(ctx, pool, cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
			return err
		}
	}
	return nil
}

func ensurePermissions(ctx context.Context, pool *pgxpool.Pool) error {
	for _, perm := range rbac.DefaultCatalog() {
		_, err := pool.Exec(ctx, `
      INSERT INTO permissions (id, name, description, category)
      VALUES ($1, $2, $3, $4)
      ON CONFLICT (id) DO NOTHING
    `, perm.ID, perm.Name, perm.Description, perm.Category)
		if err != nil {
			return fmt.Errorf("seed permission %s: %w", perm.ID, err)
		}
	}
	return nil
}

func ensureRolePermissions(ctx context.Context, pool *pgxpool.Pool) error {
	for role, templateID := range defaultTemplates {
		var count int
		if err := pool.QueryRow(ctx, "SELECT COUNT(1) FROM role_permissions WHERE role = $1", role).Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		tpl, ok := rbac.TemplateByID(templateID)
		if !ok {
			return fmt.Errorf("seed role %s: unknown template %s", role, templateID)
		}
		for _, permissionID := range tpl.PermissionIDs {
			_, err := pool.Exec(ctx, `
        INSERT INTO role_permissions (role, permission_id)
        VALUES ($1, $2)
        ON CONFLICT (role, permission_id) DO NOTHING
      `, role, permissionID)
			if err != nil {
				return fmt.Errorf("seed role %s permission %s: %w", role, permissionID, err)
			}
		}
	}
	return nil
}

func ensureAdminUser(ctx context.Context, pool *pgxpool.Pool, email, password string) error {
	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(1) FROM users WHERE email = $1", email).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if password == "" {
		return fmt.Errorf("seed admin user %s: SEED_ADMIN_PASSWORD is empty", email)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = pool.Exec(ctx, `
    INSERT INTO users (email, password_hash, role, status)
    VALUES ($1, $2, $3, 'active')
  `, email, hash, auth.RoleAdmin.String())
	return err
}
