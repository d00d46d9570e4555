package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	ActionAdded    = "added"
	ActionRemoved  = "removed"
	ActionModified = "modified"
)

// Entry is one mutation to record. PermissionID is empty for summary
// entries covering a bulk, template, copy, or import operation.
type Entry struct {
	PermissionID string
	Role         string
	Action       string
	Details      string
}

// Event is a stored audit log row.
type Event struct {
	ID           string    `json:"id"`
	PermissionID string    `json:"permissionId,omitempty"`
	Role         string    `json:"role"`
	Action       string    `json:"action"`
	Details      string    `json:"details"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Filter struct {
	Role   string
	Action string
}

type Service struct {
	DB *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Service {
	return &Service{DB: db}
}

// Record appends one entry. The log is append-only; rows are never updated
// or deleted.
func (s *Service) Record(ctx context.Context, entry Entry) error {
	var permissionID *string
	if entry.PermissionID != "" {
		permissionID = &entry.PermissionID
	}
	_, err := s.DB.Exec(ctx, `
    INSERT INTO permission_audit_log (permission_id, role, action, details)
    VALUES ($1, $2, $3, $4)
  `, permissionID, entry.Role, entry.Action, entry.Details)
	return err
}

func (s *Service) Count(ctx context.Context, filter Filter) (int, error) {
	query, args := s.buildBaseQuery("SELECT COUNT(1)", filter)
	var total int
	if err := s.DB.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// List returns events newest first.
func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]Event, error) {
	query, args := s.buildBaseQuery("SELECT id, COALESCE(permission_id, ''), role, action, details, created_at", filter)
	limitPos := len(args) + 1
	offsetPos := len(args) + 2
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", limitPos, offsetPos)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var evt Event
		if err := rows.Scan(&evt.ID, &evt.PermissionID, &evt.Role, &evt.Action, &evt.Details, &evt.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

func (s *Service) ListExport(ctx context.Context) ([]Event, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, COALESCE(permission_id, ''), role, action, details, created_at
    FROM permission_audit_log
    ORDER BY created_at DESC, id DESC
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var evt Event
		if err := rows.Scan(&evt.ID, &evt.PermissionID, &evt.Role, &evt.Action, &evt.Details, &evt.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

func (s *Service) buildBaseQuery(prefix string, filter Filter) (string, []any) {
	query := prefix + " FROM permission_audit_log"
	var args []any
	var where string
	if filter.Role != "" {
		args = append(args, filter.Role)
		where = fmt.Sprintf(" WHERE role = $%d", len(args))
	}
	if filter.Action != "" {
		args = append(args, filter.Action)
		if where == "" {
			where = fmt.Sprintf(" WHERE action = $%d", len(args))
		} else {
			where += fmt.Sprintf(" AND action = $%d", len(args))
		}
	}
	return query + where, args
}
