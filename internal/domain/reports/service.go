package reports

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"hradmin/internal/domain/auth"
	"hradmin/internal/domain/rbac"
)

// Engine is the slice of the permission engine the report needs.
type Engine interface {
	ListPermissions(ctx context.Context, actor auth.Actor, filter rbac.CatalogFilter) ([]rbac.Permission, error)
	ListAll(ctx context.Context, actor auth.Actor) (map[string][]string, error)
}

type Service struct {
	Engine Engine
}

func NewService(engine Engine) *Service {
	return &Service{Engine: engine}
}

// PermissionMatrixPDF renders the role×permission matrix for compliance
// review, grouped by category. Admin is shown with every permission since
// its grant is implicit.
func (s *Service) PermissionMatrixPDF(ctx context.Context, actor auth.Actor) ([]byte, error) {
	perms, err := s.Engine.ListPermissions(ctx, actor, rbac.CatalogFilter{})
	if err != nil {
		return nil, err
	}
	assignments, err := s.Engine.ListAll(ctx, actor)
	if err != nil {
		return nil, err
	}

	granted := make(map[string]map[string]bool, len(assignments))
	for role, ids := range assignments {
		set := make(map[string]bool, len(ids))
		for _, id := range ids {
			set[id] = true
		}
		granted[role] = set
	}

	roles := auth.KnownRoles()

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(120, 8, "Role Permission Matrix")
	pdf.SetFont("Helvetica", "", 9)
	pdf.Cell(0, 8, fmt.Sprintf("Generated %s", time.Now().UTC().Format("2006-01-02 15:04 UTC")))
	pdf.Ln(12)

	const nameWidth = 90.0
	const roleWidth = 28.0

	writeHeader := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(nameWidth, 7, "Permission", "1", 0, "L", false, 0, "")
		for _, role := range roles {
			pdf.CellFormat(roleWidth, 7, role.String(), "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
	}

	category := ""
	headerWritten := false
	for _, perm := range perms {
		if pdf.GetY() > 180 {
			pdf.AddPage()
			headerWritten = false
		}
		if perm.Category != category {
			category = perm.Category
			pdf.SetFont("Helvetica", "B", 10)
			pdf.CellFormat(0, 7, category, "", 1, "L", false, 0, "")
			headerWritten = false
		}
		if !headerWritten {
			writeHeader()
			headerWritten = true
		}

		pdf.CellFormat(nameWidth, 6, fmt.Sprintf("%s (%s)", perm.Name, perm.ID), "1", 0, "L", false, 0, "")
		for _, role := range roles {
			mark := ""
			if role.IsAdmin() || granted[role.String()][perm.ID] {
				mark = "x"
			}
			pdf.CellFormat(roleWidth, 6, mark, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
