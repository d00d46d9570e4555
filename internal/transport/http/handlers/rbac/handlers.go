package rbachandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hradmin/internal/domain/auth"
	"hradmin/internal/domain/rbac"
	"hradmin/internal/transport/http/api"
	"hradmin/internal/transport/http/middleware"
)

// Engine is the permission engine surface this handler exposes.
type Engine interface {
	ListPermissions(ctx context.Context, actor auth.Actor, filter rbac.CatalogFilter) ([]rbac.Permission, error)
	ListCategories(ctx context.Context, actor auth.Actor) ([]string, error)
	ListTemplates(actor auth.Actor) ([]rbac.Template, error)
	ListForRole(ctx context.Context, actor auth.Actor, role auth.Role) ([]string, error)
	ListAll(ctx context.Context, actor auth.Actor) (map[string][]string, error)
	Grant(ctx context.Context, actor auth.Actor, role auth.Role, permissionID string) (bool, error)
	Revoke(ctx context.Context, actor auth.Actor, role auth.Role, permissionID string) (bool, error)
	Toggle(ctx context.Context, actor auth.Actor, role auth.Role, permissionID string) (bool, error)
	BulkUpdate(ctx context.Context, actor auth.Actor, role auth.Role, action rbac.BulkAction, permissionIDs []string) (rbac.BulkResult, error)
	ApplyTemplate(ctx context.Context, actor auth.Actor, role auth.Role, templateID string) (rbac.ReplaceResult, error)
	CopyPermissions(ctx context.Context, actor auth.Actor, source, target auth.Role) (rbac.ReplaceResult, error)
	Export(ctx context.Context, actor auth.Actor) (rbac.ExportDocument, error)
	Import(ctx context.Context, actor auth.Actor, doc rbac.ExportDocument) (rbac.ImportResult, error)
}

type Handler struct {
	Engine Engine
}

func NewHandler(engine Engine) *Handler {
	return &Handler{Engine: engine}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/permissions", func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Get("/", h.handleListPermissions)
		r.Get("/categories", h.handleListCategories)
		r.Get("/templates", h.handleListTemplates)
		r.Get("/export", h.handleExport)
		r.Post("/import", h.handleImport)
	})

	r.Route("/roles", func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Get("/", h.handleListAll)
		r.Route("/{role}", func(r chi.Router) {
			r.Get("/permissions", h.handleListForRole)
			r.Put("/permissions/{permissionID}", h.handleGrant)
			r.Delete("/permissions/{permissionID}", h.handleRevoke)
			r.Post("/permissions/{permissionID}/toggle", h.handleToggle)
			r.Post("/permissions/bulk", h.handleBulk)
			r.Post("/template", h.handleApplyTemplate)
			r.Post("/copy", h.handleCopy)
		})
	})
}

type bulkRequest struct {
	Action        string   `json:"action"`
	PermissionIDs []string `json:"permissionIds"`
}

type templateRequest struct {
	TemplateID string `json:"templateId"`
}

type copyRequest struct {
	SourceRole string `json:"sourceRole"`
}

func (h *Handler) handleListPermissions(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	filter := rbac.CatalogFilter{
		Search:   r.URL.Query().Get("search"),
		Category: r.URL.Query().Get("category"),
	}
	perms, err := h.Engine.ListPermissions(r.Context(), actor, filter)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	if perms == nil {
		perms = []rbac.Permission{}
	}
	api.Success(w, perms, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	categories, err := h.Engine.ListCategories(r.Context(), actor)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	if categories == nil {
		categories = []string{}
	}
	api.Success(w, categories, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	templates, err := h.Engine.ListTemplates(actor)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	api.Success(w, templates, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListAll(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	all, err := h.Engine.ListAll(r.Context(), actor)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	api.Success(w, all, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListForRole(w http.ResponseWriter, r *http.Request) {
	actor, role, ok := h.actorAndRole(w, r)
	if !ok {
		return
	}

	ids, err := h.Engine.ListForRole(r.Context(), actor, role)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	api.Success(w, map[string]any{"role": role.String(), "permissionIds": ids}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGrant(w http.ResponseWriter, r *http.Request) {
	actor, role, ok := h.actorAndRole(w, r)
	if !ok {
		return
	}

	permissionID := chi.URLParam(r, "permissionID")
	changed, err := h.Engine.Grant(r.Context(), actor, role, permissionID)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	api.Success(w, map[string]any{"role": role.String(), "permissionId": permissionID, "granted": true, "changed": changed}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	actor, role, ok := h.actorAndRole(w, r)
	if !ok {
		return
	}

	permissionID := chi.URLParam(r, "permissionID")
	changed, err := h.Engine.Revoke(r.Context(), actor, role, permissionID)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	api.Success(w, map[string]any{"role": role.String(), "permissionId": permissionID, "granted": false, "changed": changed}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleToggle(w http.ResponseWriter, r *http.Request) {
	actor, role, ok := h.actorAndRole(w, r)
	if !ok {
		return
	}

	permissionID := chi.URLParam(r, "permissionID")
	granted, err := h.Engine.Toggle(r.Context(), actor, role, permissionID)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	api.Success(w, map[string]any{"role": role.String(), "permissionId": permissionID, "granted": granted}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleBulk(w http.ResponseWriter, r *http.Request) {
	actor, role, ok := h.actorAndRole(w, r)
	if !ok {
		return
	}

	var payload bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	result, err := h.Engine.BulkUpdate(r.Context(), actor, role, rbac.BulkAction(payload.Action), payload.PermissionIDs)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleApplyTemplate(w http.ResponseWriter, r *http.Request) {
	actor, role, ok := h.actorAndRole(w, r)
	if !ok {
		return
	}

	var payload templateRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	result, err := h.Engine.ApplyTemplate(r.Context(), actor, role, payload.TemplateID)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	api.Success(w, map[string]any{"role": role.String(), "templateId": payload.TemplateID, "added": result.Added, "removed": result.Removed}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCopy(w http.ResponseWriter, r *http.Request) {
	actor, target, ok := h.actorAndRole(w, r)
	if !ok {
		return
	}

	var payload copyRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	source, err := auth.ParseRole(payload.SourceRole)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_role", "invalid source role", middleware.GetRequestID(r.Context()))
		return
	}

	result, err := h.Engine.CopyPermissions(r.Context(), actor, source, target)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	api.Success(w, map[string]any{"sourceRole": source.String(), "targetRole": target.String(), "added": result.Added, "removed": result.Removed}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	doc, err := h.Engine.Export(r.Context(), actor)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}

	filename := fmt.Sprintf("role-permissions-%s.json", doc.ExportedAt.Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	// The status and part of the body may already be on the wire; a Fail
	// envelope here would corrupt the download.
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		slog.Warn("write export failed", "err", err, "requestId", middleware.GetRequestID(r.Context()))
	}
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var doc rbac.ExportDocument
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid import document", middleware.GetRequestID(r.Context()))
		return
	}

	result, err := h.Engine.Import(r.Context(), actor, doc)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) actorAndRole(w http.ResponseWriter, r *http.Request) (auth.Actor, auth.Role, bool) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return auth.Actor{}, auth.Role{}, false
	}
	role, err := auth.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_role", "invalid role identifier", middleware.GetRequestID(r.Context()))
		return auth.Actor{}, auth.Role{}, false
	}
	return actor, role, true
}

func writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())

	var authzErr *rbac.AuthorizationError
	if errors.As(err, &authzErr) {
		api.Fail(w, http.StatusForbidden, "forbidden", authzErr.Error(), requestID)
		return
	}

	var notFoundErr *rbac.NotFoundError
	if errors.As(err, &notFoundErr) {
		api.Fail(w, http.StatusNotFound, "not_found", notFoundErr.Error(), requestID)
		return
	}

	var validationErr *rbac.ValidationError
	if errors.As(err, &validationErr) {
		api.FailWithDetails(w, http.StatusBadRequest, "validation_error", validationErr.Reason, map[string]any{"fields": validationErr.Fields}, requestID)
		return
	}

	var partialErr *rbac.PartialFailureError
	if errors.As(err, &partialErr) {
		failures := make([]map[string]string, 0, len(partialErr.Failed))
		for _, item := range partialErr.Failed {
			failures = append(failures, map[string]string{"id": item.ID, "reason": item.Err.Error()})
		}
		api.FailWithDetails(w, http.StatusConflict, "partial_failure", partialErr.Error(), map[string]any{
			"applied": partialErr.Applied,
			"failed":  failures,
		}, requestID)
		return
	}

	api.Fail(w, http.StatusInternalServerError, "store_error", "operation failed", requestID)
}
