package handler

import (
	"net/http"
	"strconv"
	"strings"

	"petromanage/internal/model"
	"petromanage/internal/service"
	"petromanage/pkg/identity"
)

type AuditHandler struct {
	service *service.AuditService
}

func NewAuditHandler(service *service.AuditService) *AuditHandler {
	return &AuditHandler{service: service}
}

// List answers GET /auth/audit. Only admins may read the trail.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity.FromContext(r.Context())
	if !ok || !strings.EqualFold(caller.Role, "admin") {
		writeError(w, model.WithMessage(model.ErrRoleMismatch, "admin role required"), http.StatusForbidden)
		return
	}

	query := r.URL.Query()
	items, meta, err := h.service.Query(r.Context(), model.AuditQuery{
		Action: query.Get("action"),
		Email:  query.Get("email"),
		Status: query.Get("status"),
		From:   query.Get("from"),
		To:     query.Get("to"),
		Page:   parseIntOrDefault(query.Get("page"), 1),
		Limit:  parseIntOrDefault(query.Get("limit"), 50),
	})
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, model.AuditListResponse{Items: items, Meta: meta})
}

func parseIntOrDefault(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return value
}
