package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/kongrex/regdesk/internal/services"
)

// Every endpoint answers the same envelope: {"success": true, ...} on the
// happy path, {"success": false, "error": "..."} otherwise.

func respond(w http.ResponseWriter, code int, payload map[string]any) {
	if payload == nil {
		payload = map[string]any{}
	}
	if _, ok := payload["success"]; !ok {
		payload["success"] = code < 400
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func fail(w http.ResponseWriter, code int, msg string) {
	respond(w, code, map[string]any{"success": false, "error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		fail(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// pageParams reads ?page=&limit= with sane bounds.
func pageParams(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 200 {
		limit = 20
	}
	return page, limit
}

func totalPages(total int64, limit int) int {
	pages := int((total + int64(limit) - 1) / int64(limit))
	if pages < 1 {
		pages = 1
	}
	return pages
}

// auditCtx captures who did what from the request for the audit trail.
func auditCtx(r *http.Request) services.AuditContext {
	return services.AuditContext{
		UserID:    r.Header.Get("X-Admin-User"),
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}
}
