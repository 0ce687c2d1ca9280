package handlers

import (
	"net/http"

	"github.com/kongrex/regdesk/internal/db"
	"github.com/kongrex/regdesk/internal/models"
)

// GET /api/admin/pos-logs?page=&limit=&registration_id=&status=
// Read-only view over the append-only gateway transaction log.
func AdminListPOSLogs(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)

	q := db.Conn().Model(&models.PaymentTransaction{})
	if id := r.URL.Query().Get("registration_id"); id != "" {
		q = q.Where("registration_id = ?", id)
	}
	if s := r.URL.Query().Get("status"); s != "" {
		q = q.Where("status = ?", s)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		fail(w, http.StatusInternalServerError, "db error")
		return
	}

	var rows []models.PaymentTransaction
	if err := q.Order("created_at desc, id desc").
		Offset((page - 1) * limit).Limit(limit).
		Find(&rows).Error; err != nil {
		fail(w, http.StatusInternalServerError, "db error")
		return
	}

	respond(w, http.StatusOK, map[string]any{
		"data":        rows,
		"currentPage": page,
		"totalPages":  totalPages(total, limit),
	})
}
