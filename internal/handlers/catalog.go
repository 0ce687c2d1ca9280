package handlers

import (
	"net/http"

	"github.com/kongrex/regdesk/internal/db"
	"github.com/kongrex/regdesk/internal/models"
)

func Health(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]any{"status": "ok"})
}

// GET /api/categories is what the wizard renders: visible, active categories
// with their active types, in display order.
func ListCategories(w http.ResponseWriter, r *http.Request) {
	var cats []models.Category
	err := db.Conn().
		Where("is_visible = ? AND is_active = ?", true, true).
		Preload("Types", "is_active = ?", true).
		Order("display_order asc, id asc").
		Find(&cats).Error
	if err != nil {
		fail(w, http.StatusInternalServerError, "db error")
		return
	}
	respond(w, http.StatusOK, map[string]any{"data": cats})
}
