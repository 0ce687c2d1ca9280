package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/kongrex/regdesk/internal/db"
	"github.com/kongrex/regdesk/internal/models"
	"github.com/kongrex/regdesk/internal/services"
)

// GET /api/admin/categories
func AdminListCategories(w http.ResponseWriter, r *http.Request) {
	var cats []models.Category
	if err := db.Conn().Preload("Types").Order("display_order asc, id asc").Find(&cats).Error; err != nil {
		fail(w, http.StatusInternalServerError, "db error")
		return
	}
	respond(w, http.StatusOK, map[string]any{"data": cats})
}

// GET /api/admin/categories/{id}
func AdminGetCategory(w http.ResponseWriter, r *http.Request) {
	var cat models.Category
	err := db.Conn().Preload("Types").First(&cat, chi.URLParam(r, "id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fail(w, http.StatusNotFound, "category not found")
		return
	}
	if err != nil {
		fail(w, http.StatusInternalServerError, "db error")
		return
	}
	respond(w, http.StatusOK, map[string]any{"data": cat})
}

type categoryBody struct {
	NameTR               string  `json:"name_tr" validate:"required"`
	NameEN               string  `json:"name_en"`
	IsRequired           bool    `json:"is_required"`
	AllowMultiple        bool    `json:"allow_multiple"`
	IsVisible            *bool   `json:"is_visible"`
	IsActive             *bool   `json:"is_active"`
	DisplayOrder         int     `json:"display_order"`
	Capacity             int     `json:"capacity" validate:"gte=0"`
	RegistrationStart    *string `json:"registration_start"`
	RegistrationEnd      *string `json:"registration_end"`
	EarlyBirdDeadline    *string `json:"early_bird_deadline"`
	CancellationDeadline *string `json:"cancellation_deadline"`
}

func (b categoryBody) apply(cat *models.Category) error {
	cat.NameTR = b.NameTR
	cat.NameEN = b.NameEN
	cat.IsRequired = b.IsRequired
	cat.AllowMultiple = b.AllowMultiple
	cat.DisplayOrder = b.DisplayOrder
	cat.Capacity = b.Capacity
	if b.IsVisible != nil {
		cat.IsVisible = *b.IsVisible
	}
	if b.IsActive != nil {
		cat.IsActive = *b.IsActive
	}
	for _, f := range []struct {
		raw *string
		dst **time.Time
	}{
		{b.RegistrationStart, &cat.RegistrationStart},
		{b.RegistrationEnd, &cat.RegistrationEnd},
		{b.EarlyBirdDeadline, &cat.EarlyBirdDeadline},
		{b.CancellationDeadline, &cat.CancellationDeadline},
	} {
		if f.raw == nil {
			continue
		}
		if *f.raw == "" {
			*f.dst = nil
			continue
		}
		t, err := time.Parse(time.RFC3339, *f.raw)
		if err != nil {
			return fmt.Errorf("invalid date %q (use RFC3339)", *f.raw)
		}
		*f.dst = &t
	}
	return nil
}

// POST /api/admin/categories
func AdminCreateCategory(w http.ResponseWriter, r *http.Request) {
	var body categoryBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := validate.Struct(body); err != nil {
		fail(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}

	cat := models.Category{IsVisible: true, IsActive: true}
	if err := body.apply(&cat); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := db.Conn().Create(&cat).Error; err != nil {
		fail(w, http.StatusInternalServerError, "db error")
		return
	}

	services.RecordAudit(db.Conn(), auditCtx(r), "categories", cat.ID,
		models.AuditActionCreate, nil, services.Snapshot(cat))
	respond(w, http.StatusCreated, map[string]any{"data": cat})
}

// PUT /api/admin/categories/{id}
func AdminUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var cat models.Category
	err := db.Conn().First(&cat, chi.URLParam(r, "id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fail(w, http.StatusNotFound, "category not found")
		return
	}
	if err != nil {
		fail(w, http.StatusInternalServerError, "db error")
		return
	}

	var body categoryBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := validate.Struct(body); err != nil {
		fail(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}

	oldSnap := services.Snapshot(cat)
	if err := body.apply(&cat); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := db.Conn().Save(&cat).Error; err != nil {
		fail(w, http.StatusInternalServerError, "db error")
		return
	}

	services.RecordAudit(db.Conn(), auditCtx(r), "categories", cat.ID,
		models.AuditActionUpdate, oldSnap, services.Snapshot(cat))
	respond(w, http.StatusOK, map[string]any{"data": cat})
}

// DELETE /api/admin/categories/{id}
// Refused while any registration type still belongs to the category; the
// back office soft-disables instead.
func AdminDeleteCategory(w http.ResponseWriter, r *http.Request) {
	var cat models.Category
	err := db.Conn().First(&cat, chi.URLParam(r, "id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fail(w, http.StatusNotFound, "category not found")
		return
	}
	if err != nil {
		fail(w, http.StatusInternalServerError, "db error")
		return
	}

	var inUse int64
	db.Conn().Model(&models.RegistrationType{}).Where("category_id = ?", cat.ID).Count(&inUse)
	if inUse > 0 {
		fail(w, http.StatusConflict, "category has registration types; deactivate it instead")
		return
	}

	oldSnap := services.Snapshot(cat)
	if err := db.Conn().Delete(&cat).Error; err != nil {
		fail(w, http.StatusInternalServerError, "db error")
		return
	}

	services.RecordAudit(db.Conn(), auditCtx(r), "categories", cat.ID,
		models.AuditActionDelete, oldSnap, nil)
	respond(w, http.StatusOK, nil)
}
