package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kongrex/regdesk/internal/db"
	"github.com/kongrex/regdesk/internal/models"
	"github.com/kongrex/regdesk/internal/services"
)

// GET /api/admin/registration-types
func AdminListRegistrationTypes(w http.ResponseWriter, r *http.Request) {
	q := db.Conn().Model(&models.RegistrationType{}).Order("display_order asc, id asc")
	if cat := r.URL.Query().Get("category_id"); cat != "" {
		q = q.Where("category_id = ?", cat)
	}
	var types []models.RegistrationType
	if err := q.Find(&types).Error; err != nil {
		fail(w, http.StatusInternalServerError, "db error")
		return
	}
	respond(w, http.StatusOK, map[string]any{"data": types})
}

// GET /api/admin/registration-types/{id}
func AdminGetRegistrationType(w http.ResponseWriter, r *http.Request) {
	var rt models.RegistrationType
	err := db.Conn().First(&rt, chi.URLParam(r, "id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fail(w, http.StatusNotFound, "registration type not found")
		return
	}
	if err != nil {
		fail(w, http.StatusInternalServerError, "db error")
		return
	}
	respond(w, http.StatusOK, map[string]any{"data": rt})
}

type registrationTypeBody struct {
	Value      string `json:"value" validate:"required"`
	LabelTR    string `json:"label_tr" validate:"required"`
	LabelEN    string `json:"label_en"`
	CategoryID uint   `json:"category_id" validate:"required"`

	FeeTRY decimal.Decimal `json:"fee_try"`
	FeeUSD decimal.Decimal `json:"fee_usd"`
	FeeEUR decimal.Decimal `json:"fee_eur"`

	EarlyBirdFeeTRY decimal.NullDecimal `json:"early_bird_fee_try"`
	EarlyBirdFeeUSD decimal.NullDecimal `json:"early_bird_fee_usd"`
	EarlyBirdFeeEUR decimal.NullDecimal `json:"early_bird_fee_eur"`

	VATRate decimal.Decimal `json:"vat_rate"`

	RequiresDocument bool   `json:"requires_document"`
	DocumentLabel    string `json:"document_label"`
	IsActive         *bool  `json:"is_active"`
	DisplayOrder     int    `json:"display_order"`
}

func (b registrationTypeBody) validateAmounts() error {
	for _, d := range []decimal.Decimal{b.FeeTRY, b.FeeUSD, b.FeeEUR} {
		if d.IsNegative() {
			return errors.New("fees must be non-negative")
		}
	}
	for _, n := range []decimal.NullDecimal{b.EarlyBirdFeeTRY, b.EarlyBirdFeeUSD, b.EarlyBirdFeeEUR} {
		if n.Valid && n.Decimal.IsNegative() {
			return errors.New("early-bird fees must be non-negative")
		}
	}
	if b.VATRate.IsNegative() || b.VATRate.GreaterThan(decimal.NewFromInt(1)) {
		return errors.New("vat_rate must be a fraction between 0 and 1")
	}
	return nil
}

func (b registrationTypeBody) apply(rt *models.RegistrationType) {
	rt.Value = b.Value
	rt.LabelTR = b.LabelTR
	rt.LabelEN = b.LabelEN
	rt.CategoryID = b.CategoryID
	rt.FeeTRY = b.FeeTRY
	rt.FeeUSD = b.FeeUSD
	rt.FeeEUR = b.FeeEUR
	rt.EarlyBirdFeeTRY = b.EarlyBirdFeeTRY
	rt.EarlyBirdFeeUSD = b.EarlyBirdFeeUSD
	rt.EarlyBirdFeeEUR = b.EarlyBirdFeeEUR
	rt.VATRate = b.VATRate
	rt.RequiresDocument = b.RequiresDocument
	rt.DocumentLabel = b.DocumentLabel
	rt.DisplayOrder = b.DisplayOrder
	if b.IsActive != nil {
		rt.IsActive = *b.IsActive
	}
}

// POST /api/admin/registration-types
func AdminCreateRegistrationType(w http.ResponseWriter, r *http.Request) {
	var body registrationTypeBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := validate.Struct(body); err != nil {
		fail(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}
	if err := body.validateAmounts(); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}

	var cat models.Category
	if err := db.Conn().First(&cat, body.CategoryID).Error; err != nil {
		fail(w, http.StatusBadRequest, "unknown category_id")
		return
	}

	rt := models.RegistrationType{IsActive: true}
	body.apply(&rt)
	if err := db.Conn().Create(&rt).Error; err != nil {
		fail(w, http.StatusConflict, "could not create registration type (duplicate value?)")
		return
	}

	services.RecordAudit(db.Conn(), auditCtx(r), "registration_types", rt.ID,
		models.AuditActionCreate, nil, services.Snapshot(rt))
	respond(w, http.StatusCreated, map[string]any{"data": rt})
}

// PUT /api/admin/registration-types/{id}
func AdminUpdateRegistrationType(w http.ResponseWriter, r *http.Request) {
	var rt models.RegistrationType
	err := db.Conn().First(&rt, chi.URLParam(r, "id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fail(w, http.StatusNotFound, "registration type not found")
		return
	}
	if err != nil {
		fail(w, http.StatusInternalServerError, "db error")
		return
	}

	var body registrationTypeBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := validate.Struct(body); err != nil {
		fail(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}
	if err := body.validateAmounts(); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}

	oldSnap := services.Snapshot(rt)
	body.apply(&rt)
	if err := db.Conn().Save(&rt).Error; err != nil {
		fail(w, http.StatusInternalServerError, "db error")
		return
	}

	services.RecordAudit(db.Conn(), auditCtx(r), "registration_types", rt.ID,
		models.AuditActionUpdate, oldSnap, services.Snapshot(rt))
	respond(w, http.StatusOK, map[string]any{"data": rt})
}

// DELETE /api/admin/registration-types/{id}
// A type referenced by any selection stays; price history depends on it.
func AdminDeleteRegistrationType(w http.ResponseWriter, r *http.Request) {
	var rt models.RegistrationType
	err := db.Conn().First(&rt, chi.URLParam(r, "id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fail(w, http.StatusNotFound, "registration type not found")
		return
	}
	if err != nil {
		fail(w, http.StatusInternalServerError, "db error")
		return
	}

	var inUse int64
	db.Conn().Model(&models.RegistrationSelection{}).
		Where("registration_type_id = ?", rt.ID).Count(&inUse)
	if inUse > 0 {
		fail(w, http.StatusConflict, "registration type is referenced by registrations; deactivate it instead")
		return
	}

	oldSnap := services.Snapshot(rt)
	if err := db.Conn().Delete(&rt).Error; err != nil {
		fail(w, http.StatusInternalServerError, "db error")
		return
	}

	services.RecordAudit(db.Conn(), auditCtx(r), "registration_types", rt.ID,
		models.AuditActionDelete, oldSnap, nil)
	respond(w, http.StatusOK, nil)
}
