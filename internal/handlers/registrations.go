package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/kongrex/regdesk/internal/db"
	"github.com/kongrex/regdesk/internal/models"
	"github.com/kongrex/regdesk/internal/services"
)

// GET /api/registrations?page=&limit=
func ListRegistrations(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)

	q := db.Conn().Model(&models.Registration{})
	if ref := r.URL.Query().Get("reference_number"); ref != "" {
		q = q.Where("reference_number = ?", ref)
	}
	if name := r.URL.Query().Get("full_name"); name != "" {
		q = q.Where("full_name LIKE ?", "%"+name+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		fail(w, http.StatusInternalServerError, "db error")
		return
	}

	var regs []models.Registration
	if err := q.Order("created_at desc").
		Offset((page - 1) * limit).Limit(limit).
		Find(&regs).Error; err != nil {
		fail(w, http.StatusInternalServerError, "db error")
		return
	}

	respond(w, http.StatusOK, map[string]any{
		"data":        regs,
		"currentPage": page,
		"totalPages":  totalPages(total, limit),
	})
}

// GET /api/registrations/{id}
func GetRegistration(w http.ResponseWriter, r *http.Request) {
	var reg models.Registration
	err := db.Conn().Preload("Selections").First(&reg, chi.URLParam(r, "id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fail(w, http.StatusNotFound, "registration not found")
		return
	}
	if err != nil {
		fail(w, http.StatusInternalServerError, "db error")
		return
	}
	respond(w, http.StatusOK, map[string]any{"data": reg})
}

// registrationPatch lists the fields an admin may edit in place. Payment and
// refund transitions have their own action endpoints; status is included so
// the back office can reactivate a mistakenly cancelled registration.
type registrationPatch struct {
	FullName       *string `json:"full_name"`
	Email          *string `json:"email" validate:"omitempty,email"`
	Phone          *string `json:"phone"`
	Organization   *string `json:"organization"`
	Country        *string `json:"country"`
	City           *string `json:"city"`
	InvoiceType    *string `json:"invoice_type" validate:"omitempty,oneof=individual corporate"`
	TaxOffice      *string `json:"tax_office"`
	TaxNumber      *string `json:"tax_number"`
	InvoiceAddress *string `json:"invoice_address"`
	Status         *int    `json:"status" validate:"omitempty,oneof=0 1"`
}

// PATCH /api/registrations/{id}
func PatchRegistration(w http.ResponseWriter, r *http.Request) {
	var reg models.Registration
	err := db.Conn().First(&reg, chi.URLParam(r, "id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fail(w, http.StatusNotFound, "registration not found")
		return
	}
	if err != nil {
		fail(w, http.StatusInternalServerError, "db error")
		return
	}

	var patch registrationPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	if err := validate.Struct(patch); err != nil {
		fail(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}

	oldSnap := services.Snapshot(reg)

	if patch.Status != nil && *patch.Status == models.StatusActive &&
		reg.Status == models.StatusCancelled && reg.RefundStatus == models.RefundCompleted {
		fail(w, http.StatusConflict, "refund completed; registration cannot be reactivated")
		return
	}

	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&reg.FullName, patch.FullName)
	apply(&reg.Email, patch.Email)
	apply(&reg.Phone, patch.Phone)
	apply(&reg.Organization, patch.Organization)
	apply(&reg.Country, patch.Country)
	apply(&reg.City, patch.City)
	apply(&reg.InvoiceType, patch.InvoiceType)
	apply(&reg.TaxOffice, patch.TaxOffice)
	apply(&reg.TaxNumber, patch.TaxNumber)
	apply(&reg.InvoiceAddress, patch.InvoiceAddress)

	if err := db.Conn().Save(&reg).Error; err != nil {
		fail(w, http.StatusInternalServerError, "db error")
		return
	}

	// Status flips go through the state machine so selections cascade the
	// same way the action endpoints do.
	if patch.Status != nil && *patch.Status != reg.Status {
		var (
			updated *models.Registration
			svcErr  error
		)
		if *patch.Status == models.StatusCancelled {
			updated, svcErr = services.CancelRegistration(reg.ID)
		} else {
			updated, svcErr = services.Reactivate(reg.ID)
		}
		if svcErr != nil {
			fail(w, http.StatusConflict, svcErr.Error())
			return
		}
		reg = *updated
	}

	services.RecordAudit(db.Conn(), auditCtx(r), "registrations", reg.ID,
		models.AuditActionUpdate, oldSnap, services.Snapshot(reg))

	respond(w, http.StatusOK, map[string]any{"data": reg})
}
