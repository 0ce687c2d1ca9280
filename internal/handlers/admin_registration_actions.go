package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/kongrex/regdesk/internal/db"
	"github.com/kongrex/regdesk/internal/mailer"
	"github.com/kongrex/regdesk/internal/models"
	"github.com/kongrex/regdesk/internal/services"
	"github.com/kongrex/regdesk/internal/storage"
)

// Action endpoints wrap the registration state machine in services. Each one
// writes an audit row with the before/after snapshots.

func regIDParam(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		fail(w, http.StatusBadRequest, "invalid registration id")
		return 0, false
	}
	return uint(id), true
}

func loadRegistration(w http.ResponseWriter, id uint) (*models.Registration, bool) {
	var reg models.Registration
	err := db.Conn().First(&reg, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fail(w, http.StatusNotFound, "registration not found")
		return nil, false
	}
	if err != nil {
		fail(w, http.StatusInternalServerError, "db error")
		return nil, false
	}
	return &reg, true
}

func actionStatus(err error) int {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrAlreadyCompleted),
		errors.Is(err, services.ErrAlreadyCancelled),
		errors.Is(err, services.ErrNotCancelled),
		errors.Is(err, services.ErrRefundState),
		errors.Is(err, services.ErrRefundCompleted):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func runAction(m *mailer.Mailer, name string, do func(uint) (*models.Registration, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := regIDParam(w, r)
		if !ok {
			return
		}
		before, ok := loadRegistration(w, id)
		if !ok {
			return
		}
		oldSnap := services.Snapshot(*before)

		reg, err := do(id)
		if err != nil {
			fail(w, actionStatus(err), err.Error())
			return
		}

		services.RecordAudit(db.Conn(), auditCtx(r), "registrations", reg.ID,
			models.AuditActionUpdate, oldSnap, services.Snapshot(*reg))

		if name == "confirm-payment" && m.Enabled() {
			go func(reg models.Registration) {
				_ = m.SendPaymentConfirmed(reg)
			}(*reg)
		}
		respond(w, http.StatusOK, map[string]any{"data": reg})
	}
}

// POST /api/admin/registrations/{id}/confirm-payment
func AdminConfirmPayment(m *mailer.Mailer) http.HandlerFunc {
	return runAction(m, "confirm-payment", services.ConfirmPayment)
}

// POST /api/admin/registrations/{id}/cancel
func AdminCancelRegistration(m *mailer.Mailer) http.HandlerFunc {
	return runAction(m, "cancel", services.CancelRegistration)
}

// POST /api/admin/registrations/{id}/reactivate
func AdminReactivateRegistration(m *mailer.Mailer) http.HandlerFunc {
	return runAction(m, "reactivate", services.Reactivate)
}

// POST /api/admin/registrations/{id}/refund/request
func AdminRequestRefund(m *mailer.Mailer) http.HandlerFunc {
	return runAction(m, "refund-request", services.RequestRefund)
}

// POST /api/admin/registrations/{id}/refund/complete
func AdminCompleteRefund(m *mailer.Mailer) http.HandlerFunc {
	return runAction(m, "refund-complete", services.CompleteRefund)
}

// POST /api/admin/registrations/{id}/refund/reject
func AdminRejectRefund(m *mailer.Mailer) http.HandlerFunc {
	return runAction(m, "refund-reject", services.RejectRefund)
}

// POST /api/admin/registrations/{id}/receipt attaches a payment receipt
// document (bank transfer proof) to the registration.
func AdminUploadReceipt(store *storage.Local) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := regIDParam(w, r)
		if !ok {
			return
		}
		reg, ok := loadRegistration(w, id)
		if !ok {
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			fail(w, http.StatusBadRequest, "invalid multipart body")
			return
		}
		f, header, err := r.FormFile("file")
		if err != nil {
			fail(w, http.StatusBadRequest, "missing file field")
			return
		}
		defer f.Close()

		url, err := store.Save(f, header.Filename)
		if err != nil {
			fail(w, http.StatusBadRequest, err.Error())
			return
		}

		oldSnap := services.Snapshot(*reg)
		if reg.ReceiptURL != "" {
			_ = store.Delete(reg.ReceiptURL)
		}
		reg.ReceiptURL = url
		if err := db.Conn().Save(reg).Error; err != nil {
			fail(w, http.StatusInternalServerError, "db error")
			return
		}

		services.RecordAudit(db.Conn(), auditCtx(r), "registrations", reg.ID,
			models.AuditActionUpdate, oldSnap, services.Snapshot(*reg))
		respond(w, http.StatusOK, map[string]any{"data": reg})
	}
}

// DELETE /api/admin/registrations/{id}/receipt
func AdminDeleteReceipt(store *storage.Local) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := regIDParam(w, r)
		if !ok {
			return
		}
		reg, ok := loadRegistration(w, id)
		if !ok {
			return
		}
		if reg.ReceiptURL == "" {
			fail(w, http.StatusNotFound, "no receipt attached")
			return
		}

		oldSnap := services.Snapshot(*reg)
		_ = store.Delete(reg.ReceiptURL)
		reg.ReceiptURL = ""
		if err := db.Conn().Save(reg).Error; err != nil {
			fail(w, http.StatusInternalServerError, "db error")
			return
		}

		services.RecordAudit(db.Conn(), auditCtx(r), "registrations", reg.ID,
			models.AuditActionUpdate, oldSnap, services.Snapshot(*reg))
		respond(w, http.StatusOK, map[string]any{"data": reg})
	}
}
