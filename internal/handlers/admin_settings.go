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

// Settings endpoints expose flat key/value maps. PUT replaces the submitted
// keys in one transaction so the public form never sees a half-updated set.

func settingsMap[T models.FormSetting | models.PageSetting](rows []T) map[string]string {
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		switch s := any(row).(type) {
		case models.FormSetting:
			out[s.Key] = s.Value
		case models.PageSetting:
			out[s.Key] = s.Value
		}
	}
	return out
}

// GET /api/form-settings (public) and /api/admin/form-settings
func GetFormSettings(w http.ResponseWriter, r *http.Request) {
	var rows []models.FormSetting
	if err := db.Conn().Find(&rows).Error; err != nil {
		fail(w, http.StatusInternalServerError, "db error")
		return
	}
	respond(w, http.StatusOK, map[string]any{"data": settingsMap(rows)})
}

// GET /api/page-settings (public) and /api/admin/page-settings
func GetPageSettings(w http.ResponseWriter, r *http.Request) {
	var rows []models.PageSetting
	if err := db.Conn().Find(&rows).Error; err != nil {
		fail(w, http.StatusInternalServerError, "db error")
		return
	}
	respond(w, http.StatusOK, map[string]any{"data": settingsMap(rows)})
}

// PUT /api/admin/form-settings
func PutFormSettings(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if !decodeJSON(w, r, &body) {
		return
	}
	err := db.Conn().Transaction(func(tx *gorm.DB) error {
		for k, val := range body {
			var row models.FormSetting
			res := tx.Where("key = ?", k).Limit(1).Find(&row)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				if err := tx.Create(&models.FormSetting{Key: k, Value: val}).Error; err != nil {
					return err
				}
				continue
			}
			if err := tx.Model(&row).Update("value", val).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		fail(w, http.StatusInternalServerError, "db error")
		return
	}
	services.RecordAudit(db.Conn(), auditCtx(r), "form_settings", 0,
		models.AuditActionUpdate, nil, services.Snapshot(body))
	GetFormSettings(w, r)
}

// PUT /api/admin/page-settings
func PutPageSettings(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if !decodeJSON(w, r, &body) {
		return
	}
	err := db.Conn().Transaction(func(tx *gorm.DB) error {
		for k, val := range body {
			var row models.PageSetting
			res := tx.Where("key = ?", k).Limit(1).Find(&row)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				if err := tx.Create(&models.PageSetting{Key: k, Value: val}).Error; err != nil {
					return err
				}
				continue
			}
			if err := tx.Model(&row).Update("value", val).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		fail(w, http.StatusInternalServerError, "db error")
		return
	}
	services.RecordAudit(db.Conn(), auditCtx(r), "page_settings", 0,
		models.AuditActionUpdate, nil, services.Snapshot(body))
	GetPageSettings(w, r)
}

// ---- Bank accounts ----

// GET /api/bank-accounts (public: active only). The transfer step shows these.
func ListBankAccounts(w http.ResponseWriter, r *http.Request) {
	var accounts []models.BankAccount
	if err := db.Conn().Where("is_active = ?", true).
		Order("display_order asc, id asc").Find(&accounts).Error; err != nil {
		fail(w, http.StatusInternalServerError, "db error")
		return
	}
	respond(w, http.StatusOK, map[string]any{"data": accounts})
}

// GET /api/admin/bank-accounts returns all accounts, including inactive.
func AdminListBankAccounts(w http.ResponseWriter, r *http.Request) {
	var accounts []models.BankAccount
	if err := db.Conn().Order("display_order asc, id asc").Find(&accounts).Error; err != nil {
		fail(w, http.StatusInternalServerError, "db error")
		return
	}
	respond(w, http.StatusOK, map[string]any{"data": accounts})
}

// PUT /api/admin/bank-settings replaces the whole account list in one
// transaction. The back office edits the set as a grid and saves it whole.
func PutBankSettings(w http.ResponseWriter, r *http.Request) {
	var body []bankAccountBody
	if !decodeJSON(w, r, &body) {
		return
	}
	for i := range body {
		if err := validate.Struct(body[i]); err != nil {
			fail(w, http.StatusBadRequest, "validation failed: "+err.Error())
			return
		}
		if !body[i].Currency.Valid() {
			fail(w, http.StatusBadRequest, "unknown currency")
			return
		}
	}

	accounts := make([]models.BankAccount, 0, len(body))
	err := db.Conn().Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.BankAccount{}).Error; err != nil {
			return err
		}
		for i, b := range body {
			acc := models.BankAccount{IsActive: true}
			b.apply(&acc)
			if b.DisplayOrder == 0 {
				acc.DisplayOrder = i
			}
			if err := tx.Create(&acc).Error; err != nil {
				return err
			}
			accounts = append(accounts, acc)
		}
		return nil
	})
	if err != nil {
		fail(w, http.StatusInternalServerError, "db error")
		return
	}

	services.RecordAudit(db.Conn(), auditCtx(r), "bank_settings", 0,
		models.AuditActionUpdate, nil, services.Snapshot(map[string]any{"accounts": accounts}))
	respond(w, http.StatusOK, map[string]any{"data": accounts})
}

type bankAccountBody struct {
	BankName      string          `json:"bank_name" validate:"required"`
	Branch        string          `json:"branch"`
	AccountHolder string          `json:"account_holder" validate:"required"`
	IBAN          string          `json:"iban" validate:"required"`
	Currency      models.Currency `json:"currency" validate:"required"`
	DisplayOrder  int             `json:"display_order"`
	IsActive      *bool           `json:"is_active"`
}

func (b bankAccountBody) apply(acc *models.BankAccount) {
	acc.BankName = b.BankName
	acc.Branch = b.Branch
	acc.AccountHolder = b.AccountHolder
	acc.IBAN = b.IBAN
	acc.Currency = b.Currency
	acc.DisplayOrder = b.DisplayOrder
	if b.IsActive != nil {
		acc.IsActive = *b.IsActive
	}
}

// POST /api/admin/bank-accounts
func AdminCreateBankAccount(w http.ResponseWriter, r *http.Request) {
	var body bankAccountBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := validate.Struct(body); err != nil {
		fail(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}
	if !body.Currency.Valid() {
		fail(w, http.StatusBadRequest, "unknown currency")
		return
	}

	acc := models.BankAccount{IsActive: true}
	body.apply(&acc)
	if err := db.Conn().Create(&acc).Error; err != nil {
		fail(w, http.StatusConflict, "could not create bank account (duplicate IBAN?)")
		return
	}

	services.RecordAudit(db.Conn(), auditCtx(r), "bank_accounts", acc.ID,
		models.AuditActionCreate, nil, services.Snapshot(acc))
	respond(w, http.StatusCreated, map[string]any{"data": acc})
}

// PUT /api/admin/bank-accounts/{id}
func AdminUpdateBankAccount(w http.ResponseWriter, r *http.Request) {
	var acc models.BankAccount
	err := db.Conn().First(&acc, chi.URLParam(r, "id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fail(w, http.StatusNotFound, "bank account not found")
		return
	}
	if err != nil {
		fail(w, http.StatusInternalServerError, "db error")
		return
	}

	var body bankAccountBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := validate.Struct(body); err != nil {
		fail(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}
	if !body.Currency.Valid() {
		fail(w, http.StatusBadRequest, "unknown currency")
		return
	}

	oldSnap := services.Snapshot(acc)
	body.apply(&acc)
	if err := db.Conn().Save(&acc).Error; err != nil {
		fail(w, http.StatusInternalServerError, "db error")
		return
	}

	services.RecordAudit(db.Conn(), auditCtx(r), "bank_accounts", acc.ID,
		models.AuditActionUpdate, oldSnap, services.Snapshot(acc))
	respond(w, http.StatusOK, map[string]any{"data": acc})
}

// DELETE /api/admin/bank-accounts/{id}
func AdminDeleteBankAccount(w http.ResponseWriter, r *http.Request) {
	var acc models.BankAccount
	err := db.Conn().First(&acc, chi.URLParam(r, "id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fail(w, http.StatusNotFound, "bank account not found")
		return
	}
	if err != nil {
		fail(w, http.StatusInternalServerError, "db error")
		return
	}

	oldSnap := services.Snapshot(acc)
	if err := db.Conn().Delete(&acc).Error; err != nil {
		fail(w, http.StatusInternalServerError, "db error")
		return
	}

	services.RecordAudit(db.Conn(), auditCtx(r), "bank_accounts", acc.ID,
		models.AuditActionDelete, oldSnap, nil)
	respond(w, http.StatusOK, nil)
}
