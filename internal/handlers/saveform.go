package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kongrex/regdesk/internal/config"
	"github.com/kongrex/regdesk/internal/db"
	"github.com/kongrex/regdesk/internal/mailer"
	"github.com/kongrex/regdesk/internal/models"
	"github.com/kongrex/regdesk/internal/payment"
	"github.com/kongrex/regdesk/internal/services"
	"github.com/kongrex/regdesk/internal/wizard"
)

var validate = validator.New()

type cardInfo struct {
	Holder      string `json:"holder" validate:"required"`
	Number      string `json:"number" validate:"required,credit_card"`
	ExpireMonth string `json:"expire_month" validate:"required,len=2"`
	ExpireYear  string `json:"expire_year" validate:"required,len=4"`
	CVC         string `json:"cvc" validate:"required,min=3,max=4"`
}

// saveFormRequest is the complete wizard snapshot POSTed at the end of the
// flow.
type saveFormRequest struct {
	Language string          `json:"language" validate:"omitempty,oneof=tr en"`
	Currency models.Currency `json:"currency" validate:"required,oneof=TRY USD EUR"`

	FullName     string `json:"full_name" validate:"required,min=3,max=255"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"required"`
	Organization string `json:"organization"`
	Country      string `json:"country"`
	City         string `json:"city"`

	InvoiceType    string `json:"invoice_type" validate:"omitempty,oneof=individual corporate"`
	TaxOffice      string `json:"tax_office"`
	TaxNumber      string `json:"tax_number"`
	InvoiceAddress string `json:"invoice_address"`

	Selections map[uint][]uint `json:"selections"`
	Documents  map[uint]string `json:"documents"`

	PaymentMethod string    `json:"payment_method" validate:"required,oneof=online bank_transfer"`
	Card          *cardInfo `json:"card"`
}

// submissionError carries a user-facing rejection out of the save
// transaction so it maps to 400 instead of 500.
type submissionError struct{ msg string }

func (e submissionError) Error() string { return e.msg }

func capacityMessage(cat models.Category, lang string) string {
	if lang == "en" {
		return fmt.Sprintf("The %s category is full.", cat.Name(lang))
	}
	return fmt.Sprintf("%s kategorisinde kontenjan dolmuştur.", cat.Name(lang))
}

// SaveForm persists the wizard snapshot. For online payment the gateway is
// charged after the rows are committed; a decline keeps the registration
// with payment_status=pending and reports the gateway's error back.
func SaveForm(gw payment.Gateway, m *mailer.Mailer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req saveFormRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := validate.Struct(req); err != nil {
			fail(w, http.StatusBadRequest, "validation failed: "+err.Error())
			return
		}
		if req.Language == "" {
			req.Language = "tr"
		}
		if req.PaymentMethod == models.PaymentMethodOnline {
			if req.Card == nil {
				fail(w, http.StatusBadRequest, "card details required for online payment")
				return
			}
			if err := validate.Struct(req.Card); err != nil {
				fail(w, http.StatusBadRequest, "invalid card details")
				return
			}
		}

		var categories []models.Category
		if err := db.Conn().
			Where("is_active = ? AND is_visible = ?", true, true).
			Order("display_order asc").Find(&categories).Error; err != nil {
			fail(w, http.StatusInternalServerError, "db error")
			return
		}
		var types []models.RegistrationType
		if err := db.Conn().Where("is_active = ?", true).Find(&types).Error; err != nil {
			fail(w, http.StatusInternalServerError, "db error")
			return
		}

		catByID := make(map[uint]models.Category, len(categories))
		for _, c := range categories {
			catByID[c.ID] = c
		}

		now := time.Now()

		// Rebuild the wizard state through the reducers so single-select
		// categories and toggles behave exactly like the step UI.
		st := wizard.New(req.Language, req.Currency).
			WithPersonal(wizard.PersonalInfo{
				FullName:     req.FullName,
				Email:        req.Email,
				Phone:        req.Phone,
				Organization: req.Organization,
				Country:      req.Country,
				City:         req.City,
			}).
			WithInvoice(wizard.InvoiceInfo{
				Type:    req.InvoiceType,
				Office:  req.TaxOffice,
				Number:  req.TaxNumber,
				Address: req.InvoiceAddress,
			}).
			WithPaymentMethod(req.PaymentMethod)

		for catID, typeIDs := range req.Selections {
			cat, ok := catByID[catID]
			if !ok {
				fail(w, http.StatusBadRequest, fmt.Sprintf("unknown category %d", catID))
				return
			}
			if cat.RegistrationStart != nil && now.Before(*cat.RegistrationStart) {
				msg := fmt.Sprintf("%s kategorisi için kayıt henüz açılmadı.", cat.Name(req.Language))
				if req.Language == "en" {
					msg = fmt.Sprintf("Registration has not yet opened for the %s category.", cat.Name(req.Language))
				}
				fail(w, http.StatusBadRequest, msg)
				return
			}
			if cat.RegistrationEnd != nil && now.After(*cat.RegistrationEnd) {
				msg := fmt.Sprintf("%s kategorisi için kayıt dönemi sona erdi.", cat.Name(req.Language))
				if req.Language == "en" {
					msg = fmt.Sprintf("Registration has closed for the %s category.", cat.Name(req.Language))
				}
				fail(w, http.StatusBadRequest, msg)
				return
			}
			for _, id := range typeIDs {
				st = st.ToggleSelection(cat, id)
			}
		}
		for typeID, url := range req.Documents {
			st = st.AttachDocument(typeID, url)
		}

		if errs := wizard.ValidateSelections(st, categories, types); len(errs) > 0 {
			respond(w, http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   errs[0],
				"errors":  errs,
			})
			return
		}

		earlyBird := make(map[uint]bool, len(categories))
		for _, c := range categories {
			earlyBird[c.ID] = c.EarlyBirdActive(now)
		}

		agg, err := services.AggregateSelections(st.Selections, types, req.Currency, earlyBird)
		if err != nil {
			fail(w, http.StatusBadRequest, err.Error())
			return
		}

		reg := models.Registration{
			FullName:       req.FullName,
			Email:          req.Email,
			Phone:          req.Phone,
			Organization:   req.Organization,
			Country:        req.Country,
			City:           req.City,
			Language:       req.Language,
			InvoiceType:    req.InvoiceType,
			TaxOffice:      req.TaxOffice,
			TaxNumber:      req.TaxNumber,
			InvoiceAddress: req.InvoiceAddress,
			Currency:       req.Currency,
			ExchangeRate:   exchangeRate(req.Currency),
			GrandTotal:     agg.GrandTotal,
			PaymentMethod:  req.PaymentMethod,
			PaymentStatus:  models.PaymentStatusPending,
			Status:         models.StatusActive,
			RefundStatus:   models.RefundNone,
		}

		requested := make(map[uint]int)
		for _, line := range agg.Lines {
			requested[line.CategoryID]++
		}

		err = db.Conn().Transaction(func(tx *gorm.DB) error {
			// Capacity check lives inside the transaction; the single-writer
			// pool keeps the count and the inserts serialized.
			for catID, n := range requested {
				cat := catByID[catID]
				if cat.Capacity <= 0 {
					continue
				}
				var used int64
				if err := tx.Model(&models.RegistrationSelection{}).
					Where("category_id = ? AND is_cancelled = ?", catID, false).
					Count(&used).Error; err != nil {
					return err
				}
				if int(used)+n > cat.Capacity {
					return submissionError{msg: capacityMessage(cat, req.Language)}
				}
			}

			ref := services.GenerateReferenceNumber(tx)
			if ref == "" {
				return fmt.Errorf("reference number generation failed")
			}
			reg.ReferenceNumber = ref
			if err := tx.Create(&reg).Error; err != nil {
				return err
			}
			for _, line := range agg.Lines {
				sel := models.RegistrationSelection{
					RegistrationID:     reg.ID,
					RegistrationTypeID: line.TypeID,
					CategoryID:         line.CategoryID,
					AppliedFee:         line.Fee,
					AppliedCurrency:    req.Currency,
					VATAmount:          line.VAT,
					Total:              line.Total,
					RefundStatus:       models.RefundNone,
					DocumentURL:        st.Documents[line.TypeID],
				}
				if err := tx.Create(&sel).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			var subErr submissionError
			if errors.As(err, &subErr) {
				fail(w, http.StatusBadRequest, subErr.msg)
				return
			}
			log.Error().Err(err).Msg("saveForm persist failed")
			fail(w, http.StatusInternalServerError, "failed to save registration")
			return
		}

		if req.PaymentMethod == models.PaymentMethodOnline {
			chargeReq := payment.ChargeRequest{
				ConversationID:  fmt.Sprintf("reg-%d", reg.ID),
				ReferenceNumber: reg.ReferenceNumber,
				Amount:          agg.GrandTotal,
				Currency:        req.Currency,
				CardHolder:      req.Card.Holder,
				CardNumber:      req.Card.Number,
				ExpireMonth:     req.Card.ExpireMonth,
				ExpireYear:      req.Card.ExpireYear,
				CVC:             req.Card.CVC,
			}
			res, chargeErr := gw.Charge(r.Context(), chargeReq)
			payment.LogTransaction(db.Conn(), reg.ID, chargeReq, res, chargeErr)

			if chargeErr != nil {
				respond(w, http.StatusBadGateway, map[string]any{
					"success":         false,
					"referenceNumber": reg.ReferenceNumber,
					"paymentResult": map[string]any{
						"errorCode":    "GATEWAY_UNREACHABLE",
						"errorMessage": "payment gateway unreachable",
					},
				})
				return
			}
			if !res.Success {
				// The registration stays on the books, pending.
				respond(w, http.StatusPaymentRequired, map[string]any{
					"success":         false,
					"referenceNumber": reg.ReferenceNumber,
					"paymentResult": map[string]any{
						"errorCode":    res.ErrorCode,
						"errorMessage": res.ErrorMessage,
					},
				})
				return
			}
			reg.PaymentStatus = models.PaymentStatusCompleted
			if err := db.Conn().Save(&reg).Error; err != nil {
				log.Error().Err(err).Uint("reg", reg.ID).Msg("payment status update failed")
			}
		}

		go sendConfirmation(m, reg, agg, types)

		respond(w, http.StatusCreated, map[string]any{
			"referenceNumber": reg.ReferenceNumber,
		})
	}
}

// exchangeRate reads the configured TRY conversion rate for the submission
// currency. TRY itself is always 1; a missing or invalid rate falls back to 1.
func exchangeRate(cur models.Currency) decimal.Decimal {
	if cur == models.CurrencyTRY {
		return decimal.NewFromInt(1)
	}
	rate, err := decimal.NewFromString(config.ExchangeRate(string(cur)))
	if err != nil || rate.LessThanOrEqual(decimal.Zero) {
		return decimal.NewFromInt(1)
	}
	return rate
}

func sendConfirmation(m *mailer.Mailer, reg models.Registration, agg services.AggregateResult, types []models.RegistrationType) {
	if !m.Enabled() {
		return
	}
	typeByID := make(map[uint]models.RegistrationType, len(types))
	for _, t := range types {
		typeByID[t.ID] = t
	}

	lines := make([]mailer.LineItem, 0, len(agg.Lines))
	for _, l := range agg.Lines {
		lines = append(lines, mailer.LineItem{
			Label: typeByID[l.TypeID].Label(reg.Language),
			Fee:   l.Fee,
			VAT:   l.VAT,
			Total: l.Total,
		})
	}

	var banks []models.BankAccount
	if reg.PaymentMethod == models.PaymentMethodBankTransfer {
		_ = db.Conn().Where("is_active = ?", true).Order("display_order asc").Find(&banks).Error
	}

	if err := m.SendConfirmation(mailer.ConfirmationData{
		Registration: reg,
		Lines:        lines,
		BankAccounts: banks,
	}); err != nil {
		log.Warn().Err(err).Str("ref", reg.ReferenceNumber).Msg("confirmation mail failed")
	}
}
