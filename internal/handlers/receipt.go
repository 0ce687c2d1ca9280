package handlers

import (
	"errors"
	"html/template"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kongrex/regdesk/internal/config"
	"github.com/kongrex/regdesk/internal/db"
	"github.com/kongrex/regdesk/internal/models"
	"github.com/kongrex/regdesk/internal/money"
)

// Receipt renders the printable HTML receipt for a completed registration.
// The page is print-styled; "PDF" is the browser's print-to-PDF of this
// document.
func Receipt(templateDir string) http.HandlerFunc {
	funcs := template.FuncMap{
		"amount": func(d decimal.Decimal, c models.Currency) string {
			return money.FormatAmount(d, c)
		},
	}
	tmpl := template.Must(template.New("").Funcs(funcs).
		ParseGlob(filepath.Join(templateDir, "print", "*.tmpl")))

	return func(w http.ResponseWriter, r *http.Request) {
		var reg models.Registration
		err := db.Conn().Preload("Selections").First(&reg, chi.URLParam(r, "id")).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		// Resolve selection labels for display.
		typeIDs := make([]uint, 0, len(reg.Selections))
		for _, s := range reg.Selections {
			typeIDs = append(typeIDs, s.RegistrationTypeID)
		}
		labels := map[uint]string{}
		if len(typeIDs) > 0 {
			var types []models.RegistrationType
			_ = db.Conn().Where("id IN ?", typeIDs).Find(&types).Error
			for _, t := range types {
				labels[t.ID] = t.Label(reg.Language)
			}
		}

		type lineView struct {
			Label string
			Sel   models.RegistrationSelection
		}
		lines := make([]lineView, 0, len(reg.Selections))
		for _, s := range reg.Selections {
			lines = append(lines, lineView{Label: labels[s.RegistrationTypeID], Sel: s})
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.ExecuteTemplate(w, "receipt.tmpl", map[string]any{
			"Reg":   reg,
			"Lines": lines,
			"QRURL": config.BaseURL() + "/qr/" + reg.ReferenceNumber + ".png",
		})
	}
}
