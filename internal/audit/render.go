package audit

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kongrex/regdesk/internal/money"
)

// Change is one rendered field difference for the audit-log UI.
type Change struct {
	Field      string `json:"field"`
	Label      string `json:"label"`
	OldDisplay string `json:"old_display"`
	NewDisplay string `json:"new_display"`
}

// Human labels for known snapshot fields. Unknown fields fall back to the
// raw key.
var fieldLabels = map[string]string{
	"full_name":         "Ad Soyad",
	"email":             "E-posta",
	"phone":             "Telefon",
	"organization":      "Kurum",
	"country":           "Ülke",
	"city":              "Şehir",
	"language":          "Dil",
	"invoice_type":      "Fatura Tipi",
	"tax_office":        "Vergi Dairesi",
	"tax_number":        "Vergi No",
	"invoice_address":   "Fatura Adresi",
	"currency":          "Para Birimi",
	"exchange_rate":     "Kur",
	"grand_total":       "Genel Toplam",
	"payment_method":    "Ödeme Yöntemi",
	"payment_status":    "Ödeme Durumu",
	"status":            "Durum",
	"refund_status":     "İade Durumu",
	"receipt_url":       "Dekont",
	"reference_number":  "Referans No",
	"name_tr":           "Ad (TR)",
	"name_en":           "Ad (EN)",
	"label_tr":          "Etiket (TR)",
	"label_en":          "Etiket (EN)",
	"is_required":       "Zorunlu",
	"allow_multiple":    "Çoklu Seçim",
	"is_visible":        "Görünür",
	"is_active":         "Aktif",
	"display_order":     "Sıra",
	"capacity":          "Kontenjan",
	"fee_try":           "Ücret (TL)",
	"fee_usd":           "Ücret (USD)",
	"fee_eur":           "Ücret (EUR)",
	"early_bird_fee_try": "Erken Kayıt Ücreti (TL)",
	"early_bird_fee_usd": "Erken Kayıt Ücreti (USD)",
	"early_bird_fee_eur": "Erken Kayıt Ücreti (EUR)",
	"vat_rate":          "KDV Oranı",
	"requires_document": "Belge Gerekli",
	"applied_fee":       "Uygulanan Ücret",
	"vat_amount":        "KDV Tutarı",
	"total":             "Toplam",
	"bank_name":         "Banka",
	"iban":              "IBAN",
	"account_holder":    "Hesap Sahibi",
}

var currencyFields = map[string]bool{
	"fee_try":            true,
	"early_bird_fee_try": true,
	"grand_total":        true,
	"applied_fee":        true,
	"vat_amount":         true,
	"total":              true,
	"amount":             true,
}

var dateFields = map[string]bool{
	"created_at":            true,
	"updated_at":            true,
	"registration_start":    true,
	"registration_end":      true,
	"early_bird_deadline":   true,
	"cancellation_deadline": true,
	"last_reminder_at":      true,
}

// RenderChange resolves the human label for field and formats both sides for
// display.
func RenderChange(field string, oldValue, newValue any) Change {
	label, ok := fieldLabels[field]
	if !ok {
		label = field
	}
	return Change{
		Field:      field,
		Label:      label,
		OldDisplay: formatValue(field, oldValue),
		NewDisplay: formatValue(field, newValue),
	}
}

// RenderChanges renders every changed field between two snapshots in Diff
// order.
func RenderChanges(oldSnap, newSnap map[string]any) []Change {
	fields := Diff(oldSnap, newSnap)
	out := make([]Change, 0, len(fields))
	for _, f := range fields {
		out = append(out, RenderChange(f, oldSnap[f], newSnap[f]))
	}
	return out
}

func formatValue(field string, v any) string {
	if v == nil {
		return "—"
	}

	switch {
	case currencyFields[field]:
		if d, ok := toDecimal(v); ok {
			return money.FormatTurkishCurrency(d)
		}
	case dateFields[field]:
		if s, ok := v.(string); ok {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				return t.Format("02.01.2006 15:04")
			}
		}
	}

	switch t := v.(type) {
	case bool:
		if t {
			return "Evet"
		}
		return "Hayır"
	case string:
		if t == "" {
			return "—"
		}
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case decimal.Decimal:
		return t, true
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(t), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return decimal.Decimal{}, false
		}
		d, err := decimal.NewFromString(s)
		return d, err == nil
	}
	return decimal.Decimal{}, false
}
