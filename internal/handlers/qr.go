package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/kongrex/regdesk/internal/config"
	"github.com/kongrex/regdesk/internal/db"
	"github.com/kongrex/regdesk/internal/models"
)

// QR serves a PNG that links straight to the registration's receipt page.
func QR(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	if ref == "" {
		http.NotFound(w, r)
		return
	}
	var reg models.Registration
	if err := db.Conn().Where("reference_number = ?", ref).First(&reg).Error; err != nil {
		http.NotFound(w, r)
		return
	}

	url := fmt.Sprintf("%s/api/registrations/%d/receipt", config.BaseURL(), reg.ID)
	png, err := qrcode.Encode(url, qrcode.Medium, 256)
	if err != nil {
		http.Error(w, "failed to generate qr", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
