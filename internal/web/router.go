package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/kongrex/regdesk/internal/config"
	"github.com/kongrex/regdesk/internal/handlers"
	"github.com/kongrex/regdesk/internal/mailer"
	"github.com/kongrex/regdesk/internal/payment"
	"github.com/kongrex/regdesk/internal/storage"
)

// Router wires the public wizard API and the admin back office.
func Router(gw payment.Gateway, m *mailer.Mailer, store *storage.Local) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handlers.Health)

	// Uploaded documents and receipts.
	r.Handle("/uploads/*", http.StripPrefix("/uploads/",
		http.FileServer(http.Dir(config.UploadDir()))))

	// Public wizard API
	r.Post("/api/saveForm", handlers.SaveForm(gw, m))
	r.Post("/api/upload", handlers.Upload(store))
	r.Get("/api/categories", handlers.ListCategories)
	r.Get("/api/form-settings", handlers.GetFormSettings)
	r.Get("/api/page-settings", handlers.GetPageSettings)
	r.Get("/api/bank-accounts", handlers.ListBankAccounts)

	r.Get("/api/registrations", handlers.ListRegistrations)
	r.Get("/api/registrations/{id}", handlers.GetRegistration)
	r.Patch("/api/registrations/{id}", handlers.PatchRegistration)
	r.Get("/api/registrations/{id}/receipt", handlers.Receipt(config.TemplateDir()))
	r.Get("/qr/{ref}.png", handlers.QR)

	// Admin back office
	r.Route("/api/admin", func(ar chi.Router) {
		ar.Use(handlers.RequireAdmin)

		ar.Get("/audit-logs", handlers.AdminListAuditLogs)
		ar.Get("/pos-logs", handlers.AdminListPOSLogs)

		ar.Get("/categories", handlers.AdminListCategories)
		ar.Post("/categories", handlers.AdminCreateCategory)
		ar.Get("/categories/{id}", handlers.AdminGetCategory)
		ar.Put("/categories/{id}", handlers.AdminUpdateCategory)
		ar.Delete("/categories/{id}", handlers.AdminDeleteCategory)

		ar.Get("/registration-types", handlers.AdminListRegistrationTypes)
		ar.Post("/registration-types", handlers.AdminCreateRegistrationType)
		ar.Get("/registration-types/{id}", handlers.AdminGetRegistrationType)
		ar.Put("/registration-types/{id}", handlers.AdminUpdateRegistrationType)
		ar.Delete("/registration-types/{id}", handlers.AdminDeleteRegistrationType)

		ar.Get("/form-settings", handlers.GetFormSettings)
		ar.Put("/form-settings", handlers.PutFormSettings)
		ar.Get("/page-settings", handlers.GetPageSettings)
		ar.Put("/page-settings", handlers.PutPageSettings)

		ar.Get("/bank-settings", handlers.AdminListBankAccounts)
		ar.Put("/bank-settings", handlers.PutBankSettings)
		ar.Get("/bank-accounts", handlers.AdminListBankAccounts)
		ar.Post("/bank-accounts", handlers.AdminCreateBankAccount)
		ar.Put("/bank-accounts/{id}", handlers.AdminUpdateBankAccount)
		ar.Delete("/bank-accounts/{id}", handlers.AdminDeleteBankAccount)

		ar.Post("/registrations/{id}/confirm-payment", handlers.AdminConfirmPayment(m))
		ar.Post("/registrations/{id}/cancel", handlers.AdminCancelRegistration(m))
		ar.Post("/registrations/{id}/reactivate", handlers.AdminReactivateRegistration(m))
		ar.Post("/registrations/{id}/refund/request", handlers.AdminRequestRefund(m))
		ar.Post("/registrations/{id}/refund/complete", handlers.AdminCompleteRefund(m))
		ar.Post("/registrations/{id}/refund/reject", handlers.AdminRejectRefund(m))
		ar.Post("/registrations/{id}/receipt", handlers.AdminUploadReceipt(store))
		ar.Delete("/registrations/{id}/receipt", handlers.AdminDeleteReceipt(store))
	})

	return r
}

// requestLogger is the zerolog replacement for chi's default Logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}
