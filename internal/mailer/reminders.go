package mailer

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kongrex/regdesk/internal/config"
	"github.com/kongrex/regdesk/internal/db"
	"github.com/kongrex/regdesk/internal/models"
)

// StartReminderLoop periodically mails bank-transfer registrations that are
// still pending. Env-gated; one reminder per registration per 24h.
func StartReminderLoop(m *Mailer) {
	if !config.RemindersEnabled() || !m.Enabled() {
		return
	}
	go func() {
		ticker := time.NewTicker(15 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			runReminders(m)
		}
	}()
}

// reminderCandidates selects pending bank-transfer registrations older than
// `after` that haven't been reminded since `resendAfter` ago. Split out so
// the window logic is testable without the loop.
func reminderCandidates(now time.Time, after, resendAfter time.Duration) []models.Registration {
	cutoff := now.Add(-after)
	resendCutoff := now.Add(-resendAfter)

	var regs []models.Registration
	_ = db.Conn().
		Where("payment_method = ? AND payment_status = ? AND status = ?",
			models.PaymentMethodBankTransfer, models.PaymentStatusPending, models.StatusActive).
		Where("created_at < ?", cutoff).
		Where("last_reminder_at IS NULL OR last_reminder_at < ?", resendCutoff).
		Find(&regs).Error
	return regs
}

func runReminders(m *Mailer) {
	after := time.Duration(config.ReminderAfterHours()) * time.Hour
	regs := reminderCandidates(time.Now(), after, 24*time.Hour)
	if len(regs) == 0 {
		return
	}

	var banks []models.BankAccount
	_ = db.Conn().Where("is_active = ?", true).Order("display_order asc").Find(&banks).Error

	for i := range regs {
		if err := m.SendReminder(regs[i], banks); err != nil {
			continue
		}
		now := time.Now()
		regs[i].LastReminderAt = &now
		_ = db.Conn().Model(&regs[i]).Update("last_reminder_at", now).Error
	}
	log.Info().Int("count", len(regs)).Msg("payment reminders processed")
}
