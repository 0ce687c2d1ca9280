package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/kongrex/regdesk/internal/db"
	"github.com/kongrex/regdesk/internal/models"
)

var (
	ErrAlreadyCompleted = errors.New("payment already completed")
	ErrAlreadyCancelled = errors.New("registration already cancelled")
	ErrNotCancelled     = errors.New("registration is not cancelled")
	ErrRefundState      = errors.New("invalid refund state transition")
	ErrRefundCompleted  = errors.New("refund completed; registration cannot be reactivated")
)

// ConfirmPayment marks a pending registration as paid (bank-transfer flow,
// or a manual fix-up after a gateway hiccup).
func ConfirmPayment(regID uint) (*models.Registration, error) {
	var reg models.Registration
	err := db.Conn().Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&reg, regID).Error; err != nil {
			return err
		}
		if reg.PaymentStatus == models.PaymentStatusCompleted {
			return ErrAlreadyCompleted
		}
		reg.PaymentStatus = models.PaymentStatusCompleted
		return tx.Save(&reg).Error
	})
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// CancelRegistration marks the registration and all of its selections
// cancelled. The rows stay in place; nothing is hard-deleted.
func CancelRegistration(regID uint) (*models.Registration, error) {
	var reg models.Registration
	err := db.Conn().Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&reg, regID).Error; err != nil {
			return err
		}
		if reg.Status == models.StatusCancelled {
			return ErrAlreadyCancelled
		}
		reg.Status = models.StatusCancelled
		if err := tx.Save(&reg).Error; err != nil {
			return err
		}
		return tx.Model(&models.RegistrationSelection{}).
			Where("registration_id = ?", reg.ID).
			Update("is_cancelled", true).Error
	})
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// Reactivate flips a cancelled registration back to active. A completed
// refund is final: the registration can never return to active after it.
func Reactivate(regID uint) (*models.Registration, error) {
	var reg models.Registration
	err := db.Conn().Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&reg, regID).Error; err != nil {
			return err
		}
		if reg.Status == models.StatusActive {
			return nil
		}
		if reg.RefundStatus == models.RefundCompleted {
			return ErrRefundCompleted
		}
		reg.Status = models.StatusActive
		if err := tx.Save(&reg).Error; err != nil {
			return err
		}
		return tx.Model(&models.RegistrationSelection{}).
			Where("registration_id = ?", reg.ID).
			Update("is_cancelled", false).Error
	})
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// Refund workflow: none -> pending -> completed | rejected. A rejected
// refund may be requested again; a completed one is terminal.
func RequestRefund(regID uint) (*models.Registration, error) {
	return transitionRefund(regID, func(reg *models.Registration) error {
		if reg.Status != models.StatusCancelled {
			return ErrNotCancelled
		}
		switch reg.RefundStatus {
		case models.RefundNone, models.RefundRejected:
			reg.RefundStatus = models.RefundPending
			return nil
		}
		return ErrRefundState
	})
}

func CompleteRefund(regID uint) (*models.Registration, error) {
	return transitionRefund(regID, func(reg *models.Registration) error {
		if reg.RefundStatus != models.RefundPending {
			return ErrRefundState
		}
		reg.RefundStatus = models.RefundCompleted
		return nil
	})
}

func RejectRefund(regID uint) (*models.Registration, error) {
	return transitionRefund(regID, func(reg *models.Registration) error {
		if reg.RefundStatus != models.RefundPending {
			return ErrRefundState
		}
		reg.RefundStatus = models.RefundRejected
		return nil
	})
}

func transitionRefund(regID uint, apply func(*models.Registration) error) (*models.Registration, error) {
	var reg models.Registration
	err := db.Conn().Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&reg, regID).Error; err != nil {
			return err
		}
		if err := apply(&reg); err != nil {
			return err
		}
		return tx.Save(&reg).Error
	})
	if err != nil {
		return nil, err
	}
	return &reg, nil
}
