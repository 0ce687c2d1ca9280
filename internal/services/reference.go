package services

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"gorm.io/gorm"

	"github.com/kongrex/regdesk/internal/models"
)

// newReferenceCandidate returns a "KNG-XXXXXXXX" candidate (uppercase hex,
// 32 bits of entropy).
func newReferenceCandidate() string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return ""
	}
	return "KNG-" + strings.ToUpper(hex.EncodeToString(b[:]))
}

// GenerateReferenceNumber creates a reference number that is unique among
// registrations, retrying on the rare collision.
func GenerateReferenceNumber(tx *gorm.DB) string {
	for i := 0; i < 20; i++ {
		ref := newReferenceCandidate()
		if ref == "" {
			continue
		}
		var exists int64
		_ = tx.Model(&models.Registration{}).Where("reference_number = ?", ref).Count(&exists).Error
		if exists == 0 {
			return ref
		}
	}
	return ""
}
