package services

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/kongrex/regdesk/internal/audit"
	"github.com/kongrex/regdesk/internal/models"
)

// AuditContext carries request identity into the audit trail.
type AuditContext struct {
	UserID    string
	IPAddress string
	UserAgent string
}

// Snapshot turns a model into the flat map stored in old_values/new_values.
// It round-trips through the model's JSON form so the snapshot matches what
// the API exposes.
func Snapshot(v any) map[string]any {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	m, ok := audit.ParseSnapshot(string(raw))
	if !ok {
		return nil
	}
	return m
}

// RecordAudit appends an AuditLog row for an admin mutation. changed_fields
// is computed with the diff engine. Audit failures are logged, never
// propagated: the mutation itself already succeeded.
func RecordAudit(tx *gorm.DB, ac AuditContext, table string, recordID uint, action string, oldSnap, newSnap map[string]any) {
	oldJSON, _ := json.Marshal(oldSnap)
	newJSON, _ := json.Marshal(newSnap)

	changed := []string{}
	switch action {
	case models.AuditActionUpdate:
		changed = audit.Diff(oldSnap, newSnap)
	case models.AuditActionCreate:
		changed = audit.Diff(map[string]any{}, newSnap)
	}
	changedJSON, _ := json.Marshal(changed)

	entry := models.AuditLog{
		UserID:        ac.UserID,
		TableName:     table,
		RecordID:      recordID,
		Action:        action,
		OldValues:     string(oldJSON),
		NewValues:     string(newJSON),
		ChangedFields: string(changedJSON),
		IPAddress:     ac.IPAddress,
		UserAgent:     ac.UserAgent,
	}
	if err := tx.Create(&entry).Error; err != nil {
		log.Warn().Err(err).Str("table", table).Uint("record", recordID).Msg("audit write failed")
	}
}
