package handlers

import (
	"net/http"

	"github.com/kongrex/regdesk/internal/audit"
	"github.com/kongrex/regdesk/internal/db"
	"github.com/kongrex/regdesk/internal/models"
)

// auditLogView is what the back office renders: the raw row plus parsed
// snapshots and human-readable change lines. Snapshots that fail to parse
// fall back to the raw string so the row is never hidden.
type auditLogView struct {
	models.AuditLog
	OldParsed map[string]any `json:"old_parsed,omitempty"`
	NewParsed map[string]any `json:"new_parsed,omitempty"`
	RawOld    string         `json:"raw_old,omitempty"`
	RawNew    string         `json:"raw_new,omitempty"`
	Changes   []audit.Change `json:"changes"`
}

func buildAuditView(row models.AuditLog) auditLogView {
	v := auditLogView{AuditLog: row, Changes: []audit.Change{}}

	oldVals, oldOK := audit.ParseSnapshot(row.OldValues)
	newVals, newOK := audit.ParseSnapshot(row.NewValues)
	if oldOK {
		v.OldParsed = oldVals
	} else {
		v.RawOld = row.OldValues
	}
	if newOK {
		v.NewParsed = newVals
	} else {
		v.RawNew = row.NewValues
	}

	if oldOK && newOK {
		v.Changes = audit.RenderChanges(oldVals, newVals)
	}
	return v
}

// GET /api/admin/audit-logs?page=&limit=&table_name=&record_id=&reference_number=&full_name=
//
// reference_number and full_name filters resolve to registration rows first,
// then match audit entries on the registrations table.
func AdminListAuditLogs(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)

	q := db.Conn().Model(&models.AuditLog{})
	if t := r.URL.Query().Get("table_name"); t != "" {
		q = q.Where("table_name = ?", t)
	}
	if id := r.URL.Query().Get("record_id"); id != "" {
		q = q.Where("record_id = ?", id)
	}
	if a := r.URL.Query().Get("action"); a != "" {
		q = q.Where("action = ?", a)
	}

	ref := r.URL.Query().Get("reference_number")
	name := r.URL.Query().Get("full_name")
	if ref != "" || name != "" {
		rq := db.Conn().Model(&models.Registration{})
		if ref != "" {
			rq = rq.Where("reference_number = ?", ref)
		}
		if name != "" {
			rq = rq.Where("full_name LIKE ?", "%"+name+"%")
		}
		var ids []uint
		if err := rq.Pluck("id", &ids).Error; err != nil {
			fail(w, http.StatusInternalServerError, "db error")
			return
		}
		if len(ids) == 0 {
			respond(w, http.StatusOK, map[string]any{
				"data": []auditLogView{}, "currentPage": page, "totalPages": 1,
			})
			return
		}
		q = q.Where("table_name = ? AND record_id IN ?", "registrations", ids)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		fail(w, http.StatusInternalServerError, "db error")
		return
	}

	var rows []models.AuditLog
	if err := q.Order("created_at desc, id desc").
		Offset((page - 1) * limit).Limit(limit).
		Find(&rows).Error; err != nil {
		fail(w, http.StatusInternalServerError, "db error")
		return
	}

	views := make([]auditLogView, 0, len(rows))
	for _, row := range rows {
		views = append(views, buildAuditView(row))
	}

	respond(w, http.StatusOK, map[string]any{
		"data":        views,
		"currentPage": page,
		"totalPages":  totalPages(total, limit),
	})
}
