// Package audit compares stored before/after snapshots and renders the
// result for the back-office change log.
package audit

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Diff returns the keys present in newSnap whose value differs structurally
// from oldSnap. Equality is canonical-JSON equality, so nested objects with
// different key order still compare equal. The result is sorted.
func Diff(oldSnap, newSnap map[string]any) []string {
	changed := make([]string, 0, len(newSnap))
	for k, nv := range newSnap {
		ov, ok := oldSnap[k]
		if !ok || canonicalJSON(ov) != canonicalJSON(nv) {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	return changed
}

// canonicalJSON serializes v with object keys sorted recursively, giving a
// stable text for structural comparison.
func canonicalJSON(v any) string {
	var b strings.Builder
	writeCanonical(&b, v)
	return b.String()
}

func writeCanonical(b *strings.Builder, v any) {
	switch t := v.(type) {
	case nil:
		b.WriteString("null")
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			b.Write(kb)
			b.WriteByte(':')
			writeCanonical(b, t[k])
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, e)
		}
		b.WriteByte(']')
	case json.Number:
		b.WriteString(normalizeNumber(string(t)))
	case float64:
		b.WriteString(strconv.FormatFloat(t, 'g', -1, 64))
	default:
		// strings, bools, and anything a caller passed straight through
		eb, err := json.Marshal(t)
		if err != nil {
			b.WriteString(strconv.Quote("?"))
			return
		}
		b.Write(eb)
	}
}

// normalizeNumber makes "1", "1.0" and "1e0" compare equal.
func normalizeNumber(s string) string {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// ParseSnapshot decodes a stored JSON snapshot. Malformed payloads come back
// as ok=false so callers can fall back to showing the raw text instead of
// failing the whole page.
func ParseSnapshot(raw string) (map[string]any, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return map[string]any{}, true
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, false
	}
	return m, true
}
