package wizard

import (
	"fmt"

	"github.com/kongrex/regdesk/internal/models"
)

// Validation messages per UI language. These are user-facing strings that
// block progression to the next step; they are not request errors.
var messages = map[string]struct {
	noSelection      string
	categoryRequired string
	documentRequired string
}{
	"tr": {
		noSelection:      "Lütfen en az bir kayıt seçimi yapın.",
		categoryRequired: "%s kategorisinde seçim yapmanız zorunludur.",
		documentRequired: "%s için belge yüklemeniz gerekmektedir.",
	},
	"en": {
		noSelection:      "Please make at least one selection.",
		categoryRequired: "A selection in the %s category is required.",
		documentRequired: "A document upload is required for %s.",
	},
}

func msgs(lang string) struct {
	noSelection      string
	categoryRequired string
	documentRequired string
} {
	if m, ok := messages[lang]; ok {
		return m
	}
	return messages["tr"]
}

// ValidateSelections checks the selection step against the loaded categories
// and types. It returns user-facing error strings in the state's language;
// an empty slice means the wizard may advance.
//
// Rules:
//   - at least one selection overall
//   - every is_required category has at least one selection
//   - a category that does not allow multiple holds at most one selection
//   - every selected requires_document type has an attached document
func ValidateSelections(s FormState, categories []models.Category, types []models.RegistrationType) []string {
	m := msgs(s.Language)
	var errs []string

	if len(s.SelectedTypeIDs()) == 0 {
		return []string{m.noSelection}
	}

	typeByID := make(map[uint]models.RegistrationType, len(types))
	for _, t := range types {
		typeByID[t.ID] = t
	}

	for _, cat := range categories {
		if !cat.IsActive || !cat.IsVisible {
			continue
		}
		sel := s.Selections[cat.ID]
		if cat.IsRequired && len(sel) == 0 {
			errs = append(errs, fmt.Sprintf(m.categoryRequired, cat.Name(s.Language)))
		}
		if !cat.AllowMultiple && len(sel) > 1 {
			errs = append(errs, fmt.Sprintf(m.categoryRequired, cat.Name(s.Language)))
		}
	}

	for _, ids := range s.Selections {
		for _, id := range ids {
			t, ok := typeByID[id]
			if !ok {
				continue
			}
			if t.RequiresDocument && s.Documents[t.ID] == "" {
				errs = append(errs, fmt.Sprintf(m.documentRequired, t.Label(s.Language)))
			}
		}
	}

	return errs
}
