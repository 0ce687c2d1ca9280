// Package wizard holds the registration form state accumulated across steps.
// State is an explicit, serializable value; every update is a pure reducer
// returning a new copy, so no step can observe another step's half-applied
// mutation.
package wizard

import (
	"github.com/kongrex/regdesk/internal/models"
)

type PersonalInfo struct {
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Organization string `json:"organization"`
	Country      string `json:"country"`
	City         string `json:"city"`
}

type InvoiceInfo struct {
	Type    string `json:"type"` // individual | corporate
	Office  string `json:"tax_office"`
	Number  string `json:"tax_number"`
	Address string `json:"address"`
}

type FormState struct {
	Language string          `json:"language"` // tr | en
	Currency models.Currency `json:"currency"`

	Personal PersonalInfo `json:"personal"`
	Invoice  InvoiceInfo  `json:"invoice"`

	// categoryID -> selected type IDs
	Selections map[uint][]uint `json:"selections"`
	// typeID -> uploaded document URL
	Documents map[uint]string `json:"documents"`

	PaymentMethod   string `json:"payment_method"`
	ReferenceNumber string `json:"reference_number"`
}

// New returns an empty state for the given UI language and currency.
func New(lang string, cur models.Currency) FormState {
	return FormState{
		Language:   lang,
		Currency:   cur,
		Selections: map[uint][]uint{},
		Documents:  map[uint]string{},
	}
}

func (s FormState) clone() FormState {
	sel := make(map[uint][]uint, len(s.Selections))
	for k, v := range s.Selections {
		sel[k] = append([]uint(nil), v...)
	}
	docs := make(map[uint]string, len(s.Documents))
	for k, v := range s.Documents {
		docs[k] = v
	}
	s.Selections = sel
	s.Documents = docs
	return s
}

func (s FormState) WithPersonal(p PersonalInfo) FormState {
	out := s.clone()
	out.Personal = p
	return out
}

func (s FormState) WithInvoice(inv InvoiceInfo) FormState {
	out := s.clone()
	out.Invoice = inv
	return out
}

// ToggleSelection adds or removes typeID in cat. A second toggle of a
// selected type deselects it. When the category does not allow multiple
// selections, picking a new type replaces the previous one.
func (s FormState) ToggleSelection(cat models.Category, typeID uint) FormState {
	out := s.clone()
	current := out.Selections[cat.ID]

	for i, id := range current {
		if id == typeID {
			current = append(current[:i], current[i+1:]...)
			if len(current) == 0 {
				delete(out.Selections, cat.ID)
			} else {
				out.Selections[cat.ID] = current
			}
			return out
		}
	}

	if cat.AllowMultiple {
		out.Selections[cat.ID] = append(current, typeID)
	} else {
		out.Selections[cat.ID] = []uint{typeID}
	}
	return out
}

// AttachDocument records an uploaded document URL for a selected type.
func (s FormState) AttachDocument(typeID uint, url string) FormState {
	out := s.clone()
	if url == "" {
		delete(out.Documents, typeID)
	} else {
		out.Documents[typeID] = url
	}
	return out
}

func (s FormState) WithPaymentMethod(method string) FormState {
	out := s.clone()
	out.PaymentMethod = method
	return out
}

func (s FormState) WithReference(ref string) FormState {
	out := s.clone()
	out.ReferenceNumber = ref
	return out
}

// SelectedTypeIDs flattens the selection map.
func (s FormState) SelectedTypeIDs() []uint {
	var out []uint
	for _, ids := range s.Selections {
		out = append(out, ids...)
	}
	return out
}
