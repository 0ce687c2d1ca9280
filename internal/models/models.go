package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency is an ISO currency tag. Only these three are sold in.
type Currency string

const (
	CurrencyTRY Currency = "TRY"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

func (c Currency) Valid() bool {
	switch c {
	case CurrencyTRY, CurrencyUSD, CurrencyEUR:
		return true
	}
	return false
}

// Registration status values (int column, back-office convention).
const (
	StatusCancelled = 0
	StatusActive    = 1
)

const (
	PaymentMethodOnline       = "online"
	PaymentMethodBankTransfer = "bank_transfer"

	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
)

// Refund workflow states.
const (
	RefundNone      = "none"
	RefundPending   = "pending"
	RefundCompleted = "completed"
	RefundRejected  = "rejected"
)

type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	NameTR string `json:"name_tr"`
	NameEN string `json:"name_en"`

	IsRequired    bool `json:"is_required"`
	AllowMultiple bool `json:"allow_multiple"`
	IsVisible     bool `gorm:"default:true" json:"is_visible"`
	IsActive      bool `gorm:"default:true" json:"is_active"`
	DisplayOrder  int  `gorm:"index" json:"display_order"`

	// 0 = unlimited
	Capacity int `json:"capacity"`

	RegistrationStart    *time.Time `json:"registration_start"`
	RegistrationEnd      *time.Time `json:"registration_end"`
	EarlyBirdDeadline    *time.Time `json:"early_bird_deadline"`
	CancellationDeadline *time.Time `json:"cancellation_deadline"`

	Types []RegistrationType `json:"types,omitempty"`
}

// Name returns the label for the given UI language ("tr" or "en").
func (c Category) Name(lang string) string {
	if lang == "en" && c.NameEN != "" {
		return c.NameEN
	}
	return c.NameTR
}

// EarlyBirdActive reports whether the early-bird window is still open at t.
func (c Category) EarlyBirdActive(t time.Time) bool {
	return c.EarlyBirdDeadline != nil && t.Before(*c.EarlyBirdDeadline)
}

type RegistrationType struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Value   string `gorm:"uniqueIndex;not null" json:"value"` // slug
	LabelTR string `json:"label_tr"`
	LabelEN string `json:"label_en"`

	CategoryID uint     `gorm:"index;not null" json:"category_id"`
	Category   Category `json:"-"`

	// Base price per currency. Non-negative; enforced at the API boundary.
	FeeTRY decimal.Decimal `gorm:"type:decimal(12,2)" json:"fee_try"`
	FeeUSD decimal.Decimal `gorm:"type:decimal(12,2)" json:"fee_usd"`
	FeeEUR decimal.Decimal `gorm:"type:decimal(12,2)" json:"fee_eur"`

	// Optional early-bird overrides. Null means "no override", never zero.
	EarlyBirdFeeTRY decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"early_bird_fee_try"`
	EarlyBirdFeeUSD decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"early_bird_fee_usd"`
	EarlyBirdFeeEUR decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"early_bird_fee_eur"`

	// Fraction, e.g. 0.20
	VATRate decimal.Decimal `gorm:"type:decimal(5,4)" json:"vat_rate"`

	RequiresDocument bool   `json:"requires_document"`
	DocumentLabel    string `json:"document_label"`

	IsActive     bool `gorm:"default:true" json:"is_active"`
	DisplayOrder int  `gorm:"index" json:"display_order"`
}

func (t RegistrationType) Label(lang string) string {
	if lang == "en" && t.LabelEN != "" {
		return t.LabelEN
	}
	return t.LabelTR
}

type Registration struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ReferenceNumber string `gorm:"uniqueIndex;not null" json:"reference_number"`

	// Personal
	FullName     string `gorm:"index" json:"full_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Organization string `json:"organization"`
	Country      string `json:"country"`
	City         string `json:"city"`
	Language     string `gorm:"default:tr" json:"language"` // tr | en

	// Invoice
	InvoiceType    string `json:"invoice_type"` // individual | corporate
	TaxOffice      string `json:"tax_office"`
	TaxNumber      string `json:"tax_number"`
	InvoiceAddress string `json:"invoice_address"`

	Currency     Currency        `json:"currency"`
	ExchangeRate decimal.Decimal `gorm:"type:decimal(12,6)" json:"exchange_rate"`
	GrandTotal   decimal.Decimal `gorm:"type:decimal(12,2)" json:"grand_total"`

	PaymentMethod string `json:"payment_method"` // online | bank_transfer
	PaymentStatus string `gorm:"default:pending" json:"payment_status"`

	Status       int    `gorm:"default:1" json:"status"` // 1 active, 0 cancelled
	RefundStatus string `gorm:"default:none" json:"refund_status"`

	ReceiptURL string `json:"receipt_url"`

	// Set by the bank-transfer reminder loop to avoid duplicate mails.
	LastReminderAt *time.Time `json:"last_reminder_at,omitempty"`

	Selections []RegistrationSelection `json:"selections,omitempty"`
}

// RegistrationSelection snapshots the applied fee at submission time so later
// admin edits to RegistrationType prices never alter historical totals.
type RegistrationSelection struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	RegistrationID     uint `gorm:"index;not null" json:"registration_id"`
	RegistrationTypeID uint `gorm:"index;not null" json:"registration_type_id"`
	CategoryID         uint `gorm:"index" json:"category_id"`

	AppliedFee      decimal.Decimal `gorm:"type:decimal(12,2)" json:"applied_fee"`
	AppliedCurrency Currency        `json:"applied_currency"`
	VATAmount       decimal.Decimal `gorm:"type:decimal(12,2)" json:"vat_amount"`
	Total           decimal.Decimal `gorm:"type:decimal(12,2)" json:"total"`

	IsCancelled  bool   `json:"is_cancelled"`
	RefundStatus string `gorm:"default:none" json:"refund_status"`

	DocumentURL string `json:"document_url"`
}

// AuditLog is append-only; written by admin mutation handlers, read-only from
// the back-office UI.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	UserID    string `gorm:"index" json:"user_id"`
	TableName string `gorm:"size:64;index" json:"table_name"`
	RecordID  uint   `gorm:"index" json:"record_id"`
	Action    string `gorm:"size:16" json:"action"` // CREATE | UPDATE | DELETE

	OldValues     string `gorm:"type:text" json:"old_values"`
	NewValues     string `gorm:"type:text" json:"new_values"`
	ChangedFields string `gorm:"type:text" json:"changed_fields"` // JSON array of keys

	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
}

const (
	AuditActionCreate = "CREATE"
	AuditActionUpdate = "UPDATE"
	AuditActionDelete = "DELETE"
)

// PaymentTransaction is the append-only POS log written around every gateway
// attempt, successful or not.
type PaymentTransaction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	RegistrationID uint `gorm:"index" json:"registration_id"`

	GatewayTransactionID string `json:"gateway_transaction_id"`
	ConversationID       string `json:"conversation_id"`

	Amount   decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount"`
	Currency Currency        `json:"currency"`

	Status       string `gorm:"index" json:"status"` // success | failure
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`

	ThreeDSUsed bool   `json:"threeds_used"`
	FraudScore  int    `json:"fraud_score"`
	RawResponse string `gorm:"type:text" json:"-"`
}

type BankAccount struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	BankName      string   `json:"bank_name"`
	Branch        string   `json:"branch"`
	AccountHolder string   `json:"account_holder"`
	IBAN          string   `gorm:"uniqueIndex" json:"iban"`
	Currency      Currency `json:"currency"`
	DisplayOrder  int      `json:"display_order"`
	IsActive      bool     `gorm:"default:true" json:"is_active"`
}

// FormSetting and PageSetting are flat key/value stores behind the
// form-settings and page-settings endpoints. PUT replaces rows in one
// transaction.
type FormSetting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UpdatedAt time.Time `json:"updated_at"`
	Key       string    `gorm:"uniqueIndex;size:128;not null" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
}

type PageSetting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UpdatedAt time.Time `json:"updated_at"`
	Key       string    `gorm:"uniqueIndex;size:128;not null" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
}
