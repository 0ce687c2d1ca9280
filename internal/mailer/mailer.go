// Package mailer renders and sends registration emails over SMTP.
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/kongrex/regdesk/internal/models"
	"github.com/kongrex/regdesk/internal/money"
)

type Mailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	tmpl *template.Template
}

// LineItem is one priced selection shown in the confirmation email.
type LineItem struct {
	Label string
	Fee   decimal.Decimal
	VAT   decimal.Decimal
	Total decimal.Decimal
}

type ConfirmationData struct {
	Registration models.Registration
	Lines        []LineItem
	BankAccounts []models.BankAccount
	ReceiptURL   string
}

func New(host string, port int, username, password, from, templateDir string) (*Mailer, error) {
	funcs := template.FuncMap{
		"amount": func(d decimal.Decimal, c models.Currency) string {
			return money.FormatAmount(d, c)
		},
	}
	tmpl, err := template.New("").Funcs(funcs).ParseGlob(filepath.Join(templateDir, "email", "*.tmpl"))
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	return &Mailer{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		From:     from,
		tmpl:     tmpl,
	}, nil
}

// Enabled reports whether SMTP is configured. A nil or unconfigured mailer
// silently skips sends so local setups work without a mail server.
func (m *Mailer) Enabled() bool {
	return m != nil && m.Host != ""
}

// SendConfirmation mails the post-submission summary: reference number, line
// items, grand total, and (for bank transfers) the accounts to wire to.
func (m *Mailer) SendConfirmation(data ConfirmationData) error {
	subject := "Kayıt Onayı • " + data.Registration.ReferenceNumber
	if data.Registration.Language == "en" {
		subject = "Registration Confirmation • " + data.Registration.ReferenceNumber
	}
	return m.send(data.Registration.Email, subject, "confirmation.tmpl", data)
}

// SendPaymentConfirmed tells the attendee an admin marked their transfer as
// received.
func (m *Mailer) SendPaymentConfirmed(reg models.Registration) error {
	subject := "Ödemeniz Alındı • " + reg.ReferenceNumber
	if reg.Language == "en" {
		subject = "Payment Received • " + reg.ReferenceNumber
	}
	return m.send(reg.Email, subject, "payment_confirmed.tmpl", ConfirmationData{Registration: reg})
}

// SendReminder nudges a bank-transfer registration that is still pending.
func (m *Mailer) SendReminder(reg models.Registration, banks []models.BankAccount) error {
	subject := "Ödeme Hatırlatması • " + reg.ReferenceNumber
	if reg.Language == "en" {
		subject = "Payment Reminder • " + reg.ReferenceNumber
	}
	data := ConfirmationData{Registration: reg, BankAccounts: banks}
	return m.send(reg.Email, subject, "reminder.tmpl", data)
}

func (m *Mailer) send(to, subject, templateName string, data any) error {
	if !m.Enabled() {
		log.Debug().Str("to", to).Msg("smtp not configured; mail skipped")
		return nil
	}
	if to == "" {
		return nil
	}

	var body bytes.Buffer
	if err := m.tmpl.ExecuteTemplate(&body, templateName, data); err != nil {
		return fmt.Errorf("render %s: %w", templateName, err)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		m.From, to, subject, body.String())

	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)
	auth := smtp.PlainAuth("", m.Username, m.Password, m.Host)
	if err := smtp.SendMail(addr, auth, m.From, []string{to}, []byte(msg)); err != nil {
		log.Warn().Err(err).Str("to", to).Msg("mail send failed")
		return fmt.Errorf("send mail: %w", err)
	}
	log.Info().Str("to", to).Str("template", templateName).Msg("mail sent")
	return nil
}
