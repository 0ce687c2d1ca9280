package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kongrex/regdesk/internal/db"
	"github.com/kongrex/regdesk/internal/models"
	"github.com/kongrex/regdesk/internal/payment"
)

func initTestDB(t *testing.T) {
	t.Helper()
	if err := db.Init(filepath.Join(t.TempDir(), "test.db")); err != nil {
		t.Fatalf("db init: %v", err)
	}
}

// seedCatalog creates one required category with one active type:
// fee 500 TRY, VAT 20%.
func seedCatalog(t *testing.T) (models.Category, models.RegistrationType) {
	t.Helper()
	cat := models.Category{
		NameTR:     "Kongre Kaydı",
		NameEN:     "Congress Registration",
		IsRequired: true,
		IsVisible:  true,
		IsActive:   true,
	}
	if err := db.Conn().Create(&cat).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}
	rt := models.RegistrationType{
		Value:      "member",
		LabelTR:    "Üye",
		LabelEN:    "Member",
		CategoryID: cat.ID,
		FeeTRY:     decimal.NewFromInt(500),
		FeeUSD:     decimal.NewFromInt(20),
		FeeEUR:     decimal.NewFromInt(18),
		VATRate:    decimal.NewFromFloat(0.20),
		IsActive:   true,
	}
	if err := db.Conn().Create(&rt).Error; err != nil {
		t.Fatalf("seed type: %v", err)
	}
	return cat, rt
}

type stubGateway struct {
	result *payment.ChargeResult
	err    error
	calls  int
}

func (g *stubGateway) Charge(ctx context.Context, req payment.ChargeRequest) (*payment.ChargeResult, error) {
	g.calls++
	return g.result, g.err
}

func postSaveForm(t *testing.T, gw payment.Gateway, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/saveForm", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	SaveForm(gw, nil)(rec, req)
	return rec
}

func baseForm(cat models.Category, rt models.RegistrationType) map[string]any {
	return map[string]any{
		"language":       "tr",
		"currency":       "TRY",
		"full_name":      "Ayşe Yılmaz",
		"email":          "ayse@example.com",
		"phone":          "+905551112233",
		"payment_method": "bank_transfer",
		"selections":     map[string][]uint{jsonKey(cat.ID): {rt.ID}},
	}
}

func jsonKey(id uint) string {
	raw, _ := json.Marshal(id)
	return string(raw)
}

func TestSaveForm_BankTransfer(t *testing.T) {
	initTestDB(t)
	cat, rt := seedCatalog(t)

	rec := postSaveForm(t, &stubGateway{}, baseForm(cat, rt))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success         bool   `json:"success"`
		ReferenceNumber string `json:"referenceNumber"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.ReferenceNumber == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	var reg models.Registration
	if err := db.Conn().Preload("Selections").
		Where("reference_number = ?", resp.ReferenceNumber).First(&reg).Error; err != nil {
		t.Fatalf("load registration: %v", err)
	}
	if !reg.GrandTotal.Equal(decimal.NewFromInt(600)) {
		t.Errorf("grand total = %s, want 600", reg.GrandTotal)
	}
	if reg.PaymentStatus != models.PaymentStatusPending {
		t.Errorf("payment status = %q, want pending", reg.PaymentStatus)
	}
	if len(reg.Selections) != 1 {
		t.Fatalf("selections = %d, want 1", len(reg.Selections))
	}
	sel := reg.Selections[0]
	if !sel.AppliedFee.Equal(decimal.NewFromInt(500)) ||
		!sel.VATAmount.Equal(decimal.NewFromInt(100)) ||
		!sel.Total.Equal(decimal.NewFromInt(600)) {
		t.Errorf("selection snapshot fee=%s vat=%s total=%s", sel.AppliedFee, sel.VATAmount, sel.Total)
	}
}

func TestSaveForm_OnlineApproved(t *testing.T) {
	initTestDB(t)
	cat, rt := seedCatalog(t)

	gw := &stubGateway{result: &payment.ChargeResult{Success: true, TransactionID: "tx-1"}}
	body := baseForm(cat, rt)
	body["payment_method"] = "online"
	body["card"] = map[string]string{
		"holder":       "Ayşe Yılmaz",
		"number":       "4242424242424242",
		"expire_month": "12",
		"expire_year":  "2030",
		"cvc":          "123",
	}

	rec := postSaveForm(t, gw, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if gw.calls != 1 {
		t.Errorf("gateway calls = %d, want 1", gw.calls)
	}

	var reg models.Registration
	if err := db.Conn().First(&reg).Error; err != nil {
		t.Fatalf("load registration: %v", err)
	}
	if reg.PaymentStatus != models.PaymentStatusCompleted {
		t.Errorf("payment status = %q, want completed", reg.PaymentStatus)
	}

	var tx models.PaymentTransaction
	if err := db.Conn().First(&tx).Error; err != nil {
		t.Fatalf("load pos log: %v", err)
	}
	if tx.Status != "success" || tx.RegistrationID != reg.ID {
		t.Errorf("pos log status=%q reg=%d", tx.Status, tx.RegistrationID)
	}
}

// A declined card reports 402 with the gateway's error, and the registration
// stays persisted as pending.
func TestSaveForm_OnlineDeclined(t *testing.T) {
	initTestDB(t)
	cat, rt := seedCatalog(t)

	gw := &stubGateway{result: &payment.ChargeResult{
		Success:      false,
		ErrorCode:    "INSUFFICIENT_FUNDS",
		ErrorMessage: "kart limiti yetersiz",
	}}
	body := baseForm(cat, rt)
	body["payment_method"] = "online"
	body["card"] = map[string]string{
		"holder":       "Ayşe Yılmaz",
		"number":       "4242424242424242",
		"expire_month": "12",
		"expire_year":  "2030",
		"cvc":          "123",
	}

	rec := postSaveForm(t, gw, body)
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success         bool   `json:"success"`
		ReferenceNumber string `json:"referenceNumber"`
		PaymentResult   struct {
			ErrorCode    string `json:"errorCode"`
			ErrorMessage string `json:"errorMessage"`
		} `json:"paymentResult"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Success {
		t.Error("expected success=false")
	}
	if resp.PaymentResult.ErrorCode != "INSUFFICIENT_FUNDS" {
		t.Errorf("errorCode = %q", resp.PaymentResult.ErrorCode)
	}

	var reg models.Registration
	if err := db.Conn().Where("reference_number = ?", resp.ReferenceNumber).First(&reg).Error; err != nil {
		t.Fatalf("registration should persist after decline: %v", err)
	}
	if reg.PaymentStatus != models.PaymentStatusPending {
		t.Errorf("payment status = %q, want pending", reg.PaymentStatus)
	}

	var tx models.PaymentTransaction
	if err := db.Conn().First(&tx).Error; err != nil {
		t.Fatalf("load pos log: %v", err)
	}
	if tx.Status != "failure" || tx.ErrorCode != "INSUFFICIENT_FUNDS" {
		t.Errorf("pos log status=%q code=%q", tx.Status, tx.ErrorCode)
	}
}

func TestSaveForm_MissingRequiredCategory(t *testing.T) {
	initTestDB(t)
	cat, rt := seedCatalog(t)

	body := baseForm(cat, rt)
	body["selections"] = map[string][]uint{}

	rec := postSaveForm(t, &stubGateway{}, body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool     `json:"success"`
		Error   string   `json:"error"`
		Errors  []string `json:"errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error == "" || len(resp.Errors) == 0 {
		t.Errorf("expected validation errors, got %+v", resp)
	}

	var count int64
	db.Conn().Model(&models.Registration{}).Count(&count)
	if count != 0 {
		t.Errorf("registrations persisted = %d, want 0", count)
	}
}

// A category with capacity 1 accepts one selection and rejects the next.
func TestSaveForm_CapacityEnforced(t *testing.T) {
	initTestDB(t)
	cat, rt := seedCatalog(t)
	db.Conn().Model(&cat).Update("capacity", 1)

	rec := postSaveForm(t, &stubGateway{}, baseForm(cat, rt))
	if rec.Code != http.StatusCreated {
		t.Fatalf("first submission: %d, body = %s", rec.Code, rec.Body.String())
	}

	second := baseForm(cat, rt)
	second["email"] = "mehmet@example.com"
	rec = postSaveForm(t, &stubGateway{}, second)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("second submission: %d, want 400; body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error != "Kongre Kaydı kategorisinde kontenjan dolmuştur." {
		t.Errorf("error = %q", resp.Error)
	}

	var count int64
	db.Conn().Model(&models.Registration{}).Count(&count)
	if count != 1 {
		t.Errorf("registrations = %d, want 1", count)
	}
}

// Cancelled selections free their seat again.
func TestSaveForm_CapacityIgnoresCancelled(t *testing.T) {
	initTestDB(t)
	cat, rt := seedCatalog(t)
	db.Conn().Model(&cat).Update("capacity", 1)

	rec := postSaveForm(t, &stubGateway{}, baseForm(cat, rt))
	if rec.Code != http.StatusCreated {
		t.Fatalf("first submission: %d", rec.Code)
	}
	db.Conn().Model(&models.RegistrationSelection{}).
		Where("1 = 1").Update("is_cancelled", true)

	rec = postSaveForm(t, &stubGateway{}, baseForm(cat, rt))
	if rec.Code != http.StatusCreated {
		t.Fatalf("after cancellation: %d, want 201; body = %s", rec.Code, rec.Body.String())
	}
}

func TestSaveForm_BeforeRegistrationStart(t *testing.T) {
	initTestDB(t)
	cat, rt := seedCatalog(t)
	start := time.Now().Add(24 * time.Hour)
	db.Conn().Model(&cat).Update("registration_start", start)

	rec := postSaveForm(t, &stubGateway{}, baseForm(cat, rt))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error != "Kongre Kaydı kategorisi için kayıt henüz açılmadı." {
		t.Errorf("error = %q", resp.Error)
	}
}

// The configured static rate is stamped on the registration; TRY is always 1.
func TestSaveForm_ExchangeRate(t *testing.T) {
	initTestDB(t)
	cat, rt := seedCatalog(t)
	t.Setenv("EXCHANGE_RATE_USD", "41.25")

	body := baseForm(cat, rt)
	body["currency"] = "USD"
	rec := postSaveForm(t, &stubGateway{}, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var reg models.Registration
	if err := db.Conn().First(&reg).Error; err != nil {
		t.Fatal(err)
	}
	if !reg.ExchangeRate.Equal(decimal.RequireFromString("41.25")) {
		t.Errorf("exchange rate = %s, want 41.25", reg.ExchangeRate)
	}

	initTestDB(t)
	cat, rt = seedCatalog(t)
	rec = postSaveForm(t, &stubGateway{}, baseForm(cat, rt))
	if rec.Code != http.StatusCreated {
		t.Fatalf("TRY submission: %d", rec.Code)
	}
	if err := db.Conn().First(&reg).Error; err != nil {
		t.Fatal(err)
	}
	if !reg.ExchangeRate.Equal(decimal.NewFromInt(1)) {
		t.Errorf("TRY exchange rate = %s, want 1", reg.ExchangeRate)
	}
}

func TestSaveForm_OnlineWithoutCard(t *testing.T) {
	initTestDB(t)
	cat, rt := seedCatalog(t)

	body := baseForm(cat, rt)
	body["payment_method"] = "online"

	rec := postSaveForm(t, &stubGateway{}, body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}
