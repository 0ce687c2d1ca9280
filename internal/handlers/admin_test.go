package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/kongrex/regdesk/internal/db"
	"github.com/kongrex/regdesk/internal/models"
)

// withURLParam injects a chi route param so handlers can be called without a
// full router.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestAdminCategoryCRUD(t *testing.T) {
	initTestDB(t)

	body := bytes.NewBufferString(`{"name_tr":"Kurslar","name_en":"Courses","is_required":false,"allow_multiple":true}`)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/categories", body)
	rec := httptest.NewRecorder()
	AdminCreateCategory(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var created struct {
		Data models.Category `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Data.NameTR != "Kurslar" || !created.Data.AllowMultiple {
		t.Errorf("unexpected category: %+v", created.Data)
	}

	// Update renames it and records an audit row with the changed field.
	upd := bytes.NewBufferString(`{"name_tr":"Atölyeler","name_en":"Courses","allow_multiple":true}`)
	req = withURLParam(httptest.NewRequest(http.MethodPut, "/", upd), "id", fmt.Sprint(created.Data.ID))
	rec = httptest.NewRecorder()
	AdminUpdateCategory(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var logs []models.AuditLog
	db.Conn().Where("table_name = ?", "categories").Order("id asc").Find(&logs)
	if len(logs) != 2 {
		t.Fatalf("audit rows = %d, want 2 (create + update)", len(logs))
	}
	if logs[0].Action != models.AuditActionCreate || logs[1].Action != models.AuditActionUpdate {
		t.Errorf("audit actions = %q, %q", logs[0].Action, logs[1].Action)
	}
	var changed []string
	if err := json.Unmarshal([]byte(logs[1].ChangedFields), &changed); err != nil {
		t.Fatalf("changed_fields: %v", err)
	}
	found := false
	for _, f := range changed {
		if f == "name_tr" {
			found = true
		}
	}
	if !found {
		t.Errorf("changed_fields = %v, want name_tr present", changed)
	}
}

func TestAdminDeleteCategory_RefusedWhileReferenced(t *testing.T) {
	initTestDB(t)

	cat := models.Category{NameTR: "Kongre", IsVisible: true, IsActive: true}
	if err := db.Conn().Create(&cat).Error; err != nil {
		t.Fatal(err)
	}
	rt := models.RegistrationType{
		Value: "member", LabelTR: "Üye", CategoryID: cat.ID,
		FeeTRY: decimal.NewFromInt(100), IsActive: true,
	}
	if err := db.Conn().Create(&rt).Error; err != nil {
		t.Fatal(err)
	}

	req := withURLParam(httptest.NewRequest(http.MethodDelete, "/", nil), "id", fmt.Sprint(cat.ID))
	rec := httptest.NewRecorder()
	AdminDeleteCategory(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}

	var count int64
	db.Conn().Model(&models.Category{}).Count(&count)
	if count != 1 {
		t.Errorf("category deleted despite references")
	}
}

func TestAdminDeleteRegistrationType_RefusedWhileReferenced(t *testing.T) {
	initTestDB(t)

	cat := models.Category{NameTR: "Kongre", IsVisible: true, IsActive: true}
	db.Conn().Create(&cat)
	rt := models.RegistrationType{
		Value: "member", LabelTR: "Üye", CategoryID: cat.ID,
		FeeTRY: decimal.NewFromInt(100), IsActive: true,
	}
	db.Conn().Create(&rt)
	reg := models.Registration{
		ReferenceNumber: "KNG-11223344", FullName: "Test",
		Currency: models.CurrencyTRY, Status: models.StatusActive,
		PaymentStatus: models.PaymentStatusPending, RefundStatus: models.RefundNone,
	}
	db.Conn().Create(&reg)
	db.Conn().Create(&models.RegistrationSelection{
		RegistrationID: reg.ID, RegistrationTypeID: rt.ID, CategoryID: cat.ID,
		AppliedFee: decimal.NewFromInt(100), AppliedCurrency: models.CurrencyTRY,
	})

	req := withURLParam(httptest.NewRequest(http.MethodDelete, "/", nil), "id", fmt.Sprint(rt.ID))
	rec := httptest.NewRecorder()
	AdminDeleteRegistrationType(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

// A completed refund is final: PATCH may not flip the registration back to
// active.
func TestPatchRegistration_RefundCompletedGuard(t *testing.T) {
	initTestDB(t)

	reg := models.Registration{
		ReferenceNumber: "KNG-55667788", FullName: "Test",
		Currency: models.CurrencyTRY, PaymentStatus: models.PaymentStatusCompleted,
		RefundStatus: models.RefundNone, Status: models.StatusActive,
	}
	db.Conn().Create(&reg)
	db.Conn().Model(&reg).Updates(map[string]any{
		"status":        models.StatusCancelled,
		"refund_status": models.RefundCompleted,
	})

	body := bytes.NewBufferString(`{"status":1}`)
	req := withURLParam(httptest.NewRequest(http.MethodPatch, "/", body), "id", fmt.Sprint(reg.ID))
	rec := httptest.NewRecorder()
	PatchRegistration(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409; body = %s", rec.Code, rec.Body.String())
	}
}

func TestPutFormSettings_Upsert(t *testing.T) {
	initTestDB(t)

	put := func(payload string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/api/admin/form-settings",
			bytes.NewBufferString(payload))
		rec := httptest.NewRecorder()
		PutFormSettings(rec, req)
		return rec
	}

	if rec := put(`{"default_language":"tr","step2_enabled":"1"}`); rec.Code != http.StatusOK {
		t.Fatalf("first put: %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec := put(`{"default_language":"en"}`); rec.Code != http.StatusOK {
		t.Fatalf("second put: %d", rec.Code)
	}

	var rows []models.FormSetting
	db.Conn().Order("key asc").Find(&rows)
	got := map[string]string{}
	for _, row := range rows {
		got[row.Key] = row.Value
	}
	if got["default_language"] != "en" {
		t.Errorf("default_language = %q, want en (second put wins)", got["default_language"])
	}
	if got["step2_enabled"] != "1" {
		t.Errorf("step2_enabled = %q, want untouched key to survive", got["step2_enabled"])
	}
}

func TestPutBankSettings_ReplacesSet(t *testing.T) {
	initTestDB(t)

	db.Conn().Create(&models.BankAccount{
		BankName: "Eski Banka", AccountHolder: "Kongre AŞ",
		IBAN: "TR000000000000000000000001", Currency: models.CurrencyTRY, IsActive: true,
	})

	payload := `[{"bank_name":"Yeni Banka","account_holder":"Kongre AŞ","iban":"TR000000000000000000000002","currency":"TRY"}]`
	req := httptest.NewRequest(http.MethodPut, "/api/admin/bank-settings",
		bytes.NewBufferString(payload))
	rec := httptest.NewRecorder()
	PutBankSettings(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var accounts []models.BankAccount
	db.Conn().Find(&accounts)
	if len(accounts) != 1 {
		t.Fatalf("accounts = %d, want the old set replaced", len(accounts))
	}
	if accounts[0].BankName != "Yeni Banka" {
		t.Errorf("bank = %q", accounts[0].BankName)
	}
}

// PATCH status flips run through the registration state machine, so the
// selection rows cascade exactly like the cancel/reactivate actions.
func TestPatchRegistration_StatusCascadesSelections(t *testing.T) {
	initTestDB(t)

	reg := models.Registration{
		ReferenceNumber: "KNG-99887766", FullName: "Test",
		Currency: models.CurrencyTRY, Status: models.StatusActive,
		PaymentStatus: models.PaymentStatusPending, RefundStatus: models.RefundNone,
	}
	db.Conn().Create(&reg)
	db.Conn().Create(&models.RegistrationSelection{
		RegistrationID: reg.ID, RegistrationTypeID: 1, CategoryID: 1,
		AppliedFee: decimal.NewFromInt(100), AppliedCurrency: models.CurrencyTRY,
	})

	patch := func(payload string) *httptest.ResponseRecorder {
		req := withURLParam(httptest.NewRequest(http.MethodPatch, "/",
			bytes.NewBufferString(payload)), "id", fmt.Sprint(reg.ID))
		rec := httptest.NewRecorder()
		PatchRegistration(rec, req)
		return rec
	}

	if rec := patch(`{"status":0}`); rec.Code != http.StatusOK {
		t.Fatalf("cancel patch: %d, body = %s", rec.Code, rec.Body.String())
	}
	var sel models.RegistrationSelection
	db.Conn().First(&sel)
	if !sel.IsCancelled {
		t.Error("selection not cancelled after status=0 patch")
	}

	if rec := patch(`{"status":1}`); rec.Code != http.StatusOK {
		t.Fatalf("reactivate patch: %d, body = %s", rec.Code, rec.Body.String())
	}
	db.Conn().First(&sel)
	if sel.IsCancelled {
		t.Error("selection still cancelled after status=1 patch")
	}
}

func TestAdminListAuditLogs_FiltersByReference(t *testing.T) {
	initTestDB(t)

	reg := models.Registration{
		ReferenceNumber: "KNG-AAAA1111", FullName: "Ayşe Yılmaz",
		Currency: models.CurrencyTRY, Status: models.StatusActive,
		PaymentStatus: models.PaymentStatusPending, RefundStatus: models.RefundNone,
	}
	db.Conn().Create(&reg)

	db.Conn().Create(&models.AuditLog{
		TableName: "registrations", RecordID: reg.ID, Action: models.AuditActionUpdate,
		OldValues: `{"full_name":"Ali"}`, NewValues: `{"full_name":"Ayşe Yılmaz"}`,
		ChangedFields: `["full_name"]`,
	})
	db.Conn().Create(&models.AuditLog{
		TableName: "categories", RecordID: 99, Action: models.AuditActionUpdate,
		OldValues: `{}`, NewValues: `{}`, ChangedFields: `[]`,
	})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/audit-logs?reference_number=KNG-AAAA1111", nil)
	rec := httptest.NewRecorder()
	AdminListAuditLogs(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Data []struct {
			TableName string `json:"table_name"`
			Changes   []struct {
				Field string `json:"field"`
				Label string `json:"label"`
				Old   string `json:"old_display"`
				New   string `json:"new_display"`
			} `json:"changes"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data) != 1 {
		t.Fatalf("rows = %d, want 1", len(resp.Data))
	}
	if resp.Data[0].TableName != "registrations" {
		t.Errorf("table = %q", resp.Data[0].TableName)
	}
	if len(resp.Data[0].Changes) != 1 || resp.Data[0].Changes[0].Field != "full_name" {
		t.Errorf("changes = %+v", resp.Data[0].Changes)
	}
}

func TestAdminListAuditLogs_MalformedSnapshotFallsBack(t *testing.T) {
	initTestDB(t)

	db.Conn().Create(&models.AuditLog{
		TableName: "registrations", RecordID: 1, Action: models.AuditActionUpdate,
		OldValues: `{broken`, NewValues: `{"full_name":"Ali"}`,
	})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/audit-logs", nil)
	rec := httptest.NewRecorder()
	AdminListAuditLogs(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Data []struct {
			RawOld  string         `json:"raw_old"`
			NewVals map[string]any `json:"new_parsed"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data) != 1 {
		t.Fatalf("rows = %d, want 1", len(resp.Data))
	}
	if resp.Data[0].RawOld != `{broken` {
		t.Errorf("raw_old = %q, want the unparsed payload", resp.Data[0].RawOld)
	}
	if resp.Data[0].NewVals["full_name"] != "Ali" {
		t.Errorf("new_parsed = %v", resp.Data[0].NewVals)
	}
}
