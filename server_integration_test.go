package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"payledger/models"
	"payledger/pkg/audit"
	"payledger/pkg/logging"

	"github.com/gin-gonic/gin"
)

// helper to perform requests with auth token
func performRequest(r http.Handler, method, path string, body io.Reader, token string, contentType string) *httptest.ResponseRecorder {
	// allow callers to pass nil for body safely
	req, _ := http.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func setupTestServer(t *testing.T) *gin.Engine {
	// integration tests are opt-in. Set DB_DSN_TEST=1 and DB_DSN to run them.
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	gin.SetMode(gin.TestMode)
	if logging.Log == nil {
		logging.Init()
	}
	var err error
	cfg, err = loadConfig()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.ReceiptBase = t.TempDir()
	jwtSecret = []byte(cfg.JWTSecret)
	initDB()
	r := gin.Default()
	setupRoutes(r)
	return r
}

func loginAs(t *testing.T, r *gin.Engine, username, password string) string {
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp := performRequest(r, http.MethodPost, "/login", bytes.NewBuffer(body), "", "application/json")
	if resp.Code != 200 {
		t.Fatalf("login %s failed status=%d body=%s", username, resp.Code, resp.Body.String())
	}
	var loginResp map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &loginResp)
	token, _ := loginResp["token"].(string)
	if token == "" {
		t.Fatalf("empty token in login response: %+v", loginResp)
	}
	return token
}

// countAudit counts audit entries for one entity and action.
func countAudit(t *testing.T, entityType string, entityID uint, action string) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&models.AuditLog{}).
		Where("entity_type = ? AND entity_id = ? AND action = ?", entityType, entityID, action).
		Count(&n).Error; err != nil {
		t.Fatalf("audit count failed: %v", err)
	}
	return n
}

func TestFullFlow(t *testing.T) {
	r := setupTestServer(t)
	suffix := fmt.Sprintf("%d", time.Now().UnixNano())

	// 1. Login as the seeded admin
	adminToken := loginAs(t, r, "admin", "admin123")

	// 2. Create staff
	staffBody, _ := json.Marshal(map[string]string{"name": "Test Staff " + suffix, "job_title": "Engineer", "email": "ts@example.com"})
	resp := performRequest(r, http.MethodPost, "/staff", bytes.NewBuffer(staffBody), adminToken, "application/json")
	if resp.Code != 200 {
		t.Fatalf("create staff failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var staffResp struct {
		ID uint `json:"id"`
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &staffResp)
	if staffResp.ID == 0 {
		t.Fatalf("create staff returned no id: %s", resp.Body.String())
	}
	staffID := staffResp.ID
	if n := countAudit(t, models.EntityStaff, staffID, models.ActionCreate); n != 1 {
		t.Fatalf("expected exactly 1 create audit entry for staff %d, got %d", staffID, n)
	}

	// 3. Toggle status twice: inactive then back to active
	for i, want := range []bool{false, true} {
		resp = performRequest(r, http.MethodPatch, fmt.Sprintf("/staff/%d/status", staffID), nil, adminToken, "")
		if resp.Code != 200 {
			t.Fatalf("toggle %d failed status=%d body=%s", i, resp.Code, resp.Body.String())
		}
		var toggleResp struct {
			Active bool `json:"active"`
		}
		_ = json.Unmarshal(resp.Body.Bytes(), &toggleResp)
		if toggleResp.Active != want {
			t.Fatalf("toggle %d: expected active=%v got %v", i, want, toggleResp.Active)
		}
	}
	if n := countAudit(t, models.EntityStaff, staffID, models.ActionStatusChange); n != 2 {
		t.Fatalf("expected 2 status_change audit entries for staff %d, got %d", staffID, n)
	}

	// 4. Create payment
	payBody, _ := json.Marshal(map[string]any{
		"staff_id": staffID, "amount": 123456, "currency": "IDR",
		"method": "bank_transfer", "category": "salary",
	})
	resp = performRequest(r, http.MethodPost, "/payments", bytes.NewBuffer(payBody), adminToken, "application/json")
	if resp.Code != 200 {
		t.Fatalf("create payment failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var payResp struct {
		ID        uint   `json:"id"`
		Reference string `json:"reference"`
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &payResp)
	if payResp.ID == 0 || payResp.Reference == "" {
		t.Fatalf("create payment returned incomplete body: %s", resp.Body.String())
	}

	// a malformed paid_at must be rejected, not silently replaced
	badDateBody, _ := json.Marshal(map[string]any{
		"staff_id": staffID, "amount": 100, "currency": "IDR",
		"method": "cash", "category": "other", "paid_at": "31-12-2025",
	})
	resp = performRequest(r, http.MethodPost, "/payments", bytes.NewBuffer(badDateBody), adminToken, "application/json")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed paid_at, got %d body=%s", resp.Code, resp.Body.String())
	}

	// 5. Exactly one audit entry for the new payment, summary carries id and
	// formatted amount
	var entries []models.AuditLog
	if err := db.Where("entity_type = ? AND entity_id = ?", models.EntityPayment, payResp.ID).Find(&entries).Error; err != nil {
		t.Fatalf("audit query failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly 1 audit entry for payment %d, got %d", payResp.ID, len(entries))
	}
	wantAmount := audit.FormatAmount(123456, "IDR")
	if !strings.Contains(entries[0].Summary, fmt.Sprintf("payment %d", payResp.ID)) || !strings.Contains(entries[0].Summary, wantAmount) {
		t.Fatalf("audit summary missing id or amount: %q", entries[0].Summary)
	}

	// 6. Upload a receipt and check the status flip
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	w, _ := mw.CreateFormFile("file", "receipt.png")
	_, _ = w.Write([]byte("\x89PNG\r\n\x1a\nfake"))
	_ = mw.Close()
	resp = performRequest(r, http.MethodPost, fmt.Sprintf("/payments/%d/receipt", payResp.ID), buf, adminToken, mw.FormDataContentType())
	if resp.Code != 200 {
		t.Fatalf("upload receipt failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var recResp struct {
		ID uint `json:"id"`
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &recResp)
	var p models.Payment
	if err := db.First(&p, payResp.ID).Error; err != nil {
		t.Fatalf("reload payment: %v", err)
	}
	if p.ReceiptStatus != models.ReceiptAttached {
		t.Fatalf("expected receipt status attached, got %s", p.ReceiptStatus)
	}
	if n := countAudit(t, models.EntityReceipt, recResp.ID, models.ActionAttach); n != 1 {
		t.Fatalf("expected exactly 1 attach audit entry for receipt %d, got %d", recResp.ID, n)
	}

	// 7. Non-admin scoping: a user linked to another staff record sees only
	// their own payments
	otherBody, _ := json.Marshal(map[string]string{"name": "Other Staff " + suffix, "job_title": "Clerk"})
	resp = performRequest(r, http.MethodPost, "/staff", bytes.NewBuffer(otherBody), adminToken, "application/json")
	if resp.Code != 200 {
		t.Fatalf("create other staff failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var otherStaff struct {
		ID uint `json:"id"`
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &otherStaff)

	username := "user" + suffix
	regBody, _ := json.Marshal(map[string]string{"username": username, "password": "pass123"})
	resp = performRequest(r, http.MethodPost, "/register", bytes.NewBuffer(regBody), "", "application/json")
	if resp.Code != 200 {
		t.Fatalf("register failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	resp = performRequest(r, http.MethodPost, "/register", bytes.NewBuffer(regBody), "", "application/json")
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate registration, got %d", resp.Code)
	}
	var u models.User
	if err := db.Where("username = ?", username).First(&u).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if err := db.Model(&models.Staff{}).Where("id = ?", otherStaff.ID).Update("user_id", u.ID).Error; err != nil {
		t.Fatalf("link staff: %v", err)
	}

	userToken := loginAs(t, r, username, "pass123")
	resp = performRequest(r, http.MethodGet, "/payments", nil, userToken, "")
	if resp.Code != 200 {
		t.Fatalf("list payments as user failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var userPayments []models.Payment
	_ = json.Unmarshal(resp.Body.Bytes(), &userPayments)
	for _, up := range userPayments {
		if up.StaffID != otherStaff.ID {
			t.Fatalf("user saw payment for staff %d, expected only %d", up.StaffID, otherStaff.ID)
		}
	}

	// 8. Non-admin cannot mutate staff
	resp = performRequest(r, http.MethodPost, "/staff", bytes.NewBuffer(staffBody), userToken, "application/json")
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin staff create, got %d", resp.Code)
	}

	// 9. Deactivating staff keeps payments
	resp = performRequest(r, http.MethodDelete, fmt.Sprintf("/staff/%d", staffID), nil, adminToken, "")
	if resp.Code != 200 {
		t.Fatalf("deactivate failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var cnt int64
	db.Model(&models.Payment{}).Where("staff_id = ?", staffID).Count(&cnt)
	if cnt == 0 {
		t.Fatalf("payments disappeared after staff deactivation")
	}
	var s models.Staff
	if err := db.First(&s, staffID).Error; err != nil {
		t.Fatalf("staff row missing after deactivation: %v", err)
	}
	if s.Active {
		t.Fatalf("staff still active after delete")
	}
	if n := countAudit(t, models.EntityStaff, staffID, models.ActionDeactivate); n != 1 {
		t.Fatalf("expected exactly 1 deactivate audit entry for staff %d, got %d", staffID, n)
	}

	// 10. Creating a payment for inactive staff is rejected
	resp = performRequest(r, http.MethodPost, "/payments", bytes.NewBuffer(payBody), adminToken, "application/json")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for payment to inactive staff, got %d", resp.Code)
	}

	// 11. Summary endpoint; a non-numeric staff_id filter is rejected
	resp = performRequest(r, http.MethodGet, "/payments/summary", nil, adminToken, "")
	if resp.Code != 200 {
		t.Fatalf("summary failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	resp = performRequest(r, http.MethodGet, "/payments/summary?staff_id=abc", nil, adminToken, "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric staff_id, got %d body=%s", resp.Code, resp.Body.String())
	}

	// 12. Unauthorized access to protected endpoint should be 401
	unauth := performRequest(r, http.MethodGet, "/payments", nil, "", "")
	if unauth.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unauthorized list payments got %d", unauth.Code)
	}
}

func TestMigrateCommand(t *testing.T) {
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	var err error
	cfg, err = loadConfig()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if logging.Log == nil {
		logging.Init()
	}
	initDB()
}
