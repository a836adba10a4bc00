package admin_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gymmind/coach-api/internal/config"
	"github.com/gymmind/coach-api/internal/db"
	"github.com/gymmind/coach-api/internal/http/api/admin"
	"github.com/gymmind/coach-api/internal/models"
	"github.com/gymmind/coach-api/internal/plan"
	"github.com/gymmind/coach-api/internal/ratelimit"
	"github.com/gymmind/coach-api/internal/security"
	internalsettings "github.com/gymmind/coach-api/internal/settings"
	"github.com/gymmind/coach-api/internal/store"
)

const testSecret = "admin-test-secret"

func newAdminServer(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, errOpen := db.Open(filepath.Join(t.TempDir(), "admin.db"))
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	r := gin.New()
	admin.RegisterAdminRoutes(r, conn, store.NewGormAccountStore(conn), config.JWTConfig{Secret: testSecret, Expiry: time.Hour})
	return r, conn
}

// seedAccount inserts an account directly and returns a bearer token for it.
func seedAccount(t *testing.T, conn *gorm.DB, email string, isAdmin bool) (string, string) {
	t.Helper()
	limits := plan.LimitsFor(models.PlanFree)
	now := time.Now().UTC()
	account := models.Account{
		ID:                 uuid.NewString(),
		Email:              email,
		Name:               "Seeded",
		Password:           "x",
		Plan:               models.PlanFree,
		SubscriptionStatus: models.SubscriptionActive,
		SubscriptionStart:  now,
		PlansPerMonth:      limits.PlansPerMonth,
		PDFExportsPerMonth: limits.PDFExportsPerMonth,
		WindowMonth:        int(now.Month()) - 1,
		WindowYear:         now.Year(),
		IsActive:           true,
		IsAdmin:            isAdmin,
	}
	if errCreate := conn.Create(&account).Error; errCreate != nil {
		t.Fatalf("seed account: %v", errCreate)
	}
	token, errToken := security.IssueAccountToken(testSecret, time.Hour, account.ID)
	if errToken != nil {
		t.Fatalf("issue token: %v", errToken)
	}
	return account.ID, token
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var data []byte
	if body != nil {
		var errMarshal error
		data, errMarshal = json.Marshal(body)
		if errMarshal != nil {
			t.Fatalf("marshal body: %v", errMarshal)
		}
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	out := map[string]any{}
	if len(rec.Body.Bytes()) > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec.Code, out
}

func TestAdminRoutesRequireAdminFlag(t *testing.T) {
	r, conn := newAdminServer(t)
	_, regularToken := seedAccount(t, conn, "regular@example.com", false)

	status, _ := doJSON(t, r, http.MethodGet, "/api/admin/stats", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", status)
	}
	status, _ = doJSON(t, r, http.MethodGet, "/api/admin/stats", regularToken, nil)
	if status != http.StatusForbidden {
		t.Fatalf("non-admin status = %d, want 403", status)
	}
}

func TestAdminStatsAggregates(t *testing.T) {
	r, conn := newAdminServer(t)
	_, adminToken := seedAccount(t, conn, "ops@example.com", true)
	seedAccount(t, conn, "a@example.com", false)
	seedAccount(t, conn, "b@example.com", false)

	status, body := doJSON(t, r, http.MethodGet, "/api/admin/stats", adminToken, nil)
	if status != http.StatusOK {
		t.Fatalf("stats status = %d, body %v", status, body)
	}
	accounts, _ := body["accounts"].(map[string]any)
	if total, _ := accounts["total"].(float64); int(total) != 3 {
		t.Fatalf("total = %v, want 3", accounts["total"])
	}
}

func TestAdminAccountLifecycle(t *testing.T) {
	r, conn := newAdminServer(t)
	_, adminToken := seedAccount(t, conn, "ops@example.com", true)
	targetID, _ := seedAccount(t, conn, "member@example.com", false)

	status, body := doJSON(t, r, http.MethodGet, "/api/admin/accounts?email=member", adminToken, nil)
	if status != http.StatusOK {
		t.Fatalf("list status = %d", status)
	}
	rows, _ := body["accounts"].([]any)
	if len(rows) != 1 {
		t.Fatalf("filtered list returned %d rows, want 1", len(rows))
	}

	status, _ = doJSON(t, r, http.MethodPost, "/api/admin/accounts/"+targetID+"/disable", adminToken, nil)
	if status != http.StatusOK {
		t.Fatalf("disable status = %d", status)
	}
	status, body = doJSON(t, r, http.MethodGet, "/api/admin/accounts/"+targetID, adminToken, nil)
	if status != http.StatusOK {
		t.Fatalf("get status = %d", status)
	}
	if active, _ := body["is_active"].(bool); active {
		t.Fatalf("account should be disabled: %v", body)
	}

	status, _ = doJSON(t, r, http.MethodPost, "/api/admin/accounts/"+targetID+"/enable", adminToken, nil)
	if status != http.StatusOK {
		t.Fatalf("enable status = %d", status)
	}

	status, body = doJSON(t, r, http.MethodPut, "/api/admin/accounts/"+targetID+"/plan", adminToken, gin.H{
		"plan_id": "premium",
	})
	if status != http.StatusOK {
		t.Fatalf("set plan status = %d, body %v", status, body)
	}
	status, body = doJSON(t, r, http.MethodGet, "/api/admin/accounts/"+targetID, adminToken, nil)
	if status != http.StatusOK {
		t.Fatalf("get status = %d", status)
	}
	if body["plan"] != "premium" {
		t.Fatalf("plan = %v, want premium", body["plan"])
	}

	status, _ = doJSON(t, r, http.MethodPut, "/api/admin/accounts/"+targetID+"/plan", adminToken, gin.H{
		"plan_id": "nope",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("unknown plan status = %d, want 400", status)
	}
}

func TestAdminUnlockClearsLockout(t *testing.T) {
	r, conn := newAdminServer(t)
	_, adminToken := seedAccount(t, conn, "ops@example.com", true)
	targetID, _ := seedAccount(t, conn, "locked@example.com", false)

	lockUntil := time.Now().UTC().Add(30 * time.Minute)
	if errUpdate := conn.Model(&models.Account{}).Where("id = ?", targetID).
		Updates(map[string]any{"login_attempts": 5, "lock_until": lockUntil}).Error; errUpdate != nil {
		t.Fatalf("seed lock: %v", errUpdate)
	}

	status, _ := doJSON(t, r, http.MethodPost, "/api/admin/accounts/"+targetID+"/unlock", adminToken, nil)
	if status != http.StatusOK {
		t.Fatalf("unlock status = %d", status)
	}

	var account models.Account
	if errFind := conn.Where("id = ?", targetID).First(&account).Error; errFind != nil {
		t.Fatalf("reload account: %v", errFind)
	}
	if account.LoginAttempts != 0 || account.LockUntil != nil {
		t.Fatalf("lock not cleared: attempts=%d lockUntil=%v", account.LoginAttempts, account.LockUntil)
	}
}

func TestAdminSettingsCRUDRefreshesRateLimit(t *testing.T) {
	r, conn := newAdminServer(t)
	_, adminToken := seedAccount(t, conn, "ops@example.com", true)

	internalsettings.Bind(conn)
	t.Cleanup(func() { internalsettings.Bind(nil) })

	status, body := doJSON(t, r, http.MethodPost, "/api/admin/settings", adminToken, gin.H{
		"key":   internalsettings.RateLimitKey,
		"value": 7,
	})
	if status != http.StatusCreated {
		t.Fatalf("create status = %d, body %v", status, body)
	}
	if got := ratelimit.LoadSettingsConfig().Limit; got != 7 {
		t.Fatalf("rate limit after create = %d, want 7", got)
	}

	status, _ = doJSON(t, r, http.MethodPut, "/api/admin/settings/"+internalsettings.RateLimitKey, adminToken, gin.H{
		"value": 12,
	})
	if status != http.StatusOK {
		t.Fatalf("update status = %d", status)
	}
	if got := ratelimit.LoadSettingsConfig().Limit; got != 12 {
		t.Fatalf("rate limit after update = %d, want 12", got)
	}

	status, _ = doJSON(t, r, http.MethodPost, "/api/admin/settings", adminToken, gin.H{
		"key":   internalsettings.RateLimitKey,
		"value": 1,
	})
	if status != http.StatusConflict {
		t.Fatalf("duplicate key status = %d, want 409", status)
	}

	status, _ = doJSON(t, r, http.MethodPut, "/api/admin/settings/"+internalsettings.RateLimitKey, adminToken, gin.H{
		"value": -1,
	})
	if status != http.StatusBadRequest {
		t.Fatalf("negative value status = %d, want 400", status)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/settings/"+internalsettings.RateLimitKey, nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rec.Code)
	}
	if got := ratelimit.LoadSettingsConfig().Limit; got != internalsettings.DefaultRateLimit {
		t.Fatalf("rate limit after delete = %d, want default", got)
	}
}
