package front_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gymmind/coach-api/internal/config"
	"github.com/gymmind/coach-api/internal/db"
	"github.com/gymmind/coach-api/internal/gate"
	"github.com/gymmind/coach-api/internal/generator"
	"github.com/gymmind/coach-api/internal/http/api/admin"
	"github.com/gymmind/coach-api/internal/http/api/front"
	"github.com/gymmind/coach-api/internal/identity"
	"github.com/gymmind/coach-api/internal/mailer"
	"github.com/gymmind/coach-api/internal/ratelimit"
	"github.com/gymmind/coach-api/internal/renderer"
	"github.com/gymmind/coach-api/internal/store"
)

// testClock is a settable clock shared between the gate and the test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// newTestServer wires the full front router over a file-backed SQLite
// database. The generator runs unconfigured, so plan content comes from the
// deterministic fallback.
func newTestServer(t *testing.T) (*gin.Engine, *testClock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, errOpen := db.Open(filepath.Join(t.TempDir(), "front.db"))
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	clock := &testClock{now: time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)}
	accounts := store.NewGormAccountStore(conn)
	g := gate.New(accounts, gate.WithClock(clock.Now))

	r := gin.New()
	front.RegisterFrontRoutes(r, front.Dependencies{
		DB:        conn,
		Accounts:  accounts,
		Gate:      g,
		Identity:  identity.NewLocalProvider(accounts),
		Generator: generator.NewHTTPGenerator(config.GeneratorConfig{}),
		Renderer:  renderer.NewHTMLRenderer(),
		Mailer:    mailer.NewLogMailer(),
		Limits:    ratelimit.NewManager(nil, nil, nil),
		JWT:       config.JWTConfig{Secret: "test-secret", Expiry: time.Hour},
	})
	admin.RegisterAdminRoutes(r, conn, accounts, config.JWTConfig{Secret: "test-secret", Expiry: time.Hour})
	return r, clock
}

// doJSON performs a request with a JSON body and decodes the JSON response.
func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, errMarshal := json.Marshal(body)
		if errMarshal != nil {
			t.Fatalf("marshal body: %v", errMarshal)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	out := map[string]any{}
	if len(rec.Body.Bytes()) > 0 && rec.Header().Get("Content-Type") != "" &&
		rec.Header().Get("Content-Type") != "text/html; charset=utf-8" {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec.Code, out
}

func registerAccount(t *testing.T, r *gin.Engine, email string) string {
	t.Helper()
	status, body := doJSON(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"name":     "Test Account",
		"email":    email,
		"password": "secret1",
	})
	if status != http.StatusCreated {
		t.Fatalf("register status = %d, body %v", status, body)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("register returned no token: %v", body)
	}
	return token
}

func testProfile() gin.H {
	return gin.H{
		"age":           30,
		"sex":           "masculino",
		"weightKg":      80,
		"heightCm":      180,
		"activityLevel": "moderado",
		"goal":          "manutencao",
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	r, _ := newTestServer(t)
	registerAccount(t, r, "dup@example.com")

	status, body := doJSON(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"name":     "Again",
		"email":    "dup@example.com",
		"password": "secret1",
	})
	if status != http.StatusConflict {
		t.Fatalf("duplicate register status = %d, body %v", status, body)
	}
}

func TestLoginLockoutFlow(t *testing.T) {
	r, clock := newTestServer(t)
	registerAccount(t, r, "lock@example.com")

	for i := 1; i <= 4; i++ {
		status, body := doJSON(t, r, http.MethodPost, "/api/auth/login", "", gin.H{
			"email":    "lock@example.com",
			"password": "wrong",
		})
		if status != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d, body %v", i, status, body)
		}
		if remaining, _ := body["attempts_remaining"].(float64); int(remaining) != 5-i {
			t.Fatalf("attempt %d remaining = %v, want %d", i, body["attempts_remaining"], 5-i)
		}
	}

	status, body := doJSON(t, r, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "lock@example.com",
		"password": "wrong",
	})
	if status != http.StatusLocked {
		t.Fatalf("fifth attempt status = %d, body %v", status, body)
	}

	// Even the correct password bounces while the lock is active.
	status, _ = doJSON(t, r, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "lock@example.com",
		"password": "secret1",
	})
	if status != http.StatusLocked {
		t.Fatalf("locked login status = %d, want 423", status)
	}

	// The lock expires lazily on the next attempt after its deadline.
	clock.Advance(gate.LockDuration + time.Minute)
	status, body = doJSON(t, r, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "lock@example.com",
		"password": "secret1",
	})
	if status != http.StatusOK {
		t.Fatalf("post-expiry login status = %d, body %v", status, body)
	}
	if body["token"] == "" {
		t.Fatalf("expected token after unlock")
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	r, _ := newTestServer(t)
	status, _ := doJSON(t, r, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "nobody@example.com",
		"password": "whatever",
	})
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", status)
	}
}

func TestGenerateUntilFreeLimit(t *testing.T) {
	r, clock := newTestServer(t)
	token := registerAccount(t, r, "quota@example.com")

	status, body := doJSON(t, r, http.MethodGet, "/api/auth/can-generate", token, nil)
	if status != http.StatusOK {
		t.Fatalf("can-generate status = %d", status)
	}
	if allowed, _ := body["allowed"].(bool); !allowed {
		t.Fatalf("fresh account should be allowed: %v", body)
	}
	if remaining, _ := body["remaining"].(float64); int(remaining) != 3 {
		t.Fatalf("remaining = %v, want 3", body["remaining"])
	}

	for i := 0; i < 3; i++ {
		status, body = doJSON(t, r, http.MethodPost, "/api/plans/diet", token, gin.H{
			"title":   "Minha Dieta",
			"profile": testProfile(),
		})
		if status != http.StatusCreated {
			t.Fatalf("generate %d status = %d, body %v", i, status, body)
		}
	}

	status, body = doJSON(t, r, http.MethodPost, "/api/plans/diet", token, gin.H{
		"profile": testProfile(),
	})
	if status != http.StatusForbidden {
		t.Fatalf("fourth generate status = %d, body %v", status, body)
	}
	if reason, _ := body["reason"].(string); reason != gate.ReasonLimitReached {
		t.Fatalf("reason = %v", body["reason"])
	}

	// A new calendar month resets the window.
	clock.Advance(31 * 24 * time.Hour)
	status, _ = doJSON(t, r, http.MethodPost, "/api/plans/diet", token, gin.H{
		"profile": testProfile(),
	})
	if status != http.StatusCreated {
		t.Fatalf("post-rollover generate status = %d", status)
	}
}

func TestExportConsumesPDFQuota(t *testing.T) {
	r, _ := newTestServer(t)
	token := registerAccount(t, r, "export@example.com")

	status, body := doJSON(t, r, http.MethodPost, "/api/plans/workout", token, gin.H{
		"profile": testProfile(),
	})
	if status != http.StatusCreated {
		t.Fatalf("generate status = %d, body %v", status, body)
	}
	planDoc, _ := body["plan"].(map[string]any)
	planID, _ := planDoc["id"].(string)
	if planID == "" {
		t.Fatalf("missing plan id in %v", body)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/plans/workout/"+planID+"/export", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d, body %s", rec.Code, rec.Body.String())
	}
	if disposition := rec.Header().Get("Content-Disposition"); disposition == "" {
		t.Fatalf("expected attachment disposition")
	}

	// Free tier allows one export per month.
	status, body = doJSON(t, r, http.MethodPost, "/api/plans/workout/"+planID+"/export", token, nil)
	if status != http.StatusForbidden {
		t.Fatalf("second export status = %d, body %v", status, body)
	}
}

func TestPlanCRUDOwnership(t *testing.T) {
	r, _ := newTestServer(t)
	token := registerAccount(t, r, "owner@example.com")
	other := registerAccount(t, r, "other@example.com")

	status, body := doJSON(t, r, http.MethodPost, "/api/plans/diet", token, gin.H{
		"profile": testProfile(),
	})
	if status != http.StatusCreated {
		t.Fatalf("generate status = %d", status)
	}
	planDoc, _ := body["plan"].(map[string]any)
	planID, _ := planDoc["id"].(string)

	status, _ = doJSON(t, r, http.MethodGet, "/api/plans/diet/"+planID, token, nil)
	if status != http.StatusOK {
		t.Fatalf("get status = %d", status)
	}

	// Another account cannot see the plan.
	status, _ = doJSON(t, r, http.MethodGet, "/api/plans/diet/"+planID, other, nil)
	if status != http.StatusNotFound {
		t.Fatalf("cross-account get status = %d, want 404", status)
	}

	status, _ = doJSON(t, r, http.MethodPut, "/api/plans/diet/"+planID, token, gin.H{
		"title": "Dieta Renomeada",
	})
	if status != http.StatusOK {
		t.Fatalf("update status = %d", status)
	}

	status, body = doJSON(t, r, http.MethodGet, "/api/plans/user?type=diet", token, nil)
	if status != http.StatusOK {
		t.Fatalf("list status = %d", status)
	}
	plans, _ := body["plans"].([]any)
	if len(plans) != 1 {
		t.Fatalf("list returned %d plans, want 1", len(plans))
	}

	status, _ = doJSON(t, r, http.MethodDelete, "/api/plans/diet/"+planID, token, nil)
	if status != http.StatusOK {
		t.Fatalf("delete status = %d", status)
	}
	status, _ = doJSON(t, r, http.MethodGet, "/api/plans/diet/"+planID, token, nil)
	if status != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", status)
	}
}

func TestPreferencesCalculatePublic(t *testing.T) {
	r, _ := newTestServer(t)

	status, body := doJSON(t, r, http.MethodPost, "/api/preferences/calculate", "", gin.H{
		"weight":         80,
		"height":         180,
		"age":            30,
		"gender":         "masculino",
		"goal":           "manutencao",
		"activity_level": "moderado",
	})
	if status != http.StatusOK {
		t.Fatalf("calculate status = %d, body %v", status, body)
	}
	if _, ok := body["bmr"]; !ok {
		t.Fatalf("missing bmr: %v", body)
	}
	if water, _ := body["water_intake_ml"].(float64); int(water) != 2800 {
		t.Fatalf("water = %v, want 2800", body["water_intake_ml"])
	}
}

func TestSimulatePaymentUpgradesToUnlimited(t *testing.T) {
	r, _ := newTestServer(t)
	token := registerAccount(t, r, "upgrade@example.com")

	status, body := doJSON(t, r, http.MethodPost, "/api/payment/simulate-payment", token, gin.H{
		"plan_id": "premium",
	})
	if status != http.StatusOK {
		t.Fatalf("simulate status = %d, body %v", status, body)
	}

	status, body = doJSON(t, r, http.MethodGet, "/api/auth/can-generate", token, nil)
	if status != http.StatusOK {
		t.Fatalf("can-generate status = %d", status)
	}
	if unlimited, _ := body["unlimited"].(bool); !unlimited {
		t.Fatalf("premium should be unlimited: %v", body)
	}

	status, body = doJSON(t, r, http.MethodGet, "/api/payment/transactions", token, nil)
	if status != http.StatusOK {
		t.Fatalf("transactions status = %d", status)
	}
	txs, _ := body["transactions"].([]any)
	if len(txs) != 1 {
		t.Fatalf("transactions = %d, want 1", len(txs))
	}
}

func TestSimulatePaymentRepeats(t *testing.T) {
	// Simulated transactions carry no provider event ID; repeated simulations
	// across and within accounts must all record cleanly.
	r, _ := newTestServer(t)
	first := registerAccount(t, r, "repeat-a@example.com")
	second := registerAccount(t, r, "repeat-b@example.com")

	for i, req := range []struct {
		token  string
		planID string
	}{
		{first, "basic"},
		{second, "premium"},
		{first, "pro"},
	} {
		status, body := doJSON(t, r, http.MethodPost, "/api/payment/simulate-payment", req.token, gin.H{
			"plan_id": req.planID,
		})
		if status != http.StatusOK {
			t.Fatalf("simulate %d status = %d, body %v", i, status, body)
		}
	}

	status, body := doJSON(t, r, http.MethodGet, "/api/payment/transactions", first, nil)
	if status != http.StatusOK {
		t.Fatalf("transactions status = %d", status)
	}
	if txs, _ := body["transactions"].([]any); len(txs) != 2 {
		t.Fatalf("transactions = %d, want 2", len(txs))
	}
}

func TestWebhookFailedUpgradeNotAckedAsDuplicate(t *testing.T) {
	// A delivery whose tier switch fails must not burn the event ID; the
	// provider's retry has to get another full attempt, not a duplicate ack.
	r, _ := newTestServer(t)

	payload := gin.H{
		"type":       "checkout.session.completed",
		"event_id":   "evt_orphan",
		"account_id": "no-such-account",
		"plan_id":    "premium",
	}
	for i := 0; i < 2; i++ {
		status, body := doJSON(t, r, http.MethodPost, "/api/payment/webhook", "", payload)
		if status != http.StatusInternalServerError {
			t.Fatalf("delivery %d status = %d, body %v", i, status, body)
		}
		if dup, _ := body["duplicate"].(bool); dup {
			t.Fatalf("delivery %d acked as duplicate: %v", i, body)
		}
	}
}

func TestWebhookDuplicateEvent(t *testing.T) {
	r, _ := newTestServer(t)
	token := registerAccount(t, r, "hook@example.com")

	status, profile := doJSON(t, r, http.MethodGet, "/api/auth/profile", token, nil)
	if status != http.StatusOK {
		t.Fatalf("profile status = %d", status)
	}
	accountID, _ := profile["profile"].(map[string]any)["id"].(string)

	payload := gin.H{
		"type":       "checkout.session.completed",
		"event_id":   "evt_123",
		"account_id": accountID,
		"plan_id":    "basic",
	}
	status, body := doJSON(t, r, http.MethodPost, "/api/payment/webhook", "", payload)
	if status != http.StatusOK {
		t.Fatalf("webhook status = %d, body %v", status, body)
	}
	if dup, _ := body["duplicate"].(bool); dup {
		t.Fatalf("first delivery flagged duplicate")
	}

	status, body = doJSON(t, r, http.MethodPost, "/api/payment/webhook", "", payload)
	if status != http.StatusOK {
		t.Fatalf("replay status = %d, body %v", status, body)
	}
	if dup, _ := body["duplicate"].(bool); !dup {
		t.Fatalf("replay should be flagged duplicate: %v", body)
	}

	// Unhandled event types are acknowledged without side effects.
	status, _ = doJSON(t, r, http.MethodPost, "/api/payment/webhook", "", gin.H{
		"type": "invoice.paid",
	})
	if status != http.StatusOK {
		t.Fatalf("unhandled type status = %d", status)
	}
}

func TestAdminStatsForbiddenForRegularAccount(t *testing.T) {
	r, _ := newTestServer(t)
	token := registerAccount(t, r, "plain@example.com")

	status, _ := doJSON(t, r, http.MethodGet, "/api/admin/stats", token, nil)
	if status != http.StatusForbidden {
		t.Fatalf("admin stats status = %d, want 403", status)
	}
}

func TestAuthMiddlewareRejectsBadTokens(t *testing.T) {
	r, _ := newTestServer(t)

	status, _ := doJSON(t, r, http.MethodGet, "/api/auth/profile", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("missing token status = %d", status)
	}
	status, _ = doJSON(t, r, http.MethodGet, "/api/auth/profile", "not-a-jwt", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("garbage token status = %d", status)
	}
}

func TestDeactivateThenReactivateKeepsUsage(t *testing.T) {
	r, _ := newTestServer(t)
	token := registerAccount(t, r, "cycle@example.com")

	status, body := doJSON(t, r, http.MethodPost, "/api/plans/diet", token, gin.H{
		"profile": testProfile(),
	})
	if status != http.StatusCreated {
		t.Fatalf("generate status = %d, body %v", status, body)
	}

	status, _ = doJSON(t, r, http.MethodDelete, "/api/auth/deactivate", token, nil)
	if status != http.StatusOK {
		t.Fatalf("deactivate status = %d", status)
	}
	status, _ = doJSON(t, r, http.MethodGet, "/api/auth/profile", token, nil)
	if status != http.StatusForbidden {
		t.Fatalf("deactivated profile status = %d, want 403", status)
	}

	status, body = doJSON(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"name":     "Back Again",
		"email":    "cycle@example.com",
		"password": "secret2",
	})
	if status != http.StatusOK {
		t.Fatalf("reactivation status = %d, body %v", status, body)
	}
	profile, _ := body["profile"].(map[string]any)
	usage, _ := profile["usage"].(map[string]any)
	if total, _ := usage["plans_generated_total"].(float64); int(total) != 1 {
		t.Fatalf("usage lost across reactivation: %v", usage)
	}
}
