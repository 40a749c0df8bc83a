package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/villagegrid/outage-alerts/internal/core/domain"
	"github.com/villagegrid/outage-alerts/internal/core/service"
	"github.com/villagegrid/outage-alerts/internal/infrastructure/db/memory"
)

type nopNotifier struct{}

func (nopNotifier) OutageReported(*domain.Outage, *domain.Village) {}
func (nopNotifier) PowerRestored(*domain.Outage, *domain.Village)  {}

func newTestRouter(t *testing.T) *echo.Echo {
	t.Helper()
	ctx := context.Background()
	villages := memory.NewVillageStore()
	for _, v := range []*domain.Village{
		{ID: "v1", Name: "Rampur", Slug: "rampur-sitapur", District: "Sitapur"},
		{ID: "v2", Name: "Alipur", Slug: "alipur-sitapur", District: "Sitapur"},
	} {
		if err := villages.Create(ctx, v); err != nil {
			t.Fatalf("seed village: %v", err)
		}
	}
	users := memory.NewUserStore()
	identity := service.NewIdentityService(users, villages, memory.NewSessionStore(), memory.NewIdempotencyStore(),
		service.IdentityConfig{JWTSecret: "test-secret", BcryptCost: bcrypt.MinCost, AllowEmployeeSignup: true},
		zerolog.Nop())
	ledger := service.NewOutageLedger(memory.NewOutageStore(), villages)

	return NewRouter(Deps{
		Identity: identity,
		Villages: service.NewVillageService(villages, zerolog.Nop()),
		Outages:  service.NewOutageService(ledger, villages, nopNotifier{}, zerolog.Nop()),
		Log:      zerolog.Nop(),
		Registry: prometheus.NewRegistry(),
	})
}

func do(e *echo.Echo, method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Token "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func register(t *testing.T, e *echo.Echo, mobile, village, role string) string {
	t.Helper()
	body := `{"mobile":"` + mobile + `","password":"secret1","name":"Test User","village_id":"` + village + `","role":"` + role + `"}`
	rec := do(e, http.MethodPost, "/users/register/", "", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: %d %s", mobile, rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Fatalf("register %s: no token in %s", mobile, rec.Body.String())
	}
	return resp.Token
}

func decodeOutages(t *testing.T, rec *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var out []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestRouter_OutageLifecycle(t *testing.T) {
	e := newTestRouter(t)
	emp := register(t, e, "9000000001", "v1", "employee")
	resA := register(t, e, "9000000002", "v1", "resident")
	resB := register(t, e, "9000000003", "v2", "")

	// unauthenticated create is rejected and nothing is stored
	rec := do(e, http.MethodPost, "/outages/", "", `{"reason":"x","duration_hours":3,"severity":"high"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	// residents cannot report
	rec = do(e, http.MethodPost, "/outages/", resA, `{"reason":"x","duration_hours":3,"severity":"high"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for resident create, got %d", rec.Code)
	}

	rec = do(e, http.MethodPost, "/outages/", emp, `{"village":"v1","reason":"transformer failure","duration_hours":3,"severity":"high"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	var created map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &created)
	id, _ := created["id"].(string)
	if village, _ := created["village"].(map[string]any); village["name"] != "Rampur" {
		t.Errorf("village not embedded: %v", created["village"])
	}

	// visible to v1 residents with and without the trailing slash
	for _, path := range []string{"/outages/active/", "/outages/active"} {
		active := decodeOutages(t, do(e, http.MethodGet, path, resA, ""))
		if len(active) != 1 || active[0]["id"] != id || active[0]["resolved"] != false {
			t.Fatalf("%s: unexpected active list %v", path, active)
		}
	}
	// a v2 resident asking for v1 still only sees v2
	if other := decodeOutages(t, do(e, http.MethodGet, "/outages/active/?village=v1", resB, "")); len(other) != 0 {
		t.Fatalf("v2 resident saw foreign outages: %v", other)
	}

	rec = do(e, http.MethodPost, "/outages/"+id+"/resolve/", emp, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("resolve: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(e, http.MethodPost, "/outages/"+id+"/resolve/", emp, "")
	if rec.Code != http.StatusConflict || !strings.Contains(rec.Body.String(), "outage already resolved") {
		t.Fatalf("second resolve: %d %s", rec.Code, rec.Body.String())
	}

	if active := decodeOutages(t, do(e, http.MethodGet, "/outages/active/", resA, "")); len(active) != 0 {
		t.Fatalf("resolved outage still active: %v", active)
	}
	history := decodeOutages(t, do(e, http.MethodGet, "/outages/history/", resA, ""))
	if len(history) != 1 || history[0]["resolved"] != true || history[0]["resolved_time"] == nil {
		t.Fatalf("unexpected history: %v", history)
	}

	rec = do(e, http.MethodPut, "/outages/"+id+"/", emp, `{"reason":"late edit"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("update after resolve: expected 409, got %d", rec.Code)
	}
}

func TestRouter_ResidentCannotListAll(t *testing.T) {
	e := newTestRouter(t)
	res := register(t, e, "9000000002", "v1", "")

	if rec := do(e, http.MethodGet, "/outages/", res, ""); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestRouter_SessionLifecycle(t *testing.T) {
	e := newTestRouter(t)
	token := register(t, e, "9000000002", "v1", "")

	rec := do(e, http.MethodGet, "/users/me/", token, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"name":"Rampur"`) {
		t.Fatalf("me: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(e, http.MethodPost, "/users/login/", "", `{"mobile":"9000000002","password":"wrong1"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: expected 401, got %d", rec.Code)
	}

	if rec = do(e, http.MethodPost, "/auth/logout/", token, ""); rec.Code != http.StatusOK {
		t.Fatalf("logout: %d", rec.Code)
	}
	if rec = do(e, http.MethodGet, "/users/me/", token, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("token still valid after logout: %d", rec.Code)
	}
}

func TestRouter_DuplicateRegistration(t *testing.T) {
	e := newTestRouter(t)
	register(t, e, "9000000002", "v1", "")

	rec := do(e, http.MethodPost, "/users/register/", "", `{"mobile":"9000000002","password":"secret1","name":"Again","village_id":"v1"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_PublicEndpoints(t *testing.T) {
	e := newTestRouter(t)

	for _, path := range []string{"/health", "/health/ready", "/metrics"} {
		if rec := do(e, http.MethodGet, path, "", ""); rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
	if rec := do(e, http.MethodGet, "/villages/", "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("villages without token: expected 401, got %d", rec.Code)
	}
}

func TestRouter_CreateOutage_FormStyleFields(t *testing.T) {
	e := newTestRouter(t)
	emp := register(t, e, "9000000001", "v1", "employee")

	rec := do(e, http.MethodPost, "/outages/", emp,
		`{"village":"v1","reason":"transformer failure","duration_hours":"3","severity":"High"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Severity       string    `json:"severity"`
		StartTime      time.Time `json:"start_time"`
		ExpectedReturn time.Time `json:"expected_return"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	if created.Severity != "high" {
		t.Errorf("expected severity high, got %q", created.Severity)
	}
	if got := created.ExpectedReturn.Sub(created.StartTime); got != 3*time.Hour {
		t.Errorf("expected 3h window, got %v", got)
	}

	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown severity", `{"village":"v1","reason":"x","duration_hours":2,"severity":"extreme"}`, "severity must be one of: low medium high"},
		{"non-numeric duration", `{"village":"v1","reason":"x","duration_hours":"two","severity":"low"}`, "duration_hours must be a number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, http.MethodPost, "/outages/", emp, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d %s", rec.Code, rec.Body.String())
			}
			var body struct {
				Error string `json:"error"`
			}
			_ = json.Unmarshal(rec.Body.Bytes(), &body)
			if body.Error != tt.want {
				t.Errorf("expected %q, got %q", tt.want, body.Error)
			}
		})
	}
}
