package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/villagegrid/outage-alerts/internal/api/middleware"
	"github.com/villagegrid/outage-alerts/internal/core/domain"
	"github.com/villagegrid/outage-alerts/internal/core/ports"
)

// stubIdentity implements ports.IdentityService; unset funcs panic through
// the embedded nil interface, which flags unexpected calls.
type stubIdentity struct {
	ports.IdentityService
	registerFn  func(ctx context.Context, in ports.RegisterInput) (*domain.User, string, error)
	loginFn     func(ctx context.Context, mobile, password string) (*domain.User, string, error)
	logoutFn    func(ctx context.Context, token string) error
	logoutAllFn func(ctx context.Context, actor *domain.Session) error
	currentFn   func(ctx context.Context, actor *domain.Session) (*domain.User, error)
	setPrefFn   func(ctx context.Context, actor *domain.Session, userID string, enabled bool) (*domain.User, error)
	toggleFn    func(ctx context.Context, actor *domain.Session, userID, key string) (*domain.User, error)
}

func (s *stubIdentity) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, string, error) {
	return s.registerFn(ctx, in)
}

func (s *stubIdentity) Authenticate(ctx context.Context, mobile, password string) (*domain.User, string, error) {
	return s.loginFn(ctx, mobile, password)
}

func (s *stubIdentity) Logout(ctx context.Context, token string) error {
	return s.logoutFn(ctx, token)
}

func (s *stubIdentity) LogoutAll(ctx context.Context, actor *domain.Session) error {
	return s.logoutAllFn(ctx, actor)
}

func (s *stubIdentity) CurrentUser(ctx context.Context, actor *domain.Session) (*domain.User, error) {
	return s.currentFn(ctx, actor)
}

func (s *stubIdentity) SetSMSPreference(ctx context.Context, actor *domain.Session, userID string, enabled bool) (*domain.User, error) {
	return s.setPrefFn(ctx, actor, userID, enabled)
}

func (s *stubIdentity) ToggleSMS(ctx context.Context, actor *domain.Session, userID, key string) (*domain.User, error) {
	return s.toggleFn(ctx, actor, userID, key)
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func resident() *domain.Session {
	return &domain.Session{ID: "s1", UserID: "u1", Role: domain.RoleResident, VillageID: "v1"}
}

func TestAuthHandler_Register_Success(t *testing.T) {
	e := newTestEcho()
	stub := &stubIdentity{
		registerFn: func(_ context.Context, in ports.RegisterInput) (*domain.User, string, error) {
			if in.Mobile != "9876543210" || in.VillageID != "v1" || in.Name != "Asha" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &domain.User{ID: "u1", Mobile: in.Mobile, Name: in.Name, Role: domain.RoleResident, VillageID: in.VillageID, SMSEnabled: true, Active: true}, "tok", nil
		},
	}
	handler := NewAuthHandler(stub)

	// "village" is accepted as an alias of village_id
	req := jsonRequest(http.MethodPost, "/users/register/", `{"mobile":"9876543210","password":"secret1","name":"Asha","village":"v1"}`)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp struct {
		Token string         `json:"token"`
		User  map[string]any `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Token != "tok" {
		t.Errorf("expected token tok, got %q", resp.Token)
	}
	if resp.User["mobile"] != "9876543210" || resp.User["role"] != "resident" || resp.User["sms_enabled"] != true {
		t.Fatalf("unexpected user payload: %+v", resp.User)
	}
	if _, leaked := resp.User["password_hash"]; leaked {
		t.Fatal("password hash must not be serialised")
	}
}

func TestAuthHandler_Register_MobileTaken(t *testing.T) {
	e := newTestEcho()
	stub := &stubIdentity{
		registerFn: func(context.Context, ports.RegisterInput) (*domain.User, string, error) {
			return nil, "", domain.ErrMobileTaken
		},
	}
	handler := NewAuthHandler(stub)

	req := jsonRequest(http.MethodPost, "/users/register/", `{"mobile":"9876543210","password":"secret1","name":"Asha","village_id":"v1"}`)
	c := e.NewContext(req, httptest.NewRecorder())

	err := handler.Register(c)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestAuthHandler_Register_MissingFields(t *testing.T) {
	e := newTestEcho()
	handler := NewAuthHandler(&stubIdentity{})

	req := jsonRequest(http.MethodPost, "/users/register/", `{"mobile":"9876543210"}`)
	c := e.NewContext(req, httptest.NewRecorder())

	err := handler.Register(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
	if msg, _ := he.Message.(string); !strings.Contains(msg, "password is required") {
		t.Errorf("message should name the field, got %q", msg)
	}
}

func TestAuthHandler_Login(t *testing.T) {
	e := newTestEcho()
	stub := &stubIdentity{
		loginFn: func(_ context.Context, mobile, password string) (*domain.User, string, error) {
			if password != "secret1" {
				return nil, "", domain.ErrInvalidCredentials
			}
			return &domain.User{ID: "u1", Mobile: mobile, Role: domain.RoleEmployee, CreatedAt: time.Now()}, "tok", nil
		},
	}
	handler := NewAuthHandler(stub)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/users/login/", `{"mobile":"9876543210","password":"secret1"}`), rec)
	if err := handler.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"token":"tok"`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}

	c = e.NewContext(jsonRequest(http.MethodPost, "/users/login/", `{"mobile":"9876543210","password":"wrong"}`), httptest.NewRecorder())
	if err := handler.Login(c); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestAuthHandler_Logout_UsesRequestToken(t *testing.T) {
	e := newTestEcho()
	var got string
	stub := &stubIdentity{
		logoutFn: func(_ context.Context, token string) error {
			got = token
			return nil
		},
	}
	handler := NewAuthHandler(stub)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/auth/logout/", nil), rec)
	c.Set(middleware.SessionKey, resident())
	c.Set(middleware.TokenKey, "tok-123")

	if err := handler.Logout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if got != "tok-123" {
		t.Errorf("expected token tok-123 to be revoked, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestAuthHandler_LogoutAll_RequiresSession(t *testing.T) {
	e := newTestEcho()
	handler := NewAuthHandler(&stubIdentity{})

	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/auth/logoutall/", nil), httptest.NewRecorder())
	err := handler.LogoutAll(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}
