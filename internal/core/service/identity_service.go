package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/villagegrid/outage-alerts/internal/api/metrics"
	"github.com/villagegrid/outage-alerts/internal/core/domain"
	"github.com/villagegrid/outage-alerts/internal/core/ports"
)

const (
	minPasswordLen = 6
	maxPasswordLen = 72 // bcrypt input limit
)

// IdentityConfig tunes session issuance and credential hashing.
type IdentityConfig struct {
	JWTSecret           string
	SessionTTL          time.Duration
	BcryptCost          int
	AllowEmployeeSignup bool
	IdempotencyTTL      time.Duration
}

// IdentityService implements registration, login and session handling.
//
// Tokens are HS256 JWTs whose jti names a row in the session store, so a
// token stays opaque to clients but can be revoked server-side.
type IdentityService struct {
	users     ports.UserRepository
	villages  ports.VillageRepository
	sessions  ports.SessionStore
	idem      ports.IdempotencyStore
	cfg       IdentityConfig
	dummyHash []byte
	now       func() time.Time
	log       zerolog.Logger
}

func NewIdentityService(
	users ports.UserRepository,
	villages ports.VillageRepository,
	sessions ports.SessionStore,
	idem ports.IdempotencyStore,
	cfg IdentityConfig,
	log zerolog.Logger,
) *IdentityService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 7 * 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 24 * time.Hour
	}
	// Compared against when the mobile is unknown so both failure paths
	// cost one bcrypt comparison.
	dummy, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cfg.BcryptCost)

	return &IdentityService{
		users:     users,
		villages:  villages,
		sessions:  sessions,
		idem:      idem,
		cfg:       cfg,
		dummyHash: dummy,
		now:       time.Now,
		log:       log,
	}
}

// Register creates a resident (or, when enabled, employee) account and opens
// a session for it.
func (s *IdentityService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, string, error) {
	user, err := s.createUser(ctx, in, s.cfg.AllowEmployeeSignup)
	if err != nil {
		return nil, "", err
	}
	token, err := s.openSession(ctx, user)
	if err != nil {
		return nil, "", err
	}
	s.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("user registered")
	return user, token, nil
}

// Provision creates an account without opening a session. Employees can
// always be provisioned.
func (s *IdentityService) Provision(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return s.createUser(ctx, in, true)
}

func (s *IdentityService) createUser(ctx context.Context, in ports.RegisterInput, allowEmployee bool) (*domain.User, error) {
	mobile, err := domain.NormalizeMobile(in.Mobile)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.Invalid("name is required")
	}
	if err := checkPassword("password", in.Password); err != nil {
		return nil, err
	}
	role, err := domain.ParseRole(in.Role)
	if err != nil {
		return nil, err
	}
	if role == domain.RoleEmployee && !allowEmployee {
		return nil, domain.ErrSignupDisabled
	}

	villageID := strings.TrimSpace(in.VillageID)
	if villageID == "" && role == domain.RoleResident {
		return nil, domain.Invalid("village is required")
	}
	if villageID != "" {
		if _, err := s.villages.FindByID(ctx, villageID); err != nil {
			return nil, fmt.Errorf("register: %w", err)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	now := s.now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Mobile:       mobile,
		Name:         name,
		PasswordHash: string(hash),
		Role:         role,
		VillageID:    villageID,
		SMSEnabled:   true,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return user, nil
}

// Authenticate verifies a mobile/password pair and opens a session. Every
// failure returns domain.ErrInvalidCredentials so callers cannot probe which
// mobiles are registered.
func (s *IdentityService) Authenticate(ctx context.Context, mobile, password string) (*domain.User, string, error) {
	normalized, err := domain.NormalizeMobile(mobile)
	if err != nil || password == "" {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return nil, "", domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByMobile(ctx, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			metrics.LoginsTotal.WithLabelValues("failure").Inc()
			return nil, "", domain.ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("authenticate: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil || !user.Active {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return nil, "", domain.ErrInvalidCredentials
	}

	token, err := s.openSession(ctx, user)
	if err != nil {
		return nil, "", err
	}
	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return user, token, nil
}

// ValidateSession resolves a token to its live session.
func (s *IdentityService) ValidateSession(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, domain.ErrSessionInvalid
	}

	claims := &jwt.RegisteredClaims{}
	if _, err := jwt.ParseWithClaims(token, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	); err != nil || claims.ID == "" {
		return nil, domain.ErrSessionInvalid
	}

	sess, err := s.sessions.Get(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrSessionInvalid
		}
		return nil, domain.Unavailable("validate session", err)
	}
	if sess.UserID != claims.Subject || sess.Expired(s.now()) {
		return nil, domain.ErrSessionInvalid
	}
	return sess, nil
}

// CurrentUser loads the account behind a session.
func (s *IdentityService) CurrentUser(ctx context.Context, actor *domain.Session) (*domain.User, error) {
	if actor == nil {
		return nil, domain.ErrSessionInvalid
	}
	return s.users.FindByID(ctx, actor.UserID)
}

// SetSMSPreference sets the notification flag. Repeating the call is harmless.
func (s *IdentityService) SetSMSPreference(ctx context.Context, actor *domain.Session, userID string, enabled bool) (*domain.User, error) {
	if err := authorizeSelf(actor, userID); err != nil {
		return nil, err
	}
	user, err := s.users.SetSMSEnabled(ctx, userID, enabled, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("set sms preference: %w", err)
	}
	s.log.Info().Str("user_id", userID).Bool("sms_enabled", user.SMSEnabled).Msg("sms preference updated")
	return user, nil
}

// ToggleSMS flips the notification flag. With an idempotency key the first
// request fixes the target value and retries re-apply that same value.
func (s *IdentityService) ToggleSMS(ctx context.Context, actor *domain.Session, userID, idempotencyKey string) (*domain.User, error) {
	if err := authorizeSelf(actor, userID); err != nil {
		return nil, err
	}
	if idempotencyKey == "" || s.idem == nil {
		user, err := s.users.ToggleSMS(ctx, userID, s.now().UTC())
		if err != nil {
			return nil, fmt.Errorf("toggle sms: %w", err)
		}
		s.log.Info().Str("user_id", userID).Bool("sms_enabled", user.SMSEnabled).Msg("sms preference toggled")
		return user, nil
	}

	current, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("toggle sms: %w", err)
	}
	key := "toggle_sms:" + userID + ":" + idempotencyKey
	stored, err := s.idem.Remember(ctx, key, strconv.FormatBool(!current.SMSEnabled), s.cfg.IdempotencyTTL)
	if err != nil {
		return nil, domain.Unavailable("toggle sms", err)
	}
	target, err := strconv.ParseBool(stored)
	if err != nil {
		return nil, fmt.Errorf("toggle sms: corrupt idempotency value %q: %w", stored, err)
	}
	return s.SetSMSPreference(ctx, actor, userID, target)
}

// ChangePassword replaces the credential, revokes every session of the user
// and returns a fresh token.
func (s *IdentityService) ChangePassword(ctx context.Context, actor *domain.Session, userID, oldPassword, newPassword string) (*domain.User, string, error) {
	if err := authorizeSelf(actor, userID); err != nil {
		return nil, "", err
	}
	if err := checkPassword("new_password", newPassword); err != nil {
		return nil, "", err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, "", fmt.Errorf("change password: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)) != nil {
		return nil, "", domain.Invalid("old_password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cfg.BcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("change password: hash: %w", err)
	}
	now := s.now().UTC()
	if err := s.users.UpdatePassword(ctx, userID, string(hash), now); err != nil {
		return nil, "", fmt.Errorf("change password: %w", err)
	}
	if err := s.sessions.DeleteAllForUser(ctx, userID); err != nil {
		return nil, "", domain.Unavailable("change password: revoke sessions", err)
	}
	user.PasswordHash = string(hash)
	user.UpdatedAt = now

	token, err := s.openSession(ctx, user)
	if err != nil {
		return nil, "", err
	}
	s.log.Info().Str("user_id", userID).Msg("password changed")
	return user, token, nil
}

// Logout revokes the session behind token. Unknown, expired or malformed
// tokens are not an error.
func (s *IdentityService) Logout(ctx context.Context, token string) error {
	claims := &jwt.RegisteredClaims{}
	if _, err := jwt.ParseWithClaims(token, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	); err != nil || claims.ID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, claims.ID); err != nil {
		return domain.Unavailable("logout", err)
	}
	return nil
}

// LogoutAll revokes every session of the acting user.
func (s *IdentityService) LogoutAll(ctx context.Context, actor *domain.Session) error {
	if actor == nil {
		return domain.ErrSessionInvalid
	}
	if err := s.sessions.DeleteAllForUser(ctx, actor.UserID); err != nil {
		return domain.Unavailable("logout all", err)
	}
	return nil
}

// Disable soft-deletes an account: it can no longer log in, its sessions are
// revoked and it stops receiving notifications.
func (s *IdentityService) Disable(ctx context.Context, userID string) error {
	if err := s.users.SetActive(ctx, userID, false, s.now().UTC()); err != nil {
		return fmt.Errorf("disable user: %w", err)
	}
	if err := s.sessions.DeleteAllForUser(ctx, userID); err != nil {
		return domain.Unavailable("disable user: revoke sessions", err)
	}
	s.log.Info().Str("user_id", userID).Msg("user disabled")
	return nil
}

func (s *IdentityService) openSession(ctx context.Context, user *domain.User) (string, error) {
	now := s.now().UTC()
	sess := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Role:      user.Role,
		VillageID: user.VillageID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return "", domain.Unavailable("open session", err)
	}

	claims := jwt.RegisteredClaims{
		ID:        sess.ID,
		Subject:   user.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("open session: sign token: %w", err)
	}
	return token, nil
}

func (s *IdentityService) keyFunc(*jwt.Token) (any, error) {
	return []byte(s.cfg.JWTSecret), nil
}

func authorizeSelf(actor *domain.Session, userID string) error {
	if actor == nil {
		return domain.ErrSessionInvalid
	}
	if actor.UserID != userID {
		return domain.ErrNotOwnAccount
	}
	return nil
}

func checkPassword(field, pw string) error {
	if len(pw) < minPasswordLen {
		return domain.Invalid("%s must be at least %d characters", field, minPasswordLen)
	}
	if len(pw) > maxPasswordLen {
		return domain.Invalid("%s must be at most %d bytes", field, maxPasswordLen)
	}
	return nil
}
