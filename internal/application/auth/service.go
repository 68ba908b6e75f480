package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/himalfrost/store-api/internal/domain"
	"github.com/himalfrost/store-api/internal/infrastructure/google"
	jwtinfra "github.com/himalfrost/store-api/internal/infrastructure/jwt"
	"github.com/himalfrost/store-api/internal/infrastructure/sns"
	"github.com/himalfrost/store-api/internal/pkg/id"
	"github.com/himalfrost/store-api/internal/pkg/otp"
	"github.com/himalfrost/store-api/internal/pkg/phone"
	"github.com/himalfrost/store-api/internal/pkg/ratelimit"
)

// CodeSent is returned by RequestCode. DevCode is only set outside production.
type CodeSent struct {
	Message   string `json:"message"`
	ExpiresIn int    `json:"expires_in"`
	DevCode   string `json:"dev_code,omitempty"`
}

// Result is a signed-in user with a fresh session token.
type Result struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	User      *domain.User    `json:"user"`
	Session   *domain.Session `json:"session"`
	IsNewUser bool            `json:"is_new_user"`
}

type Service interface {
	RequestCode(ctx context.Context, req domain.RequestCodeRequest) (*CodeSent, error)
	VerifyCode(ctx context.Context, req domain.VerifyCodeRequest) (*Result, error)
	GoogleSignIn(ctx context.Context, idToken string) (*Result, error)
	// Authenticate resolves a bearer token to its live session and user.
	Authenticate(ctx context.Context, token string) (*domain.Session, error)
	// AuthenticateGoogle resolves a raw Google ID token to a user, creating
	// the user on first use.
	AuthenticateGoogle(ctx context.Context, idToken string) (*domain.User, error)
	Me(ctx context.Context, sessionID string) (*domain.Session, error)
	Logout(ctx context.Context, sessionID string) error
}

type verificationStore interface {
	Put(ctx context.Context, v *domain.PhoneVerification) error
	Get(ctx context.Context, phone string) (*domain.PhoneVerification, error)
	IncrementAttempts(ctx context.Context, phone string) (int, error)
	Consume(ctx context.Context, phone, codeHash string) error
	Delete(ctx context.Context, phone string) error
}

type userStore interface {
	Create(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	GetByGoogleSub(ctx context.Context, sub string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type sessionStore interface {
	Put(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	Disable(ctx context.Context, sessionID string) error
}

type tokenProvider interface {
	Sign(userID, role, sessionID string) (string, time.Time, error)
	Verify(token string) (*jwtinfra.Claims, error)
}

type googleVerifier interface {
	Verify(ctx context.Context, token string) (*google.Payload, error)
}

// Settings are the tunables of phone sign-in.
type Settings struct {
	PhoneRegion string
	CodeTTL     time.Duration
	MaxAttempts int
	Production  bool
	AdminPhones []string
	AdminEmails []string
}

type ServiceDeps struct {
	Verifications verificationStore
	Users         userStore
	Sessions      sessionStore
	Tokens        tokenProvider
	Google        googleVerifier
	SMS           sns.SMSSender // nil: codes are only logged
	Hasher        *otp.Hasher
	CodeLimiter   ratelimit.Limiter // keyed by phone
	Settings      Settings
}

type service struct {
	verifications verificationStore
	users         userStore
	sessions      sessionStore
	tokens        tokenProvider
	google        googleVerifier
	sms           sns.SMSSender
	hasher        *otp.Hasher
	codeLimiter   ratelimit.Limiter
	cfg           Settings
	now           func() time.Time
	newCode       func() (string, error)
}

func NewService(deps ServiceDeps) Service {
	cfg := deps.Settings
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = 5 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &service{
		verifications: deps.Verifications,
		users:         deps.Users,
		sessions:      deps.Sessions,
		tokens:        deps.Tokens,
		google:        deps.Google,
		sms:           deps.SMS,
		hasher:        deps.Hasher,
		codeLimiter:   deps.CodeLimiter,
		cfg:           cfg,
		now:           time.Now,
		newCode:       otp.NewCode,
	}
}

func (s *service) RequestCode(ctx context.Context, req domain.RequestCodeRequest) (*CodeSent, error) {
	p, err := phone.Normalize(req.Phone, s.cfg.PhoneRegion)
	if err != nil {
		return nil, err
	}
	if s.codeLimiter != nil {
		ok, retry, err := s.codeLimiter.Allow(ctx, p)
		if err != nil {
			slog.Warn("code rate limiter unavailable", "err", err)
		} else if !ok {
			return nil, fmt.Errorf("too many code requests, retry in %ds: %w", int(retry.Seconds())+1, domain.ErrRateLimited)
		}
	}

	code, err := s.newCode()
	if err != nil {
		return nil, err
	}
	now := s.now()
	v := &domain.PhoneVerification{
		Phone:       p,
		CodeHash:    s.hasher.Hash(p, code),
		ExpiresAt:   now.Add(s.cfg.CodeTTL).Unix(),
		Attempts:    0,
		RequestedAt: now.Unix(),
	}
	if err := s.verifications.Put(ctx, v); err != nil {
		return nil, err
	}

	if s.cfg.Production && s.sms != nil {
		msg := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(s.cfg.CodeTTL.Minutes()))
		if err := s.sms.SendSMS(ctx, p, msg); err != nil {
			slog.Error("send verification sms", "phone", p, "err", err)
		}
	} else {
		slog.Info("verification code issued", "phone", p, "code", code)
	}

	out := &CodeSent{Message: "verification code sent", ExpiresIn: int(s.cfg.CodeTTL.Seconds())}
	if !s.cfg.Production {
		out.DevCode = code
	}
	return out, nil
}

func (s *service) VerifyCode(ctx context.Context, req domain.VerifyCodeRequest) (*Result, error) {
	p, err := phone.Normalize(req.Phone, s.cfg.PhoneRegion)
	if err != nil {
		return nil, err
	}
	v, err := s.verifications.Get(ctx, p)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("no pending code for this phone: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	if s.now().Unix() >= v.ExpiresAt {
		s.discard(ctx, p)
		return nil, fmt.Errorf("code expired: %w", domain.ErrNotFound)
	}
	if v.Attempts >= s.cfg.MaxAttempts {
		s.discard(ctx, p)
		return nil, fmt.Errorf("request a new code: %w", domain.ErrTooManyAttempts)
	}
	if !s.hasher.Equal(p, req.Code, v.CodeHash) {
		n, err := s.verifications.IncrementAttempts(ctx, p)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("no pending code for this phone: %w", domain.ErrNotFound)
			}
			return nil, err
		}
		if n >= s.cfg.MaxAttempts {
			s.discard(ctx, p)
			return nil, fmt.Errorf("request a new code: %w", domain.ErrTooManyAttempts)
		}
		return nil, fmt.Errorf("%d attempts left: %w", s.cfg.MaxAttempts-n, domain.ErrInvalidCode)
	}
	// Only one concurrent verifier can delete the record it read.
	if err := s.verifications.Consume(ctx, p, v.CodeHash); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("code already used: %w", domain.ErrNotFound)
		}
		return nil, err
	}

	u, created, err := s.findOrCreate(ctx,
		func() (*domain.User, error) { return s.users.GetByPhone(ctx, p) },
		func() *domain.User { return s.newUser(domain.ProviderPhone, func(u *domain.User) { u.Phone = p }) },
	)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, u, domain.ProviderPhone, created)
}

func (s *service) GoogleSignIn(ctx context.Context, idToken string) (*Result, error) {
	u, created, err := s.googleUser(ctx, idToken)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, u, domain.ProviderGoogle, created)
}

func (s *service) AuthenticateGoogle(ctx context.Context, idToken string) (*domain.User, error) {
	u, _, err := s.googleUser(ctx, idToken)
	return u, err
}

func (s *service) googleUser(ctx context.Context, idToken string) (*domain.User, bool, error) {
	if s.google == nil {
		return nil, false, fmt.Errorf("google sign-in is not configured: %w", domain.ErrUnauthorized)
	}
	payload, err := s.google.Verify(ctx, idToken)
	if err != nil {
		return nil, false, err
	}
	email := ""
	if payload.EmailVerified {
		email = strings.ToLower(payload.Email)
	}
	lookup := func() (*domain.User, error) { return s.users.GetByGoogleSub(ctx, payload.Sub) }
	u, created, err := s.findOrCreate(ctx, lookup, func() *domain.User {
		return s.newUser(domain.ProviderGoogle, func(u *domain.User) {
			u.GoogleSub = payload.Sub
			u.Email = email
			u.Name = payload.Name
		})
	})
	if errors.Is(err, domain.ErrConflict) && email != "" {
		// The email belongs to another account; sign in without claiming it.
		u, created, err = s.findOrCreate(ctx, lookup, func() *domain.User {
			return s.newUser(domain.ProviderGoogle, func(u *domain.User) {
				u.GoogleSub = payload.Sub
				u.Name = payload.Name
			})
		})
	}
	return u, created, err
}

func (s *service) Authenticate(ctx context.Context, token string) (*domain.Session, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", domain.ErrUnauthorized)
	}
	sess, err := s.liveSession(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != claims.UserID {
		return nil, fmt.Errorf("session does not match token: %w", domain.ErrUnauthorized)
	}
	return sess, nil
}

func (s *service) Me(ctx context.Context, sessionID string) (*domain.Session, error) {
	return s.liveSession(ctx, sessionID)
}

func (s *service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("no session: %w", domain.ErrUnauthorized)
	}
	return s.sessions.Disable(ctx, sessionID)
}

// liveSession loads an enabled, unexpired session with its user attached.
func (s *service) liveSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("no session: %w", domain.ErrUnauthorized)
	}
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("session not found: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if !sess.Enable || s.now().Unix() >= sess.ExpiresAt {
		return nil, fmt.Errorf("session ended: %w", domain.ErrUnauthorized)
	}
	u, err := s.users.Get(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("user not found: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	sess.User = u
	return sess, nil
}

func (s *service) issue(ctx context.Context, u *domain.User, provider string, created bool) (*Result, error) {
	s.applySeedRole(ctx, u)
	now := s.now().UTC()
	sess := &domain.Session{
		SessionID: id.New(),
		UserID:    u.UserID,
		Provider:  provider,
		Enable:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	token, exp, err := s.tokens.Sign(u.UserID, u.Role, sess.SessionID)
	if err != nil {
		return nil, err
	}
	sess.ExpiresAt = exp.Unix()
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, err
	}
	sess.User = u
	return &Result{Token: token, ExpiresAt: exp, User: u, Session: sess, IsNewUser: created}, nil
}

// findOrCreate looks the user up and creates it when missing. Losing a
// creation race to a concurrent sign-in resolves to the winner's record.
func (s *service) findOrCreate(ctx context.Context, lookup func() (*domain.User, error), build func() *domain.User) (*domain.User, bool, error) {
	u, err := lookup()
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}
	nu := build()
	err = s.users.Create(ctx, nu)
	if err == nil {
		slog.Info("user created", "user_id", nu.UserID, "provider", nu.AuthProvider, "role", nu.Role)
		return nu, true, nil
	}
	if !errors.Is(err, domain.ErrConflict) {
		return nil, false, err
	}
	u, lerr := lookup()
	if lerr != nil {
		return nil, false, err
	}
	return u, false, nil
}

func (s *service) newUser(provider string, fill func(*domain.User)) *domain.User {
	now := s.now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Role:         domain.RoleCustomer,
		AuthProvider: provider,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	fill(u)
	if s.seeded(u) {
		u.Role = domain.RoleAdmin
	}
	return u
}

// applySeedRole promotes an existing customer whose phone or email was added
// to the admin seed after the account was created.
func (s *service) applySeedRole(ctx context.Context, u *domain.User) {
	if u.IsAdmin() || !s.seeded(u) {
		return
	}
	if err := s.users.Update(ctx, u.UserID, map[string]interface{}{"role": domain.RoleAdmin}); err != nil {
		slog.Warn("promote seeded admin", "user_id", u.UserID, "err", err)
		return
	}
	u.Role = domain.RoleAdmin
	slog.Info("seeded admin promoted", "user_id", u.UserID)
}

func (s *service) seeded(u *domain.User) bool {
	for _, p := range s.cfg.AdminPhones {
		if u.Phone != "" && p == u.Phone {
			return true
		}
	}
	for _, e := range s.cfg.AdminEmails {
		if u.Email != "" && strings.EqualFold(e, u.Email) {
			return true
		}
	}
	return false
}

func (s *service) discard(ctx context.Context, p string) {
	if err := s.verifications.Delete(ctx, p); err != nil {
		slog.Warn("delete verification record", "phone", p, "err", err)
	}
}
