package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/himalfrost/store-api/internal/domain"
	"github.com/himalfrost/store-api/internal/infrastructure/google"
	jwtinfra "github.com/himalfrost/store-api/internal/infrastructure/jwt"
	"github.com/himalfrost/store-api/internal/pkg/otp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockVerificationStore struct{ mock.Mock }

func (m *mockVerificationStore) Put(ctx context.Context, v *domain.PhoneVerification) error {
	return m.Called(ctx, v).Error(0)
}
func (m *mockVerificationStore) Get(ctx context.Context, phone string) (*domain.PhoneVerification, error) {
	args := m.Called(ctx, phone)
	if v, _ := args.Get(0).(*domain.PhoneVerification); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockVerificationStore) IncrementAttempts(ctx context.Context, phone string) (int, error) {
	args := m.Called(ctx, phone)
	return args.Int(0), args.Error(1)
}
func (m *mockVerificationStore) Consume(ctx context.Context, phone, codeHash string) error {
	return m.Called(ctx, phone, codeHash).Error(0)
}
func (m *mockVerificationStore) Delete(ctx context.Context, phone string) error {
	return m.Called(ctx, phone).Error(0)
}

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Create(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	args := m.Called(ctx, phone)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByGoogleSub(ctx context.Context, sub string) (*domain.User, error) {
	args := m.Called(ctx, sub)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	return m.Called(ctx, userID, updates).Error(0)
}

type mockSessionStore struct{ mock.Mock }

func (m *mockSessionStore) Put(ctx context.Context, s *domain.Session) error {
	return m.Called(ctx, s).Error(0)
}
func (m *mockSessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	args := m.Called(ctx, sessionID)
	if s, _ := args.Get(0).(*domain.Session); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSessionStore) Disable(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

type mockTokens struct{ mock.Mock }

func (m *mockTokens) Sign(userID, role, sessionID string) (string, time.Time, error) {
	args := m.Called(userID, role, sessionID)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}
func (m *mockTokens) Verify(token string) (*jwtinfra.Claims, error) {
	args := m.Called(token)
	if c, _ := args.Get(0).(*jwtinfra.Claims); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockGoogle struct{ mock.Mock }

func (m *mockGoogle) Verify(ctx context.Context, token string) (*google.Payload, error) {
	args := m.Called(ctx, token)
	if p, _ := args.Get(0).(*google.Payload); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSMS struct{ mock.Mock }

func (m *mockSMS) SendSMS(ctx context.Context, to, message string) error {
	return m.Called(ctx, to, message).Error(0)
}

type stubLimiter struct {
	ok  bool
	err error
}

func (l stubLimiter) Allow(context.Context, string) (bool, time.Duration, error) {
	return l.ok, 30 * time.Second, l.err
}

// --- builder ---

const testPhone = "+14165551234"

var (
	clock  = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	hasher = otp.NewHasher("test-secret")
)

type fixture struct {
	vs  *mockVerificationStore
	us  *mockUserStore
	ss  *mockSessionStore
	tok *mockTokens
	g   *mockGoogle
	sms *mockSMS
	svc *service
}

func newFixture(settings Settings, limiter stubLimiter) *fixture {
	f := &fixture{
		vs:  &mockVerificationStore{},
		us:  &mockUserStore{},
		ss:  &mockSessionStore{},
		tok: &mockTokens{},
		g:   &mockGoogle{},
		sms: &mockSMS{},
	}
	if settings.PhoneRegion == "" {
		settings.PhoneRegion = "US"
	}
	f.svc = NewService(ServiceDeps{
		Verifications: f.vs,
		Users:         f.us,
		Sessions:      f.ss,
		Tokens:        f.tok,
		Google:        f.g,
		SMS:           f.sms,
		Hasher:        hasher,
		CodeLimiter:   limiter,
		Settings:      settings,
	}).(*service)
	f.svc.now = func() time.Time { return clock }
	f.svc.newCode = func() (string, error) { return "123456", nil }
	return f
}

func pending(code string, attempts int) *domain.PhoneVerification {
	return &domain.PhoneVerification{
		Phone:     testPhone,
		CodeHash:  hasher.Hash(testPhone, code),
		ExpiresAt: clock.Add(5 * time.Minute).Unix(),
		Attempts:  attempts,
	}
}

func (f *fixture) expectSession(userID, role string) {
	f.tok.On("Sign", userID, role, mock.Anything).Return("signed-token", clock.Add(7*24*time.Hour), nil)
	f.ss.On("Put", mock.Anything, mock.AnythingOfType("*domain.Session")).Return(nil)
}

// --- RequestCode ---

func TestRequestCode_NormalizesAndStoresHash(t *testing.T) {
	f := newFixture(Settings{}, stubLimiter{ok: true})
	f.vs.On("Put", mock.Anything, mock.MatchedBy(func(v *domain.PhoneVerification) bool {
		return v.Phone == testPhone &&
			hasher.Equal(testPhone, "123456", v.CodeHash) &&
			v.Attempts == 0 &&
			v.ExpiresAt == clock.Add(5*time.Minute).Unix()
	})).Return(nil)

	out, err := f.svc.RequestCode(context.Background(), domain.RequestCodeRequest{Phone: "416-555-1234"})
	require.NoError(t, err)
	assert.Equal(t, "123456", out.DevCode)
	assert.Equal(t, 300, out.ExpiresIn)
	f.vs.AssertExpectations(t)
	f.sms.AssertNotCalled(t, "SendSMS", mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestCode_ProductionSendsSMSWithoutDevCode(t *testing.T) {
	f := newFixture(Settings{Production: true}, stubLimiter{ok: true})
	f.vs.On("Put", mock.Anything, mock.Anything).Return(nil)
	f.sms.On("SendSMS", mock.Anything, testPhone, mock.MatchedBy(func(msg string) bool {
		return len(msg) > 0
	})).Return(nil)

	out, err := f.svc.RequestCode(context.Background(), domain.RequestCodeRequest{Phone: "+1 416 555 1234"})
	require.NoError(t, err)
	assert.Empty(t, out.DevCode)
	f.sms.AssertExpectations(t)
}

func TestRequestCode_SMSFailureIsSwallowed(t *testing.T) {
	f := newFixture(Settings{Production: true}, stubLimiter{ok: true})
	f.vs.On("Put", mock.Anything, mock.Anything).Return(nil)
	f.sms.On("SendSMS", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("carrier down"))

	_, err := f.svc.RequestCode(context.Background(), domain.RequestCodeRequest{Phone: testPhone})
	assert.NoError(t, err)
}

func TestRequestCode_RateLimited(t *testing.T) {
	f := newFixture(Settings{}, stubLimiter{ok: false})
	_, err := f.svc.RequestCode(context.Background(), domain.RequestCodeRequest{Phone: testPhone})
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	f.vs.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestRequestCode_LimiterErrorFailsOpen(t *testing.T) {
	f := newFixture(Settings{}, stubLimiter{err: errors.New("redis down")})
	f.vs.On("Put", mock.Anything, mock.Anything).Return(nil)
	_, err := f.svc.RequestCode(context.Background(), domain.RequestCodeRequest{Phone: testPhone})
	assert.NoError(t, err)
}

func TestRequestCode_InvalidPhone(t *testing.T) {
	f := newFixture(Settings{}, stubLimiter{ok: true})
	_, err := f.svc.RequestCode(context.Background(), domain.RequestCodeRequest{Phone: "12"})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

// --- VerifyCode ---

func TestVerifyCode_CreatesPhoneUserThenCodeIsSpent(t *testing.T) {
	f := newFixture(Settings{}, stubLimiter{ok: true})
	v := pending("123456", 0)
	f.vs.On("Get", mock.Anything, testPhone).Return(v, nil).Once()
	f.vs.On("Get", mock.Anything, testPhone).Return(nil, domain.ErrNotFound).Once()
	f.vs.On("Consume", mock.Anything, testPhone, v.CodeHash).Return(nil)
	f.us.On("GetByPhone", mock.Anything, testPhone).Return(nil, domain.ErrNotFound)
	f.us.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Phone == testPhone && u.AuthProvider == domain.ProviderPhone && u.Role == domain.RoleCustomer
	})).Return(nil)
	f.expectSession(mock.Anything, domain.RoleCustomer)

	res, err := f.svc.VerifyCode(context.Background(), domain.VerifyCodeRequest{Phone: "416-555-1234", Code: "123456"})
	require.NoError(t, err)
	assert.Equal(t, "signed-token", res.Token)
	assert.True(t, res.IsNewUser)
	assert.Equal(t, domain.ProviderPhone, res.User.AuthProvider)
	assert.True(t, res.Session.Enable)
	assert.Equal(t, clock.Add(7*24*time.Hour).Unix(), res.Session.ExpiresAt)

	_, err = f.svc.VerifyCode(context.Background(), domain.VerifyCodeRequest{Phone: "416-555-1234", Code: "123456"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVerifyCode_ExistingUserIsReused(t *testing.T) {
	f := newFixture(Settings{}, stubLimiter{ok: true})
	v := pending("123456", 2)
	existing := &domain.User{UserID: "u1", Phone: testPhone, Role: domain.RoleCustomer}
	f.vs.On("Get", mock.Anything, testPhone).Return(v, nil)
	f.vs.On("Consume", mock.Anything, testPhone, v.CodeHash).Return(nil)
	f.us.On("GetByPhone", mock.Anything, testPhone).Return(existing, nil)
	f.expectSession("u1", domain.RoleCustomer)

	res, err := f.svc.VerifyCode(context.Background(), domain.VerifyCodeRequest{Phone: testPhone, Code: "123456"})
	require.NoError(t, err)
	assert.False(t, res.IsNewUser)
	f.us.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestVerifyCode_WrongCodeCountsAttempt(t *testing.T) {
	f := newFixture(Settings{}, stubLimiter{ok: true})
	f.vs.On("Get", mock.Anything, testPhone).Return(pending("123456", 0), nil)
	f.vs.On("IncrementAttempts", mock.Anything, testPhone).Return(1, nil)

	_, err := f.svc.VerifyCode(context.Background(), domain.VerifyCodeRequest{Phone: testPhone, Code: "000000"})
	assert.ErrorIs(t, err, domain.ErrInvalidCode)
	f.vs.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestVerifyCode_FifthFailureDeletesRecord(t *testing.T) {
	f := newFixture(Settings{}, stubLimiter{ok: true})
	f.vs.On("Get", mock.Anything, testPhone).Return(pending("123456", 4), nil).Once()
	f.vs.On("IncrementAttempts", mock.Anything, testPhone).Return(5, nil)
	f.vs.On("Delete", mock.Anything, testPhone).Return(nil)
	f.vs.On("Get", mock.Anything, testPhone).Return(nil, domain.ErrNotFound).Once()

	_, err := f.svc.VerifyCode(context.Background(), domain.VerifyCodeRequest{Phone: testPhone, Code: "000000"})
	assert.ErrorIs(t, err, domain.ErrTooManyAttempts)
	f.vs.AssertCalled(t, "Delete", mock.Anything, testPhone)

	// Even the correct code finds nothing afterwards.
	_, err = f.svc.VerifyCode(context.Background(), domain.VerifyCodeRequest{Phone: testPhone, Code: "123456"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVerifyCode_AttemptsAlreadyExhausted(t *testing.T) {
	f := newFixture(Settings{}, stubLimiter{ok: true})
	f.vs.On("Get", mock.Anything, testPhone).Return(pending("123456", 5), nil)
	f.vs.On("Delete", mock.Anything, testPhone).Return(nil)

	_, err := f.svc.VerifyCode(context.Background(), domain.VerifyCodeRequest{Phone: testPhone, Code: "123456"})
	assert.ErrorIs(t, err, domain.ErrTooManyAttempts)
}

func TestVerifyCode_Expired(t *testing.T) {
	f := newFixture(Settings{}, stubLimiter{ok: true})
	v := pending("123456", 0)
	v.ExpiresAt = clock.Add(-time.Second).Unix()
	f.vs.On("Get", mock.Anything, testPhone).Return(v, nil)
	f.vs.On("Delete", mock.Anything, testPhone).Return(nil)

	_, err := f.svc.VerifyCode(context.Background(), domain.VerifyCodeRequest{Phone: testPhone, Code: "123456"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVerifyCode_LosesConsumeRace(t *testing.T) {
	f := newFixture(Settings{}, stubLimiter{ok: true})
	v := pending("123456", 0)
	f.vs.On("Get", mock.Anything, testPhone).Return(v, nil)
	f.vs.On("Consume", mock.Anything, testPhone, v.CodeHash).Return(domain.ErrNotFound)

	_, err := f.svc.VerifyCode(context.Background(), domain.VerifyCodeRequest{Phone: testPhone, Code: "123456"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	f.us.AssertNotCalled(t, "GetByPhone", mock.Anything, mock.Anything)
}

func TestVerifyCode_ConcurrentCreateResolvesToWinner(t *testing.T) {
	f := newFixture(Settings{}, stubLimiter{ok: true})
	v := pending("123456", 0)
	winner := &domain.User{UserID: "winner", Phone: testPhone, Role: domain.RoleCustomer}
	f.vs.On("Get", mock.Anything, testPhone).Return(v, nil)
	f.vs.On("Consume", mock.Anything, testPhone, v.CodeHash).Return(nil)
	f.us.On("GetByPhone", mock.Anything, testPhone).Return(nil, domain.ErrNotFound).Once()
	f.us.On("Create", mock.Anything, mock.Anything).Return(domain.ErrConflict)
	f.us.On("GetByPhone", mock.Anything, testPhone).Return(winner, nil).Once()
	f.expectSession("winner", domain.RoleCustomer)

	res, err := f.svc.VerifyCode(context.Background(), domain.VerifyCodeRequest{Phone: testPhone, Code: "123456"})
	require.NoError(t, err)
	assert.Equal(t, "winner", res.User.UserID)
	assert.False(t, res.IsNewUser)
}

func TestVerifyCode_SeededPhoneBecomesAdmin(t *testing.T) {
	f := newFixture(Settings{AdminPhones: []string{testPhone}}, stubLimiter{ok: true})
	v := pending("123456", 0)
	f.vs.On("Get", mock.Anything, testPhone).Return(v, nil)
	f.vs.On("Consume", mock.Anything, testPhone, v.CodeHash).Return(nil)
	f.us.On("GetByPhone", mock.Anything, testPhone).Return(nil, domain.ErrNotFound)
	f.us.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Role == domain.RoleAdmin
	})).Return(nil)
	f.expectSession(mock.Anything, domain.RoleAdmin)

	res, err := f.svc.VerifyCode(context.Background(), domain.VerifyCodeRequest{Phone: testPhone, Code: "123456"})
	require.NoError(t, err)
	assert.True(t, res.User.IsAdmin())
}

func TestVerifyCode_SeededExistingCustomerPromoted(t *testing.T) {
	f := newFixture(Settings{AdminPhones: []string{testPhone}}, stubLimiter{ok: true})
	v := pending("123456", 0)
	f.vs.On("Get", mock.Anything, testPhone).Return(v, nil)
	f.vs.On("Consume", mock.Anything, testPhone, v.CodeHash).Return(nil)
	f.us.On("GetByPhone", mock.Anything, testPhone).
		Return(&domain.User{UserID: "u1", Phone: testPhone, Role: domain.RoleCustomer}, nil)
	f.us.On("Update", mock.Anything, "u1", map[string]interface{}{"role": domain.RoleAdmin}).Return(nil)
	f.expectSession("u1", domain.RoleAdmin)

	res, err := f.svc.VerifyCode(context.Background(), domain.VerifyCodeRequest{Phone: testPhone, Code: "123456"})
	require.NoError(t, err)
	assert.True(t, res.User.IsAdmin())
}

// --- Google ---

func TestGoogleSignIn_EmailClaimedElsewhere(t *testing.T) {
	f := newFixture(Settings{}, stubLimiter{ok: true})
	f.g.On("Verify", mock.Anything, "gtok").Return(&google.Payload{
		Sub: "g-1", Email: "Maya@Example.com", EmailVerified: true, Name: "Maya",
	}, nil)
	f.us.On("GetByGoogleSub", mock.Anything, "g-1").Return(nil, domain.ErrNotFound)
	f.us.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Email == "maya@example.com"
	})).Return(domain.ErrConflict).Once()
	f.us.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Email == "" && u.GoogleSub == "g-1" && u.AuthProvider == domain.ProviderGoogle
	})).Return(nil).Once()
	f.expectSession(mock.Anything, domain.RoleCustomer)

	res, err := f.svc.GoogleSignIn(context.Background(), "gtok")
	require.NoError(t, err)
	assert.True(t, res.IsNewUser)
	assert.Equal(t, "Maya", res.User.Name)
	f.us.AssertExpectations(t)
}

func TestGoogleSignIn_InvalidToken(t *testing.T) {
	f := newFixture(Settings{}, stubLimiter{ok: true})
	f.g.On("Verify", mock.Anything, "bad").Return(nil, domain.ErrUnauthorized)
	_, err := f.svc.GoogleSignIn(context.Background(), "bad")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAuthenticateGoogle_ExistingUser(t *testing.T) {
	f := newFixture(Settings{}, stubLimiter{ok: true})
	f.g.On("Verify", mock.Anything, "gtok").Return(&google.Payload{Sub: "g-1"}, nil)
	f.us.On("GetByGoogleSub", mock.Anything, "g-1").Return(&domain.User{UserID: "u9"}, nil)

	u, err := f.svc.AuthenticateGoogle(context.Background(), "gtok")
	require.NoError(t, err)
	assert.Equal(t, "u9", u.UserID)
}

// --- sessions ---

func TestAuthenticate_LiveSession(t *testing.T) {
	f := newFixture(Settings{}, stubLimiter{ok: true})
	f.tok.On("Verify", "tok").Return(&jwtinfra.Claims{UserID: "u1", SessionID: "s1"}, nil)
	f.ss.On("Get", mock.Anything, "s1").Return(&domain.Session{
		SessionID: "s1", UserID: "u1", Enable: true, ExpiresAt: clock.Add(time.Hour).Unix(),
	}, nil)
	f.us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Role: domain.RoleAdmin}, nil)

	sess, err := f.svc.Authenticate(context.Background(), "tok")
	require.NoError(t, err)
	assert.True(t, sess.User.IsAdmin())
}

func TestAuthenticate_Rejections(t *testing.T) {
	cases := map[string]*domain.Session{
		"disabled": {SessionID: "s1", UserID: "u1", Enable: false, ExpiresAt: clock.Add(time.Hour).Unix()},
		"expired":  {SessionID: "s1", UserID: "u1", Enable: true, ExpiresAt: clock.Add(-time.Hour).Unix()},
		"foreign":  {SessionID: "s1", UserID: "other", Enable: true, ExpiresAt: clock.Add(time.Hour).Unix()},
	}
	for name, sess := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(Settings{}, stubLimiter{ok: true})
			f.tok.On("Verify", "tok").Return(&jwtinfra.Claims{UserID: "u1", SessionID: "s1"}, nil)
			f.ss.On("Get", mock.Anything, "s1").Return(sess, nil)
			f.us.On("Get", mock.Anything, mock.Anything).Return(&domain.User{UserID: sess.UserID}, nil)

			_, err := f.svc.Authenticate(context.Background(), "tok")
			assert.ErrorIs(t, err, domain.ErrUnauthorized)
		})
	}
}

func TestAuthenticate_BadToken(t *testing.T) {
	f := newFixture(Settings{}, stubLimiter{ok: true})
	f.tok.On("Verify", "junk").Return(nil, errors.New("signature is invalid"))
	_, err := f.svc.Authenticate(context.Background(), "junk")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLogout(t *testing.T) {
	f := newFixture(Settings{}, stubLimiter{ok: true})
	f.ss.On("Disable", mock.Anything, "s1").Return(nil)
	require.NoError(t, f.svc.Logout(context.Background(), "s1"))
	assert.ErrorIs(t, f.svc.Logout(context.Background(), ""), domain.ErrUnauthorized)
}
