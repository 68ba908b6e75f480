package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/himalfrost/store-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockUserSvc struct{ mock.Mock }

func (m *mockUserSvc) user(args mock.Arguments) (*domain.User, error) {
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserSvc) Get(ctx context.Context, userID string) (*domain.User, error) {
	return m.user(m.Called(ctx, userID))
}
func (m *mockUserSvc) UpdateProfile(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.User, error) {
	return m.user(m.Called(ctx, userID, req))
}
func (m *mockUserSvc) SaveCheckoutDetails(ctx context.Context, userID string, c domain.CustomerInfo) error {
	return m.Called(ctx, userID, c).Error(0)
}
func (m *mockUserSvc) List(ctx context.Context, limit int, cursor string) ([]domain.User, string, error) {
	args := m.Called(ctx, limit, cursor)
	return args.Get(0).([]domain.User), args.String(1), args.Error(2)
}
func (m *mockUserSvc) UpdateRole(ctx context.Context, actorID, userID, role string) (*domain.User, error) {
	return m.user(m.Called(ctx, actorID, userID, role))
}

func TestMe_Anonymous(t *testing.T) {
	rr := httptest.NewRecorder()
	NewUserHandler(&mockUserSvc{}, res).Me(rr, httptest.NewRequest(http.MethodGet, "/v1/users/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMe_ReturnsStoredUser(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Name: "Maya"}, nil)

	rr := httptest.NewRecorder()
	NewUserHandler(svc, res).Me(rr, as(httptest.NewRequest(http.MethodGet, "/v1/users/me", nil), customer))
	assert.Equal(t, http.StatusOK, rr.Code)
	var u domain.User
	decode(t, rr, &u)
	assert.Equal(t, "Maya", u.Name)
}

func TestUpdateMe_EmailConflict(t *testing.T) {
	svc := &mockUserSvc{}
	email := "taken@example.com"
	svc.On("UpdateProfile", mock.Anything, "u1", domain.UpdateProfileRequest{Email: &email}).Return(nil, domain.ErrConflict)

	rr := httptest.NewRecorder()
	NewUserHandler(svc, res).UpdateMe(rr, as(jsonReq(t, http.MethodPut, "/v1/users/me", map[string]string{"email": email}), customer))
	assert.Equal(t, http.StatusConflict, rr.Code)
	svc.AssertExpectations(t)
}

func TestUpdateMe_InvalidEmail(t *testing.T) {
	rr := httptest.NewRecorder()
	NewUserHandler(&mockUserSvc{}, res).UpdateMe(rr, as(jsonReq(t, http.MethodPut, "/v1/users/me", map[string]string{"email": "nope"}), customer))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListUsers_Cursor(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("List", mock.Anything, 20, "abc").Return([]domain.User{{UserID: "u1"}}, "def", nil)

	rr := httptest.NewRecorder()
	NewUserHandler(svc, res).List(rr, httptest.NewRequest(http.MethodGet, "/v1/users?limit=20&cursor=abc", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	var page UsersPageEnvelope
	decode(t, rr, &page)
	assert.Equal(t, "def", page.NextCursor)
	assert.Len(t, page.Users, 1)
}

func TestUpdateRole(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("UpdateRole", mock.Anything, "a1", "u1", domain.RoleAdmin).Return(&domain.User{UserID: "u1", Role: domain.RoleAdmin}, nil)

	r := withParam(jsonReq(t, http.MethodPut, "/v1/users/u1/role", map[string]string{"role": "admin"}), "id", "u1")
	rr := httptest.NewRecorder()
	NewUserHandler(svc, res).UpdateRole(rr, as(r, admin))
	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestUpdateRole_UnknownRole(t *testing.T) {
	r := withParam(jsonReq(t, http.MethodPut, "/v1/users/u1/role", map[string]string{"role": "owner"}), "id", "u1")
	rr := httptest.NewRecorder()
	NewUserHandler(&mockUserSvc{}, res).UpdateRole(rr, as(r, admin))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
