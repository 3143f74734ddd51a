package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/RingdingdongJeter/Food-App-Backend/internal/middleware"
	"github.com/RingdingdongJeter/Food-App-Backend/internal/models"
	"github.com/RingdingdongJeter/Food-App-Backend/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepository is a mock of the UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestRegister(t *testing.T) {
	app := fiber.New()
	mockRepo := new(MockUserRepository)

	s := &Server{
		config:   testConfig(""),
		userRepo: mockRepo,
	}

	app.Post("/register", s.Register)

	tests := []struct {
		name           string
		body           map[string]string
		mockSetup      func()
		expectedStatus int
	}{
		{
			name: "Success",
			body: map[string]string{"email": " New@Example.com ", "password": "Password123!", "display_name": "Newbie"},
			mockSetup: func() {
				mockRepo.On("GetByEmail", mock.Anything, "new@example.com").Return(nil, nil)
				mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
					return u.Email == "new@example.com" && u.PasswordHash != "Password123!" &&
						u.DisplayName != nil && *u.DisplayName == "Newbie"
				})).Run(func(args mock.Arguments) {
					args.Get(1).(*models.User).ID = "user-new"
				}).Return(nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "Duplicate User",
			body: map[string]string{"email": "exists@example.com", "password": "Password123!"},
			mockSetup: func() {
				mockRepo.On("GetByEmail", mock.Anything, "exists@example.com").Return(&models.User{ID: "user-1"}, nil)
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "Duplicate On Insert",
			body: map[string]string{"email": "race@example.com", "password": "Password123!"},
			mockSetup: func() {
				mockRepo.On("GetByEmail", mock.Anything, "race@example.com").Return(nil, nil)
				mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
					return u.Email == "race@example.com"
				})).Return(repository.ErrDuplicate)
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "Short Password",
			body:           map[string]string{"email": "short@example.com", "password": "1234567"},
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Long Password",
			body:           map[string]string{"email": "long@example.com", "password": strings.Repeat("x", 73)},
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Invalid Email",
			body:           map[string]string{"email": "not-an-email", "password": "Password123!"},
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Missing Fields",
			body:           map[string]string{},
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			resp := postJSON(t, app, "/register", tt.body)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusCreated {
				var body map[string]any
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.NotEmpty(t, body["access_token"])
				assert.Equal(t, "bearer", body["token_type"])
				assert.EqualValues(t, 3600, body["expires_in"])
				user, _ := body["user"].(map[string]any)
				assert.Equal(t, "user-new", user["id"])
				assert.NotContains(t, user, "password_hash")
			}
		})
	}

	mockRepo.AssertExpectations(t)
}

func TestLogin(t *testing.T) {
	app := fiber.New()
	mockRepo := new(MockUserRepository)
	cfg := testConfig("")

	s := &Server{
		config:   cfg,
		userRepo: mockRepo,
	}
	app.Post("/login", s.Login)

	hash, err := bcrypt.GenerateFromPassword([]byte("Password123!"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{ID: "user-1", Email: "test@example.com", PasswordHash: string(hash)}

	mockRepo.On("GetByEmail", mock.Anything, "test@example.com").Return(user, nil)
	mockRepo.On("GetByEmail", mock.Anything, "missing@example.com").Return(nil, nil)
	mockRepo.On("GetByEmail", mock.Anything, "broken@example.com").Return(nil, models.NewStorageError(errors.New("connection reset")))

	tests := []struct {
		name           string
		email          string
		password       string
		expectedStatus int
	}{
		{"Success", "test@example.com", "Password123!", http.StatusOK},
		{"Wrong Password", "test@example.com", "wrong-password", http.StatusUnauthorized},
		{"Unknown Email", "missing@example.com", "Password123!", http.StatusUnauthorized},
		{"Storage Failure", "broken@example.com", "Password123!", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, app, "/login", map[string]string{"email": tt.email, "password": tt.password})
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusOK {
				var body map[string]any
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				token, _ := body["access_token"].(string)
				identity, err := middleware.NewAuthenticator(cfg, nil).VerifyToken(context.Background(), token)
				require.NoError(t, err)
				assert.Equal(t, "user-1", identity.ID)
				assert.Equal(t, "test@example.com", identity.Email)
			}
		})
	}
}

func TestRegisterLoginLogout(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	_, app := newTestServer(t, testConfig(""), rdb)

	creds := fiber.Map{"email": "carol@example.com", "password": "Password123!"}
	var registered map[string]any
	require.Equal(t, http.StatusCreated, call(t, app, http.MethodPost, "/auth/register", "", creds, &registered))
	assert.Equal(t, http.StatusConflict, call(t, app, http.MethodPost, "/auth/register", "", creds, nil))

	var session map[string]any
	require.Equal(t, http.StatusOK, call(t, app, http.MethodPost, "/auth/login", "", creds, &session))
	token, _ := session["access_token"].(string)
	require.NotEmpty(t, token)

	assert.Equal(t, http.StatusUnauthorized, call(t, app, http.MethodPost, "/auth/login", "",
		fiber.Map{"email": "carol@example.com", "password": "nope-nope"}, nil))

	assert.Equal(t, http.StatusOK, call(t, app, http.MethodGet, "/friends", token, nil, nil))

	var out map[string]string
	require.Equal(t, http.StatusOK, call(t, app, http.MethodPost, "/auth/logout", token, nil, &out))
	assert.Equal(t, "logged_out", out["status"])

	assert.Equal(t, http.StatusUnauthorized, call(t, app, http.MethodGet, "/friends", token, nil, nil))

	// Other sessions stay valid.
	other, _ := registered["access_token"].(string)
	assert.Equal(t, http.StatusOK, call(t, app, http.MethodGet, "/friends", other, nil, nil))
}

func TestLogout_WithoutRedis(t *testing.T) {
	cfg := testConfig("")
	_, app := newTestServer(t, cfg, nil)

	var body models.ErrorResponse
	assert.Equal(t, http.StatusServiceUnavailable, call(t, app, http.MethodPost, "/auth/logout", tokenFor(t, cfg, "alice"), nil, &body))
	assert.Equal(t, models.CodeStorage, body.Code)
}

func TestValidateRegistration(t *testing.T) {
	req := credentials{Email: "  MiXeD@Example.COM", Password: "12345678"}
	require.NoError(t, validateRegistration(&req))
	assert.Equal(t, "mixed@example.com", req.Email)

	req = credentials{Email: "a@b.c", Password: strings.Repeat("p", 72)}
	assert.NoError(t, validateRegistration(&req))
}
