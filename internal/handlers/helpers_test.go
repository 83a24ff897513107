package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskscope/internal/database"
	"github.com/yukikurage/taskscope/internal/models"
	"github.com/yukikurage/taskscope/internal/notifications"
	"github.com/yukikurage/taskscope/internal/repository"
	"github.com/yukikurage/taskscope/internal/services"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testPassword = "Str0ng!pass"

type outbox struct {
	mu   sync.Mutex
	msgs []notifications.Message
	err  error
}

func (o *outbox) Send(_ context.Context, msg notifications.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.msgs = append(o.msgs, msg)
	return nil
}

type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
	svc    Services
	mail   *outbox
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return setupTestEnvWithThrottle(t, nil, services.DefaultOTPConfig())
}

func setupTestEnvWithThrottle(t *testing.T, throttle services.RequestThrottle, otpCfg services.OTPConfig) *testEnv {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.Models()...))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	mail := &outbox{}

	svc := Services{
		Auth:    services.NewAuthService(userRepo),
		Account: services.NewAccountService(userRepo, taskRepo),
		Task:    services.NewTaskService(taskRepo, userRepo),
		OTP:     services.NewOTPService(userRepo, repository.NewPasscodeRepository(db), mail, throttle, otpCfg),
		Token:   services.NewTokenService("test-secret", "taskscope-test", 15*time.Minute, time.Hour),
	}

	r := gin.New()
	SetupRouter(r, db, cookie.NewStore([]byte("secret")), svc)

	return &testEnv{db: db, router: r, svc: svc, mail: mail}
}

func (e *testEnv) createUser(t *testing.T, name string, role models.Role, manager *uint64) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: string(hash),
		Role:         role,
		IsStaff:      role.IsStaff(),
		ManagerID:    manager,
	}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

// bearer returns an Authorization header value for user.
func (e *testEnv) bearer(t *testing.T, user *models.User) string {
	t.Helper()

	pair, err := e.svc.Token.Issue(user)
	require.NoError(t, err)
	return "Bearer " + pair.Access
}

type request struct {
	method string
	path   string
	body   interface{}
	auth   string
	cookie []*http.Cookie
}

func (e *testEnv) do(t *testing.T, r request) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if r.body != nil {
		raw, ok := r.body.(string)
		if !ok {
			b, err := json.Marshal(r.body)
			require.NoError(t, err)
			raw = string(b)
		}
		reader = bytes.NewReader([]byte(raw))
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(r.method, r.path, reader)
	req.Header.Set("Content-Type", "application/json")
	if r.auth != "" {
		req.Header.Set("Authorization", r.auth)
	}
	for _, c := range r.cookie {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details struct {
		Fields []string `json:"fields"`
	} `json:"details"`
}

func jsonUnmarshal(raw []byte, v interface{}) error {
	return json.Unmarshal(raw, v)
}
