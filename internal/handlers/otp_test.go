package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskscope/internal/dto"
	"github.com/yukikurage/taskscope/internal/models"
	"github.com/yukikurage/taskscope/internal/services"
	"github.com/yukikurage/taskscope/internal/throttle"
)

var codePattern = regexp.MustCompile(`<strong>(\d{6})</strong>`)

func (o *outbox) lastCode(t *testing.T) string {
	t.Helper()

	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.msgs, "no passcode email was sent")
	m := codePattern.FindStringSubmatch(o.msgs[len(o.msgs)-1].HTMLBody)
	require.Len(t, m, 2)
	return m[1]
}

func TestOTPHandler_RequestAndVerify(t *testing.T) {
	env := setupTestEnv(t)
	env.createUser(t, "worker", models.RoleUser, nil)

	w := env.do(t, request{method: http.MethodPost, path: "/api/v1/auth/otp/request", body: map[string]string{"email": "Worker@Example.com"}})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	code := env.mail.lastCode(t)

	w = env.do(t, request{method: http.MethodPost, path: "/api/v1/auth/otp/verify", body: map[string]string{
		"email": "worker@example.com",
		"code":  code,
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var user dto.UserDTO
	decode(t, w, &user)
	assert.Equal(t, "worker", user.Username)

	w = env.do(t, request{method: http.MethodGet, path: "/api/v1/auth/me", cookie: w.Result().Cookies()})
	assert.Equal(t, http.StatusOK, w.Code)

	// a redeemed code cannot be replayed
	w = env.do(t, request{method: http.MethodPost, path: "/api/v1/auth/otp/verify", body: map[string]string{
		"email": "worker@example.com",
		"code":  code,
	}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var body errorBody
	decode(t, w, &body)
	assert.Equal(t, "INVALID_CODE", body.Code)
}

func TestOTPHandler_RequestErrors(t *testing.T) {
	env := setupTestEnv(t)
	env.createUser(t, "worker", models.RoleUser, nil)

	w := env.do(t, request{method: http.MethodPost, path: "/api/v1/auth/otp/request", body: map[string]string{"email": "not-an-email"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, request{method: http.MethodPost, path: "/api/v1/auth/otp/request", body: map[string]string{"email": "nobody@example.com"}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	twin := env.createUser(t, "twin", models.RoleUser, nil)
	require.NoError(t, env.db.Model(twin).Update("email", "worker@example.com").Error)
	w = env.do(t, request{method: http.MethodPost, path: "/api/v1/auth/otp/request", body: map[string]string{"email": "worker@example.com"}})
	require.Equal(t, http.StatusConflict, w.Code)
	var body errorBody
	decode(t, w, &body)
	assert.Equal(t, "AMBIGUOUS_IDENTITY", body.Code)
}

func TestOTPHandler_DeliveryFailure(t *testing.T) {
	env := setupTestEnv(t)
	env.createUser(t, "worker", models.RoleUser, nil)
	env.mail.err = errors.New("relay refused")

	w := env.do(t, request{method: http.MethodPost, path: "/api/v1/auth/otp/request", body: map[string]string{"email": "worker@example.com"}})
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body errorBody
	decode(t, w, &body)
	assert.Equal(t, "DELIVERY_FAILED", body.Code)
	assert.Equal(t, "Error sending email. Please try again later.", body.Message)
}

func TestOTPHandler_VerifyErrors(t *testing.T) {
	env := setupTestEnv(t)
	env.createUser(t, "worker", models.RoleUser, nil)

	w := env.do(t, request{method: http.MethodPost, path: "/api/v1/auth/otp/verify", body: map[string]string{
		"email": "worker@example.com",
		"code":  "12ab56",
	}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, request{method: http.MethodPost, path: "/api/v1/auth/otp/request", body: map[string]string{"email": "worker@example.com"}})
	require.Equal(t, http.StatusAccepted, w.Code)
	code := env.mail.lastCode(t)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	var last int
	for i := 0; i < 6; i++ {
		w = env.do(t, request{method: http.MethodPost, path: "/api/v1/auth/otp/verify", body: map[string]string{
			"email": "worker@example.com",
			"code":  wrong,
		}})
		last = w.Code
	}
	assert.Equal(t, http.StatusBadRequest, last)

	// the right code is refused once the attempt budget is spent
	w = env.do(t, request{method: http.MethodPost, path: "/api/v1/auth/otp/verify", body: map[string]string{
		"email": "worker@example.com",
		"code":  code,
	}})
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	var body errorBody
	decode(t, w, &body)
	assert.Equal(t, "CODE_EXHAUSTED", body.Code)
}

func TestOTPHandler_RequestThrottled(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
	})

	cfg := services.DefaultOTPConfig()
	cfg.ResendWindow = 30 * time.Second
	env := setupTestEnvWithThrottle(t, throttle.NewRedisThrottle(client, "otp:req:"), cfg)
	env.createUser(t, "worker", models.RoleUser, nil)

	w := env.do(t, request{method: http.MethodPost, path: "/api/v1/auth/otp/request", body: map[string]string{"email": "worker@example.com"}})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	mr.FastForward(10 * time.Second)

	w = env.do(t, request{method: http.MethodPost, path: "/api/v1/auth/otp/request", body: map[string]string{"email": "Worker@example.com"}})
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "20", w.Header().Get("Retry-After"))

	var body errorBody
	decode(t, w, &body)
	assert.Equal(t, "TOO_MANY_REQUESTS", body.Code)

	mr.FastForward(21 * time.Second)
	w = env.do(t, request{method: http.MethodPost, path: "/api/v1/auth/otp/request", body: map[string]string{"email": "worker@example.com"}})
	assert.Equal(t, http.StatusAccepted, w.Code)
}
