package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Hryurt/dezztech-backend/internal/domain"
	"github.com/Hryurt/dezztech-backend/internal/http/handler"
	"github.com/Hryurt/dezztech-backend/internal/http/middleware"
	"github.com/Hryurt/dezztech-backend/internal/http/router"
	"github.com/Hryurt/dezztech-backend/internal/repository"
	"github.com/Hryurt/dezztech-backend/internal/security"
	"github.com/Hryurt/dezztech-backend/internal/service"
)

const testPassword = "Sup3r-secret"

type testServer struct {
	URL    string
	Client *http.Client
	DB     *gorm.DB
	Tokens *security.TokenCodec
	Close  func()
}

type serverOptions struct {
	authRateLimitRPM int
	apiRateLimitRPM  int
}

type envelope struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data"`
	Error   *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func newAuthTestServer(t *testing.T) *testServer {
	return newAuthTestServerWithOptions(t, serverOptions{authRateLimitRPM: 100, apiRateLimitRPM: 100})
}

func newAuthTestServerWithOptions(t *testing.T, opts serverOptions) *testServer {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.User{}, &domain.VerificationCode{}, &domain.PasswordResetToken{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	reg := repository.NewRegistry(db)
	tx := repository.NewTransactor(db)
	hasher := security.NewPasswordHasher(4)
	tokens := security.NewTokenCodec("dezztech", "dezztech-api", "0123456789abcdef0123456789abcdef", 15*time.Minute)
	log := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
	notifier := service.NewDevNotifier(log)
	policy := service.CredentialPolicy{OTPTTL: 10 * time.Minute, OTPResendCooldown: time.Minute, OTPMaxAttempts: 5, ResetTokenTTL: 15 * time.Minute}

	authSvc := service.NewAuthService(reg, tx, hasher, tokens, notifier, policy, log)
	profileSvc := service.NewProfileService(reg, tx, hasher, notifier, policy, log)

	h := router.New(router.Dependencies{
		Auth:             handler.NewAuthHandler(authSvc, tokens),
		Profile:          handler.NewProfileHandler(profileSvc),
		Authenticator:    middleware.NewAuthenticator(tokens, authSvc),
		Limiter:          middleware.NewLocalFixedWindowLimiter(),
		Tokens:           tokens,
		CORSOrigins:      []string{"http://localhost:3000"},
		AuthRateLimitRPM: opts.authRateLimitRPM,
		APIRateLimitRPM:  opts.apiRateLimitRPM,
	})
	srv := httptest.NewServer(h)
	return &testServer{
		URL:    srv.URL,
		Client: srv.Client(),
		DB:     db,
		Tokens: tokens,
		Close:  srv.Close,
	}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	var env envelope
	if len(raw) > 0 && json.Valid(raw) {
		_ = json.Unmarshal(raw, &env)
	}
	return resp, env
}

func doRawText(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, raw
}

func latestCode(t *testing.T, db *gorm.DB, userID uint) string {
	t.Helper()
	var code domain.VerificationCode
	if err := db.Where("user_id = ?", userID).Order("id desc").First(&code).Error; err != nil {
		t.Fatalf("load verification code: %v", err)
	}
	return code.Code
}

// registerAndVerify walks a user through the full signup over HTTP and
// returns the new user's ID.
func registerAndVerify(t *testing.T, ts *testServer, email string) uint {
	t.Helper()
	resp, env := doJSON(t, ts.Client, http.MethodPost, ts.URL+"/api/v1/auth/register", map[string]string{
		"email": email, "password": testPassword, "name": "Integration User",
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: status = %d, env = %+v", resp.StatusCode, env)
	}
	id := uint(env.Data["user_id"].(float64))

	resp, env = doJSON(t, ts.Client, http.MethodPost, ts.URL+"/api/v1/auth/verify-email", map[string]string{
		"email": email, "code": latestCode(t, ts.DB, id),
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify: status = %d, env = %+v", resp.StatusCode, env)
	}
	return id
}

func login(t *testing.T, ts *testServer, email, password string) string {
	t.Helper()
	resp, env := doJSON(t, ts.Client, http.MethodPost, ts.URL+"/api/v1/auth/login", map[string]string{
		"email": email, "password": password,
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: status = %d, env = %+v", resp.StatusCode, env)
	}
	token, _ := env.Data["access_token"].(string)
	if token == "" {
		t.Fatal("login returned no access token")
	}
	return token
}
