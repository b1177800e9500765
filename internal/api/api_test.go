package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"ashare/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestJWTManagerRoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)

	token, expiresAt, err := m.GenerateToken("researcher")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if time.Until(expiresAt) < 59*time.Minute {
		t.Errorf("unexpected expiry %v", expiresAt)
	}

	subject, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if subject != "researcher" {
		t.Errorf("subject = %q, want researcher", subject)
	}

	t.Run("wrong secret rejected", func(t *testing.T) {
		other := NewJWTManager("other-secret", time.Hour)
		if _, err := other.ValidateToken(token); err == nil {
			t.Error("token signed with another secret must fail")
		}
	})

	t.Run("expired token rejected", func(t *testing.T) {
		short := &JWTManager{secretKey: []byte("test-secret"), duration: -time.Minute}
		expired, _, err := short.GenerateToken("researcher")
		if err != nil {
			t.Fatalf("GenerateToken failed: %v", err)
		}
		if _, err := m.ValidateToken(expired); err == nil {
			t.Error("expired token must fail validation")
		}
	})
}

func protectedRouter(m *JWTManager) *gin.Engine {
	r := gin.New()
	r.POST("/protected", m.AuthMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, Response{Success: true})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	r := protectedRouter(m)

	t.Run("missing token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/protected", nil)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/protected", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("valid token", func(t *testing.T) {
		token, _, err := m.GenerateToken("researcher")
		if err != nil {
			t.Fatal(err)
		}
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(rateLimitMiddleware(config.RateLimitConfig{
		Enabled:           true,
		RequestsPerMinute: 60,
		Burst:             2,
	}))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		codes = append(codes, w.Code)
	}

	// 突发额度 2：前两个请求通过，随后立刻被限流
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("burst requests should pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests && codes[3] != http.StatusTooManyRequests {
		t.Errorf("expected a 429 once the bucket drained, got %v", codes)
	}
}

func TestLoginEndpoint(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	h := NewAuthHandler(m, "admin", "pass123")

	r := gin.New()
	r.POST("/login", h.Login)

	do := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w
	}

	if w := do(`{"username":"admin","password":"pass123"}`); w.Code != http.StatusOK {
		t.Errorf("valid login status = %d, want 200", w.Code)
	}
	if w := do(`{"username":"admin","password":"wrong"}`); w.Code != http.StatusUnauthorized {
		t.Errorf("bad password status = %d, want 401", w.Code)
	}
	if w := do(`{"username":"admin"}`); w.Code != http.StatusBadRequest {
		t.Errorf("missing field status = %d, want 400", w.Code)
	}

	t.Run("login disabled without a configured password", func(t *testing.T) {
		disabled := NewAuthHandler(m, "admin", "")
		r2 := gin.New()
		r2.POST("/login", disabled.Login)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewBufferString(`{"username":"admin","password":""}`))
		req.Header.Set("Content-Type", "application/json")
		r2.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest && w.Code != http.StatusUnauthorized {
			t.Errorf("empty-password login status = %d, want rejection", w.Code)
		}
	})
}
