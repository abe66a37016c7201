package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"presence-tracker/internal/security"
)

func newGuardedRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/guarded", mw, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

func request(r *gin.Engine, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStatsKeyAuth(t *testing.T) {
	r := newGuardedRouter(StatsKeyAuth("sekrit"))

	tests := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{"correct key", map[string]string{StatsKeyHeader: "sekrit"}, http.StatusOK},
		{"wrong key", map[string]string{StatsKeyHeader: "nope"}, http.StatusUnauthorized},
		{"missing header", nil, http.StatusUnauthorized},
		{"empty header", map[string]string{StatsKeyHeader: ""}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := request(r, tt.headers); w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestStatsKeyAuth_EmptyConfiguredKeyRejectsAll(t *testing.T) {
	r := newGuardedRouter(StatsKeyAuth(""))
	if w := request(r, map[string]string{StatsKeyHeader: ""}); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401: empty configured key must never authorize", w.Code)
	}
}

func TestEventAuth_BearerToken(t *testing.T) {
	tokens := security.NewTokenProvider([]byte("jwt-secret"), "auth-service", "presence-tracker", time.Minute)
	r := newGuardedRouter(EventAuth(tokens, "sekrit"))

	good, err := tokens.Issue("auth-service")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if w := request(r, map[string]string{"Authorization": "Bearer " + good}); w.Code != http.StatusOK {
		t.Errorf("valid token: status = %d, want 200", w.Code)
	}
	if w := request(r, map[string]string{"Authorization": "Bearer bogus"}); w.Code != http.StatusUnauthorized {
		t.Errorf("bogus token: status = %d, want 401", w.Code)
	}
	if w := request(r, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("missing header: status = %d, want 401", w.Code)
	}
	// With a token provider configured, the stats key is not an event credential.
	if w := request(r, map[string]string{StatsKeyHeader: "sekrit"}); w.Code != http.StatusUnauthorized {
		t.Errorf("stats key with provider configured: status = %d, want 401", w.Code)
	}
}

func TestEventAuth_StatsKeyFallback(t *testing.T) {
	r := newGuardedRouter(EventAuth(nil, "sekrit"))
	if w := request(r, map[string]string{StatsKeyHeader: "sekrit"}); w.Code != http.StatusOK {
		t.Errorf("stats key fallback: status = %d, want 200", w.Code)
	}
	if w := request(r, map[string]string{StatsKeyHeader: "wrong"}); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong key: status = %d, want 401", w.Code)
	}
}
